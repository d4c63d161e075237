package logger

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Config module log configuration (built by Manager for each module)
type Config struct {
	Level           string
	Encoding        string // json or console
	ConsoleEncoding string

	moduleName string
	logDir     string

	EnableFile    bool
	EnableConsole bool

	EnableLevelInFilename bool
	EnableDateInFilename  bool
	DateFormat            string

	// lumberjack rotation
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool

	EnableCaller bool
}

// ManagerConfig global manager configuration (shared by all modules)
type ManagerConfig struct {
	BaseLogDir            string `mapstructure:"base_log_dir"`
	Level                 string `mapstructure:"level"`
	AppName               string `mapstructure:"app_name"` // injected into every entry, even when empty
	Encoding              string `mapstructure:"encoding"`
	ConsoleEncoding       string `mapstructure:"console_encoding"`
	EnableConsole         bool   `mapstructure:"enable_console"`
	EnableFile            bool   `mapstructure:"enable_file"`
	EnableLevelInFilename bool   `mapstructure:"enable_level_in_filename"`
	EnableDateInFilename  bool   `mapstructure:"enable_date_in_filename"`
	DateFormat            string `mapstructure:"date_format"`
	MaxSize               int    `mapstructure:"max_size"`
	MaxBackups            int    `mapstructure:"max_backups"`
	MaxAge                int    `mapstructure:"max_age"`
	Compress              bool   `mapstructure:"compress"`
	EnableCaller          bool   `mapstructure:"enable_caller"`
	EnableStacktrace      bool   `mapstructure:"enable_stacktrace"`
	StacktraceLevel       string `mapstructure:"stacktrace_level"`
	StacktraceDepth       int    `mapstructure:"stacktrace_depth"` // 0 = unlimited
	LoggerName            string `mapstructure:"logger_name"`

	EnableTraceID    bool   `mapstructure:"enable_trace_id"`
	TraceIDKey       string `mapstructure:"trace_id_key"`
	TraceIDFieldName string `mapstructure:"trace_id_field_name"`
}

// DefaultManagerConfig returns the default manager configuration
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		BaseLogDir:            "logs",
		LoggerName:            "springcloud",
		Level:                 "info",
		Encoding:              "json",
		ConsoleEncoding:       "console",
		EnableConsole:         true,
		EnableFile:            true,
		EnableLevelInFilename: true,
		EnableDateInFilename:  true,
		DateFormat:            "2006-01-02",
		MaxSize:               100,
		MaxBackups:            3,
		MaxAge:                28,
		Compress:              true,
		EnableCaller:          true,
		EnableStacktrace:      true,
		StacktraceLevel:       "error",
		StacktraceDepth:       5,
		EnableTraceID:         true,
		TraceIDKey:            "trace_id",
		TraceIDFieldName:      "trace_id",
	}
}

// ApplyDefaults fills zero-valued fields with default values (in-place)
// Booleans cannot be told apart from "unset" and keep their value.
func (c *ManagerConfig) ApplyDefaults() {
	defaults := DefaultManagerConfig()

	if c.BaseLogDir == "" {
		c.BaseLogDir = defaults.BaseLogDir
	}
	if c.LoggerName == "" {
		c.LoggerName = defaults.LoggerName
	}
	if c.Level == "" {
		c.Level = defaults.Level
	}
	if c.Encoding == "" {
		c.Encoding = defaults.Encoding
	}
	if c.ConsoleEncoding == "" {
		c.ConsoleEncoding = defaults.ConsoleEncoding
	}
	if c.DateFormat == "" {
		c.DateFormat = defaults.DateFormat
	}
	if c.StacktraceLevel == "" {
		c.StacktraceLevel = defaults.StacktraceLevel
	}
	if c.TraceIDKey == "" {
		c.TraceIDKey = defaults.TraceIDKey
	}
	if c.TraceIDFieldName == "" {
		c.TraceIDFieldName = defaults.TraceIDFieldName
	}
	if c.MaxSize == 0 {
		c.MaxSize = defaults.MaxSize
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = defaults.MaxBackups
	}
	if c.MaxAge == 0 {
		c.MaxAge = defaults.MaxAge
	}
}

var (
	validLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validEncodings = []string{"json", "console"}
)

// Validate ManagerConfig configuration
func (c ManagerConfig) Validate() error {
	if !contains(validLevels, c.Level) {
		return fmt.Errorf("invalid log level: %s (valid values: %v)", c.Level, validLevels)
	}
	if !contains(validEncodings, c.Encoding) {
		return fmt.Errorf("invalid log encoding: %s (valid values: %v)", c.Encoding, validEncodings)
	}
	if c.MaxSize < 1 || c.MaxSize > 10000 {
		return fmt.Errorf("MaxSize must be between 1-10000 MB, current: %d", c.MaxSize)
	}
	if c.MaxBackups < 0 || c.MaxBackups > 1000 {
		return fmt.Errorf("MaxBackups must be between 0-1000, current: %d", c.MaxBackups)
	}
	if c.MaxAge < 0 || c.MaxAge > 3650 {
		return fmt.Errorf("MaxAge must be between 0-3650 days, current: %d", c.MaxAge)
	}
	if !contains(validLevels, c.StacktraceLevel) {
		return fmt.Errorf("invalid stack trace level: %s (valid values: %v)", c.StacktraceLevel, validLevels)
	}
	return nil
}

// ParseLevel parse log level string
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}

// logs/payment/ or logs/order/
func (c Config) getModuleLogDir() string {
	if c.moduleName == "" {
		return c.logDir
	}
	return filepath.Join(c.logDir, c.moduleName)
}

func (c Config) getInfoFilePath() string {
	return c.buildFilePath("info")
}

func (c Config) getErrorFilePath() string {
	return c.buildFilePath("error")
}

// buildFilePath Build log file path
//   - logs/order/order.log
//   - logs/order/order-info.log
//   - logs/order/order-info-2024-12-19.log
func (c Config) buildFilePath(level string) string {
	parts := []string{c.moduleName}

	if c.EnableLevelInFilename {
		parts = append(parts, level)
	}
	if c.EnableDateInFilename {
		parts = append(parts, time.Now().Format(c.DateFormat))
	}

	filename := strings.Join(parts, "-")
	return filepath.Join(c.getModuleLogDir(), filename+".log")
}
