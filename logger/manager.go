package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager Logger 管理器（管理多个模块的 Logger 实例）
type Manager struct {
	baseConfig ManagerConfig
	loggers    map[string]*CtxZapLogger        // module -> CtxZapLogger
	zapLoggers map[string]*zap.Logger          // module -> underlying zap.Logger
	writers    map[string][]*lumberjack.Logger // module -> file writers (closed on CloseAll)
	mu         sync.RWMutex
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// NewManager 创建独立的 Manager 实例，cfg 中的零值字段会自动填充为默认值
func NewManager(cfg ManagerConfig) *Manager {
	cfg.ApplyDefaults()
	return &Manager{
		baseConfig: cfg,
		loggers:    make(map[string]*CtxZapLogger),
		zapLoggers: make(map[string]*zap.Logger),
		writers:    make(map[string][]*lumberjack.Logger),
	}
}

// InitManager 初始化全局 Logger 管理器（只生效一次）
func InitManager(cfg ManagerConfig) {
	managerOnce.Do(func() {
		globalManager = NewManager(cfg)
	})
}

// Config returns a copy of the manager's base configuration
func (m *Manager) Config() ManagerConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseConfig
}

// GetLogger 获取指定模块的 CtxZapLogger（按需创建，已自动包含 module 字段）
func (m *Manager) GetLogger(moduleName string) *CtxZapLogger {
	m.mu.RLock()
	if l, exists := m.loggers[moduleName]; exists {
		m.mu.RUnlock()
		return l
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if l, exists := m.loggers[moduleName]; exists {
		return l
	}

	cfg := m.buildModuleConfig(moduleName)
	zapLogger := m.createLogger(cfg)
	withModule := zapLogger.With(zap.String("module", moduleName))

	ctxLogger := &CtxZapLogger{
		base:   withModule.WithOptions(zap.AddCallerSkip(1)),
		module: moduleName,
		config: &m.baseConfig,
	}

	m.loggers[moduleName] = ctxLogger
	m.zapLoggers[moduleName] = withModule

	return ctxLogger
}

func (m *Manager) buildModuleConfig(moduleName string) Config {
	return Config{
		Level:                 m.baseConfig.Level,
		Encoding:              m.baseConfig.Encoding,
		ConsoleEncoding:       m.baseConfig.ConsoleEncoding,
		moduleName:            moduleName,
		logDir:                m.baseConfig.BaseLogDir,
		EnableFile:            m.baseConfig.EnableFile,
		EnableConsole:         m.baseConfig.EnableConsole,
		EnableLevelInFilename: m.baseConfig.EnableLevelInFilename,
		EnableDateInFilename:  m.baseConfig.EnableDateInFilename,
		DateFormat:            m.baseConfig.DateFormat,
		MaxSize:               m.baseConfig.MaxSize,
		MaxBackups:            m.baseConfig.MaxBackups,
		MaxAge:                m.baseConfig.MaxAge,
		Compress:              m.baseConfig.Compress,
		EnableCaller:          m.baseConfig.EnableCaller,
	}
}

// createLogger builds console + info file + error file cores for one module
func (m *Manager) createLogger(cfg Config) *zap.Logger {
	encoder := createEncoder(cfg.Encoding)
	level := ParseLevel(cfg.Level)
	var cores []zapcore.Core
	var writers []*lumberjack.Logger

	if cfg.EnableConsole {
		consoleEncoder := encoder
		if cfg.ConsoleEncoding != "" && cfg.ConsoleEncoding != cfg.Encoding {
			consoleEncoder = createEncoder(cfg.ConsoleEncoding)
		}
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level))
	}

	if cfg.EnableFile {
		infoWriter, infoLumber := createFileWriter(cfg.getInfoFilePath(), cfg)
		writers = append(writers, infoLumber)
		cores = append(cores, zapcore.NewCore(
			encoder,
			infoWriter,
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= level && lvl < zapcore.ErrorLevel
			}),
		))

		errorWriter, errorLumber := createFileWriter(cfg.getErrorFilePath(), cfg)
		writers = append(writers, errorLumber)
		cores = append(cores, zapcore.NewCore(
			encoder,
			errorWriter,
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return lvl >= zapcore.ErrorLevel
			}),
		))
	}

	opts := []zap.Option{}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	// Stacktraces are added by CtxZapLogger.ErrorCtx with a bounded depth, not zap.AddStacktrace.

	if len(writers) > 0 {
		m.writers[cfg.moduleName] = writers
	}

	return zap.New(zapcore.NewTee(cores...), opts...)
}

// Shutdown 实现 do.Shutdowner
func (m *Manager) Shutdown() {
	m.CloseAll()
}

// CloseAll 刷新缓冲区并关闭所有文件句柄（应用退出时调用）
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.zapLoggers {
		_ = l.Sync()
	}
	for _, writers := range m.writers {
		for _, w := range writers {
			_ = w.Close()
		}
	}

	m.loggers = make(map[string]*CtxZapLogger)
	m.zapLoggers = make(map[string]*zap.Logger)
	m.writers = make(map[string][]*lumberjack.Logger)
}

// ReloadConfig rebuilds every module logger with the new configuration
func (m *Manager) ReloadConfig(newCfg ManagerConfig) error {
	newCfg.ApplyDefaults()
	if err := newCfg.Validate(); err != nil {
		return fmt.Errorf("validate logger config: %w", err)
	}

	m.mu.Lock()
	oldLevel := m.baseConfig.Level
	for _, l := range m.zapLoggers {
		_ = l.Sync()
	}
	for _, writers := range m.writers {
		for _, w := range writers {
			_ = w.Close()
		}
	}
	m.loggers = make(map[string]*CtxZapLogger)
	m.zapLoggers = make(map[string]*zap.Logger)
	m.writers = make(map[string][]*lumberjack.Logger)
	m.baseConfig = newCfg
	m.mu.Unlock()

	if oldLevel != newCfg.Level {
		m.GetLogger(newCfg.LoggerName).Debug("log level updated",
			zap.String("old_level", oldLevel),
			zap.String("new_level", newCfg.Level))
	}
	return nil
}

func createEncoder(encoding string) zapcore.Encoder {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if encoding == "console" {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// createFileWriter 创建支持切割的文件写入器
func createFileWriter(filename string, cfg Config) (zapcore.WriteSyncer, *lumberjack.Logger) {
	_ = os.MkdirAll(filepath.Dir(filename), 0755)

	lumberLogger := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}

	return zapcore.AddSync(lumberLogger), lumberLogger
}

// ============================================
// 包级别便捷函数（调用 globalManager）
// ============================================

// GetLogger 获取指定模块的 CtxZapLogger
func GetLogger(moduleName string) *CtxZapLogger {
	if globalManager == nil {
		InitManager(DefaultManagerConfig())
	}
	return globalManager.GetLogger(moduleName)
}

// Default 返回全局 Manager（未初始化时使用默认配置）
func Default() *Manager {
	if globalManager == nil {
		InitManager(DefaultManagerConfig())
	}
	return globalManager
}

// CloseAll 关闭所有 Logger
func CloseAll() {
	if globalManager == nil {
		return
	}
	globalManager.CloseAll()
}

// ReloadConfig 热重载全局配置
func ReloadConfig(newCfg ManagerConfig) error {
	if globalManager == nil {
		return fmt.Errorf("logger manager not initialized")
	}
	return globalManager.ReloadConfig(newCfg)
}

// InfoCtx 记录 Info 级别日志
func InfoCtx(ctx context.Context, module string, msg string, fields ...zap.Field) {
	GetLogger(module).InfoCtx(ctx, msg, fields...)
}

// DebugCtx 记录 Debug 级别日志
func DebugCtx(ctx context.Context, module string, msg string, fields ...zap.Field) {
	GetLogger(module).DebugCtx(ctx, msg, fields...)
}

// WarnCtx 记录 Warn 级别日志
func WarnCtx(ctx context.Context, module string, msg string, fields ...zap.Field) {
	GetLogger(module).WarnCtx(ctx, msg, fields...)
}

// ErrorCtx 记录 Error 级别日志
func ErrorCtx(ctx context.Context, module string, msg string, fields ...zap.Field) {
	GetLogger(module).ErrorCtx(ctx, msg, fields...)
}
