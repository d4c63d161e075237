package httpx

// ErrorLoggingConfig Error logging configuration
type ErrorLoggingConfig struct {
	// Enable error log recording (default false)
	Enable bool `mapstructure:"enable" json:"enable"`

	// IgnoreHTTPStatus statuses that are never logged, e.g. []int{400, 404}
	IgnoreHTTPStatus []int `mapstructure:"ignore_http_status" json:"ignore_http_status"`

	// FullErrorChain adds error_chain and the wrapped error to the log entry
	FullErrorChain bool `mapstructure:"full_error_chain" json:"full_error_chain"`

	// LogLevel error, warn, info (default error)
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// DefaultErrorLoggingConfig returns the default configuration (logging disabled)
func DefaultErrorLoggingConfig() ErrorLoggingConfig {
	return ErrorLoggingConfig{
		IgnoreHTTPStatus: []int{},
		FullErrorChain:   true,
		LogLevel:         "error",
	}
}
