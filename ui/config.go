package ui

// Default configuration values.
const (
	DefaultPageSize   = 25
	DefaultUserHeader = "X-User-ID"
)

// Config holds UI package configuration.
type Config struct {
	// BasePath is the URL prefix where the UI is mounted.
	// For example, if mounted at "/ui/", set BasePath to "/ui".
	// All navigation links will be prefixed with this path.
	// Defaults to empty string (root mount).
	BasePath string

	// UserHeader is the request header carrying the authenticated user id.
	// The surface performs no authentication itself; it trusts whatever
	// the boundary in front of it put in this header.
	// Defaults to "X-User-ID".
	UserHeader string

	// ReadOnly disables write operations (running turns, ending sessions).
	// Useful for monitoring-only deployments.
	ReadOnly bool

	// PageSize for listings.
	// Defaults to 25.
	PageSize int

	// Logger for structured logging.
	// If nil, logging is disabled.
	Logger Logger
}

// Logger interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		UserHeader: DefaultUserHeader,
		PageSize:   DefaultPageSize,
	}
}

// applyDefaults fills in default values for zero-valued fields.
func (c *Config) applyDefaults() {
	if c.UserHeader == "" {
		c.UserHeader = DefaultUserHeader
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
}

// validate checks the configuration for errors.
func (c *Config) validate() error {
	if c.PageSize < 1 {
		return ErrInvalidConfig
	}
	return nil
}
