package api

import (
	"net/http"

	"github.com/chatpg/chatpg"
)

// Config holds API router configuration.
type Config struct {
	// UserHeader is the request header carrying the authenticated user id.
	UserHeader string

	// ReadOnly disables write operations.
	ReadOnly bool

	// PageSize for listings.
	PageSize int

	// Logger for structured logging.
	Logger Logger
}

// Logger interface for structured logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// router holds the API router state.
type router[TTx any] struct {
	client *chatpg.Client[TTx]
	config *Config
}

// NewRouter creates a new API router.
func NewRouter[TTx any](client *chatpg.Client[TTx], cfg *Config) http.Handler {
	if cfg == nil {
		cfg = &Config{
			UserHeader: "X-User-ID",
			PageSize:   25,
		}
	}

	r := &router[TTx]{
		client: client,
		config: cfg,
	}

	mux := http.NewServeMux()

	// Chat
	mux.HandleFunc("POST /chat", r.handleChat)

	// Conversations
	mux.HandleFunc("GET /conversations", r.handleListConversations)
	mux.HandleFunc("GET /conversations/{id}", r.handleGetConversation)
	mux.HandleFunc("GET /conversations/{id}/messages", r.handleListMessages)
	mux.HandleFunc("POST /conversations/{id}/end", r.handleEndSession)

	return withMiddleware(mux, cfg)
}

// withMiddleware wraps the handler with common middleware.
func withMiddleware(handler http.Handler, cfg *Config) http.Handler {
	// Add JSON content type
	handler = jsonMiddleware(handler)
	// Add error recovery
	handler = recoveryMiddleware(handler, cfg.Logger)
	return handler
}

// jsonMiddleware sets JSON content type for all responses.
func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func recoveryMiddleware(next http.Handler, logger Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if logger != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				}
				http.Error(w, `{"error":{"code":"internal_error","message":"internal server error"}}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
