package ui

import (
	"net/http"

	"github.com/chatpg/chatpg"
	"github.com/chatpg/chatpg/ui/api"
	"github.com/chatpg/chatpg/ui/frontend"
)

// APIHandler returns an http.Handler exposing the JSON API.
//
// Usage:
//
//	http.Handle("/api/", http.StripPrefix("/api", ui.APIHandler(client, cfg)))
func APIHandler[TTx any](client *chatpg.Client[TTx], cfg *Config) http.Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.applyDefaults()
	}

	// Invalid configuration is a programmer error.
	if err := cfg.validate(); err != nil {
		panic("ui: invalid configuration: " + err.Error())
	}

	return api.NewRouter(client, &api.Config{
		UserHeader: cfg.UserHeader,
		ReadOnly:   cfg.ReadOnly,
		PageSize:   cfg.PageSize,
		Logger:     cfg.Logger,
	})
}

// UIHandler returns an http.Handler for the HTML transcript view.
//
// Usage:
//
//	http.Handle("/ui/", http.StripPrefix("/ui", ui.UIHandler(client, cfg)))
func UIHandler[TTx any](client *chatpg.Client[TTx], cfg *Config) http.Handler {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.applyDefaults()
	}

	if err := cfg.validate(); err != nil {
		panic("ui: invalid configuration: " + err.Error())
	}

	return frontend.NewRouter(client, &frontend.Config{
		BasePath:   cfg.BasePath,
		UserHeader: cfg.UserHeader,
		ReadOnly:   cfg.ReadOnly,
		PageSize:   cfg.PageSize,
		Logger:     cfg.Logger,
	})
}
