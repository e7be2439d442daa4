// Package ui provides the HTTP surfaces for chatpg.
//
// Two handlers are available:
//   - APIHandler: JSON API (chat, conversation listing, session end)
//   - UIHandler: HTML transcript view with sanitized markdown rendering
//
// Neither handler authenticates requests. Both read the user id from a
// header (X-User-ID by default) and trust it; mount them behind whatever
// authenticates your users.
//
// # Quick Start
//
//	pool, _ := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
//	drv := pgxv5.New(pool)
//
//	client, _ := chatpg.NewClient(drv, &chatpg.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	client.Start(ctx)
//
//	mux := http.NewServeMux()
//	mux.Handle("/api/", http.StripPrefix("/api", ui.APIHandler(client, nil)))
//	mux.Handle("/ui/", http.StripPrefix("/ui", ui.UIHandler(client, &ui.Config{BasePath: "/ui"})))
//
//	http.ListenAndServe(":8080", mux)
//
// The handlers return standard http.Handler values and compose with any
// router or middleware chain.
package ui
