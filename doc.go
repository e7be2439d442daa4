// Package chatpg provides conversational session buffering and lifecycle
// management for Go, backed by Anthropic and PostgreSQL.
//
// ChatPG keeps each conversation's recent turns in an in-process write-back
// buffer and persists them in batches, so a chat turn costs one completion
// call and usually zero database writes. Every conversation carries a
// lifetime token budget; when it is spent the conversation ends with a
// notice and the user is routed to a fresh one.
//
// # Key Features
//
//   - Write-back turn buffering with timer-gated batch flushes
//   - Atomic persistence: message rows and the conversation token total
//     move together or not at all
//   - Token-budget gate with a deterministic word-count estimator
//   - Topic-hint routing across a user's recent active conversations
//   - Idle-session sweeper that drains abandoned buffers
//   - Hooks for observability at every pipeline stage
//   - JSON API and HTML transcript view in ui/
//
// # Quick Start
//
//	pool, _ := pgxpool.New(ctx, os.Getenv("DATABASE_URL"))
//	drv := pgxv5.New(pool)
//
//	client, err := chatpg.NewClient(drv, &chatpg.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Stop(ctx)
//
//	result, err := client.RunTurn(ctx, "user-123", "Hello!", "greetings")
//	fmt.Println(result.Reply)
//
// # Durability Model
//
// Buffered turns are process-local until flushed. Flushes happen on the
// timer gate during a turn, at every RunTurn boundary (forced), when the
// sweeper finds an idle buffer, on EndSession, and on Stop. A flush that
// fails keeps the buffer intact so the next flush retries it.
//
// # Drivers
//
// Persistence goes through a driver:
//   - github.com/chatpg/chatpg/driver/pgxv5 for pgx/v5 pools
//   - github.com/chatpg/chatpg/driver/databasesql for database/sql
//
// Both expose the same storage semantics; the schema lives in
// docs/schema.sql.
package chatpg
