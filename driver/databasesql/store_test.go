package databasesql

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/chatpg/chatpg/driver"
	"github.com/chatpg/chatpg/storage"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
		return nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		t.Fatalf("Failed to ping database: %v", err)
	}

	return db
}

func cleanTables(t *testing.T, db *sql.DB) {
	t.Helper()

	ctx := context.Background()
	for _, table := range []string{"chatpg_messages", "chatpg_conversations"} {
		if _, err := db.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Fatalf("Failed to truncate %s: %v", table, err)
		}
	}
}

func TestIntegration_Store_ConversationLifecycle(t *testing.T) {
	db := newTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	cleanTables(t, db)

	ctx := context.Background()
	drv := New(db)
	store := drv.GetStore()

	topic := "recipe ideas"
	convID := "chat_" + uuid.New().String()[:16]
	if err := store.CreateConversation(ctx, convID, "user1", &topic); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	conv, err := store.GetConversation(ctx, convID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if conv.UserID != "user1" {
		t.Errorf("Expected user_id 'user1', got '%s'", conv.UserID)
	}
	if conv.Topic == nil || *conv.Topic != "recipe ideas" {
		t.Errorf("Expected topic 'recipe ideas', got '%v'", conv.Topic)
	}
	if !conv.Active {
		t.Error("Expected new conversation to be active")
	}

	convs, err := store.FindRecentActiveConversations(ctx, "user1", 5)
	if err != nil {
		t.Fatalf("FindRecentActiveConversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("Expected 1 conversation, got %d", len(convs))
	}
}

func TestIntegration_Store_AppendTurnsAndBumpTotal(t *testing.T) {
	db := newTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	cleanTables(t, db)

	ctx := context.Background()
	drv := New(db)
	store := drv.GetStore()

	convID := "chat_" + uuid.New().String()[:16]
	if err := store.CreateConversation(ctx, convID, "user1", nil); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	runID := "session_" + uuid.New().String()[:16]
	now := time.Now().UTC()
	turns := []*storage.TurnRecord{
		{ID: uuid.New().String(), SessionRunID: runID, Role: "user", Content: "hello", Cost: 1, CreatedAt: now},
		{ID: uuid.New().String(), SessionRunID: runID, Role: "assistant", Content: "hello back", Cost: 2, CreatedAt: now.Add(time.Millisecond)},
	}

	if err := store.AppendTurnsAndBumpTotal(ctx, convID, turns, 3); err != nil {
		t.Fatalf("AppendTurnsAndBumpTotal failed: %v", err)
	}

	total, err := store.GetTokenTotal(ctx, convID)
	if err != nil {
		t.Fatalf("GetTokenTotal failed: %v", err)
	}
	if total != 3 {
		t.Errorf("Expected token total 3, got %d", total)
	}

	messages, err := store.ListMessages(ctx, convID, 100)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != "user" || messages[1].Role != "assistant" {
		t.Errorf("Expected oldest-first ordering, got roles %s, %s", messages[0].Role, messages[1].Role)
	}
}

func TestIntegration_Store_SavepointRollback(t *testing.T) {
	db := newTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()
	cleanTables(t, db)

	ctx := context.Background()
	drv := New(db)
	store := drv.GetStore()

	convID := "chat_" + uuid.New().String()[:16]
	if err := store.CreateConversation(ctx, convID, "user1", nil); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	runID := "session_" + uuid.New().String()[:16]

	outerTx, err := drv.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	outerTurn := &storage.TurnRecord{
		ID: uuid.New().String(), SessionRunID: runID, Role: "user",
		Content: "kept", Cost: 1, CreatedAt: time.Now().UTC(),
	}
	outerCtx := driver.WithExecutor(ctx, outerTx)
	if err := store.AppendTurnsAndBumpTotal(outerCtx, convID, []*storage.TurnRecord{outerTurn}, 1); err != nil {
		t.Fatalf("AppendTurnsAndBumpTotal in outer tx failed: %v", err)
	}

	// Savepoint that gets rolled back
	innerTx, err := outerTx.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin inner failed: %v", err)
	}
	innerTurn := &storage.TurnRecord{
		ID: uuid.New().String(), SessionRunID: runID, Role: "assistant",
		Content: "discarded", Cost: 5, CreatedAt: time.Now().UTC(),
	}
	innerCtx := driver.WithExecutor(ctx, innerTx)
	if err := store.AppendTurnsAndBumpTotal(innerCtx, convID, []*storage.TurnRecord{innerTurn}, 5); err != nil {
		t.Fatalf("AppendTurnsAndBumpTotal in inner tx failed: %v", err)
	}
	if err := innerTx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback inner failed: %v", err)
	}

	if err := outerTx.Commit(ctx); err != nil {
		t.Fatalf("Commit outer failed: %v", err)
	}

	total, _ := store.GetTokenTotal(ctx, convID)
	if total != 1 {
		t.Errorf("Expected token total 1 after savepoint rollback, got %d", total)
	}
	messages, _ := store.ListMessages(ctx, convID, 100)
	if len(messages) != 1 {
		t.Errorf("Expected 1 message after savepoint rollback, got %d", len(messages))
	}
	if len(messages) == 1 && messages[0].Content != "kept" {
		t.Errorf("Expected surviving message 'kept', got '%s'", messages[0].Content)
	}
}
