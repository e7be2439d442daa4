package pgxv5

import (
	"context"
	"testing"
	"time"

	"github.com/chatpg/chatpg/driver"
	"github.com/chatpg/chatpg/internal/testutil"
	"github.com/chatpg/chatpg/storage"
	"github.com/google/uuid"
)

func TestIntegration_Store_ConversationLifecycle(t *testing.T) {
	testutil.RequireIntegration(t)

	db := testutil.NewTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.CleanTables(ctx); err != nil {
		t.Fatalf("Failed to clean tables: %v", err)
	}

	drv := New(db.Pool)
	store := drv.GetStore()

	// Create conversation
	topic := "travel plans"
	convID := "chat_" + uuid.New().String()[:16]
	if err := store.CreateConversation(ctx, convID, "user1", &topic); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	// Get conversation
	conv, err := store.GetConversation(ctx, convID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if conv.UserID != "user1" {
		t.Errorf("Expected user_id 'user1', got '%s'", conv.UserID)
	}
	if conv.Topic == nil || *conv.Topic != "travel plans" {
		t.Errorf("Expected topic 'travel plans', got '%v'", conv.Topic)
	}
	if conv.TokenTotal != 0 {
		t.Errorf("Expected token total 0, got %d", conv.TokenTotal)
	}
	if !conv.Active {
		t.Error("Expected new conversation to be active")
	}

	// Token total of fresh conversation
	total, err := store.GetTokenTotal(ctx, convID)
	if err != nil {
		t.Fatalf("GetTokenTotal failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected token total 0, got %d", total)
	}

	// Find recent active conversations
	convs, err := store.FindRecentActiveConversations(ctx, "user1", 5)
	if err != nil {
		t.Fatalf("FindRecentActiveConversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Errorf("Expected 1 conversation, got %d", len(convs))
	}
	if len(convs) == 1 && convs[0].ID != convID {
		t.Errorf("Expected conversation '%s', got '%s'", convID, convs[0].ID)
	}

	// Other users see nothing
	convs, err = store.FindRecentActiveConversations(ctx, "user2", 5)
	if err != nil {
		t.Fatalf("FindRecentActiveConversations failed: %v", err)
	}
	if len(convs) != 0 {
		t.Errorf("Expected 0 conversations for user2, got %d", len(convs))
	}
}

func TestIntegration_Store_AppendTurnsAndBumpTotal(t *testing.T) {
	testutil.RequireIntegration(t)

	db := testutil.NewTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.CleanTables(ctx); err != nil {
		t.Fatalf("Failed to clean tables: %v", err)
	}

	drv := New(db.Pool)
	store := drv.GetStore()

	convID := "chat_" + uuid.New().String()[:16]
	if err := store.CreateConversation(ctx, convID, "user1", nil); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	runID := "session_" + uuid.New().String()[:16]
	now := time.Now().UTC()
	turns := []*storage.TurnRecord{
		{ID: uuid.New().String(), SessionRunID: runID, Role: "user", Content: "hello there", Cost: 2, CreatedAt: now},
		{ID: uuid.New().String(), SessionRunID: runID, Role: "assistant", Content: "hi, how can I help?", Cost: 6, CreatedAt: now.Add(time.Millisecond)},
	}

	if err := store.AppendTurnsAndBumpTotal(ctx, convID, turns, 8); err != nil {
		t.Fatalf("AppendTurnsAndBumpTotal failed: %v", err)
	}

	// Both rows persisted, total bumped once
	total, err := store.GetTokenTotal(ctx, convID)
	if err != nil {
		t.Fatalf("GetTokenTotal failed: %v", err)
	}
	if total != 8 {
		t.Errorf("Expected token total 8, got %d", total)
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
	if messages[0].SessionRunID != runID {
		t.Errorf("Expected session run ID '%s', got '%s'", runID, messages[0].SessionRunID)
	}

	// Second flush accumulates
	more := []*storage.TurnRecord{
		{ID: uuid.New().String(), SessionRunID: runID, Role: "user", Content: "thanks", Cost: 1, CreatedAt: now.Add(time.Second)},
	}
	if err := store.AppendTurnsAndBumpTotal(ctx, convID, more, 1); err != nil {
		t.Fatalf("AppendTurnsAndBumpTotal failed: %v", err)
	}
	total, _ = store.GetTokenTotal(ctx, convID)
	if total != 9 {
		t.Errorf("Expected token total 9, got %d", total)
	}

	// Empty batch is a no-op
	if err := store.AppendTurnsAndBumpTotal(ctx, convID, nil, 0); err != nil {
		t.Fatalf("AppendTurnsAndBumpTotal with empty batch failed: %v", err)
	}

	// Unknown conversation leaves nothing behind
	err = store.AppendTurnsAndBumpTotal(ctx, "chat_nonexistent", []*storage.TurnRecord{
		{ID: uuid.New().String(), SessionRunID: runID, Role: "user", Content: "orphan", Cost: 1, CreatedAt: now},
	}, 1)
	if err == nil {
		t.Error("Expected error for unknown conversation")
	}
}

func TestIntegration_Store_Transaction(t *testing.T) {
	testutil.RequireIntegration(t)

	db := testutil.NewTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.CleanTables(ctx); err != nil {
		t.Fatalf("Failed to clean tables: %v", err)
	}

	drv := New(db.Pool)
	store := drv.GetStore()

	convID := "chat_" + uuid.New().String()[:16]
	if err := store.CreateConversation(ctx, convID, "user1", nil); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	runID := "session_" + uuid.New().String()[:16]
	turn := &storage.TurnRecord{
		ID:           uuid.New().String(),
		SessionRunID: runID,
		Role:         "user",
		Content:      "inside tx",
		Cost:         2,
		CreatedAt:    time.Now().UTC(),
	}

	// Commit path
	execTx, err := drv.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	txCtx := driver.WithExecutor(ctx, execTx)
	if err := store.AppendTurnsAndBumpTotal(txCtx, convID, []*storage.TurnRecord{turn}, 2); err != nil {
		t.Fatalf("AppendTurnsAndBumpTotal in tx failed: %v", err)
	}
	if err := execTx.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	total, _ := store.GetTokenTotal(ctx, convID)
	if total != 2 {
		t.Errorf("Expected token total 2 after commit, got %d", total)
	}

	// Rollback path
	execTx2, err := drv.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	turn2 := &storage.TurnRecord{
		ID:           uuid.New().String(),
		SessionRunID: runID,
		Role:         "assistant",
		Content:      "rolled back",
		Cost:         5,
		CreatedAt:    time.Now().UTC(),
	}
	txCtx2 := driver.WithExecutor(ctx, execTx2)
	if err := store.AppendTurnsAndBumpTotal(txCtx2, convID, []*storage.TurnRecord{turn2}, 5); err != nil {
		t.Fatalf("AppendTurnsAndBumpTotal in tx failed: %v", err)
	}
	if err := execTx2.Rollback(ctx); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	total, _ = store.GetTokenTotal(ctx, convID)
	if total != 2 {
		t.Errorf("Expected token total 2 after rollback, got %d", total)
	}
	messages, _ := store.ListMessages(ctx, convID, 100)
	if len(messages) != 1 {
		t.Errorf("Expected 1 message after rollback, got %d", len(messages))
	}
}

func TestIntegration_Store_ListConversations(t *testing.T) {
	testutil.RequireIntegration(t)

	db := testutil.NewTestDB(t)
	if db == nil {
		return
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.CleanTables(ctx); err != nil {
		t.Fatalf("Failed to clean tables: %v", err)
	}

	drv := New(db.Pool)
	store := drv.GetStore()

	convID := "chat_" + uuid.New().String()[:16]
	if err := store.CreateConversation(ctx, convID, "user1", nil); err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	runID := "session_" + uuid.New().String()[:16]
	turns := []*storage.TurnRecord{
		{ID: uuid.New().String(), SessionRunID: runID, Role: "user", Content: "one", Cost: 1, CreatedAt: time.Now().UTC()},
		{ID: uuid.New().String(), SessionRunID: runID, Role: "assistant", Content: "two", Cost: 1, CreatedAt: time.Now().UTC()},
	}
	if err := store.AppendTurnsAndBumpTotal(ctx, convID, turns, 2); err != nil {
		t.Fatalf("AppendTurnsAndBumpTotal failed: %v", err)
	}

	summaries, err := store.ListConversations(ctx, "user1", 50)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].MessageCount != 2 {
		t.Errorf("Expected message count 2, got %d", summaries[0].MessageCount)
	}
	if summaries[0].TokenTotal != 2 {
		t.Errorf("Expected token total 2, got %d", summaries[0].TokenTotal)
	}
}
