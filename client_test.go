package chatpg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chatpg/chatpg/driver"
	"github.com/chatpg/chatpg/storage"
	"github.com/chatpg/chatpg/turnstate"
)

// fakeDriver satisfies driver.Driver over the in-memory fakeStore. TTx is
// struct{} because no test joins a native transaction.
type fakeDriver struct {
	store   *fakeStore
	hasPool bool
}

func (d *fakeDriver) GetExecutor() driver.Executor { return nil }

func (d *fakeDriver) UnwrapExecutor(tx struct{}) driver.ExecutorTx { return nil }

func (d *fakeDriver) Begin(ctx context.Context) (driver.ExecutorTx, error) { return nil, nil }

func (d *fakeDriver) PoolIsSet() bool { return d.hasPool }

func (d *fakeDriver) GetStore() storage.Store { return d.store }

var _ driver.Driver[struct{}] = (*fakeDriver)(nil)

func newTestClient(t *testing.T, store *fakeStore, provider Provider, opts ...Option) *Client[struct{}] {
	t.Helper()
	opts = append([]Option{WithProvider(provider)}, opts...)
	client, err := NewClient[struct{}](&fakeDriver{store: store, hasPool: true}, nil, opts...)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func startTestClient(t *testing.T, store *fakeStore, provider Provider, opts ...Option) *Client[struct{}] {
	t.Helper()
	client := newTestClient(t, store, provider, opts...)
	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		if client.IsRunning() {
			_ = client.Stop(context.Background())
		}
	})
	return client
}

func TestNewClient_Validation(t *testing.T) {
	store := newFakeStore()

	_, err := NewClient[struct{}](nil, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil driver, got %v", err)
	}

	_, err = NewClient[struct{}](&fakeDriver{store: store}, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unset pool, got %v", err)
	}

	_, err = NewClient[struct{}](&fakeDriver{store: store, hasPool: true}, &ClientConfig{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig without provider or key, got %v", err)
	}

	client, err := NewClient[struct{}](&fakeDriver{store: store, hasPool: true}, nil, WithProvider(&fakeProvider{reply: "ok"}))
	if err != nil {
		t.Fatalf("NewClient with provider failed: %v", err)
	}
	if client.config.MaxModelTokens != DefaultMaxModelTokens {
		t.Errorf("expected default MaxModelTokens %d, got %d", DefaultMaxModelTokens, client.config.MaxModelTokens)
	}
	if client.budget.MaxTokens != DefaultMaxModelTokens*DefaultContextMultiplier {
		t.Errorf("expected budget %d, got %d", DefaultMaxModelTokens*DefaultContextMultiplier, client.budget.MaxTokens)
	}
}

func TestClient_StartStop(t *testing.T) {
	client := newTestClient(t, newFakeStore(), &fakeProvider{reply: "ok"})
	ctx := context.Background()

	if client.IsRunning() {
		t.Error("client should not be running before Start")
	}
	if _, err := client.RunTurn(ctx, "user1", "hi", ""); !errors.Is(err, ErrClientNotStarted) {
		t.Errorf("expected ErrClientNotStarted, got %v", err)
	}

	if err := client.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := client.Start(ctx); !errors.Is(err, ErrClientAlreadyStarted) {
		t.Errorf("expected ErrClientAlreadyStarted, got %v", err)
	}

	if err := client.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := client.Stop(ctx); !errors.Is(err, ErrClientNotStarted) {
		t.Errorf("expected ErrClientNotStarted on second stop, got %v", err)
	}
}

func TestClient_RunTurn_PersistsBeforeReturning(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{reply: "hello there"}
	client := startTestClient(t, store, provider)
	ctx := context.Background()

	result, err := client.RunTurn(ctx, "user1", "hi", "greetings")
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}
	if result.Reply != "hello there" {
		t.Errorf("expected reply %q, got %q", "hello there", result.Reply)
	}
	if result.State != turnstate.StateDone {
		t.Errorf("expected state %s, got %s", turnstate.StateDone, result.State)
	}
	if result.Verdict != turnstate.VerdictContinue {
		t.Errorf("expected verdict continue, got %s", result.Verdict)
	}

	// The boundary flush must leave both turns durable.
	msgs, err := client.ListMessages(ctx, result.ConversationID, 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgs))
	}
	if msgs[0].Role != string(RoleUser) || msgs[1].Role != string(RoleAssistant) {
		t.Errorf("expected user then assistant, got %s then %s", msgs[0].Role, msgs[1].Role)
	}
	if client.buffers.PendingLen(result.ConversationID) != 0 {
		t.Error("buffer should be empty after the boundary flush")
	}
}

func TestClient_RunTurn_ReusesConversationByTopic(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{reply: "sure"}
	client := startTestClient(t, store, provider)
	ctx := context.Background()

	first, err := client.RunTurn(ctx, "user1", "tell me about go", "golang")
	if err != nil {
		t.Fatalf("first RunTurn failed: %v", err)
	}
	second, err := client.RunTurn(ctx, "user1", "and generics?", "golang")
	if err != nil {
		t.Fatalf("second RunTurn failed: %v", err)
	}
	if first.ConversationID != second.ConversationID {
		t.Errorf("expected topic reuse, got %s then %s", first.ConversationID, second.ConversationID)
	}

	other, err := client.RunTurn(ctx, "user1", "weather today?", "weather")
	if err != nil {
		t.Fatalf("third RunTurn failed: %v", err)
	}
	if other.ConversationID == first.ConversationID {
		t.Error("different topic hint should start a new conversation")
	}

	msgs, _ := client.ListMessages(ctx, first.ConversationID, 0)
	if len(msgs) != 4 {
		t.Errorf("expected 4 messages in the reused conversation, got %d", len(msgs))
	}
}

func TestClient_RunConversationTurn(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{reply: "pinned"}
	client := startTestClient(t, store, provider)
	ctx := context.Background()

	store.addConversation("chat_pinned", "user1", nil, 0)

	result, err := client.RunConversationTurn(ctx, "chat_pinned", "user1", "hi")
	if err != nil {
		t.Fatalf("RunConversationTurn failed: %v", err)
	}
	if result.ConversationID != "chat_pinned" {
		t.Errorf("expected chat_pinned, got %s", result.ConversationID)
	}

	_, err = client.RunConversationTurn(ctx, "chat_missing", "user1", "hi")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestClient_RunTurn_RejectsEmptyText(t *testing.T) {
	client := startTestClient(t, newFakeStore(), &fakeProvider{reply: "ok"})

	if _, err := client.RunTurn(context.Background(), "user1", "   ", ""); !errors.Is(err, ErrEmptyUserText) {
		t.Errorf("expected ErrEmptyUserText for blank text, got %v", err)
	}
}

func TestClient_EndSession(t *testing.T) {
	store := newFakeStore()
	client := startTestClient(t, store, &fakeProvider{reply: "ok"})
	ctx := context.Background()

	store.addConversation("chat_end", "user1", nil, 0)
	client.buffers.Append("chat_end", NewTurn("chat_end", "session_end", RoleUser, "bye", 1))

	if err := client.EndSession(ctx, "chat_end"); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	msgs, _ := client.ListMessages(ctx, "chat_end", 0)
	if len(msgs) != 1 {
		t.Errorf("expected 1 persisted message, got %d", len(msgs))
	}
	if client.buffers.Len() != 0 {
		t.Error("expected buffer entry dropped")
	}
}

func TestClient_Stop_DrainsBuffers(t *testing.T) {
	store := newFakeStore()
	client := newTestClient(t, store, &fakeProvider{reply: "ok"})
	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	store.addConversation("chat_drain", "user1", nil, 0)
	client.buffers.Append("chat_drain", NewTurn("chat_drain", "session_d", RoleUser, "pending words", 2))

	if err := client.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if got := len(store.messages["chat_drain"]); got != 1 {
		t.Errorf("expected 1 message persisted on shutdown, got %d", got)
	}
}

func TestClient_SweeperFlushesIdleBuffers(t *testing.T) {
	store := newFakeStore()
	client := startTestClient(t, store, &fakeProvider{reply: "ok"},
		WithSweepInterval(10*time.Millisecond),
		WithIdleSessionInterval(20*time.Millisecond),
	)

	store.addConversation("chat_idle", "user1", nil, 0)
	client.buffers.Append("chat_idle", NewTurn("chat_idle", "session_i", RoleUser, "left behind", 2))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		n := len(store.messages["chat_idle"])
		store.mu.Unlock()
		if n == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("sweeper did not flush the idle buffer in time")
}

func TestClient_ListConversationsDefaultLimit(t *testing.T) {
	store := newFakeStore()
	client := startTestClient(t, store, &fakeProvider{reply: "ok"})
	ctx := context.Background()

	topic := "go"
	store.addConversation("chat_l1", "user1", &topic, 5)

	convs, err := client.ListConversations(ctx, "user1", 0)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}
	if convs[0].TokenTotal != 5 {
		t.Errorf("expected token total 5, got %d", convs[0].TokenTotal)
	}
}
