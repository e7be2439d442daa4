package frontend

import (
	"html/template"
	"net/http"

	"github.com/chatpg/chatpg"
)

// Config holds frontend router configuration.
type Config struct {
	// BasePath is the URL prefix where the frontend is mounted.
	BasePath string

	// UserHeader is the request header carrying the authenticated user id.
	UserHeader string

	// ReadOnly disables the chat forms.
	ReadOnly bool

	// PageSize for the conversation list.
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

// router holds the frontend router state.
type router[TTx any] struct {
	client *chatpg.Client[TTx]
	config *Config
}

// NewRouter creates an http.Handler serving the HTML transcript view.
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
	mux.HandleFunc("GET /{$}", r.handleConversations)
	mux.HandleFunc("GET /conversations/{id}", r.handleTranscript)
	mux.HandleFunc("POST /chat", r.handleChat)

	return mux
}

type conversationView struct {
	ID           string
	Topic        string
	MessageCount int
	TokenTotal   int
}

type conversationsPage struct {
	Title         string
	BasePath      string
	ReadOnly      bool
	Conversations []conversationView
}

type messageView struct {
	Role string
	HTML template.HTML
}

type transcriptPage struct {
	Title          string
	BasePath       string
	ReadOnly       bool
	ConversationID string
	Messages       []messageView
}

func (rt *router[TTx]) userID(r *http.Request) string {
	return r.Header.Get(rt.config.UserHeader)
}

func (rt *router[TTx]) logError(msg string, args ...any) {
	if rt.config.Logger != nil {
		rt.config.Logger.Error(msg, args...)
	}
}

func (rt *router[TTx]) handleConversations(w http.ResponseWriter, r *http.Request) {
	userID := rt.userID(r)
	if userID == "" {
		http.Error(w, "user header is required", http.StatusBadRequest)
		return
	}

	convs, err := rt.client.ListConversations(r.Context(), userID, rt.config.PageSize)
	if err != nil {
		rt.logError("list conversations", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	views := make([]conversationView, 0, len(convs))
	for _, conv := range convs {
		view := conversationView{
			ID:           conv.ID,
			MessageCount: conv.MessageCount,
			TokenTotal:   conv.TokenTotal,
		}
		if conv.Topic != nil {
			view.Topic = *conv.Topic
		}
		views = append(views, view)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = conversationsTemplate.ExecuteTemplate(w, "page", &conversationsPage{
		Title:         "Conversations",
		BasePath:      rt.config.BasePath,
		ReadOnly:      rt.config.ReadOnly,
		Conversations: views,
	})
}

func (rt *router[TTx]) handleTranscript(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("id")

	msgs, err := rt.client.ListMessages(r.Context(), conversationID, 0)
	if err != nil {
		rt.logError("list messages", "error", err, "conversation_id", conversationID)
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, msg := range msgs {
		views = append(views, messageView{
			Role: msg.Role,
			HTML: renderMarkdown(msg.Content),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = transcriptTemplate.ExecuteTemplate(w, "page", &transcriptPage{
		Title:          "Conversation " + conversationID,
		BasePath:       rt.config.BasePath,
		ReadOnly:       rt.config.ReadOnly,
		ConversationID: conversationID,
		Messages:       views,
	})
}

func (rt *router[TTx]) handleChat(w http.ResponseWriter, r *http.Request) {
	if rt.config.ReadOnly {
		http.Error(w, "read-only mode", http.StatusForbidden)
		return
	}
	userID := rt.userID(r)
	if userID == "" {
		http.Error(w, "user header is required", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	text := r.PostFormValue("text")
	conversationID := r.PostFormValue("conversation_id")

	var result *chatpg.TurnResult
	var err error
	if conversationID != "" {
		result, err = rt.client.RunConversationTurn(r.Context(), conversationID, userID, text)
	} else {
		result, err = rt.client.RunTurn(r.Context(), userID, text, r.PostFormValue("topic"))
	}
	if err != nil {
		rt.logError("chat turn", "error", err)
		http.Error(w, "chat turn failed", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, rt.config.BasePath+"/conversations/"+result.ConversationID, http.StatusSeeOther)
}
