package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/chatpg/chatpg"
)

// Response wraps all API responses.
type Response struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	// Text is the user's utterance (required).
	Text string `json:"text"`

	// Topic is an optional hint used to route the turn to a matching
	// active conversation. Ignored when ConversationID is set.
	Topic string `json:"topic,omitempty"`

	// ConversationID pins the turn to a specific conversation.
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the result of a chat turn.
type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	SessionRunID   string `json:"session_run_id"`
	Reply          string `json:"reply"`
	State          string `json:"state"`
	Verdict        string `json:"verdict"`
	Cost           int    `json:"cost"`
	TokenTotal     int    `json:"token_total"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Data: data})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Error: &APIError{Code: code, Message: message},
	})
}

// writeChatError maps chatpg errors to HTTP status codes.
func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatpg.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, chatpg.ErrEmptyUserText):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, chatpg.ErrClientNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_started", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// parseLimit parses a limit query parameter with a default.
func parseLimit(r *http.Request, defaultVal int) int {
	val := r.URL.Query().Get("limit")
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// userID extracts the authenticated user id from the configured header.
func (rt *router[TTx]) userID(r *http.Request) string {
	return r.Header.Get(rt.config.UserHeader)
}

func (rt *router[TTx]) handleChat(w http.ResponseWriter, r *http.Request) {
	if rt.config.ReadOnly {
		writeError(w, http.StatusForbidden, "read_only", "read-only mode")
		return
	}
	userID := rt.userID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user", "user header is required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	var result *chatpg.TurnResult
	var err error
	if req.ConversationID != "" {
		result, err = rt.client.RunConversationTurn(r.Context(), req.ConversationID, userID, req.Text)
	} else {
		result, err = rt.client.RunTurn(r.Context(), userID, req.Text, req.Topic)
	}
	if err != nil {
		writeChatError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &ChatResponse{
		ConversationID: result.ConversationID,
		SessionRunID:   result.SessionRunID,
		Reply:          result.Reply,
		State:          string(result.State),
		Verdict:        string(result.Verdict),
		Cost:           result.Cost,
		TokenTotal:     result.TokenTotal,
	})
}

func (rt *router[TTx]) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID := rt.userID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing_user", "user header is required")
		return
	}

	convs, err := rt.client.ListConversations(r.Context(), userID, parseLimit(r, rt.config.PageSize))
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (rt *router[TTx]) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := rt.client.GetConversation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (rt *router[TTx]) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := rt.client.ListMessages(r.Context(), r.PathValue("id"), parseLimit(r, 0))
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (rt *router[TTx]) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if rt.config.ReadOnly {
		writeError(w, http.StatusForbidden, "read_only", "read-only mode")
		return
	}
	if err := rt.client.EndSession(r.Context(), r.PathValue("id")); err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}
