// Package api provides the JSON API for chatpg.
//
// The API trusts the user id in the configured request header; put an
// authenticating proxy or middleware in front of it.
//
// # Endpoints
//
// Chat:
//   - POST /chat - Run one user turn (routed by topic hint, or pinned to a
//     conversation via conversation_id)
//
// Conversations:
//   - GET /conversations - List the user's conversations with message counts
//   - GET /conversations/{id} - Conversation detail
//   - GET /conversations/{id}/messages - Persisted messages, oldest first
//   - POST /conversations/{id}/end - Flush and discard the conversation's
//     buffer
package api
