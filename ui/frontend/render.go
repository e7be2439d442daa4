package frontend

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// The markdown pipeline is shared: goldmark parsers are safe for concurrent
// use, and bluemonday policies are immutable after construction.
var (
	markdownOnce     sync.Once
	markdownRenderer goldmark.Markdown
	sanitizePolicy   *bluemonday.Policy
)

func initMarkdown() {
	markdownRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
	sanitizePolicy = bluemonday.UGCPolicy()
}

// renderMarkdown converts assistant/user markdown to sanitized HTML.
// Model output is untrusted; everything goes through the UGC policy before
// it reaches a browser. Render failures fall back to escaped plain text.
func renderMarkdown(source string) template.HTML {
	markdownOnce.Do(initMarkdown)

	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(source), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(source) + "</pre>")
	}
	return template.HTML(sanitizePolicy.SanitizeBytes(buf.Bytes()))
}

// Each page owns its own template tree so the "content" blocks cannot
// collide.
func mustPage(content string) *template.Template {
	page := template.Must(template.New("page").Parse(baseLayout))
	template.Must(page.New("content").Parse(content))
	return page
}

const baseLayout = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 720px; margin: 2rem auto; padding: 0 1rem; }
.msg { margin: 1rem 0; padding: 0.75rem 1rem; border-radius: 8px; }
.msg.user { background: #e8f0fe; }
.msg.assistant { background: #f1f3f4; }
.msg .role { font-size: 0.75rem; color: #5f6368; text-transform: uppercase; }
.conv { display: block; padding: 0.5rem 0; border-bottom: 1px solid #eee; }
form.chat { display: flex; gap: 0.5rem; margin-top: 1.5rem; }
form.chat input[type=text] { flex: 1; padding: 0.5rem; }
.meta { color: #5f6368; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{template "content" .}}
</body>
</html>`

var conversationsTemplate = mustPage(`
{{range .Conversations}}
<a class="conv" href="{{$.BasePath}}/conversations/{{.ID}}">
  <strong>{{if .Topic}}{{.Topic}}{{else}}(no topic){{end}}</strong>
  <span class="meta">{{.MessageCount}} messages, {{.TokenTotal}} tokens</span>
</a>
{{else}}
<p class="meta">No conversations yet.</p>
{{end}}
{{if not .ReadOnly}}
<form class="chat" method="post" action="{{.BasePath}}/chat">
  <input type="text" name="text" placeholder="Start a conversation" required>
  <input type="text" name="topic" placeholder="Topic (optional)">
  <button type="submit">Send</button>
</form>
{{end}}`)

var transcriptTemplate = mustPage(`
<p><a href="{{.BasePath}}/">&larr; conversations</a></p>
{{range .Messages}}
<div class="msg {{.Role}}">
  <div class="role">{{.Role}}</div>
  {{.HTML}}
</div>
{{end}}
{{if not .ReadOnly}}
<form class="chat" method="post" action="{{.BasePath}}/chat">
  <input type="hidden" name="conversation_id" value="{{.ConversationID}}">
  <input type="text" name="text" placeholder="Reply" required>
  <button type="submit">Send</button>
</form>
{{end}}`)
