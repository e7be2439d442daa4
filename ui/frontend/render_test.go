package frontend

import (
	"strings"
	"testing"
)

func TestRenderMarkdown(t *testing.T) {
	out := string(renderMarkdown("# Title\n\nsome **bold** text"))
	if !strings.Contains(out, "<h1>") {
		t.Errorf("expected heading in output, got %q", out)
	}
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Errorf("expected bold text in output, got %q", out)
	}
}

func TestRenderMarkdown_StripsScripts(t *testing.T) {
	out := string(renderMarkdown(`hello <script>alert("x")</script> <a href="javascript:evil()">link</a>`))
	if strings.Contains(out, "<script>") {
		t.Errorf("script tag survived sanitization: %q", out)
	}
	if strings.Contains(out, "javascript:") {
		t.Errorf("javascript URL survived sanitization: %q", out)
	}
}
