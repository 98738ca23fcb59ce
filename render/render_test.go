package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdown_BasicElements(t *testing.T) {
	out := string(Markdown([]byte("# Title\n\nSome *emphasis* and a [link](https://example.com).\n"), ""))

	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<em>emphasis</em>")
	assert.Contains(t, out, `href="https://example.com"`)
	// External links open in a new tab.
	assert.Contains(t, out, `target="_blank"`)
}

func TestMarkdown_HighlightsFencedCode(t *testing.T) {
	md := "```go\nfunc main() {}\n```\n"
	out := string(Markdown([]byte(md), "github"))

	assert.Contains(t, out, `<div class="highlight">`)
	assert.Contains(t, out, "func")
	// Inline styles mean the block carries color information.
	assert.Contains(t, out, "style=")
}

func TestMarkdown_Tables(t *testing.T) {
	md := "| a | b |\n|---|---|\n| 1 | 2 |\n"
	out := string(Markdown([]byte(md), ""))
	assert.Contains(t, out, "<table>")
}

func TestHighlightCode_UnknownLanguageFallsBack(t *testing.T) {
	out := HighlightCode("plain text here", "no-such-language", "github")
	assert.Contains(t, out, "plain text here")
}

func TestHighlightCode_UnknownThemeFallsBack(t *testing.T) {
	out := HighlightCode("x := 1", "go", "no-such-theme")
	assert.True(t, strings.Contains(out, "x") && strings.Contains(out, "1"))
}
