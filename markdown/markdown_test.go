package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFormatInlineEmphasis(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"__bold__", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"_italic_", "<em>italic</em>"},
		{"text **bold** more", "text <strong>bold</strong> more"},
		{"**bold *italic* text**", "<strong>bold <em>italic</em> text</strong>"},
	}
	for _, tt := range tests {
		got := FormatInline(tt.input)
		if got != tt.expected {
			t.Errorf("FormatInline(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatInlineLeavesSnakeCase(t *testing.T) {
	input := "see some_file_name here"
	if got := FormatInline(input); got != input {
		t.Errorf("FormatInline(%q) = %q, want it unchanged", input, got)
	}
}

func TestFormatInlineEscapesHTML(t *testing.T) {
	got := FormatInline(`<script>alert("x")</script>`)
	if strings.Contains(got, "<script>") {
		t.Errorf("FormatInline did not escape markup: %q", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("FormatInline(%q) missing escaped tag", got)
	}
}

func TestFormatInlineCodeSpan(t *testing.T) {
	got := FormatInline("run `go **build**` now")
	want := "run <code>go **build**</code> now"
	if got != want {
		t.Errorf("FormatInline = %q, want %q", got, want)
	}
}

func TestFormatInlineLinks(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"[home](/)", `<a href="/">home</a>`},
		{"[map](https://example.com/a_b_c)", `<a href="https://example.com/a_b_c" rel="nofollow noopener noreferrer">map</a>`},
		{"[bad](javascript:void)", "bad"},
		{"[proto](//evil.example)", "proto"},
	}
	for _, tt := range tests {
		got := FormatInline(tt.input)
		if got != tt.expected {
			t.Errorf("FormatInline(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatInlineImage(t *testing.T) {
	got := FormatInline("![harbour](/static/img/uploads/porto.jpg)")
	if !strings.Contains(got, `<img src="/static/img/uploads/porto.jpg" alt="harbour"`) {
		t.Errorf("FormatInline image = %q", got)
	}
}

func TestRenderMarkdownBlocks(t *testing.T) {
	input := strings.Join([]string{
		"# Lisbon",
		"",
		"First line",
		"second line",
		"",
		"- tram 28",
		"- pastel de nata",
		"",
		"1. arrive",
		"2. leave",
		"",
		"> worth it",
		"",
		"---",
	}, "\n")
	got := ToHTML(input)
	for _, want := range []string{
		"<h1>Lisbon</h1>",
		"<p>First line\nsecond line</p>",
		"<ul><li>tram 28</li><li>pastel de nata</li></ul>",
		"<ol><li>arrive</li><li>leave</li></ol>",
		"<blockquote>worth it</blockquote>",
		"<hr/>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ToHTML output missing %q\ngot: %q", want, got)
		}
	}
}

func TestRenderMarkdownCodeBlock(t *testing.T) {
	var buf bytes.Buffer
	RenderMarkdown(&buf, "```go\nx := \"<b>\"\n```")
	got := buf.String()
	if !strings.Contains(got, `<code class="language-go">`) {
		t.Errorf("code block missing language class: %q", got)
	}
	if !strings.Contains(got, "x := &#34;&lt;b&gt;&#34;") {
		t.Errorf("code block content not escaped: %q", got)
	}
	if !strings.HasSuffix(got, "</code></pre>") {
		t.Errorf("code block not closed: %q", got)
	}
}

func TestRenderMarkdownUnclosedCodeBlock(t *testing.T) {
	got := ToHTML("```\nstill code")
	if !strings.HasSuffix(got, "</code></pre>") {
		t.Errorf("unclosed code block should be closed at end: %q", got)
	}
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown("hello **world**").Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "<p>hello <strong>world</strong></p>"; got != want {
		t.Errorf("Markdown rendered %q, want %q", got, want)
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/post/1", "/post/1"},
		{"#top", "#top"},
		{"https://example.com", "https://example.com"},
		{"mailto:me@example.com", "mailto:me@example.com"},
		{"javascript:alert(1)", ""},
		{"data:text/html,x", ""},
		{"relative/path", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.input); got != tt.expected {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
