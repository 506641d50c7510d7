package travelblog

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Lisbon", "lisbon"},
		{"  Hello, World!  ", "hello-world"},
		{"Two   spaces", "two-spaces"},
		{"trailing---", "trailing"},
		{"--leading", "leading"},
		{"São Paulo 2024", "s-o-paulo-2024"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.expected {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildPath(t *testing.T) {
	tests := []struct {
		segments []interface{}
		expected string
	}{
		{nil, "/"},
		{[]interface{}{"post", uint(3)}, "/post/3"},
		{[]interface{}{"author", "Ana Silva"}, "/author/Ana%20Silva"},
		{[]interface{}{"author", "a/b"}, "/author/a%2Fb"},
	}
	for _, tt := range tests {
		if got := BuildPath(tt.segments...); got != tt.expected {
			t.Errorf("BuildPath(%v) = %q, want %q", tt.segments, got, tt.expected)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base     string
		segments []string
		expected string
	}{
		{"https://example.com", nil, "https://example.com/"},
		{"https://example.com/", []string{"post/3"}, "https://example.com/post/3"},
		{"https://example.com/blog", []string{"/post/3"}, "https://example.com/blog/post/3"},
		{"https://example.com", []string{"author", "Ana Silva"}, "https://example.com/author/Ana%20Silva"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segments...); got != tt.expected {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segments, got, tt.expected)
		}
	}
}

func TestStaticPath(t *testing.T) {
	if got := StaticPath("img/uploads/x.jpg"); got != "/static/img/uploads/x.jpg" {
		t.Errorf("StaticPath = %q", got)
	}
	if got := StaticPath("/img/x.jpg"); got != "/static/img/x.jpg" {
		t.Errorf("StaticPath with leading slash = %q", got)
	}
	if got := StaticPath(""); got != "" {
		t.Errorf("StaticPath(\"\") = %q, want empty", got)
	}
}

func TestGravatarURL(t *testing.T) {
	a := GravatarURL("Ana@Example.com ", 100)
	b := GravatarURL("ana@example.com", 100)
	if a != b {
		t.Errorf("GravatarURL should normalise the email: %q != %q", a, b)
	}
	if !strings.HasPrefix(a, "https://www.gravatar.com/avatar/") || !strings.HasSuffix(a, "?s=100&d=retro&r=g") {
		t.Errorf("GravatarURL = %q", a)
	}
}
