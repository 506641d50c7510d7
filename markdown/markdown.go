// Package markdown renders the Markdown subset used in post bodies and
// comments. All input is HTML-escaped first; only the markup produced here
// reaches the page.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

var (
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnderscore = regexp.MustCompile(`(^|[^\w])_([^_]+)_([^\w]|$)`)
	reInlineCode       = regexp.MustCompile("`([^`]+)`")
	reImg              = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	reLink             = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reOrderedItem      = regexp.MustCompile(`^\d+\.\s`)
	reHeading          = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)
	reRule             = regexp.MustCompile(`^(-{3,}|\*{3,})$`)
)

// Markdown returns a templ.Component that renders content as HTML.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderMarkdown(&buf, content)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// ToHTML returns the HTML for md.
func ToHTML(md string) string {
	var buf bytes.Buffer
	RenderMarkdown(&buf, md)
	return buf.String()
}

type block int

const (
	blockNone block = iota
	blockPara
	blockList
	blockOrdered
	blockQuote
	blockCode
)

var closeTags = map[block]string{
	blockPara:    "</p>",
	blockList:    "</ul>",
	blockOrdered: "</ol>",
	blockQuote:   "</blockquote>",
	blockCode:    "</code></pre>",
}

type renderer struct {
	buf  *bytes.Buffer
	open block
}

func (r *renderer) close() {
	if r.open != blockNone {
		r.buf.WriteString(closeTags[r.open])
		r.open = blockNone
	}
}

// enter opens block b with tag unless it is already open, and reports
// whether b was already open.
func (r *renderer) enter(b block, tag string) bool {
	if r.open == b {
		return true
	}
	r.close()
	r.buf.WriteString(tag)
	r.open = b
	return false
}

// RenderMarkdown writes the HTML representation of md to buf.
func RenderMarkdown(buf *bytes.Buffer, md string) {
	r := &renderer{buf: buf}
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if r.open == blockCode {
				r.close()
				continue
			}
			r.close()
			if lang := strings.TrimSpace(trimmed[3:]); lang != "" {
				buf.WriteString(`<pre class="code-block"><code class="language-` + html.EscapeString(lang) + `">`)
			} else {
				buf.WriteString(`<pre class="code-block"><code>`)
			}
			r.open = blockCode
			continue
		}
		if r.open == blockCode {
			buf.WriteString(html.EscapeString(line))
			buf.WriteByte('\n')
			continue
		}

		switch {
		case trimmed == "":
			r.close()
		case reRule.MatchString(trimmed):
			r.close()
			buf.WriteString("<hr/>")
		case reHeading.MatchString(trimmed):
			r.close()
			m := reHeading.FindStringSubmatch(trimmed)
			level := strconv.Itoa(len(m[1]))
			buf.WriteString("<h" + level + ">" + FormatInline(m[2]) + "</h" + level + ">")
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			r.enter(blockList, "<ul>")
			buf.WriteString("<li>" + FormatInline(strings.TrimSpace(trimmed[2:])) + "</li>")
		case reOrderedItem.MatchString(trimmed):
			r.enter(blockOrdered, "<ol>")
			item := reOrderedItem.ReplaceAllString(trimmed, "")
			buf.WriteString("<li>" + FormatInline(strings.TrimSpace(item)) + "</li>")
		case strings.HasPrefix(trimmed, ">"):
			if r.enter(blockQuote, "<blockquote>") {
				buf.WriteByte(' ')
			}
			buf.WriteString(FormatInline(strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))))
		default:
			if r.enter(blockPara, "<p>") {
				buf.WriteByte('\n')
			}
			buf.WriteString(FormatInline(trimmed))
		}
	}
	r.close()
}

// FormatInline escapes s and applies inline formatting: code spans, images,
// links, bold and italic.
func FormatInline(s string) string {
	escaped := html.EscapeString(s)

	// Code spans are swapped for placeholders so nothing else formats them.
	var spans []string
	escaped = reInlineCode.ReplaceAllStringFunc(escaped, func(m string) string {
		inner := reInlineCode.FindStringSubmatch(m)[1]
		spans = append(spans, "<code>"+inner+"</code>")
		return "\x00C" + strconv.Itoa(len(spans)-1) + "\x00"
	})

	escaped = reImg.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reImg.FindStringSubmatch(m)
		src := SafeURL(match[2])
		if src == "" {
			return match[1]
		}
		return `<img src="` + src + `" alt="` + match[1] + `" loading="lazy" decoding="async"/>`
	})
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		attrs := ""
		if !strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "#") {
			attrs = ` rel="nofollow noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>` + match[1] + `</a>`
	})

	escaped = outsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnderscore.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		seg = reItalicUnderscore.ReplaceAllString(seg, "$1<em>$2</em>$3")
		return seg
	})

	for i, span := range spans {
		escaped = strings.Replace(escaped, "\x00C"+strconv.Itoa(i)+"\x00", span, 1)
	}
	return escaped
}

// outsideTags applies fn only to text between HTML tags, so attribute values
// such as href are never reformatted.
func outsideTags(s string, fn func(string) string) string {
	var b strings.Builder
	for len(s) > 0 {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(fn(s))
			break
		}
		b.WriteString(fn(s[:lt]))
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			b.WriteString(s[lt:])
			break
		}
		b.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return b.String()
}

// SafeURL validates raw for use in an HTML attribute. Relative paths,
// fragments and http(s)/mailto URLs pass; everything else yields "".
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "//") {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto":
		return html.EscapeString(val)
	default:
		return ""
	}
}
