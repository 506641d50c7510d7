package views

import (
	"html/template"
	"time"

	"github.com/eringen/travelblog"
	"github.com/eringen/travelblog/markdown"
)

const avatarSize = 100

var funcs = template.FuncMap{
	// markdown output is escaped by the renderer itself.
	"markdown": func(s string) template.HTML {
		return template.HTML(markdown.ToHTML(s))
	},
	"gravatar": func(email string) string {
		return travelblog.GravatarURL(email, avatarSize)
	},
	"static": travelblog.StaticPath,
	"authorURL": func(name string) string {
		return travelblog.BuildPath("author", name)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("January 2, 2006")
	},
}
