// Package views provides the default page components for travelblog. Pages
// are html/template files embedded in the binary and handed to the App as
// templ components.
package views

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/a-h/templ"

	"github.com/eringen/travelblog"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{}

func init() {
	for _, name := range []string{
		"index.html",
		"post.html",
		"login.html",
		"register.html",
		"make-post.html",
		"author.html",
		"gallery.html",
		"upload.html",
		"uploaded.html",
		"about.html",
		"contact.html",
		"error.html",
	} {
		pages[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
}

func render(name string, d pageData) templ.Component {
	return templ.FromGoHTML(pages[name], d)
}

func errorPage(p travelblog.Page, code int, msg string) templ.Component {
	return render("error.html", pageData{Page: p, Code: code, Message: msg})
}

// Funcs returns the default ViewFuncs.
func Funcs() travelblog.ViewFuncs {
	return travelblog.ViewFuncs{
		Home: func(p travelblog.Page, posts []travelblog.BlogPost) templ.Component {
			return render("index.html", pageData{Page: p, Posts: posts})
		},
		Post: func(p travelblog.Page, post travelblog.BlogPost, form travelblog.CommentForm, errs travelblog.FormErrors) templ.Component {
			return render("post.html", pageData{Page: p, Post: post, Form: form, Errors: errs})
		},
		Register: func(p travelblog.Page, form travelblog.RegisterForm, errs travelblog.FormErrors) templ.Component {
			return render("register.html", pageData{Page: p, Form: form, Errors: errs})
		},
		Login: func(p travelblog.Page, form travelblog.LoginForm, errs travelblog.FormErrors) templ.Component {
			return render("login.html", pageData{Page: p, Form: form, Errors: errs})
		},
		PostForm: func(p travelblog.Page, form travelblog.PostForm, errs travelblog.FormErrors, postID uint) templ.Component {
			return render("make-post.html", pageData{Page: p, Form: form, Errors: errs, PostID: postID})
		},
		Author: func(p travelblog.Page, name string, posts []travelblog.BlogPost) templ.Component {
			return render("author.html", pageData{Page: p, Author: name, Posts: posts})
		},
		Gallery: func(p travelblog.Page, posts []travelblog.BlogPost, photos []travelblog.Photo) templ.Component {
			return render("gallery.html", pageData{Page: p, Posts: posts, Photos: photos})
		},
		Upload: func(p travelblog.Page, errs travelblog.FormErrors) templ.Component {
			return render("upload.html", pageData{Page: p, Errors: errs})
		},
		Uploaded: func(p travelblog.Page, photo travelblog.Photo) templ.Component {
			return render("uploaded.html", pageData{Page: p, Photo: photo})
		},
		About: func(p travelblog.Page) templ.Component {
			return render("about.html", pageData{Page: p})
		},
		Contact: func(p travelblog.Page) templ.Component {
			return render("contact.html", pageData{Page: p})
		},
		NotFound: func(p travelblog.Page) templ.Component {
			return errorPage(p, http.StatusNotFound, "That page does not exist.")
		},
		Forbidden: func(p travelblog.Page) templ.Component {
			return errorPage(p, http.StatusForbidden, "You are not allowed to do that.")
		},
		ServerError: func(p travelblog.Page) templ.Component {
			return errorPage(p, http.StatusInternalServerError, "Something went wrong. Please try again later.")
		},
	}
}
