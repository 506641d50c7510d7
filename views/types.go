package views

import "github.com/eringen/travelblog"

// pageData is what every template executes against. The embedded Page
// supplies the layout: site name, current user, flashes and CSRF token.
type pageData struct {
	travelblog.Page

	Posts  []travelblog.BlogPost
	Post   travelblog.BlogPost
	Photos []travelblog.Photo
	Photo  travelblog.Photo
	Author string

	// Form is the submitted or pre-filled form struct of the page.
	Form   interface{}
	Errors travelblog.FormErrors
	PostID uint

	Code    int
	Message string
}
