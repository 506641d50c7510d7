package travelblog

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// page collects the layout values for the current request. Pending flash
// messages are consumed, so call it before anything is written.
func (a *App) page(c echo.Context, title string) Page {
	return Page{
		SiteName: a.Config.Name,
		Title:    title,
		User:     CurrentUser(c),
		Flashes:  popFlashes(c),
		CSRF:     CsrfToken(c),
	}
}
