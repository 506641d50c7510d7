package travelblog

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(a.page(c, ""), posts))
}

func (a *App) handleShowPost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	post, err := a.Store.GetPost(c.Request().Context(), id)
	if err != nil {
		return notFound(err)
	}
	return Render(c, a.Views.Post(a.page(c, post.Title), post, CommentForm{}, nil))
}

// handleAddComment stores a comment and redirects back to the post.
// Anonymous readers are sent to the login page and nothing is stored.
func (a *App) handleAddComment(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	user := CurrentUser(c)
	if user == nil {
		return a.flashRedirect(c, msgLoginToComment, "/login")
	}

	var form CommentForm
	errs, err := bindForm(c, &form)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if errs != nil {
		post, err := a.Store.GetPost(ctx, id)
		if err != nil {
			return notFound(err)
		}
		return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.Post(a.page(c, post.Title), post, form, errs))
	}

	comment := Comment{PostID: id, AuthorID: user.ID, Text: form.Text}
	if err := a.Store.AddComment(ctx, &comment); err != nil {
		return notFound(err)
	}
	a.metrics.CommentsAdded.Inc()
	return c.Redirect(http.StatusSeeOther, BuildPath("post", id))
}

func (a *App) handleAbout(c echo.Context) error {
	return Render(c, a.Views.About(a.page(c, "About")))
}

func (a *App) handleContact(c echo.Context) error {
	return Render(c, a.Views.Contact(a.page(c, "Contact")))
}

// handleAuthor lists the posts whose author display name matches :name,
// ignoring case.
func (a *App) handleAuthor(c echo.Context) error {
	name := c.Param("name")
	posts, err := a.Cache.ListPosts(c.Request().Context(), name)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Author(a.page(c, name), name, posts))
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nDisallow: /new-post\nDisallow: /edit-post/\nDisallow: /delete/\nDisallow: /upload\n\nSitemap: %s\n",
		BuildURL(a.Config.URL, "sitemap.xml"))
	return c.String(http.StatusOK, body)
}

// parseID reads the numeric :id path parameter. Anything that is not a
// positive integer is a 404, like an unknown id.
func parseID(c echo.Context) (uint, error) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || n == 0 {
		return 0, echo.ErrNotFound
	}
	return uint(n), nil
}

// notFound turns ErrNotFound into a 404 and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	return err
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.Views.NotFound(a.page(c, "Not Found")))
	case code == http.StatusForbidden:
		_ = RenderStatus(c, code, a.Views.Forbidden(a.page(c, "Forbidden")))
	case code >= 500:
		a.Log.WithError(err).WithField("uri", c.Request().RequestURI).Error("server error")
		_ = RenderStatus(c, code, a.Views.ServerError(a.page(c, "Error")))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
