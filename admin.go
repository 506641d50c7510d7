package travelblog

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const msgDuplicateTitle = "A post with this title already exists."

func (a *App) handleNewPost(c echo.Context) error {
	var form PostForm
	if c.Request().Method == http.MethodGet {
		return Render(c, a.Views.PostForm(a.page(c, "New Post"), form, nil, 0))
	}

	errs, err := bindForm(c, &form)
	if err != nil {
		return err
	}
	fh, err := formFile(c, "img_local")
	if err != nil {
		return err
	}
	if fh == nil {
		errs.Add("img_local", "This field is required.")
	}
	if errs != nil {
		return a.renderPostForm(c, form, errs, 0)
	}

	rel, err := a.ingest(fh)
	if err != nil {
		if msg, ok := imageError(err); ok {
			errs.Add("img_local", msg)
			return a.renderPostForm(c, form, errs, 0)
		}
		return err
	}

	ctx := c.Request().Context()
	post := BlogPost{
		AuthorID: CurrentUser(c).ID,
		Title:    form.Title,
		Subtitle: form.Subtitle,
		Start:    form.Start,
		End:      form.End,
		Body:     form.Body,
		ImgLocal: rel,
	}
	if err := a.Store.CreatePost(ctx, &post); err != nil {
		a.removeUpload(rel)
		if errors.Is(err, ErrDuplicate) {
			errs.Add("title", msgDuplicateTitle)
			return a.renderPostForm(c, form, errs, 0)
		}
		return err
	}
	a.metrics.PostsCreated.Inc()
	a.Cache.Invalidate(ctx)
	return c.Redirect(http.StatusSeeOther, "/")
}

// handleEditPost updates a post in place. The image is optional here; a new
// one replaces the old file once the row is saved.
func (a *App) handleEditPost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	post, err := a.Store.GetPost(ctx, id)
	if err != nil {
		return notFound(err)
	}
	if c.Request().Method == http.MethodGet {
		return Render(c, a.Views.PostForm(a.page(c, "Edit Post"), PostFormFrom(post), nil, id))
	}

	var form PostForm
	errs, err := bindForm(c, &form)
	if err != nil {
		return err
	}
	form.ImgLocal = post.ImgLocal
	if errs != nil {
		return a.renderPostForm(c, form, errs, id)
	}

	fh, err := formFile(c, "img_local")
	if err != nil {
		return err
	}
	newImg := ""
	if fh != nil {
		if newImg, err = a.ingest(fh); err != nil {
			if msg, ok := imageError(err); ok {
				errs.Add("img_local", msg)
				return a.renderPostForm(c, form, errs, id)
			}
			return err
		}
	}

	updated := post
	updated.Title = form.Title
	updated.Subtitle = form.Subtitle
	updated.Start = form.Start
	updated.End = form.End
	updated.Body = form.Body
	if newImg != "" {
		updated.ImgLocal = newImg
	}
	if err := a.Store.UpdatePost(ctx, &updated); err != nil {
		a.removeUpload(newImg)
		if errors.Is(err, ErrDuplicate) {
			errs.Add("title", msgDuplicateTitle)
			return a.renderPostForm(c, form, errs, id)
		}
		return notFound(err)
	}
	if newImg != "" && newImg != post.ImgLocal {
		a.removeUpload(post.ImgLocal)
	}
	a.metrics.PostsUpdated.Inc()
	a.Cache.Invalidate(ctx)
	return c.Redirect(http.StatusSeeOther, BuildPath("post", id))
}

// handleDeletePost removes the post, its comments and its image file.
func (a *App) handleDeletePost(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	post, err := a.Store.DeletePost(ctx, id)
	if err != nil {
		return notFound(err)
	}
	a.removeUpload(post.ImgLocal)
	a.metrics.PostsDeleted.Inc()
	a.Cache.Invalidate(ctx)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) renderPostForm(c echo.Context, form PostForm, errs FormErrors, postID uint) error {
	title := "New Post"
	if postID != 0 {
		title = "Edit Post"
	}
	return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.PostForm(a.page(c, title), form, errs, postID))
}

// ingest stores an uploaded image and counts it.
func (a *App) ingest(fh *multipart.FileHeader) (string, error) {
	rel, err := a.Uploads.IngestFile(fh)
	if err != nil {
		return "", err
	}
	a.metrics.ImagesIngested.Inc()
	return rel, nil
}

// removeUpload deletes a stored image, logging failures. Cleanup never fails
// the request.
func (a *App) removeUpload(rel string) {
	if rel == "" {
		return
	}
	if err := a.Uploads.Remove(rel); err != nil {
		a.Log.WithError(err).WithField("path", rel).Warn("could not remove image")
	}
}

// formFile returns the uploaded file named field, or nil when the request
// has none.
func formFile(c echo.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	switch {
	case err == nil:
		if fh.Filename == "" && fh.Size == 0 {
			return nil, nil
		}
		return fh, nil
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return nil, nil
	default:
		return nil, errors.Wrap(err, "read upload")
	}
}
