package travelblog

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const maxNameAttempts = 1000

var (
	// ErrImageTooLarge is returned for uploads above SiteConfig.MaxUploadBytes.
	ErrImageTooLarge = errors.New("image too large")
	// ErrImageType is returned for file extensions outside the allowlist.
	ErrImageType = errors.New("unsupported image type")
	// ErrImageDecode is returned when the upload is not a readable image.
	ErrImageDecode = errors.New("not a valid image")
)

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Uploads stores re-encoded images below the static directory and hands
// back the relative paths kept in the database.
type Uploads struct {
	staticDir string
	subdir    string
	maxBytes  int64
	maxWidth  int
	quality   int
}

// NewUploads returns an Uploads configured from cfg.
func NewUploads(cfg SiteConfig) *Uploads {
	cfg.setDefaults()
	return &Uploads{
		staticDir: cfg.StaticDir,
		subdir:    path.Clean(filepath.ToSlash(cfg.UploadSubdir)),
		maxBytes:  cfg.MaxUploadBytes,
		maxWidth:  cfg.MaxImageWidth,
		quality:   cfg.JPEGQuality,
	}
}

// IngestFile runs a multipart upload through Ingest.
func (u *Uploads) IngestFile(fh *multipart.FileHeader) (string, error) {
	if fh.Size > u.maxBytes {
		return "", ErrImageTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "open upload")
	}
	defer src.Close()
	return u.Ingest(fh.Filename, src)
}

// Ingest decodes the image in r, scales it down if it is wider than the
// configured width and writes it as a JPEG named after originalName. A name
// already taken gets a -2, -3... suffix. The returned path is relative to
// the static directory, e.g. "img/uploads/lisbon.jpg".
func (u *Uploads) Ingest(originalName string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedImageExts[ext] {
		return "", ErrImageType
	}
	raw, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return "", errors.Wrap(err, "read upload")
	}
	if int64(len(raw)) > u.maxBytes {
		return "", ErrImageTooLarge
	}
	data, err := processImage(bytes.NewReader(raw), u.maxWidth, u.quality)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(u.staticDir, filepath.FromSlash(u.subdir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create uploads dir")
	}
	base := Slugify(strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName)))
	if base == "" {
		base = "image"
	}
	f, name, err := claimUpload(dir, base)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.Wrap(err, "write image")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "close image")
	}
	return path.Join(u.subdir, name), nil
}

// Remove deletes a file previously returned by Ingest. A file that is
// already gone is not an error. Paths outside the uploads directory are
// ignored.
func (u *Uploads) Remove(rel string) error {
	if !u.owns(rel) {
		return nil
	}
	err := os.Remove(filepath.Join(u.staticDir, filepath.FromSlash(path.Clean(rel))))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "remove image")
	}
	return nil
}

func (u *Uploads) owns(rel string) bool {
	if rel == "" {
		return false
	}
	clean := path.Clean(rel)
	return strings.HasPrefix(clean, u.subdir+"/") && !strings.Contains(clean, "..")
}

// processImage decodes an image from src, resizes it to maxWidth if wider
// and encodes it as JPEG at the given quality.
func processImage(src io.Reader, maxWidth, quality int) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, errors.Wrap(ErrImageDecode, err.Error())
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxWidth > 0 && w > maxWidth {
		newH := h * maxWidth / w
		if newH < 1 {
			newH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrap(err, "encode jpeg")
	}
	return buf.Bytes(), nil
}

// claimUpload creates dir/base.jpg exclusively, falling back to
// base-2.jpg, base-3.jpg and so on when the name is taken.
func claimUpload(dir, base string) (*os.File, string, error) {
	for i := 1; i <= maxNameAttempts; i++ {
		name := base + ".jpg"
		if i > 1 {
			name = fmt.Sprintf("%s-%d.jpg", base, i)
		}
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", errors.Wrap(err, "create image file")
		}
	}
	return nil, "", errors.Errorf("no free file name for %q", base)
}

// imageError maps ingestion failures to the message shown on the form.
func imageError(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrImageTooLarge):
		return "Image is too large.", true
	case errors.Is(err, ErrImageType):
		return "Images only: png, jpg, jpeg, gif or webp.", true
	case errors.Is(err, ErrImageDecode):
		return "The file is not a readable image.", true
	}
	return "", false
}

func (a *App) handleGallery(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	photos, err := a.Store.ListPhotos(ctx)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Gallery(a.page(c, "Gallery"), posts, photos))
}

// handleUpload adds a standalone photo to the gallery.
func (a *App) handleUpload(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		return Render(c, a.Views.Upload(a.page(c, "Upload"), nil))
	}
	fh, err := formFile(c, "file")
	if err != nil {
		return err
	}
	var errs FormErrors
	if fh == nil {
		errs.Add("file", "This field is required.")
		return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.Upload(a.page(c, "Upload"), errs))
	}
	rel, err := a.ingest(fh)
	if err != nil {
		if msg, ok := imageError(err); ok {
			errs.Add("file", msg)
			return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.Upload(a.page(c, "Upload"), errs))
		}
		return err
	}
	photo := Photo{Img: rel}
	if err := a.Store.CreatePhoto(c.Request().Context(), &photo); err != nil {
		a.removeUpload(rel)
		return err
	}
	return Render(c, a.Views.Uploaded(a.page(c, "Uploaded"), photo))
}
