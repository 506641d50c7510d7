package travelblog

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestUploads(t *testing.T) (*Uploads, string) {
	t.Helper()
	dir := t.TempDir()
	return NewUploads(SiteConfig{StaticDir: dir, MaxImageWidth: 100}), dir
}

func TestIngestWritesJPEG(t *testing.T) {
	u, dir := newTestUploads(t)

	rel, err := u.Ingest("Lisbon Harbour.PNG", bytes.NewReader(pngBytes(t, 40, 30)))
	require.NoError(t, err)
	assert.Equal(t, "img/uploads/lisbon-harbour.jpg", rel)

	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestIngestScalesDownWideImages(t *testing.T) {
	u, dir := newTestUploads(t)

	rel, err := u.Ingest("wide.png", bytes.NewReader(pngBytes(t, 400, 200)))
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 50, cfg.Height)
}

func TestIngestNameCollisions(t *testing.T) {
	u, _ := newTestUploads(t)
	data := pngBytes(t, 10, 10)

	var got []string
	for i := 0; i < 3; i++ {
		rel, err := u.Ingest("porto.png", bytes.NewReader(data))
		require.NoError(t, err)
		got = append(got, rel)
	}
	assert.Equal(t, []string{
		"img/uploads/porto.jpg",
		"img/uploads/porto-2.jpg",
		"img/uploads/porto-3.jpg",
	}, got)
}

func TestIngestEmptyBaseName(t *testing.T) {
	u, _ := newTestUploads(t)
	rel, err := u.Ingest("???.png", bytes.NewReader(pngBytes(t, 10, 10)))
	require.NoError(t, err)
	assert.Equal(t, "img/uploads/image.jpg", rel)
}

func TestIngestRejects(t *testing.T) {
	u, _ := newTestUploads(t)

	_, err := u.Ingest("notes.txt", bytes.NewReader([]byte("hello")))
	assert.ErrorIs(t, err, ErrImageType)

	_, err = u.Ingest("fake.jpg", bytes.NewReader([]byte("not an image")))
	assert.ErrorIs(t, err, ErrImageDecode)

	small := NewUploads(SiteConfig{StaticDir: t.TempDir(), MaxUploadBytes: 16})
	_, err = small.Ingest("big.png", bytes.NewReader(pngBytes(t, 20, 20)))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestRemove(t *testing.T) {
	u, dir := newTestUploads(t)
	rel, err := u.Ingest("faro.png", bytes.NewReader(pngBytes(t, 10, 10)))
	require.NoError(t, err)

	require.NoError(t, u.Remove(rel))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, u.Remove(rel), "removing a missing file is not an error")

	outside := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))
	assert.NoError(t, u.Remove("keep.txt"))
	assert.NoError(t, u.Remove("img/uploads/../../keep.txt"))
	assert.NoError(t, u.Remove(""))
	_, err = os.Stat(outside)
	assert.NoError(t, err, "files outside the uploads directory are left alone")
}

func TestImageError(t *testing.T) {
	msg, ok := imageError(ErrImageTooLarge)
	assert.True(t, ok)
	assert.Equal(t, "Image is too large.", msg)

	_, ok = imageError(ErrImageType)
	assert.True(t, ok)

	_, ok = imageError(os.ErrPermission)
	assert.False(t, ok)
}
