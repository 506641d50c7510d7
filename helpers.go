package travelblog

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Slugify converts a title or file name to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, path.Join(pathSegments...))
	return u.String()
}

// BuildPath formats segments into a site-relative path, so
// BuildPath("post", 3) is "/post/3". String segments are path-escaped.
func BuildPath(segments ...interface{}) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		switch v := s.(type) {
		case string:
			b.WriteString(url.PathEscape(v))
		default:
			fmt.Fprint(&b, v)
		}
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

// StaticPath returns the URL of a file stored below the static directory,
// such as an uploaded image path "img/uploads/x.jpg".
func StaticPath(rel string) string {
	if rel == "" {
		return ""
	}
	return "/static/" + strings.TrimLeft(rel, "/")
}

// GravatarURL returns the identicon avatar URL for email.
func GravatarURL(email string, size int) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=retro&r=g", hex.EncodeToString(sum[:]), size)
}
