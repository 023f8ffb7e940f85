package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	errs "imgfetch/pkg/errors"
)

// maxCreateAttempts bounds the re-resolution loop when names keep colliding
const maxCreateAttempts = 1000

// Resolver picks safe, unique filenames inside an output directory
type Resolver struct {
	dir string
	now func() time.Time
}

// Option configures a Resolver
type Option func(*Resolver)

// WithClock overrides the clock used for synthesized names
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a resolver for dir
func NewResolver(dir string, opts ...Option) *Resolver {
	r := &Resolver{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the output directory
func (r *Resolver) Dir() string {
	return r.dir
}

// EnsureDir creates the output directory if it does not exist
func (r *Resolver) EnsureDir() error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return errs.New(errs.ErrorTypeFilesystem, "failed to create output directory", err)
	}
	return nil
}

// FilenameFromHeader extracts the name offered by a Content-Disposition
// value. Everything after the first "filename=" is taken, trimmed of
// whitespace, a trailing ';' and surrounding quotes.
func FilenameFromHeader(contentDisposition string) (string, bool) {
	_, after, found := strings.Cut(contentDisposition, "filename=")
	if !found {
		return "", false
	}

	name := strings.TrimSpace(after)
	name = strings.Trim(name, ";")
	name = strings.Trim(name, `"`)
	name = strings.Trim(name, "'")
	if name == "" {
		return "", false
	}
	return name, true
}

// FilenameFromURL derives a name from the last path segment of rawURL,
// synthesizing one when the segment is empty or has no extension.
func (r *Resolver) FilenameFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.EscapedPath()
	}

	// Split before decoding so an encoded slash stays inside the name.
	name := p[strings.LastIndex(p, "/")+1:]
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	name = strings.TrimSpace(name)
	if name == "" || !strings.Contains(name, ".") {
		name = fmt.Sprintf("downloaded_%d.jpg", r.now().UnixMilli())
	}
	return name
}

// Sanitize keeps letters, digits, '-', '_', '.' and spaces. A name that
// sanitizes to nothing usable gets a synthesized replacement.
func (r *Resolver) Sanitize(name string) string {
	cleaned := strings.Map(func(c rune) rune {
		switch {
		case unicode.IsLetter(c), unicode.IsNumber(c):
			return c
		case c == '-', c == '_', c == '.', c == ' ':
			return c
		default:
			return -1
		}
	}, name)

	if strings.Trim(cleaned, ". ") == "" {
		return fmt.Sprintf("image_%d.jpg", r.now().UnixMilli())
	}
	return cleaned
}

// Name chooses the filename for a response: the Content-Disposition name
// when offered, else the URL-derived one, sanitized either way.
func (r *Resolver) Name(contentDisposition, rawURL string) string {
	if name, ok := FilenameFromHeader(contentDisposition); ok {
		return r.Sanitize(name)
	}
	return r.Sanitize(r.FilenameFromURL(rawURL))
}

// UniquePath returns dir/name, or the first free "base (n)ext" variant
func (r *Resolver) UniquePath(name string) string {
	candidate := filepath.Join(r.dir, name)
	base, ext := splitExt(name)
	for i := 1; exists(candidate); i++ {
		candidate = filepath.Join(r.dir, fmt.Sprintf("%s (%d)%s", base, i, ext))
	}
	return candidate
}

// Create opens a new file for name without overwriting anything. A path
// claimed between resolution and creation is resolved again.
func (r *Resolver) Create(name string) (*os.File, string, error) {
	for i := 0; i < maxCreateAttempts; i++ {
		path := r.UniquePath(name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", errs.New(errs.ErrorTypeFilesystem, fmt.Sprintf("failed to create %s", path), err)
		}
	}
	return nil, "", errs.New(errs.ErrorTypeFilesystem, fmt.Sprintf("no free filename for %s", name), nil)
}

// splitExt splits name like a path extension, treating a leading dot as
// part of the base so ".hidden" has no extension.
func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if strings.Trim(base, ".") == "" {
		return name, ""
	}
	return base, ext
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
