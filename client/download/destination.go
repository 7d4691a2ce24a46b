package download

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// maxClaimAttempts bounds the number of suffixed names tried by IntoDir.
const maxClaimAttempts = 10000

// defaultFilename is used when neither the response nor the URL suggest a name.
const defaultFilename = "download"

// Destination decides where a completed download is placed.
// Dir is where the transfer is staged and must exist (or be creatable)
// before any data is written; Claim returns the final path once the
// transfer succeeded.
type Destination interface {
	Dir() string
	Claim(suggested string) (string, error)
}

// ToPath returns a Destination that always materialises the file at p,
// replacing any existing file and creating missing parent directories.
func ToPath(p string) Destination {
	return pathDestination(p)
}

type pathDestination string

func (p pathDestination) Dir() string {
	if p == "" {
		return ""
	}

	return filepath.Dir(string(p))
}

func (p pathDestination) Claim(string) (string, error) {
	if p == "" {
		return "", ErrNoDestination
	}

	return filepath.Clean(string(p)), nil
}

// IntoDir returns a Destination that names the file after the suggested
// name inside dir. Taken names get a numeric suffix: report.pdf becomes
// report-1.pdf, report-2.pdf and so on. The claimed name is reserved on
// disk so concurrent downloads never pick the same file.
func IntoDir(dir string) Destination {
	return dirDestination(dir)
}

type dirDestination string

func (d dirDestination) Dir() string {
	return string(d)
}

func (d dirDestination) Claim(suggested string) (string, error) {
	if d == "" {
		return "", ErrNoDestination
	}

	name := sanitize(suggested)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := range maxClaimAttempts {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}

		p := filepath.Join(string(d), candidate)
		f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reserving %s: %w", p, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("closing reserved file: %w", err)
		}

		return p, nil
	}

	return "", fmt.Errorf("no free file name for %q in %s", name, string(d))
}

// SuggestedName derives a file name from a Content-Disposition header,
// falling back to the last segment of u's path.
func SuggestedName(contentDisposition string, u *url.URL) string {
	if contentDisposition != "" {
		_, params, err := mime.ParseMediaType(contentDisposition)
		if err == nil && strings.TrimSpace(params["filename"]) != "" {
			return sanitize(params["filename"])
		}
	}

	if u != nil {
		return sanitize(path.Base(u.Path))
	}

	return defaultFilename
}

// sanitize reduces name to a single safe path element.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))

	switch name {
	case "", ".", "..", "/":
		return defaultFilename
	}

	return name
}
