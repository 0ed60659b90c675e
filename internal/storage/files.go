// Package storage owns the on-disk side of the media library: safe file naming,
// content sniffing against the video allow-list, and thumbnail/duration tooling.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrOutsideRoot     = errors.New("path is outside the media root")
	ErrInvalidFilename = errors.New("invalid filename")
)

// maxNameAttempts bounds the -N suffix search in CreateUnique.
const maxNameAttempts = 10000

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".m4v":  {},
	".webm": {},
	".ogv":  {},
	".ogg":  {},
	".mov":  {},
	".avi":  {},
	".mkv":  {},
}

// IsVideoExtension reports whether name ends in an allow-listed video extension.
func IsVideoExtension(name string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// SanitizeFilename reduces an untrusted name to a safe base name: no directories,
// only letters, digits, dot, dash and underscore, with runs of other characters
// collapsed to a single dash.
func SanitizeFilename(name string) (string, error) {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	dash := false
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '.', r == '_', r == '-':
			b.WriteRune(r)
			dash = false
		default:
			if !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	clean := strings.Trim(b.String(), ".-")
	ext := filepath.Ext(clean)
	if clean == "" || strings.TrimSuffix(clean, ext) == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return clean, nil
}

// CreateUnique creates filename inside dir without ever replacing an existing file.
// On collision it tries "name-1.ext", "name-2.ext", ... in order, so the chosen name
// is deterministic for a given directory state. O_EXCL makes concurrent callers safe.
func CreateUnique(dir, filename string) (*os.File, string, error) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	candidate := filename
	for i := 1; i <= maxNameAttempts; i++ {
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", err
		}
		candidate = stem + "-" + strconv.Itoa(i) + ext
	}
	return nil, "", fmt.Errorf("no free filename for %q after %d attempts", filename, maxNameAttempts)
}

// WithinRoot resolves path and checks that it lies inside root, both as written
// and after following symlinks. path must exist.
func WithinRoot(root, path string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if !insideDir(absRoot, absPath) {
		return "", ErrOutsideRoot
	}

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", err
	}
	if !insideDir(realRoot, realPath) {
		return "", ErrOutsideRoot
	}
	return absPath, nil
}

func insideDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// TitleFromFilename turns "my_trip-2019.mp4" into "My Trip 2019".
func TitleFromFilename(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	words := strings.FieldsFunc(stem, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
