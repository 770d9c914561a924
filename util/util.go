package util

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
)

const appName = "spotiseek"

var illegalFilenamePattern = regexp.MustCompile(`([<>:"/\\|?*#\x00-\x1f]*\.+$)|([<>:"/\\|?*#\x00-\x1f]+)`)

// ErrWrap returns a function that discards the error
// and falls back to def whenever it is set.
func ErrWrap[T any](def T) func(T, error) T {
	return func(value T, err error) T {
		if err != nil {
			return def
		}
		return value
	}
}

// ErrSuppress explicitly ignores an error.
func ErrSuppress(_ error) {}

// LegalizeFilename replaces every run of characters that
// cannot be part of a file name with an underscore.
func LegalizeFilename(name string) string {
	return illegalFilenamePattern.ReplaceAllString(name, "_")
}

// CacheFile returns the path of a file inside the application
// cache directory, creating its parent directories.
func CacheFile(name string) (string, error) {
	return xdg.CacheFile(filepath.Join(appName, name))
}

// ConfigDir returns the application configuration directory.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// HumanizeBytes formats a size the way peers advertise it.
func HumanizeBytes(size int64) string {
	if size < 0 {
		size = 0
	}
	return humanize.Bytes(uint64(size))
}

// FileMoveOrCopy moves src to dst, falling back to
// a copy followed by a removal across filesystems.
func FileMoveOrCopy(src, dst string, overwrite bool) error {
	if _, err := os.Stat(dst); err == nil && !overwrite {
		return os.ErrExist
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := fileCopy(src, dst); err != nil {
		ErrSuppress(os.Remove(dst))
		return err
	}
	return os.Remove(src)
}

func fileCopy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Excerpt shortens s to at most length runes, marking the cut with an ellipsis.
func Excerpt(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	if length <= 3 {
		return string(runes[:length])
	}
	return string(runes[:length-3]) + "..."
}
