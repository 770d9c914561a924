// Package library indexes the audio files already available on disk and
// matches playlist tracks against them.
package library

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/streambinder/spotiseek/entity"
	"go.uber.org/zap"
)

var extensions = map[string]struct{}{
	".mp3": {}, ".ogg": {}, ".flac": {}, ".wav": {}, ".wma": {}, ".m4a": {},
	".mp4": {}, ".aac": {}, ".aiff": {}, ".3gp": {}, ".oga": {},
}

// Entry is a single indexed local file
type Entry struct {
	Path           string   `json:"path"`
	Artists        []string `json:"artists"`
	Album          string   `json:"album"`
	Title          string   `json:"title"`
	SanitizedTitle string   `json:"sanitized_title"`
	Duration       int      `json:"duration"` // in seconds
}

// Thresholds applied by the fuzzy stage of Find
type Thresholds struct {
	Full    int
	Partial int
}

// Reader extracts an entry out of the file at path.
// A failing read makes the file invisible to the library.
type Reader func(path string) (*Entry, error)

type Library struct {
	thresholds Thresholds
	cache      string
	read       Reader
	logger     *zap.Logger
	entries    []*Entry
}

type Option func(*Library)

func WithThresholds(thresholds Thresholds) Option {
	return func(library *Library) {
		library.thresholds = thresholds
	}
}

// WithCache makes Build reuse and rewrite the cache file at path
func WithCache(path string) Option {
	return func(library *Library) {
		library.cache = path
	}
}

func WithReader(read Reader) Option {
	return func(library *Library) {
		library.read = read
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(library *Library) {
		library.logger = logger
	}
}

func New(options ...Option) *Library {
	library := &Library{
		thresholds: Thresholds{Full: 85, Partial: 95},
		read:       ReadEntry,
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		option(library)
	}
	return library
}

// Build indexes every recognized audio file under roots. Entries already in
// the cache are trusted as long as their path still exists; the cache is then
// rewritten with exactly the entries seen by this pass.
// Build must complete before the library is shared.
func (library *Library) Build(roots ...string) error {
	cached, err := loadCache(library.cache)
	if err != nil {
		library.logger.Warn("discarding unreadable library cache",
			zap.String("path", library.cache), zap.Error(err))
		cached = make(map[string]*Entry)
	}

	var (
		entries []*Entry
		seen    = make(map[string]struct{})
	)
	for _, root := range roots {
		if len(root) == 0 {
			continue
		}
		if err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
					library.logger.Debug("skipping", zap.String("path", path), zap.Error(err))
					if d != nil && d.IsDir() {
						return fs.SkipDir
					}
					return nil
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ok := extensions[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}

			absolute, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			if _, ok := seen[absolute]; ok {
				return nil
			}
			seen[absolute] = struct{}{}

			if entry, ok := cached[absolute]; ok {
				entries = append(entries, entry)
				return nil
			}
			entry, err := library.read(absolute)
			if err != nil {
				library.logger.Debug("skipping unreadable file", zap.String("path", absolute), zap.Error(err))
				return nil
			}
			entry.Path = absolute
			entry.SanitizedTitle = entity.SanitizeTitle(entry.Title)
			entries = append(entries, entry)
			return nil
		}); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	library.entries = entries
	library.logger.Debug("library indexed",
		zap.Int("entries", len(entries)), zap.Int("cached", len(cached)))
	return storeCache(library.cache, entries)
}

// Size returns the number of indexed entries
func (library *Library) Size() int {
	return len(library.entries)
}

// Entries returns a copy of the index
func (library *Library) Entries() []Entry {
	entries := make([]Entry, len(library.entries))
	for i, entry := range library.entries {
		entries[i] = *entry
	}
	return entries
}
