package library

import (
	"errors"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func loadCache(path string) (map[string]*Entry, error) {
	cached := make(map[string]*Entry)
	if len(path) == 0 {
		return cached, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cached, nil
	} else if err != nil {
		return nil, err
	}

	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry != nil && len(entry.Path) > 0 {
			cached[entry.Path] = entry
		}
	}
	return cached, nil
}

func storeCache(path string, entries []*Entry) error {
	if len(path) == 0 {
		return nil
	}
	if entries == nil {
		entries = []*Entry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
