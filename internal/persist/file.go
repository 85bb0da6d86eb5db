// Package persist saves and loads feedboard state as a JSON file.
//
// Files carry a schema version. Documents without one are treated as the
// layout written by earlier readers (bookmarked feed URLs, categories with
// URL membership, and read item ids) and are migrated on load.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/google/uuid"

	"github.com/jpalmerr/feedboard/internal/store"
)

// ErrPersistence wraps every load and save failure.
var ErrPersistence = errors.New("persistence error")

// File is a JSON state file on disk.
type File struct {
	// Path is the state file.
	Path string

	// LegacyPath, if set, is read when Path does not exist yet.
	LegacyPath string
}

// Load reads the state file. A missing file yields an empty state and no
// error.
func (f File) Load() (store.StoredState, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) && f.LegacyPath != "" {
		data, err = os.ReadFile(f.LegacyPath)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return store.StoredState{Version: store.SchemaVersion}, nil
	}
	if err != nil {
		return store.StoredState{}, fmt.Errorf("%w: reading state: %v", ErrPersistence, err)
	}

	st, err := Decode(data)
	if err != nil {
		return store.StoredState{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return st, nil
}

// Save writes st to the state file, creating parent directories. The file is
// replaced atomically so a crash never leaves a truncated document behind.
func (f File) Save(st store.StoredState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding state: %v", ErrPersistence, err)
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".feedboard-*.json")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing state: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: writing state: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", ErrPersistence, f.Path, err)
	}
	return nil
}

// header is decoded first to pick a schema.
type header struct {
	Version *int `json:"version"`
}

// legacyState is the version-less layout.
type legacyState struct {
	Bookmarks  []string         `json:"bookmarks"`
	Categories []legacyCategory `json:"categories"`
	ReadItems  []string         `json:"read_items"`
}

type legacyCategory struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Feeds    []string `json:"feeds"`
	Expanded bool     `json:"expanded"`
}

// Decode parses a state document of any known schema.
func Decode(data []byte) (store.StoredState, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return store.StoredState{}, fmt.Errorf("decoding state: %w", err)
	}

	if h.Version == nil {
		var legacy legacyState
		if err := json.Unmarshal(data, &legacy); err != nil {
			return store.StoredState{}, fmt.Errorf("decoding legacy state: %w", err)
		}
		return migrateLegacy(legacy), nil
	}

	if *h.Version > store.SchemaVersion {
		return store.StoredState{}, fmt.Errorf("state version %d is newer than supported version %d", *h.Version, store.SchemaVersion)
	}

	var st store.StoredState
	if err := json.Unmarshal(data, &st); err != nil {
		return store.StoredState{}, fmt.Errorf("decoding state: %w", err)
	}
	st.Version = store.SchemaVersion
	return st, nil
}

// migrateLegacy converts the version-less layout. Bookmarked URLs become
// feeds, category membership becomes each feed's category, and read ids
// become pending read keys.
func migrateLegacy(legacy legacyState) store.StoredState {
	st := store.StoredState{Version: store.SchemaVersion}

	index := make(map[string]int)
	addFeed := func(url string) int {
		if i, ok := index[url]; ok {
			return i
		}
		st.Feeds = append(st.Feeds, store.StoredFeed{ID: uuid.NewString(), URL: url})
		index[url] = len(st.Feeds) - 1
		return index[url]
	}

	for _, url := range legacy.Bookmarks {
		if url != "" {
			addFeed(url)
		}
	}

	for _, c := range legacy.Categories {
		if c.Name == "" {
			continue
		}
		st.Categories = append(st.Categories, store.StoredCategory{ID: c.ID, Name: c.Name})

		// membership was an unordered set; sort for a deterministic result
		urls := append([]string(nil), c.Feeds...)
		sort.Strings(urls)
		for _, url := range urls {
			if url == "" {
				continue
			}
			i := addFeed(url)
			if st.Feeds[i].Category == "" {
				st.Feeds[i].Category = c.Name
			}
		}
	}

	for _, id := range legacy.ReadItems {
		if id != "" {
			st.ReadKeys = append(st.ReadKeys, id)
		}
	}
	return st
}

// DataDir returns the per-user data directory for an application:
// $XDG_DATA_HOME/<app> (or ~/.local/share/<app>) on Unix,
// ~/Library/Application Support/<app> on macOS and %APPDATA%\<app> on Windows.
func DataDir(app string) (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("APPDATA"); dir != "" {
			return filepath.Join(dir, app), nil
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", app), nil
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return filepath.Join(dir, app), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", app), nil
}

// LegacyPath returns where earlier readers kept their data file, or "" if
// it cannot be determined.
func LegacyPath() string {
	dir, err := DataDir("feedr")
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "feedr_data.json")
}
