// Package file implements store.Store on two JSON documents, one per
// collection, mirroring the two independently keyed collections of the
// persisted shape. Every operation reads the whole document, mutates it in
// memory, and writes the whole document back.
package file

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shortspan/shortspan/internal/logger"
	"github.com/shortspan/shortspan/internal/model"
	"github.com/shortspan/shortspan/internal/store"
)

const (
	aliasesFile = "shortened_urls.json"
	clicksFile  = "click_data.json"
)

// Store persists both collections as JSON files under a directory. The
// mutex serializes the read-modify-write cycle of each operation; without
// it concurrent writes tear the JSON document.
type Store struct {
	mu  sync.Mutex
	dir string
	log *logger.Logger
}

// New creates the data directory if needed and returns a file store.
func New(dir string, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Store{dir: dir, log: log.Component("store")}, nil
}

func (s *Store) LoadAliases() ([]model.ShortenedURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return readDoc[model.ShortenedURL](s, aliasesFile), nil
}

func (s *Store) AppendAliases(urls []model.ShortenedURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := readDoc[model.ShortenedURL](s, aliasesFile)
	return s.write(aliasesFile, append(existing, urls...))
}

func (s *Store) UpdateAliasByCode(code string, mutate func(*model.ShortenedURL)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := readDoc[model.ShortenedURL](s, aliasesFile)

	found := false
	for i := range urls {
		if strings.EqualFold(urls[i].ShortCode, code) {
			mutate(&urls[i])
			found = true
		}
	}
	if !found {
		return store.ErrNotFound
	}
	return s.write(aliasesFile, urls)
}

func (s *Store) LoadClicks() ([]model.ClickData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return readDoc[model.ClickData](s, clicksFile), nil
}

func (s *Store) AppendClick(click model.ClickData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clicks := readDoc[model.ClickData](s, clicksFile)
	return s.write(clicksFile, append(clicks, click))
}

func (s *Store) PruneExpiredAliases(now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := readDoc[model.ShortenedURL](s, aliasesFile)

	kept := urls[:0]
	for _, u := range urls {
		if !now.After(u.ExpiryDate) {
			kept = append(kept, u)
		}
	}
	removed := len(urls) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.write(aliasesFile, kept)
}

func (s *Store) Close() error { return nil }

// readDoc unmarshals the named document. A missing file is an empty
// collection; a corrupt file is treated as empty and logged so callers stay
// usable with broken local state.
func readDoc[T any](s *Store, name string) []T {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read collection", "file", name, "error", err.Error())
		}
		return nil
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("corrupt collection, treating as empty", "file", name, "error", err.Error())
		return nil
	}
	return items
}

func (s *Store) write(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, name), data, 0o644)
}

var _ store.Store = (*Store)(nil)
