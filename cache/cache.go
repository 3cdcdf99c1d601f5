// Package cache implements a content-addressed store for completed
// translations. Each record is one JSON file under the cache root, named
// by the hash of (source text, target language, provider), so re-running
// a translation never pays for work a previous run already did.
//
// Cache I/O is strictly advisory: every read failure degrades to a miss
// and every write failure to a no-op, reported through the warning hook
// but never aborting a translation run. The store tolerates concurrent
// readers and concurrent writers on distinct keys; two workers racing on
// an identical request write identical records, so last-writer-wins is
// benign.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Request identifies one unit of translation work. Requests have no
// identity beyond their key: equal fields, equal record.
type Request struct {
	Text       string
	TargetLang string
	Provider   string
}

// Key returns the content address for the request: a sha256 over the
// NUL-separated fields. Identical inputs always map to the same key.
func (r Request) Key() string {
	h := sha256.New()
	h.Write([]byte(r.Text))
	h.Write([]byte{0})
	h.Write([]byte(r.TargetLang))
	h.Write([]byte{0})
	h.Write([]byte(r.Provider))
	return hex.EncodeToString(h.Sum(nil))
}

// record is the on-disk shape of one cache entry. The request fields are
// stored alongside the translation for auditability; only Translation is
// ever read back.
type record struct {
	Source      string    `json:"source"`
	TargetLang  string    `json:"target_lang"`
	Provider    string    `json:"provider"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is a durable key-value cache rooted at a directory.
type Store struct {
	dir string

	// OnWarn receives non-fatal cache I/O problems. Nil disables reporting.
	OnWarn func(format string, args ...any)
}

// DefaultDir returns the cache root honoring $XDG_CACHE_HOME, falling
// back to ~/.cache/potrans.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "potrans"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "potrans"), nil
}

// New opens a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Dir returns the cache root directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) warn(format string, args ...any) {
	if s.OnWarn != nil {
		s.OnWarn(format, args...)
	}
}

func (s *Store) path(r Request) string {
	return filepath.Join(s.dir, r.Key()+".json")
}

// Get looks up the translation for a request. The second return is false
// on a miss; unreadable or corrupt records count as misses.
func (s *Store) Get(r Request) (string, bool) {
	data, err := os.ReadFile(s.path(r))
	if err != nil {
		if !os.IsNotExist(err) {
			s.warn("cache read failed for %s: %v", r.Key()[:12], err)
		}
		return "", false
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.warn("cache record %s is corrupt: %v", r.Key()[:12], err)
		return "", false
	}
	return rec.Translation, true
}

// Put stores the translation for a request. Records are written whole
// via a temp file + rename so a concurrent Get never sees a torn record.
func (s *Store) Put(r Request, translation string) {
	rec := record{
		Source:      r.Text,
		TargetLang:  r.TargetLang,
		Provider:    r.Provider,
		Translation: translation,
		CreatedAt:   time.Now().UTC(),
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		s.warn("cache encode failed for %s: %v", r.Key()[:12], err)
		return
	}

	tmp, err := os.CreateTemp(s.dir, "rec-*")
	if err != nil {
		s.warn("cache write failed for %s: %v", r.Key()[:12], err)
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		s.warn("cache write failed for %s: %v", r.Key()[:12], err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		s.warn("cache write failed for %s: %v", r.Key()[:12], err)
		return
	}
	if err := os.Rename(tmpName, s.path(r)); err != nil {
		os.Remove(tmpName)
		s.warn("cache write failed for %s: %v", r.Key()[:12], err)
	}
}
