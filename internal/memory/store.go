// Package memory is a small lexical recall store. Entries are grouped by
// namespace and ranked by token overlap with the query; good enough to pull
// short remembered facts back into context without an embedding model.
package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

type Store struct {
	mu      sync.RWMutex
	entries map[string][]string
	path    string // "" disables persistence
}

func NewStore() *Store {
	return &Store{entries: make(map[string][]string)}
}

// NewPersistentStore loads entries from path (if it exists) and saves after
// every Add.
func NewPersistentStore(path string) (*Store, error) {
	s := &Store{entries: make(map[string][]string), path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.entries); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Add(namespace, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[namespace] = append(s.entries[namespace], text)
	return s.saveLocked()
}

// Search returns up to k entries from the namespace ranked by word overlap
// with the query. Ties prefer shorter entries.
func (s *Store) Search(namespace, query string, k int) []string {
	s.mu.RLock()
	entries := s.entries[namespace]
	s.mu.RUnlock()
	if len(entries) == 0 || strings.TrimSpace(query) == "" || k <= 0 {
		return nil
	}

	qwords := wordSet(query)
	type hit struct {
		text  string
		score int
	}
	var hits []hit
	for _, e := range entries {
		if score := overlap(qwords, wordSet(e)); score > 0 {
			hits = append(hits, hit{text: e, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score == hits[j].score {
			return len(hits[i].text) < len(hits[j].text)
		}
		return hits[i].score > hits[j].score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.text)
	}
	return out
}

// Count reports the number of entries in a namespace.
func (s *Store) Count(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries[namespace])
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()[]{}\"'")
		if len(f) < 2 {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
