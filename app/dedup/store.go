// Package dedup remembers which items were already delivered so that nothing
// is sent twice, even across restarts.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Store is the at-most-once delivery ledger.
type Store interface {
	// IsNew reports whether id was neither delivered nor already reserved in
	// this process, and reserves it when it returns true.
	IsNew(id string) bool
	// IsNewItem is IsNew for an item. It also treats the item as delivered
	// when its title-only ID is in the set, which covers imported title ledgers.
	IsNewItem(title, link string) (string, bool)
	// MarkDelivered moves id into the delivered set; it is persisted on Commit.
	MarkDelivered(id string)
	// Release drops a reservation so the item is retried next cycle.
	Release(id string)
	Commit() error
	Reset() error
	Len() int
	Contains(id string) bool
}

// Backend persists the delivered set.
type Backend interface {
	Name() string
	Load() ([]string, error)
	Add(ids []string) error
	Clear() error
	Close() error
}

// ItemID derives the stable identifier of an item from its title and link.
func ItemID(title, link string) string {
	key := strings.ToLower(strings.TrimSpace(title))
	if link = strings.TrimSpace(link); link != "" {
		key += "|" + link
	}

	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

var _ Store = (*SentSet)(nil)

type SentSet struct {
	mu       sync.Mutex
	backend  Backend
	sent     map[string]struct{}
	reserved map[string]struct{}
	pending  []string
}

// New loads the delivered set from backend. Unreadable state starts empty.
func New(backend Backend) *SentSet {
	s := &SentSet{
		backend:  backend,
		sent:     make(map[string]struct{}),
		reserved: make(map[string]struct{}),
	}

	ids, err := backend.Load()
	if err != nil {
		slog.Warn("Sent items unreadable, starting with empty set", "backend", backend.Name(), "error", err)
		return s
	}

	for _, id := range ids {
		s.sent[id] = struct{}{}
	}

	slog.Info("Sent items loaded", "backend", backend.Name(), "count", len(s.sent))
	return s
}

func (s *SentSet) IsNew(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sent[id]; ok {
		return false
	}
	if _, ok := s.reserved[id]; ok {
		return false
	}

	s.reserved[id] = struct{}{}
	return true
}

func (s *SentSet) IsNewItem(title, link string) (string, bool) {
	id := ItemID(title, link)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sent[ItemID(title, "")]; ok {
		return id, false
	}
	if _, ok := s.sent[id]; ok {
		return id, false
	}
	if _, ok := s.reserved[id]; ok {
		return id, false
	}

	s.reserved[id] = struct{}{}
	return id, true
}

func (s *SentSet) MarkDelivered(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.reserved, id)
	if _, ok := s.sent[id]; ok {
		return
	}
	s.sent[id] = struct{}{}
	s.pending = append(s.pending, id)
}

func (s *SentSet) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.reserved, id)
}

func (s *SentSet) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	if err := s.backend.Add(s.pending); err != nil {
		return fmt.Errorf("failed to persist sent items: %w", err)
	}
	s.pending = nil

	return nil
}

// Reset forgets every delivered and reserved item. Operator action only.
func (s *SentSet) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Clear(); err != nil {
		return fmt.Errorf("failed to clear sent items: %w", err)
	}

	count := len(s.sent)
	s.sent = make(map[string]struct{})
	s.reserved = make(map[string]struct{})
	s.pending = nil

	slog.Warn("Sent items reset", "backend", s.backend.Name(), "cleared", count)
	return nil
}

func (s *SentSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// Contains reports whether id was delivered, without reserving it.
func (s *SentSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[id]
	return ok
}

func (s *SentSet) Close() error {
	if err := s.Commit(); err != nil {
		return err
	}
	return s.backend.Close()
}
