package repo

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/odvcencio/hpn/pkg/object"
)

// MemRefStore is an in-memory RefStore for tests and embedding. The zero
// value is not usable; call NewMemRefStore.
type MemRefStore struct {
	mu     sync.Mutex
	head   Head
	hasHd  bool
	refs   map[string]object.Hash
	logs   map[string][]ReflogEntry
	now    func() time.Time
	lockMu sync.Mutex
}

// NewMemRefStore returns an empty MemRefStore with no HEAD. Only
// WithRefClock applies; the store has nothing to log.
func NewMemRefStore(opts ...RefStoreOption) *MemRefStore {
	o := newRefStoreOptions(opts)
	return &MemRefStore{
		refs: make(map[string]object.Hash),
		logs: make(map[string][]ReflogEntry),
		now:  o.now,
	}
}

func (s *MemRefStore) ReadHead() (Head, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasHd {
		return Head{}, fmt.Errorf("read HEAD: %w", object.ErrNotFound)
	}
	return s.head, nil
}

func (s *MemRefStore) resolveLocked(h Head) object.Hash {
	if h.IsDetached() {
		return h.Hash
	}
	return s.refs[h.Ref]
}

func (s *MemRefStore) WriteHead(h Head, reason string) error {
	if h.IsDetached() {
		if _, err := object.ParseHash(string(h.Hash)); err != nil {
			return fmt.Errorf("write HEAD: %w", err)
		}
	} else if err := validateRefName(h.Ref); err != nil {
		return fmt.Errorf("write HEAD: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var oldHash object.Hash
	if s.hasHd {
		oldHash = s.resolveLocked(s.head)
	}
	s.head, s.hasHd = h, true
	s.logLocked("HEAD", oldHash, s.resolveLocked(h), reason)
	return nil
}

func (s *MemRefStore) ReadRef(name string) (object.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.refs[name]
	if !ok {
		return "", fmt.Errorf("read ref %q: %w", name, object.ErrNotFound)
	}
	return h, nil
}

func (s *MemRefStore) UpdateRef(name string, h object.Hash, reason string) error {
	if err := validateRefName(name); err != nil {
		return fmt.Errorf("update ref: %w", err)
	}
	if _, err := object.ParseHash(string(h)); err != nil {
		return fmt.Errorf("update ref %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	oldHash := s.refs[name]
	s.refs[name] = h
	s.logLocked(name, oldHash, h, reason)
	if s.hasHd && s.head.Ref == name {
		s.logLocked("HEAD", oldHash, h, reason)
	}
	return nil
}

func (s *MemRefStore) DeleteRef(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[name]; !ok {
		return fmt.Errorf("delete ref %q: %w", name, object.ErrNotFound)
	}
	delete(s.refs, name)
	delete(s.logs, name)
	return nil
}

func (s *MemRefStore) ListRefs(prefix string) (map[string]object.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := "refs/"
	if p := strings.Trim(prefix, "/"); p != "" {
		want += p + "/"
	}
	out := make(map[string]object.Hash)
	for name, h := range s.refs {
		if strings.HasPrefix(name, want) {
			out[strings.TrimPrefix(name, "refs/")] = h
		}
	}
	return out, nil
}

func (s *MemRefStore) Reflog(name string) ([]ReflogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := append([]ReflogEntry(nil), s.logs[name]...)
	reverseReflog(entries)
	return entries, nil
}

func (s *MemRefStore) logLocked(ref string, oldHash, newHash object.Hash, reason string) {
	s.logs[ref] = append(s.logs[ref], ReflogEntry{
		Ref:       ref,
		OldHash:   oldHash,
		NewHash:   newHash,
		Timestamp: s.now().Unix(),
		Reason:    reason,
	})
}

// Lock blocks until the store's mutation lock is free.
func (s *MemRefStore) Lock() (Unlocker, error) {
	s.lockMu.Lock()
	return memUnlocker{mu: &s.lockMu}, nil
}

type memUnlocker struct {
	mu *sync.Mutex
}

func (u memUnlocker) Unlock() error {
	u.mu.Unlock()
	return nil
}
