// Package memory implements the credential store port in process memory.
package memory

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	credential string
	expiresAt  time.Time
}

// CredentialStore keeps bridge entries in a mutex-guarded map. Expired
// entries are hidden on read and removed by Sweep.
type CredentialStore struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewCredentialStore creates an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Put stores credential under id until now+ttl.
func (s *CredentialStore) Put(_ context.Context, id, credential string, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[id] = entry{credential: credential, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Get returns the credential for id unless it is absent or expired. An
// expired entry is deleted on the way out.
func (s *CredentialStore) Get(_ context.Context, id string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return "", false, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return "", false, nil
	}
	return e.credential, true, nil
}

// Delete removes id.
func (s *CredentialStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *CredentialStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops every expired entry and reports how many were removed.
func (s *CredentialStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}
