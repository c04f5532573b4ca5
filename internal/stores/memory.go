package stores

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

// MemoryResetStore is the process-local reset table: a mutex-guarded map
// keyed by case-folded email. It backs tests and redis-less development.
// Expired records linger until the next Save for the same email overwrites
// them; Validate checks expiry, so lingering is harmless.
type MemoryResetStore struct {
	mu      sync.Mutex
	records map[string]resetRecord

	// Now is the clock; overridable so expiry can be simulated in tests.
	Now func() time.Time
}

func NewMemoryResetStore() *MemoryResetStore {
	return &MemoryResetStore{
		records: make(map[string]resetRecord),
		Now:     time.Now,
	}
}

func (s *MemoryResetStore) Save(_ context.Context, email string, tokenHash [32]byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[email] = resetRecord{
		TokenHash: tokenHash,
		ExpiresAt: expiresAt.Unix(),
	}
	return nil
}

func (s *MemoryResetStore) Validate(_ context.Context, email string, providedHash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[email]
	if !ok {
		return ErrResetNotFound
	}
	if s.Now().Unix() > record.ExpiresAt {
		return ErrResetNotFound
	}
	if subtle.ConstantTimeCompare(record.TokenHash[:], providedHash[:]) != 1 {
		return ErrResetMismatch
	}

	return nil
}

func (s *MemoryResetStore) Consume(_ context.Context, email string, providedHash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[email]
	if !ok {
		return nil
	}
	if subtle.ConstantTimeCompare(record.TokenHash[:], providedHash[:]) != 1 {
		return ErrResetMismatch
	}

	delete(s.records, email)
	return nil
}
