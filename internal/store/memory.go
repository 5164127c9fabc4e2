package store

import (
	"context"
	"sync"
	"time"

	"github.com/ppiankov/slopwatch/internal/model"
)

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	claims   map[string]model.Claim
	verdicts map[string]model.Verdict // by claim ID
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims:   make(map[string]model.Claim),
		verdicts: make(map[string]model.Verdict),
	}
}

func (s *MemoryStore) SaveClaim(_ context.Context, claim model.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[claim.ID] = claim
	return nil
}

func (s *MemoryStore) SaveVerdict(_ context.Context, verdict model.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.verdicts[verdict.ClaimID]; ok {
		return ErrDuplicateVerdict
	}
	verdict.Evidence = append([]string(nil), verdict.Evidence...)
	s.verdicts[verdict.ClaimID] = verdict
	return nil
}

func (s *MemoryStore) Verdicts(_ context.Context, filter Filter) ([]model.Verdict, error) {
	s.mu.RLock()
	out := make([]model.Verdict, 0, len(s.verdicts))
	for _, v := range s.verdicts {
		if filter.match(v) {
			out = append(out, v)
		}
	}
	s.mu.RUnlock()

	newestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Verdict(_ context.Context, claimID string) (model.Verdict, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.verdicts[claimID]
	return v, ok, nil
}

func (s *MemoryStore) CountClaims(_ context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.claims {
		if !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Prune(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, v := range s.verdicts {
		if v.ResolvedAt.Before(before) {
			delete(s.verdicts, id)
			removed++
		}
	}
	for id, c := range s.claims {
		if c.CreatedAt.Before(before) {
			delete(s.claims, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
