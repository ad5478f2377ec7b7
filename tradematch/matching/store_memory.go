package matching

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/gohye/tradematch/tradematch/database/models"
)

// MemoryStore is a MatchStore held entirely in process memory, for embedded
// and test setups. Records live in a go-cache with per-entry TTL covering the
// retention window; a side index maps each participant to the keys that
// involve them so InvalidateUser does not scan the whole cache.
type MemoryStore struct {
	mu        sync.Mutex
	records   *gocache.Cache
	byUser    map[string]map[string]struct{}
	retention time.Duration
}

// NewMemoryStore builds a MemoryStore. retention is how long a record is kept
// past its expiry for inspection before the sweep removes it.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		records:   gocache.New(gocache.NoExpiration, 0),
		byUser:    make(map[string]map[string]struct{}),
		retention: retention,
	}
}

func (s *MemoryStore) put(key string, participants []string, record any, expiresAt time.Time) {
	ttl := time.Until(expiresAt) + s.retention
	if ttl <= 0 {
		ttl = s.retention
	}
	s.records.Set(key, record, ttl)
	for _, p := range participants {
		if s.byUser[p] == nil {
			s.byUser[p] = make(map[string]struct{})
		}
		s.byUser[p][key] = struct{}{}
	}
}

func (s *MemoryStore) UpsertDirect(_ context.Context, match *models.MatchCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *match
	s.put(match.MatchKey, match.Participants(), &clone, match.ExpiresAt)
	return nil
}

func (s *MemoryStore) UpsertTriangular(_ context.Context, match *models.TriangularMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *match
	s.put(match.MatchKey, match.Participants, &clone, match.ExpiresAt)
	return nil
}

func (s *MemoryStore) GetDirect(_ context.Context, key string) (*models.MatchCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.records.Get(key)
	if !ok {
		return nil, ErrMatchNotFound
	}
	match, ok := raw.(*models.MatchCandidate)
	if !ok || !match.Fresh(time.Now()) {
		return nil, ErrMatchNotFound
	}
	clone := *match
	return &clone, nil
}

func (s *MemoryStore) GetTriangular(_ context.Context, key string) (*models.TriangularMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.records.Get(key)
	if !ok {
		return nil, ErrMatchNotFound
	}
	match, ok := raw.(*models.TriangularMatch)
	if !ok || !match.Fresh(time.Now()) {
		return nil, ErrMatchNotFound
	}
	clone := *match
	return &clone, nil
}

func (s *MemoryStore) ListDirectByUser(_ context.Context, userID string) ([]*models.MatchCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var out []*models.MatchCandidate
	for key := range s.byUser[userID] {
		raw, ok := s.records.Get(key)
		if !ok {
			continue
		}
		match, ok := raw.(*models.MatchCandidate)
		if !ok || !match.Fresh(now) {
			continue
		}
		clone := *match
		out = append(out, &clone)
	}
	SortDirectMatches(userID, out)
	return out, nil
}

func (s *MemoryStore) ListTriangularByUser(_ context.Context, userID string) ([]*models.TriangularMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var out []*models.TriangularMatch
	for key := range s.byUser[userID] {
		raw, ok := s.records.Get(key)
		if !ok {
			continue
		}
		match, ok := raw.(*models.TriangularMatch)
		if !ok || !match.Fresh(now) {
			continue
		}
		clone := *match
		out = append(out, &clone)
	}
	SortTriangularMatches(out)
	return out, nil
}

func (s *MemoryStore) InvalidateUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key := range s.byUser[userID] {
		raw, ok := s.records.Get(key)
		if !ok {
			continue
		}
		switch match := raw.(type) {
		case *models.MatchCandidate:
			if !match.Stale {
				match.Stale = true
				count++
			}
		case *models.TriangularMatch:
			if !match.Stale {
				match.Stale = true
				count++
			}
		}
	}
	return count, nil
}

func (s *MemoryStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-s.retention)
	var purge []string
	for key, item := range s.records.Items() {
		var expiresAt time.Time
		switch match := item.Object.(type) {
		case *models.MatchCandidate:
			expiresAt = match.ExpiresAt
		case *models.TriangularMatch:
			expiresAt = match.ExpiresAt
		default:
			continue
		}
		if !expiresAt.After(cutoff) {
			purge = append(purge, key)
		}
	}

	for _, key := range purge {
		s.records.Delete(key)
		for user, keys := range s.byUser {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.byUser, user)
			}
		}
	}
	return len(purge), nil
}
