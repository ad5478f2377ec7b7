package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gohye/tradematch/tradematch/database/models"
)

const (
	redisRecordPrefix = "tradematch:rec:"
	redisUserPrefix   = "tradematch:user:"
)

// RedisStore is a MatchStore backed by redis, for deployments where several
// processes share one match cache. Records are JSON values with a TTL
// covering expiry plus retention; a set per participant indexes the keys
// involving them. Redis handles the retention purge itself through key TTLs,
// so SweepExpired only has to trim dangling index entries.
type RedisStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

func NewRedisStore(client redis.UniversalClient, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func (s *RedisStore) upsert(ctx context.Context, key string, participants []string, record any, expiresAt time.Time) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode match record: %w", err)
	}

	ttl := time.Until(expiresAt) + s.retention
	if ttl <= 0 {
		ttl = s.retention
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisRecordPrefix+key, payload, ttl)
	for _, p := range participants {
		pipe.SAdd(ctx, redisUserPrefix+p, key)
		pipe.Expire(ctx, redisUserPrefix+p, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store match record: %w", err)
	}
	return nil
}

func (s *RedisStore) UpsertDirect(ctx context.Context, match *models.MatchCandidate) error {
	return s.upsert(ctx, match.MatchKey, match.Participants(), match, match.ExpiresAt)
}

func (s *RedisStore) UpsertTriangular(ctx context.Context, match *models.TriangularMatch) error {
	return s.upsert(ctx, match.MatchKey, match.Participants, match, match.ExpiresAt)
}

// fetch loads and decodes one record. A payload that no longer decodes is
// treated as stale and dropped on the spot.
func (s *RedisStore) fetch(ctx context.Context, key string, out any) error {
	payload, err := s.client.Get(ctx, redisRecordPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMatchNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read match record: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		slog.Warn("Dropping undecodable match record", slog.String("key", key))
		s.client.Del(ctx, redisRecordPrefix+key)
		return ErrMatchNotFound
	}
	return nil
}

func (s *RedisStore) GetDirect(ctx context.Context, key string) (*models.MatchCandidate, error) {
	var match models.MatchCandidate
	if err := s.fetch(ctx, key, &match); err != nil {
		return nil, err
	}
	if !match.Fresh(time.Now()) {
		return nil, ErrMatchNotFound
	}
	return &match, nil
}

func (s *RedisStore) GetTriangular(ctx context.Context, key string) (*models.TriangularMatch, error) {
	var match models.TriangularMatch
	if err := s.fetch(ctx, key, &match); err != nil {
		return nil, err
	}
	if !match.Fresh(time.Now()) {
		return nil, ErrMatchNotFound
	}
	return &match, nil
}

func (s *RedisStore) userKeys(ctx context.Context, userID string) ([]string, error) {
	keys, err := s.client.SMembers(ctx, redisUserPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read user match index: %w", err)
	}
	return keys, nil
}

func (s *RedisStore) ListDirectByUser(ctx context.Context, userID string) ([]*models.MatchCandidate, error) {
	keys, err := s.userKeys(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var out []*models.MatchCandidate
	for _, key := range keys {
		var match models.MatchCandidate
		if err := s.fetch(ctx, key, &match); err != nil {
			if errors.Is(err, ErrMatchNotFound) {
				continue
			}
			return nil, err
		}
		if match.MatchKey != key || !match.Fresh(now) {
			continue
		}
		m := match
		out = append(out, &m)
	}
	SortDirectMatches(userID, out)
	return out, nil
}

func (s *RedisStore) ListTriangularByUser(ctx context.Context, userID string) ([]*models.TriangularMatch, error) {
	keys, err := s.userKeys(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var out []*models.TriangularMatch
	for _, key := range keys {
		var match models.TriangularMatch
		if err := s.fetch(ctx, key, &match); err != nil {
			if errors.Is(err, ErrMatchNotFound) {
				continue
			}
			return nil, err
		}
		if match.MatchKey != key || !match.Fresh(now) {
			continue
		}
		m := match
		out = append(out, &m)
	}
	SortTriangularMatches(out)
	return out, nil
}

func (s *RedisStore) InvalidateUser(ctx context.Context, userID string) (int, error) {
	keys, err := s.userKeys(ctx, userID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, key := range keys {
		payload, err := s.client.Get(ctx, redisRecordPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return count, fmt.Errorf("failed to read match record: %w", err)
		}

		var probe struct {
			Stale bool `json:"Stale"`
		}
		if err := json.Unmarshal(payload, &probe); err != nil {
			s.client.Del(ctx, redisRecordPrefix+key)
			continue
		}
		if probe.Stale {
			continue
		}

		stale, err := markStale(payload)
		if err != nil {
			s.client.Del(ctx, redisRecordPrefix+key)
			continue
		}
		// KEEPTTL preserves the retention countdown already on the key.
		if err := s.client.Set(ctx, redisRecordPrefix+key, stale, redis.KeepTTL).Err(); err != nil {
			return count, fmt.Errorf("failed to mark match stale: %w", err)
		}
		count++
	}
	return count, nil
}

func markStale(payload []byte) ([]byte, error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, err
	}
	record["Stale"] = json.RawMessage("true")
	return json.Marshal(record)
}

// SweepExpired removes index entries whose record key has already expired.
// The record values themselves age out via redis TTLs.
func (s *RedisStore) SweepExpired(ctx context.Context, _ time.Time) (int, error) {
	var cursor uint64
	removed := 0
	for {
		userSets, next, err := s.client.Scan(ctx, cursor, redisUserPrefix+"*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan user match indexes: %w", err)
		}
		for _, setKey := range userSets {
			members, err := s.client.SMembers(ctx, setKey).Result()
			if err != nil {
				return removed, fmt.Errorf("failed to read user match index: %w", err)
			}
			for _, key := range members {
				exists, err := s.client.Exists(ctx, redisRecordPrefix+key).Result()
				if err != nil {
					return removed, fmt.Errorf("failed to probe match record: %w", err)
				}
				if exists == 0 {
					if err := s.client.SRem(ctx, setKey, key).Err(); err != nil {
						return removed, fmt.Errorf("failed to trim user match index: %w", err)
					}
					removed++
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}
