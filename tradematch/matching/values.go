package matching

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const valueCacheSize = 10000 // Limit cache size

// CardValueReader is the narrow read surface of the price collaborator's
// store: (0, false, nil) means the card is simply unpriced.
type CardValueReader interface {
	GetValue(ctx context.Context, cardID int64) (int64, bool, error)
}

type cachedValue struct {
	value     int64
	known     bool
	fetchedAt time.Time
}

// CardValues is the engine's ValueSource: an LRU with per-entry expiry in
// front of the card value table, so scanning hundreds of candidates does not
// hammer the price store for the same handful of cards.
type CardValues struct {
	source CardValueReader
	cache  *lru.Cache
	expiry time.Duration
}

func NewCardValues(source CardValueReader, expiry time.Duration) *CardValues {
	cache, _ := lru.New(valueCacheSize)
	return &CardValues{
		source: source,
		cache:  cache,
		expiry: expiry,
	}
}

// GetValue returns the current value for a card, serving from cache while the
// entry is younger than the configured expiry. Unpriced cards are cached too;
// they resolve to (0, false, nil) and never fail the caller.
func (cv *CardValues) GetValue(ctx context.Context, cardID int64) (int64, bool, error) {
	cacheKey := fmt.Sprintf("value:%d", cardID)
	if cached, ok := cv.cache.Get(cacheKey); ok {
		if c, ok := cached.(cachedValue); ok {
			if time.Since(c.fetchedAt) < cv.expiry {
				return c.value, c.known, nil
			}
		}
	}

	value, known, err := cv.source.GetValue(ctx, cardID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up card value: %w", err)
	}

	cv.cache.Add(cacheKey, cachedValue{
		value:     value,
		known:     known,
		fetchedAt: time.Now(),
	})
	return value, known, nil
}
