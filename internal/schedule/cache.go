package schedule

import (
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

type hoursEntry struct {
	Rules     []WeeklyTimeRule
	From      time.Time
	To        time.Time
	FetchedAt time.Time
}

// HoursCache keeps the weekly rules of recently viewed activities. It
// stores the rules as fetched, not flattened windows: validity date
// ranges make the window set range-dependent, so callers must flatten
// against their own range on every hit. An entry only answers requests
// fully inside the date range it was fetched for; navigating to a week
// outside that range is a miss and triggers a refetch.
type HoursCache struct {
	cache *lru.Cache[uuid.UUID, *hoursEntry]
	ttl   time.Duration
	mu    sync.RWMutex
}

func NewHoursCache(size int, ttl time.Duration) (*HoursCache, error) {
	cache, err := lru.New[uuid.UUID, *hoursEntry](size)
	if err != nil {
		return nil, err
	}

	return &HoursCache{cache: cache, ttl: ttl}, nil
}

func (c *HoursCache) Get(activityID uuid.UUID, from, to time.Time) ([]WeeklyTimeRule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.cache.Get(activityID)
	if !exists {
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.FetchedAt) > c.ttl {
		return nil, false
	}

	if from.Before(entry.From) || to.After(entry.To) {
		return nil, false
	}

	return entry.Rules, true
}

func (c *HoursCache) Store(activityID uuid.UUID, rules []WeeklyTimeRule, from, to time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Add(activityID, &hoursEntry{
		Rules:     rules,
		From:      from,
		To:        to,
		FetchedAt: time.Now(),
	})
}

// Invalidate drops the cached rules of one activity, e.g. after its
// rules change.
func (c *HoursCache) Invalidate(activityID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Remove(activityID)
}
