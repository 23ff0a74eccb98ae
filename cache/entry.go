package cache

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// entry is one cached computation result
// timestamp moves only when the value is recomputed, never on a hit
type entry struct {
	data        any
	timestamp   time.Time
	accessCount int
	tags        []string
	// size is the approximate weight, only computed when a byte limit is configured
	size int64
}

func newEntry(data any, now time.Time, tags []string) *entry {
	return &entry{
		data:        data,
		timestamp:   now,
		accessCount: 1,
		tags:        slices.Clone(tags),
	}
}

func (e *entry) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.timestamp) < ttl
}

func (e *entry) hasAnyTag(set map[string]struct{}) bool {
	for _, t := range e.tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

func (e *entry) info(key string, now time.Time) EntryInfo {
	return EntryInfo{
		Key:         key,
		Age:         now.Sub(e.timestamp),
		AccessCount: e.accessCount,
		Tags:        slices.Clone(e.tags),
	}
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	return set
}

// estimateSize approximates the weight of a value by its JSON encoding.
// Shared substructure is counted once per reference and values JSON cannot
// encode (channels, funcs, cycles) fall back to their fmt rendering.
func estimateSize(v any) int64 {
	b, err := json.Marshal(v)
	if err != nil {
		return int64(len(fmt.Sprintf("%v", v))) + 1
	}
	return int64(len(b)) + 1
}
