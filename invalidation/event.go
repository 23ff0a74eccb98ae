// Package invalidation keeps the caches of several processes coherent.
//
// Writers call the Invalidator, which applies the invalidation to the local cache and then
// broadcasts it as an Event over kafka. Every process runs a Listener that applies the events
// published by the others.
package invalidation

import (
	"encoding/json"
	"time"

	"github.com/dailyyoga/cachekit/cache"
)

// Kind names the cache operation an Event replays
type Kind string

const (
	KindKey     Kind = "key"
	KindPattern Kind = "pattern"
	KindTags    Kind = "tags"
	KindClear   Kind = "clear"
)

// Event is one invalidation as sent on the wire
type Event struct {
	Kind    Kind      `json:"kind"`
	Key     string    `json:"key,omitempty"`
	Pattern string    `json:"pattern,omitempty"`
	Tags    []string  `json:"tags,omitempty"`
	Origin  string    `json:"origin"`
	At      time.Time `json:"at"`
}

// Validate reports whether the event has a known kind.
// Any key or pattern is legal, the empty string included; an empty tag list is a no-op.
func (e *Event) Validate() error {
	switch e.Kind {
	case KindKey, KindPattern, KindTags, KindClear:
	default:
		return ErrInvalidEvent("unknown kind " + string(e.Kind))
	}
	return nil
}

// Apply performs the event against c and returns the number of removed entries.
// Key events report 1 whether or not the key was present; Clear reports the size before clearing.
func (e *Event) Apply(c cache.Cache) int {
	switch e.Kind {
	case KindKey:
		c.Invalidate(e.Key)
		return 1
	case KindPattern:
		return c.InvalidatePattern(e.Pattern)
	case KindTags:
		return c.InvalidateByTags(e.Tags...)
	case KindClear:
		n := c.Stats().Size
		c.Clear()
		return n
	}
	return 0
}

// Encode serializes the event
func (e *Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, ErrEncode(err)
	}
	return b, nil
}

// Decode parses and validates a serialized event
func Decode(b []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, ErrDecode(err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
