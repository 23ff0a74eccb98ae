package ch

import (
	"fmt"
	"time"

	"github.com/dailyyoga/cachekit/cache"
	"github.com/shopspring/decimal"
)

// hitRateScale matches the Decimal(9, 6) hit_rate column
const hitRateScale = 6

// Snapshot is one cache's counters at one report time
type Snapshot struct {
	At        time.Time
	Host      string
	Cache     string
	Entries   uint64
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   decimal.Decimal
	Bytes     int64
}

// NewSnapshot converts cache stats into a row for host taken at at
func NewSnapshot(host string, at time.Time, s cache.Stats) Snapshot {
	return Snapshot{
		At:        at.UTC(),
		Host:      host,
		Cache:     s.Name,
		Entries:   uint64(s.Entries),
		Hits:      s.Hits,
		Misses:    s.Misses,
		Evictions: s.Evictions,
		HitRate:   decimal.NewFromFloat(s.HitRate).Round(hitRateScale),
		Bytes:     s.Bytes,
	}
}

// values returns the row in column order
func (s Snapshot) values() []any {
	return []any{s.At, s.Host, s.Cache, s.Entries, s.Hits, s.Misses, s.Evictions, s.HitRate, s.Bytes}
}

const columns = "at, host, cache, entries, hits, misses, evictions, hit_rate, bytes"

func insertQuery(table string) string {
	return fmt.Sprintf("INSERT INTO `%s` (%s)", table, columns)
}

func createTableQuery(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+
		"at DateTime64(3, 'UTC'), "+
		"host LowCardinality(String), "+
		"cache LowCardinality(String), "+
		"entries UInt64, "+
		"hits UInt64, "+
		"misses UInt64, "+
		"evictions UInt64, "+
		"hit_rate Decimal(9, 6), "+
		"bytes Int64"+
		") ENGINE = MergeTree ORDER BY (cache, host, at)", table)
}
