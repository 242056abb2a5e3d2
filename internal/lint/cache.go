package lint

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/arealint/internal/model"
)

// Entry is one cached lint result. It is valid for reads only while its
// fingerprint matches the current record's fingerprint.
type Entry struct {
	AreaID      string            `json:"area_id"`
	Fingerprint string            `json:"fingerprint"`
	Issues      []model.LintIssue `json:"issues"`
	ComputedAt  time.Time         `json:"computed_at"`
}

// Stats are running cache counters
type Stats struct {
	Hits        int64
	Misses      int64
	Evaluations int64
	Entries     int
}

// Cache memoizes lint results per area, keyed by record fingerprint.
//
// Concurrent callers for the same stale or missing key converge on a single
// rule evaluation; lookups for different keys never block each other.
// Faulted evaluations are returned to every waiting caller and are never
// stored. Entries expire on a TTL; expiry is a memory bound only, never a
// correctness dependency.
type Cache struct {
	rules   *RuleSet
	entries *gocache.Cache
	flight  singleflight.Group

	hits        int64
	misses      int64
	evaluations int64
}

// NewCache creates a lint cache over the given rule set
func NewCache(rules *RuleSet, ttl, cleanupInterval time.Duration) *Cache {
	return &Cache{
		rules:   rules,
		entries: gocache.New(ttl, cleanupInterval),
	}
}

// GetOrCompute returns the lint issues for a record, evaluating the rule
// set only when no entry with a matching fingerprint exists. The returned
// error is non-nil only for rule faults, which are fatal to the request and
// never cached.
func (c *Cache) GetOrCompute(areaID string, rec *model.NormalizedRecord) ([]model.LintIssue, error) {
	fp := Fingerprint(rec)

	if entry, ok := c.lookup(areaID, fp); ok {
		atomic.AddInt64(&c.hits, 1)
		return entry.Issues, nil
	}
	atomic.AddInt64(&c.misses, 1)

	// The flight key includes the fingerprint so callers holding the same
	// stale record share one evaluation, while a caller that already has
	// newer content for the area is not handed a result computed from
	// content it never saw.
	v, err, _ := c.flight.Do(areaID+":"+fp, func() (any, error) {
		if entry, ok := c.lookup(areaID, fp); ok {
			return entry, nil
		}
		issues, err := c.rules.Evaluate(rec)
		if err != nil {
			return nil, err
		}
		atomic.AddInt64(&c.evaluations, 1)
		entry := &Entry{
			AreaID:      areaID,
			Fingerprint: fp,
			Issues:      issues,
			ComputedAt:  time.Now(),
		}
		c.entries.Set(areaID, entry, gocache.DefaultExpiration)
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry).Issues, nil
}

// Invalidate drops the cached entry for an area unconditionally, forcing
// recomputation on the next access regardless of fingerprint. Escape hatch
// for external mutations the fingerprint cannot see.
func (c *Cache) Invalidate(areaID string) {
	c.entries.Delete(areaID)
}

// Clear drops every cached entry
func (c *Cache) Clear() {
	c.entries.Flush()
}

// Stats returns current cache counters
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:        atomic.LoadInt64(&c.hits),
		Misses:      atomic.LoadInt64(&c.misses),
		Evaluations: atomic.LoadInt64(&c.evaluations),
		Entries:     c.entries.ItemCount(),
	}
}

// lookup returns the entry for areaID if its fingerprint is current
func (c *Cache) lookup(areaID, fp string) (*Entry, bool) {
	v, ok := c.entries.Get(areaID)
	if !ok {
		return nil, false
	}
	entry := v.(*Entry)
	if entry.Fingerprint != fp {
		return nil, false
	}
	return entry, true
}
