package correlator

import (
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/notionbot/internal/domain"
)

const (
	// DefaultMaxBindings caps the number of live bindings.
	DefaultMaxBindings = 1000
	// DefaultTTL is the age after which a binding is considered abandoned.
	DefaultTTL = 15 * time.Minute
)

// ErrNoCandidates is returned when a binding would have nothing to choose from.
// An empty fetch must short-circuit before a chooser is ever sent.
var ErrNoCandidates = errors.New("binding requires at least one candidate")

// SelectionBinding ties a chooser prompt to the records it offers.
type SelectionBinding struct {
	// Key identifies the outbound prompt.
	Key string

	// Candidates are in the order shown to the user; a selection is a position in it.
	Candidates []domain.DisplayRecord

	// CreatedAt is used for expiry.
	CreatedAt time.Time
}

// Options configures a Correlator. Zero values fall back to defaults.
type Options struct {
	MaxBindings int              // live-binding cap (default 1000)
	TTL         time.Duration    // lazy expiry on access (default 15m)
	Now         func() time.Time // for testing, defaults to time.Now
}

// Stats is a point-in-time view of the store, for ops reporting.
type Stats struct {
	Live     int
	Created  uint64
	Resolved uint64
	Reaped   uint64
	Evicted  uint64
}

// Correlator owns the binding store. All access goes through its methods,
// and each method is a single critical section.
type Correlator struct {
	mu          sync.Mutex
	bindings    map[string]*SelectionBinding
	maxBindings int
	ttl         time.Duration
	now         func() time.Time
	stats       Stats
}

// New creates an empty correlator.
func New(opts Options) *Correlator {
	if opts.MaxBindings <= 0 {
		opts.MaxBindings = DefaultMaxBindings
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Correlator{
		bindings:    make(map[string]*SelectionBinding, 64),
		maxBindings: opts.MaxBindings,
		ttl:         opts.TTL,
		now:         opts.Now,
	}
}

// CreateBinding registers candidates as the answer set for the prompt identified by key.
func (c *Correlator) CreateBinding(key string, candidates []domain.DisplayRecord) error {
	if len(candidates) == 0 {
		return ErrNoCandidates
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.bindings[key]; ok {
		if !c.expiredLocked(existing, now) {
			return &domain.DuplicateBindingError{Key: key}
		}
		delete(c.bindings, key)
		c.stats.Reaped++
	}

	if len(c.bindings) >= c.maxBindings {
		c.makeRoomLocked(now)
	}

	owned := make([]domain.DisplayRecord, len(candidates))
	copy(owned, candidates)

	c.bindings[key] = &SelectionBinding{
		Key:        key,
		Candidates: owned,
		CreatedAt:  now,
	}
	c.stats.Created++
	return nil
}

// ResolveSelection returns the candidate at index and consumes the binding.
// An out-of-range index leaves the binding live.
func (c *Correlator) ResolveSelection(key string, index int) (domain.DisplayRecord, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.bindings[key]
	if !ok {
		return domain.DisplayRecord{}, &domain.UnknownBindingError{Key: key}
	}
	if c.expiredLocked(b, now) {
		delete(c.bindings, key)
		c.stats.Reaped++
		return domain.DisplayRecord{}, &domain.UnknownBindingError{Key: key}
	}
	if index < 0 || index >= len(b.Candidates) {
		return domain.DisplayRecord{}, &domain.IndexOutOfRangeError{Key: key, Index: index, Len: len(b.Candidates)}
	}

	delete(c.bindings, key)
	c.stats.Resolved++
	return b.Candidates[index], nil
}

// Reap removes every binding older than maxAge relative to now and returns how many were removed.
func (c *Correlator) Reap(now time.Time, maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.reapLocked(now, maxAge)
}

// Len returns the number of live bindings.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.bindings)
}

// Stats returns counters since creation.
func (c *Correlator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Live = len(c.bindings)
	return s
}

func (c *Correlator) reapLocked(now time.Time, maxAge time.Duration) int {
	removed := 0
	for key, b := range c.bindings {
		if now.Sub(b.CreatedAt) > maxAge {
			delete(c.bindings, key)
			removed++
		}
	}
	c.stats.Reaped += uint64(removed)
	return removed
}

func (c *Correlator) expiredLocked(b *SelectionBinding, now time.Time) bool {
	return now.Sub(b.CreatedAt) > c.ttl
}

// makeRoomLocked drops expired bindings, then the oldest one if the store is still full.
func (c *Correlator) makeRoomLocked(now time.Time) {
	if c.reapLocked(now, c.ttl) > 0 && len(c.bindings) < c.maxBindings {
		return
	}

	var oldest *SelectionBinding
	for _, b := range c.bindings {
		if oldest == nil || b.CreatedAt.Before(oldest.CreatedAt) {
			oldest = b
		}
	}
	if oldest != nil {
		delete(c.bindings, oldest.Key)
		c.stats.Evicted++
	}
}
