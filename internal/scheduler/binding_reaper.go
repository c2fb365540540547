package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/notionbot/internal/logger"
)

const (
	// DefaultReapInterval is how often abandoned choosers are swept
	DefaultReapInterval = time.Minute
	// DefaultMaxAge matches the correlator's default binding TTL
	DefaultMaxAge = 15 * time.Minute
)

// Reaper removes bindings older than maxAge. *correlator.Correlator satisfies it.
type Reaper interface {
	Reap(now time.Time, maxAge time.Duration) int
}

// BindingReaper periodically drops chooser bindings nobody answered
type BindingReaper struct {
	bindings      Reaper
	logger        logger.Logger
	interval      time.Duration
	maxAge        time.Duration
	now           func() time.Time
	stopCh        chan struct{}
	done          chan struct{}
	manualTrigger <-chan struct{}
}

// NewBindingReaper creates a new binding reaper. manualTrigger may be nil.
func NewBindingReaper(
	bindings Reaper,
	log logger.Logger,
	interval time.Duration,
	maxAge time.Duration,
	manualTrigger <-chan struct{},
) *BindingReaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	return &BindingReaper{
		bindings:      bindings,
		logger:        log,
		interval:      interval,
		maxAge:        maxAge,
		now:           time.Now,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic sweep
func (r *BindingReaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	go func() {
		defer close(r.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Collect()
			case <-r.manualTrigger:
				r.logger.Info("manual reap triggered")
				r.Collect()
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the reaper and waits for its loop to exit
func (r *BindingReaper) Stop() {
	close(r.stopCh)
	<-r.done
}

// Collect removes expired bindings and returns how many went away
func (r *BindingReaper) Collect() int {
	removed := r.bindings.Reap(r.now(), r.maxAge)

	if removed > 0 {
		r.logger.Info("reaped abandoned choosers",
			logger.Int("removed", removed),
			logger.String("max_age", r.maxAge.String()))
	} else {
		r.logger.Debug("no bindings to reap")
	}

	return removed
}
