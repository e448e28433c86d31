// Package extender keeps active sessions' calendar events extended on a
// rolling horizon. Sessions have no known end while running, so the mirror
// event's end is repeatedly topped up to now+horizon until the session
// stops, at which point the tracker patches the exact end time.
package extender

import (
	"context"
	"time"

	log "github.com/worklab/sessiond/pkg/logger"
	"github.com/worklab/sessiond/pkg/schema"
	"github.com/worklab/sessiond/pkg/session"
)

// Mirror is the calendar surface the extender needs.
type Mirror interface {
	PatchEnd(ctx context.Context, eventID string, end time.Time) error
}

// Extender periodically tops up the calendar end of active sessions.
type Extender struct {
	store     session.Store
	mirror    Mirror
	interval  time.Duration
	horizon   time.Duration
	threshold time.Duration

	// now is stubbed in tests.
	now func() time.Time
}

// New builds an Extender from the configured sweep interval, rolling
// horizon, and top-up threshold.
func New(store session.Store, mirror Mirror, cfg schema.ExtenderConfig) *Extender {
	return &Extender{
		store:     store,
		mirror:    mirror,
		interval:  cfg.Interval,
		horizon:   cfg.Horizon,
		threshold: cfg.Threshold,
		now:       time.Now,
	}
}

// Run sweeps active sessions every interval until the context is cancelled.
// Individual failures are logged and skipped; the loop itself never dies.
func (e *Extender) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	log.Info("extender started", "interval", e.interval, "horizon", e.horizon, "threshold", e.threshold)
	for {
		select {
		case <-ctx.Done():
			log.Info("extender stopped")
			return
		case <-ticker.C:
			e.Sweep(ctx)
		}
	}
}

// Sweep performs one pass over the active sessions, topping up every mirror
// event whose remaining time is at or below the threshold.
func (e *Extender) Sweep(ctx context.Context) {
	active, err := e.store.Active(ctx)
	if err != nil {
		log.Error("failed to list active sessions", "error", err)
		return
	}

	now := e.now().UTC()
	for _, s := range active {
		if s.CalendarEventID == "" {
			continue // nothing to extend
		}

		currentEnd := s.CalendarEnd
		if currentEnd.IsZero() {
			currentEnd = now
		}
		if currentEnd.Sub(now) > e.threshold {
			continue
		}

		newEnd := now.Add(e.horizon)
		if err := e.mirror.PatchEnd(ctx, s.CalendarEventID, newEnd); err != nil {
			log.Error("failed to extend mirror event", "session", s.ID, "event", s.CalendarEventID, "error", err)
			continue
		}
		if err := e.store.UpdateMirror(ctx, s.ID, newEnd, now); err != nil {
			log.Error("failed to record extended mirror end", "session", s.ID, "error", err)
			continue
		}
		log.Debug("session extended", "session", s.ID, "end", newEnd)
	}
}
