package session

import (
	"context"
	"fmt"
	"time"

	errUtils "github.com/worklab/sessiond/errors"
	log "github.com/worklab/sessiond/pkg/logger"
)

// Mirror is the calendar surface the tracker needs.
type Mirror interface {
	InsertSession(ctx context.Context, summary, location string, start, end time.Time) (string, error)
	PatchEnd(ctx context.Context, eventID string, end time.Time) error
}

// User identifies the person starting or stopping a session.
type User struct {
	ID          string
	Username    string
	DisplayName string
}

// Tracker owns the start/stop lifecycle of work sessions: the double-start
// guard, the calendar mirror event, and the Firestore document.
type Tracker struct {
	store      Store
	mirror     Mirror
	calendarID string
	horizon    time.Duration

	// now is stubbed in tests.
	now func() time.Time
}

// NewTracker builds a Tracker. horizon is the initial length given to the
// mirror event; the extender keeps it topped up from there.
func NewTracker(store Store, mirror Mirror, calendarID string, horizon time.Duration) *Tracker {
	return &Tracker{
		store:      store,
		mirror:     mirror,
		calendarID: calendarID,
		horizon:    horizon,
		now:        time.Now,
	}
}

// Start begins a new session for the user at the given location. guildID is
// empty for direct messages. A user may hold at most one active session per
// guild (or overall, when guild-less).
func (t *Tracker) Start(ctx context.Context, user User, location, guildID string) (string, error) {
	existing, err := t.store.ActiveForUser(ctx, user.ID, guildID)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return "", fmt.Errorf("%w: user %s", errUtils.ErrSessionExists, user.ID)
	}

	start := t.now().UTC()
	initialEnd := start.Add(t.horizon)

	name := user.DisplayName
	if name == "" {
		name = user.Username
	}
	summary := fmt.Sprintf("%s working at %s", name, location)

	// The calendar event goes first; a session without a mirror event is
	// useless to the extender.
	eventID, err := t.mirror.InsertSession(ctx, summary, location, start, initialEnd)
	if err != nil {
		return "", fmt.Errorf("create mirror event: %w", err)
	}

	id, err := t.store.Create(ctx, &Session{
		Event:           EventKind,
		UserID:          user.ID,
		Username:        user.Username,
		GuildID:         guildID,
		Location:        location,
		StartTime:       start,
		EndTime:         nil,
		CalendarID:      t.calendarID,
		CalendarEventID: eventID,
		CalendarEnd:     initialEnd,
		LastExtendCheck: start,
	})
	if err != nil {
		return "", err
	}

	log.Info("session started", "session", id, "user", user.Username, "location", location)
	return id, nil
}

// Stop ends the user's newest active session. When the guild-scoped lookup
// finds nothing, it falls back to any guild so a session can be stopped
// from a direct message or another server.
func (t *Tracker) Stop(ctx context.Context, userID, guildID string) (string, error) {
	active, err := t.store.ActiveForUser(ctx, userID, guildID)
	if err != nil {
		return "", err
	}
	if len(active) == 0 && guildID != "" {
		active, err = t.store.ActiveForUser(ctx, userID, "")
		if err != nil {
			return "", err
		}
	}
	if len(active) == 0 {
		return "", fmt.Errorf("%w: user %s", errUtils.ErrNoActiveSession, userID)
	}

	newest := active[0]
	for _, s := range active[1:] {
		if s.StartTime.After(newest.StartTime) {
			newest = s
		}
	}

	stop := t.now().UTC()

	// Patch the calendar first so the visible end time is correct even if
	// the store update races or fails.
	if newest.CalendarEventID != "" {
		if err := t.mirror.PatchEnd(ctx, newest.CalendarEventID, stop); err != nil {
			log.Error("failed to patch mirror event end on stop", "session", newest.ID, "error", err)
		}
	}

	if err := t.store.End(ctx, newest.ID, stop); err != nil {
		return "", err
	}

	log.Info("session stopped", "session", newest.ID, "user", newest.Username)
	return newest.ID, nil
}
