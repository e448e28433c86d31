// Package session tracks work sessions: who is working, where, and since
// when. Sessions are persisted in Firestore and mirrored to a calendar
// event that the extender keeps topped up while the session is active.
package session

import (
	"context"
	"time"
)

// Session is a single work session document. EndTime is nil while the
// session is active.
type Session struct {
	Event           string     `firestore:"event"`
	UserID          string     `firestore:"user_id"`
	Username        string     `firestore:"username"`
	GuildID         string     `firestore:"guild_id"`
	Location        string     `firestore:"location"`
	StartTime       time.Time  `firestore:"start_time"`
	EndTime         *time.Time `firestore:"end_time"`
	CalendarID      string     `firestore:"calendar_id"`
	CalendarEventID string     `firestore:"calendar_event_id"`

	// CalendarEnd is the end time last written to the calendar event.
	CalendarEnd time.Time `firestore:"calendar_end"`

	// LastExtendCheck records when the extender last looked at this session.
	LastExtendCheck time.Time `firestore:"last_extend_check"`
}

// EventKind is the document marker for work sessions.
const EventKind = "work_session"

// ActiveSession pairs a session with its document ID.
type ActiveSession struct {
	ID string
	Session
}

// Store persists sessions. Implementations must scope "active" to sessions
// with no end time.
type Store interface {
	// Create persists a new session and returns its document ID.
	Create(ctx context.Context, s *Session) (string, error)

	// ActiveForUser returns the user's active sessions. A non-empty guildID
	// restricts the result to that guild.
	ActiveForUser(ctx context.Context, userID, guildID string) ([]ActiveSession, error)

	// Active returns all active sessions.
	Active(ctx context.Context) ([]ActiveSession, error)

	// End marks a session stopped. The store records its own authoritative
	// end timestamp; calendarEnd is the exact stop time already patched
	// onto the mirror event.
	End(ctx context.Context, id string, calendarEnd time.Time) error

	// UpdateMirror records a new mirrored calendar end after a top-up.
	UpdateMirror(ctx context.Context, id string, calendarEnd, checkedAt time.Time) error
}
