// Package calendar mirrors work sessions into a Google Calendar. Each
// session gets one event whose end time is patched as the session runs and
// when it stops.
package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/worklab/sessiond/pkg/schema"
)

const eventDescription = "Auto-created by the work-session bot"

// Service wraps the Calendar API for a single configured calendar. The
// target calendar is shared with the service account directly, so no
// domain-wide delegation is involved.
type Service struct {
	events     *gcal.EventsService
	calendarID string
	timeZone   string
}

// NewService builds a calendar Service borrowing the bootstrap client's
// token source.
func NewService(ctx context.Context, ts oauth2.TokenSource, cfg schema.CalendarConfig) (*Service, error) {
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	tz := cfg.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	return &Service{
		events:     svc.Events,
		calendarID: cfg.CalendarID,
		timeZone:   tz,
	}, nil
}

// InsertSession creates the mirror event for a new session and returns its
// event ID.
func (s *Service) InsertSession(ctx context.Context, summary, location string, start, end time.Time) (string, error) {
	created, err := s.events.Insert(s.calendarID, s.buildEvent(summary, location, start, end)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	return created.Id, nil
}

// PatchEnd moves only the end time of an existing event.
func (s *Service) PatchEnd(ctx context.Context, eventID string, end time.Time) error {
	patch := &gcal.Event{
		End: s.eventTime(end),
	}
	if _, err := s.events.Patch(s.calendarID, eventID, patch).Context(ctx).Do(); err != nil {
		return fmt.Errorf("patch calendar event %s: %w", eventID, err)
	}
	return nil
}

func (s *Service) buildEvent(summary, location string, start, end time.Time) *gcal.Event {
	return &gcal.Event{
		Summary:     summary,
		Location:    location,
		Description: eventDescription,
		Start:       s.eventTime(start),
		End:         s.eventTime(end),
	}
}

func (s *Service) eventTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: RFC3339UTC(t),
		TimeZone: s.timeZone,
	}
}

// RFC3339UTC formats a timestamp the way the Calendar API expects: RFC3339
// in UTC with a trailing Z.
func RFC3339UTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
