package session

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"golang.org/x/oauth2"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	errUtils "github.com/worklab/sessiond/errors"
)

// FirestoreStore is the Firestore-backed session store.
type FirestoreStore struct {
	client *firestore.Client
	coll   *firestore.CollectionRef
}

// NewFirestoreStore connects to Firestore in the given project, borrowing
// the bootstrap client's token source.
func NewFirestoreStore(ctx context.Context, ts oauth2.TokenSource, projectID, collection string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &FirestoreStore{
		client: client,
		coll:   client.Collection(collection),
	}, nil
}

// Close releases the underlying Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// Create persists a new session document.
func (s *FirestoreStore) Create(ctx context.Context, sess *Session) (string, error) {
	ref := s.coll.NewDoc()
	if _, err := ref.Set(ctx, sess); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return ref.ID, nil
}

// ActiveForUser returns the user's active sessions, optionally scoped to a
// guild.
func (s *FirestoreStore) ActiveForUser(ctx context.Context, userID, guildID string) ([]ActiveSession, error) {
	q := s.coll.Where("user_id", "==", userID).Where("end_time", "==", nil)
	if guildID != "" {
		q = q.Where("guild_id", "==", guildID)
	}
	return collect(q.Documents(ctx))
}

// Active returns all active sessions.
func (s *FirestoreStore) Active(ctx context.Context) ([]ActiveSession, error) {
	return collect(s.coll.Where("end_time", "==", nil).Documents(ctx))
}

// End marks the session stopped. The end_time is a server timestamp so the
// stored value does not depend on this process's clock.
func (s *FirestoreStore) End(ctx context.Context, id string, calendarEnd time.Time) error {
	_, err := s.coll.Doc(id).Update(ctx, []firestore.Update{
		{Path: "end_time", Value: firestore.ServerTimestamp},
		{Path: "calendar_end", Value: calendarEnd},
		{Path: "last_extend_check", Value: calendarEnd},
	})
	return translateNotFound(err, id)
}

// UpdateMirror records the calendar end written by a top-up.
func (s *FirestoreStore) UpdateMirror(ctx context.Context, id string, calendarEnd, checkedAt time.Time) error {
	_, err := s.coll.Doc(id).Update(ctx, []firestore.Update{
		{Path: "calendar_end", Value: calendarEnd},
		{Path: "last_extend_check", Value: checkedAt},
	})
	return translateNotFound(err, id)
}

func collect(it *firestore.DocumentIterator) ([]ActiveSession, error) {
	defer it.Stop()

	var out []ActiveSession
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("iterate sessions: %w", err)
		}
		var sess Session
		if err := doc.DataTo(&sess); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", doc.Ref.ID, err)
		}
		out = append(out, ActiveSession{ID: doc.Ref.ID, Session: sess})
	}
}

func translateNotFound(err error, id string) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: session %s", errUtils.ErrNoActiveSession, id)
	}
	return fmt.Errorf("update session %s: %w", id, err)
}
