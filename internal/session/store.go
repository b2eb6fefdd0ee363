// Package session keeps server-side session records.
//
// A session maps an opaque ID to the username that logged in. The ID is what
// travels (signed) in the "sid" cookie; the record stays here, so deleting it
// is all logout needs to do.
//
// Two backends implement Store:
//   - MemoryStore: a mutex-guarded map, the default. Sessions die with the process.
//   - RedisStore:  go-redis with a native TTL, for sessions that survive restarts.
package session

import (
	"context"
	"errors"

	"github.com/sakif/fileblog/internal/model"
)

// ErrNotFound is returned by Get when no live session has the given ID.
// Expired sessions are reported the same way.
var ErrNotFound = errors.New("session: not found")

// Store persists session records.
type Store interface {
	// Save stores s until s.ExpiresAt.
	Save(ctx context.Context, s *model.Session) error
	// Get returns the live session with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Session, error)
	// Delete removes the session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}
