// Package repository declares the storage contracts used by the service layer.
//
// The service only ever sees PostRepository. Which backend sits behind it
// (JSON file, SQLite, in-memory for tests) is decided once in server.New.
package repository

import (
	"context"
	"slices"
	"time"

	"github.com/sakif/fileblog/internal/model"
)

// MutateFunc is applied to a stored post inside the store's exclusive
// read-modify-write span. Returning an error aborts the write and the
// error is passed back to the caller unchanged.
type MutateFunc func(post *model.Post) error

// PostRepository is the document store contract.
//
// Every implementation must:
//   - return posts from List newest CreatedAt first, ties in insertion order
//   - assign ID, CreatedAt and UpdatedAt in Create
//   - run the MutateFunc of Update and Delete while holding the exclusive
//     write lock, so a check made in the callback still holds when the
//     change is persisted
//   - report a missing ID with apperror.ErrNotFound
type PostRepository interface {
	List(ctx context.Context) ([]model.Post, error)
	GetByID(ctx context.Context, id string) (*model.Post, error)
	Create(ctx context.Context, post *model.Post) error
	Update(ctx context.Context, id string, mutate MutateFunc) (*model.Post, error)
	Delete(ctx context.Context, id string, check MutateFunc) error
}

// SortNewestFirst orders posts by CreatedAt descending. The sort is stable,
// so posts created in the same instant keep their insertion order.
func SortNewestFirst(posts []model.Post) {
	slices.SortStableFunc(posts, func(a, b model.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// InsertTime returns the timestamp a new post should get. It is now, unless
// the wall clock stepped backwards behind the newest stored post, in which
// case the newest CreatedAt is reused so creation times never decrease.
func InsertTime(posts []model.Post, now time.Time) time.Time {
	now = now.UTC()
	for _, p := range posts {
		if p.CreatedAt.After(now) {
			now = p.CreatedAt
		}
	}
	return now
}

// Touch stamps UpdatedAt, keeping it at or after CreatedAt.
func Touch(post *model.Post, now time.Time) {
	now = now.UTC()
	if now.Before(post.CreatedAt) {
		now = post.CreatedAt
	}
	post.UpdatedAt = now
}
