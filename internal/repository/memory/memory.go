// Package memory is an in-process PostRepository. It keeps the same
// ordering, ID and timestamp rules as the file store, which makes it a
// drop-in substitute in tests and for throwaway runs (STORE_DRIVER=memory).
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fileblog/internal/apperror"
	"github.com/sakif/fileblog/internal/model"
	"github.com/sakif/fileblog/internal/repository"
)

// Store holds posts in insertion order behind a mutex.
type Store struct {
	mu    sync.Mutex
	posts []model.Post
	now   func() time.Time

	// Err, when set, is returned by every call. Lets tests simulate an
	// unreadable store.
	Err error
}

// New returns an empty store using time.Now.
func New() *Store {
	return &Store{now: time.Now}
}

// NewWithClock returns an empty store using the given clock.
func NewWithClock(now func() time.Time) *Store {
	return &Store{now: now}
}

func (s *Store) List(_ context.Context) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := slices.Clone(s.posts)
	if out == nil {
		out = []model.Post{}
	}
	repository.SortNewestFirst(out)
	return out, nil
}

func (s *Store) GetByID(_ context.Context, id string) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, apperror.NotFound("post", id)
	}
	p := s.posts[idx]
	return &p, nil
}

func (s *Store) Create(_ context.Context, post *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	post.ID = xid.New().String()
	post.CreatedAt = repository.InsertTime(s.posts, s.now())
	post.UpdatedAt = post.CreatedAt
	s.posts = append(s.posts, *post)
	return nil
}

func (s *Store) Update(_ context.Context, id string, mutate repository.MutateFunc) (*model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, apperror.NotFound("post", id)
	}

	orig := s.posts[idx]
	updated := orig
	if err := mutate(&updated); err != nil {
		return nil, err
	}
	updated.ID = orig.ID
	updated.Author = orig.Author
	updated.CreatedAt = orig.CreatedAt
	repository.Touch(&updated, s.now())

	s.posts[idx] = updated
	return &updated, nil
}

func (s *Store) Delete(_ context.Context, id string, check repository.MutateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return apperror.NotFound("post", id)
	}
	if check != nil {
		p := s.posts[idx]
		if err := check(&p); err != nil {
			return err
		}
	}
	s.posts = slices.Delete(s.posts, idx, idx+1)
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.posts, func(p model.Post) bool { return p.ID == id })
}
