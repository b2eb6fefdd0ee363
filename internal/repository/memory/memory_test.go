package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/fileblog/internal/apperror"
	"github.com/sakif/fileblog/internal/model"
)

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewWithClock(func() time.Time { return clock })

	p := &model.Post{Title: "first", Content: "twenty characters or more", Author: "alice"}
	require.NoError(t, s.Create(ctx, p))
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.CreatedAt.Equal(clock))

	clock = clock.Add(time.Minute)
	q := &model.Post{Title: "second", Content: "twenty characters or more", Author: "bob"}
	require.NoError(t, s.Create(ctx, q))

	posts, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, q.ID, posts[0].ID)

	clock = clock.Add(time.Minute)
	updated, err := s.Update(ctx, p.ID, func(post *model.Post) error {
		post.Title = "first, edited"
		post.Author = "mallory"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.Author)
	assert.True(t, updated.UpdatedAt.Equal(clock))

	require.NoError(t, s.Delete(ctx, p.ID, nil))
	_, err = s.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStore_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, &model.Post{Title: "t", Author: "alice"}))

	posts, err := s.List(ctx)
	require.NoError(t, err)
	posts[0].Title = "changed by caller"

	again, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t", again[0].Title)
}

func TestStore_Err(t *testing.T) {
	s := New()
	s.Err = apperror.Busy("post store")

	_, err := s.List(context.Background())
	assert.ErrorIs(t, err, apperror.ErrBusy)
	assert.ErrorIs(t, s.Create(context.Background(), &model.Post{}), apperror.ErrBusy)
}
