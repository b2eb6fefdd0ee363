package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/fileblog/internal/model"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestSortNewestFirst(t *testing.T) {
	posts := []model.Post{
		{ID: "a", CreatedAt: t0},
		{ID: "b", CreatedAt: t0.Add(time.Hour)},
		{ID: "c", CreatedAt: t0},
		{ID: "d", CreatedAt: t0.Add(2 * time.Hour)},
	}

	SortNewestFirst(posts)

	var ids []string
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, ids)
}

func TestInsertTime(t *testing.T) {
	existing := []model.Post{{CreatedAt: t0}, {CreatedAt: t0.Add(time.Minute)}}

	tests := []struct {
		name  string
		posts []model.Post
		now   time.Time
		want  time.Time
	}{
		{name: "empty store", posts: nil, now: t0, want: t0},
		{name: "clock ahead", posts: existing, now: t0.Add(time.Hour), want: t0.Add(time.Hour)},
		{name: "clock behind", posts: existing, now: t0.Add(-time.Hour), want: t0.Add(time.Minute)},
		{name: "converted to UTC", posts: nil, now: t0.In(time.FixedZone("X", 3600)), want: t0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InsertTime(tt.posts, tt.now)
			assert.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestTouch(t *testing.T) {
	p := model.Post{CreatedAt: t0}

	Touch(&p, t0.Add(time.Minute))
	assert.True(t, p.UpdatedAt.Equal(t0.Add(time.Minute)))

	Touch(&p, t0.Add(-time.Minute))
	assert.True(t, p.UpdatedAt.Equal(t0), "UpdatedAt never goes before CreatedAt")
}
