package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/fileblog/internal/apperror"
	"github.com/sakif/fileblog/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" creates a fresh database that exists only during the test.
// The single-connection pool in New keeps it one database for the whole test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestPost(t *testing.T, db *DB, author, title string) *model.Post {
	t.Helper()
	post := &model.Post{
		Title:   title,
		Content: "content that is long enough to be valid",
		Author:  author,
	}
	if err := db.Create(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return post
}

func TestCreate(t *testing.T) {
	db := newTestDB(t)

	post := createTestPost(t, db, "alice", "Hello World")

	if post.ID == "" {
		t.Error("Create() did not set post.ID")
	}
	if post.CreatedAt.IsZero() {
		t.Error("Create() did not set post.CreatedAt")
	}
	if !post.UpdatedAt.Equal(post.CreatedAt) {
		t.Errorf("UpdatedAt = %v, want equal to CreatedAt %v", post.UpdatedAt, post.CreatedAt)
	}
}

func TestGetByID(t *testing.T) {
	db := newTestDB(t)
	created := createTestPost(t, db, "alice", "fetch me")

	found, err := db.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if found.Title != "fetch me" || found.Author != "alice" {
		t.Errorf("GetByID() = %+v, want title %q author %q", found, "fetch me", "alice")
	}
	if !found.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, created.CreatedAt)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestList_Empty(t *testing.T) {
	db := newTestDB(t)

	posts, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", posts)
	}
}

func TestList_NewestFirst(t *testing.T) {
	db := newTestDB(t)

	first := createTestPost(t, db, "alice", "first")
	second := createTestPost(t, db, "bob", "second")
	third := createTestPost(t, db, "alice", "third")

	posts, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("List() returned %d posts, want 3", len(posts))
	}

	for i := 1; i < len(posts); i++ {
		if posts[i].CreatedAt.After(posts[i-1].CreatedAt) {
			t.Errorf("posts[%d] is newer than posts[%d]", i, i-1)
		}
	}

	ids := map[string]bool{first.ID: true, second.ID: true, third.ID: true}
	for _, p := range posts {
		if !ids[p.ID] {
			t.Errorf("unexpected post %s in list", p.ID)
		}
	}
}

func TestCreate_ClockGoingBackwardsKeepsOrder(t *testing.T) {
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	db, err := New(":memory:", WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	first := createTestPost(t, db, "alice", "first")
	clock = base.Add(-time.Hour)
	second := createTestPost(t, db, "alice", "second")

	if second.CreatedAt.Before(first.CreatedAt) {
		t.Errorf("second CreatedAt %v is before first %v", second.CreatedAt, first.CreatedAt)
	}

	// An update under the same stepped-back clock never predates creation.
	updated, err := db.Update(context.Background(), first.ID, func(p *model.Post) error {
		p.Title = "first, edited"
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Errorf("UpdatedAt %v is before CreatedAt %v", updated.UpdatedAt, updated.CreatedAt)
	}

	posts, err := db.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	// Both share a createdAt, so insertion order decides.
	if len(posts) != 2 || posts[0].ID != first.ID || posts[1].ID != second.ID {
		t.Errorf("List() = %v, want first then second", posts)
	}
}

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	original := createTestPost(t, db, "alice", "original title")

	updated, err := db.Update(context.Background(), original.ID, func(p *model.Post) error {
		p.Title = "updated title"
		p.Author = "mallory" // must be ignored
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Title != "updated title" {
		t.Errorf("Title = %q, want %q", updated.Title, "updated title")
	}

	found, err := db.GetByID(context.Background(), original.ID)
	if err != nil {
		t.Fatalf("GetByID() after update error = %v", err)
	}
	if found.Author != "alice" {
		t.Errorf("Author = %q, want %q (author is immutable)", found.Author, "alice")
	}
	if found.UpdatedAt.Before(found.CreatedAt) {
		t.Errorf("UpdatedAt %v is before CreatedAt %v", found.UpdatedAt, found.CreatedAt)
	}
}

func TestUpdate_CallbackErrorLeavesRowUntouched(t *testing.T) {
	db := newTestDB(t)
	original := createTestPost(t, db, "alice", "keep me")

	denied := apperror.Forbidden("no")
	_, err := db.Update(context.Background(), original.ID, func(p *model.Post) error {
		p.Title = "changed"
		return denied
	})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Update() error = %v, want ErrForbidden", err)
	}

	found, _ := db.GetByID(context.Background(), original.ID)
	if found.Title != "keep me" {
		t.Errorf("Title = %q, want unchanged %q", found.Title, "keep me")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Update(context.Background(), "nonexistent", func(*model.Post) error { return nil })
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	post := createTestPost(t, db, "alice", "to delete")

	if err := db.Delete(context.Background(), post.ID, nil); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.GetByID(context.Background(), post.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete: error = %v, want ErrNotFound", err)
	}
}

func TestDelete_CheckRejects(t *testing.T) {
	db := newTestDB(t)
	post := createTestPost(t, db, "alice", "guarded")

	err := db.Delete(context.Background(), post.ID, func(*model.Post) error {
		return apperror.Forbidden("no")
	})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Delete() error = %v, want ErrForbidden", err)
	}

	if _, err := db.GetByID(context.Background(), post.ID); err != nil {
		t.Errorf("post should still exist, GetByID() error = %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Delete(context.Background(), "nonexistent-id", nil)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
