// Package filestore implements repository.PostRepository on top of a single
// JSON file.
//
// FILE LAYOUT:
// The file holds one JSON array of model.Post, indented with two spaces:
//
//	[
//	  {"id": "...", "title": "...", "content": "...", "author": "...", ...}
//	]
//
// READ PATH:
// Every call re-reads the whole file. Nothing is cached between calls, so
// the file is always the single source of truth.
//   - file absent or only whitespace → empty collection
//   - anything else that is not a JSON array of posts → apperror.ErrCorruptStore
//
// The second rule matters: treating a broken file as empty would let the
// next insert overwrite every existing post.
//
// WRITE PATH (ATOMIC REWRITE):
// A mutation reads the full collection, changes it in memory and hands the
// re-encoded bytes to atomicwriter.WriteFile, which writes a temp file in
// the same directory, fsyncs it and renames it over the real path. Readers
// see either the old file or the new one, never half of one.
//
// LOCKING:
// Rename alone does not stop two writers from reading the same old state
// and overwriting each other's change. All mutations therefore hold the
// store's exclusive lock for the whole read-modify-write span. The lock is a
// weighted semaphore of size one rather than a sync.Mutex so that waiting for
// it can be abandoned when the request context is done or the lock timeout
// passes.
//
// INTEGRITY:
// A file that decodes is still checked record by record. A post without an
// id or author, a duplicate id, a zero createdAt or an updatedAt before
// createdAt all make the file corrupt. Those records could not have been
// written by this store.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/moby/sys/atomicwriter"
	"github.com/rs/xid"
	"golang.org/x/sync/semaphore"

	"github.com/sakif/fileblog/internal/apperror"
	"github.com/sakif/fileblog/internal/model"
	"github.com/sakif/fileblog/internal/observability"
	"github.com/sakif/fileblog/internal/repository"
)

const (
	filePerm = 0o644
	backend  = "file"
)

// Store is a JSON-file backed post repository.
type Store struct {
	path        string
	lock        *semaphore.Weighted
	lockTimeout time.Duration
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout bounds how long a mutation waits for the write lock.
// Zero means wait as long as the request context allows.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New opens the store at path, creating the parent directory and an empty
// collection file if they do not exist yet.
func New(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path: path,
		lock: semaphore.NewWeighted(1),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("filestore: creating directory for %s: %w", path, err)
	}

	_, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := s.writeAll([]model.Post{}); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("filestore: stat %s: %w", path, err)
	}

	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// List returns every post, newest first. It does not take the write lock.
func (s *Store) List(_ context.Context) ([]model.Post, error) {
	defer observability.TrackStore(backend, "list")()

	posts, err := s.readAll()
	if err != nil {
		recordErr("list", err)
		return nil, err
	}
	repository.SortNewestFirst(posts)
	return posts, nil
}

// GetByID returns a copy of the post with the given ID.
func (s *Store) GetByID(_ context.Context, id string) (*model.Post, error) {
	defer observability.TrackStore(backend, "get")()

	posts, err := s.readAll()
	if err != nil {
		recordErr("get", err)
		return nil, err
	}
	idx := indexOf(posts, id)
	if idx < 0 {
		return nil, apperror.NotFound("post", id)
	}
	p := posts[idx]
	return &p, nil
}

// Create assigns ID and timestamps to post, appends it and persists the
// collection. The caller's struct is filled in place.
func (s *Store) Create(ctx context.Context, post *model.Post) (err error) {
	defer observability.TrackStore(backend, "create")()
	defer func() { recordErr("create", err) }()

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	posts, err := s.readAll()
	if err != nil {
		return err
	}

	id := xid.New().String()
	for indexOf(posts, id) >= 0 {
		id = xid.New().String()
	}

	post.ID = id
	post.CreatedAt = repository.InsertTime(posts, s.now())
	post.UpdatedAt = post.CreatedAt

	return s.writeAll(append(posts, *post))
}

// Update runs mutate on the stored post and persists the result. ID, Author
// and CreatedAt are restored after mutate so they cannot drift, and
// UpdatedAt is stamped by the store.
func (s *Store) Update(ctx context.Context, id string, mutate repository.MutateFunc) (_ *model.Post, err error) {
	defer observability.TrackStore(backend, "update")()
	defer func() { recordErr("update", err) }()

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	posts, err := s.readAll()
	if err != nil {
		return nil, err
	}
	idx := indexOf(posts, id)
	if idx < 0 {
		return nil, apperror.NotFound("post", id)
	}

	orig := posts[idx]
	updated := orig
	if err := mutate(&updated); err != nil {
		return nil, err
	}
	updated.ID = orig.ID
	updated.Author = orig.Author
	updated.CreatedAt = orig.CreatedAt
	repository.Touch(&updated, s.now())

	posts[idx] = updated
	if err := s.writeAll(posts); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the post after check approves it.
func (s *Store) Delete(ctx context.Context, id string, check repository.MutateFunc) (err error) {
	defer observability.TrackStore(backend, "delete")()
	defer func() { recordErr("delete", err) }()

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	posts, err := s.readAll()
	if err != nil {
		return err
	}
	idx := indexOf(posts, id)
	if idx < 0 {
		return apperror.NotFound("post", id)
	}

	if check != nil {
		p := posts[idx]
		if err := check(&p); err != nil {
			return err
		}
	}

	return s.writeAll(slices.Delete(posts, idx, idx+1))
}

// acquire takes the write lock, giving up when ctx is done or the lock
// timeout elapses. The returned func releases the lock.
func (s *Store) acquire(ctx context.Context) (func(), error) {
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.lock.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			observability.StoreLockTimeouts.Inc()
			return nil, apperror.Busy("post store")
		}
		return nil, fmt.Errorf("filestore: waiting for lock: %w", err)
	}
	observability.StoreLockWait.Observe(time.Since(start).Seconds())
	return func() { s.lock.Release(1) }, nil
}

func (s *Store) readAll() ([]model.Post, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []model.Post{}, nil
		}
		return nil, fmt.Errorf("filestore: reading %s: %w", s.path, err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []model.Post{}, nil
	}
	if trimmed[0] != '[' {
		return nil, apperror.CorruptStore(s.path, errors.New("top-level value is not an array"))
	}

	posts := []model.Post{}
	if err := json.Unmarshal(trimmed, &posts); err != nil {
		return nil, apperror.CorruptStore(s.path, err)
	}
	if err := checkRecords(posts); err != nil {
		return nil, apperror.CorruptStore(s.path, err)
	}
	return posts, nil
}

// checkRecords rejects decoded records that break the store's invariants.
func checkRecords(posts []model.Post) error {
	seen := make(map[string]struct{}, len(posts))
	for i, p := range posts {
		switch {
		case p.ID == "":
			return fmt.Errorf("record %d has no id", i)
		case p.Author == "":
			return fmt.Errorf("record %s has no author", p.ID)
		case p.CreatedAt.IsZero():
			return fmt.Errorf("record %s has no createdAt", p.ID)
		case p.UpdatedAt.Before(p.CreatedAt):
			return fmt.Errorf("record %s was updated before it was created", p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate id %s", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

func (s *Store) writeAll(posts []model.Post) error {
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encoding posts: %w", err)
	}
	data = append(data, '\n')

	if err := atomicwriter.WriteFile(s.path, data, filePerm); err != nil {
		return fmt.Errorf("filestore: writing %s: %w", s.path, err)
	}
	return nil
}

func indexOf(posts []model.Post, id string) int {
	return slices.IndexFunc(posts, func(p model.Post) bool { return p.ID == id })
}

// recordErr counts store failures. Not-found, forbidden and validation
// outcomes are answers, not failures, and are skipped.
func recordErr(op string, err error) {
	if err == nil ||
		errors.Is(err, apperror.ErrNotFound) ||
		errors.Is(err, apperror.ErrForbidden) ||
		errors.Is(err, apperror.ErrValidation) {
		return
	}
	observability.StoreErrors.WithLabelValues(backend, op).Inc()
}
