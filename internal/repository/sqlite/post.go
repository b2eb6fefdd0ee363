package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/fileblog/internal/apperror"
	"github.com/sakif/fileblog/internal/model"
	"github.com/sakif/fileblog/internal/observability"
	"github.com/sakif/fileblog/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB stops implementing repository.PostRepository the build breaks here,
// not at the call site in server.New.
var _ repository.PostRepository = (*DB)(nil)

const postColumns = `id, title, content, author, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Author, &p.CreatedAt, &p.UpdatedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, err
}

// List returns every post, newest first. rowid breaks ties so posts created
// in the same instant come back in insertion order, like the file store.
func (db *DB) List(ctx context.Context) ([]model.Post, error) {
	defer observability.TrackStore("sqlite", "list")()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM posts
		 ORDER BY created_at DESC, rowid ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	// CRITICAL: always close rows when done!
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// GetByID retrieves a single post. sql.ErrNoRows becomes apperror.NotFound
// so the handler knows to answer 404.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	defer observability.TrackStore("sqlite", "get")()

	p, err := scanPost(db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return &p, nil
}

// Create inserts a new post, filling ID and timestamps in place.
func (db *DB) Create(ctx context.Context, post *model.Post) error {
	defer observability.TrackStore("sqlite", "create")()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create: %w", err)
	}
	defer tx.Rollback()

	// Newest existing creation time, so InsertTime can keep createdAt
	// non-decreasing if the wall clock steps back.
	var latest []model.Post
	var newest time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT created_at FROM posts ORDER BY created_at DESC LIMIT 1`,
	).Scan(&newest)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("sqlite: reading newest post: %w", err)
	default:
		latest = append(latest, model.Post{CreatedAt: newest.UTC()})
	}

	post.ID = xid.New().String()
	post.CreatedAt = repository.InsertTime(latest, db.now())
	post.UpdatedAt = post.CreatedAt

	_, err = tx.ExecContext(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID, post.Title, post.Content, post.Author, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing create: %w", err)
	}
	return nil
}

// Update loads the post, applies mutate and writes title and content back,
// all inside one transaction.
func (db *DB) Update(ctx context.Context, id string, mutate repository.MutateFunc) (*model.Post, error) {
	defer observability.TrackStore("sqlite", "update")()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning update: %w", err)
	}
	defer tx.Rollback()

	orig, err := scanPost(tx.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: loading post %s: %w", id, err)
	}

	updated := orig
	if err := mutate(&updated); err != nil {
		return nil, err
	}
	updated.ID = orig.ID
	updated.Author = orig.Author
	updated.CreatedAt = orig.CreatedAt
	repository.Touch(&updated, db.now())

	_, err = tx.ExecContext(ctx,
		`UPDATE posts SET title = ?, content = ?, updated_at = ? WHERE id = ?`,
		updated.Title, updated.Content, updated.UpdatedAt, updated.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating post %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing update: %w", err)
	}
	return &updated, nil
}

// Delete removes the post after check approves it.
func (db *DB) Delete(ctx context.Context, id string, check repository.MutateFunc) error {
	defer observability.TrackStore("sqlite", "delete")()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPost(tx.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NotFound("post", id)
		}
		return fmt.Errorf("sqlite: loading post %s: %w", id, err)
	}

	if check != nil {
		if err := check(&p); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete: %w", err)
	}
	return nil
}
