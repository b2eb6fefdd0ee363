// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces ownership, orchestrates
//	Repository (Data layer)  → reads/writes the JSON file or database
//
// PostService takes a repository.PostRepository (interface), never a
// concrete store. Tests pass the in-memory store; production passes the
// JSON file store or SQLite.
//
// PRINCIPAL IN, NOT SESSION IN:
// Mutating methods take the already-resolved principal (a username). The
// access controller turns a session token into that principal before the
// service is ever called, so this package has no idea cookies exist.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/fileblog/internal/apperror"
	"github.com/sakif/fileblog/internal/model"
	"github.com/sakif/fileblog/internal/repository"
)

// Validation bounds, counted in characters after trimming.
const (
	MinTitleLength   = 3
	MaxTitleLength   = 120
	MinContentLength = 20
	MaxContentLength = 20000
)

// PostService handles business logic for blog posts.
type PostService struct {
	repo   repository.PostRepository
	logger *slog.Logger
}

// NewPostService creates a new PostService.
func NewPostService(repo repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{
		repo:   repo,
		logger: logger,
	}
}

// PostInput is the cleaned, validated form of a title/content pair.
type PostInput struct {
	Title   string
	Content string
}

// ValidatePost trims title and content and checks their bounds.
//
// Every violated rule is collected, not just the first one, so a form can
// show all of its problems at once. The returned error is an
// apperror.Invalid carrying the full list in Details.
func ValidatePost(title, content string) (PostInput, error) {
	in := PostInput{
		Title:   strings.TrimSpace(title),
		Content: strings.TrimSpace(content),
	}

	var problems []string
	titleLen := utf8.RuneCountInString(in.Title)
	contentLen := utf8.RuneCountInString(in.Content)

	if titleLen < MinTitleLength {
		problems = append(problems, fmt.Sprintf("Title must be at least %d characters.", MinTitleLength))
	}
	if titleLen > MaxTitleLength {
		problems = append(problems, fmt.Sprintf("Title must be under %d characters.", MaxTitleLength))
	}
	if contentLen < MinContentLength {
		problems = append(problems, fmt.Sprintf("Content must be at least %d characters.", MinContentLength))
	}
	if contentLen > MaxContentLength {
		problems = append(problems, fmt.Sprintf("Content is too long (max %d chars).", MaxContentLength))
	}

	if len(problems) > 0 {
		return in, apperror.Invalid(problems)
	}
	return in, nil
}

// ListAll returns every post, newest first.
func (s *PostService) ListAll(ctx context.Context) ([]model.Post, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// ListByOwner returns the posts written by principal, newest first.
func (s *PostService) ListByOwner(ctx context.Context, principal string) ([]model.Post, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	mine := make([]model.Post, 0, len(all))
	for _, p := range all {
		if p.Author == principal {
			mine = append(mine, p)
		}
	}
	return mine, nil
}

// Get returns one post by ID.
func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// Insert validates and stores a new post authored by principal.
func (s *PostService) Insert(ctx context.Context, principal, title, content string) (*model.Post, error) {
	if principal == "" {
		return nil, apperror.Unauthenticated("You must be logged in.")
	}

	in, err := ValidatePost(title, content)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Title:   in.Title,
		Content: in.Content,
		Author:  principal,
	}

	// The repository assigns ID and timestamps under its write lock.
	if err := s.repo.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("author", principal),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("author", post.Author),
	)
	return post, nil
}

// Update replaces title and content of a post owned by principal.
//
// Validation runs first, so a bad payload never even touches the store.
// The ownership check runs inside the repository's read-modify-write span;
// it sees exactly the record that will be written.
func (s *PostService) Update(ctx context.Context, principal, id, title, content string) (*model.Post, error) {
	if principal == "" {
		return nil, apperror.Unauthenticated("You must be logged in.")
	}

	in, err := ValidatePost(title, content)
	if err != nil {
		return nil, err
	}

	post, err := s.repo.Update(ctx, id, func(p *model.Post) error {
		if p.Author != principal {
			return apperror.Forbidden("You can only edit your own posts.")
		}
		p.Title = in.Title
		p.Content = in.Content
		return nil
	})
	if err != nil {
		s.logFailure("update", id, principal, err)
		return nil, fmt.Errorf("updating post: %w", err)
	}

	s.logger.Info("post updated",
		slog.String("id", post.ID),
		slog.String("author", post.Author),
	)
	return post, nil
}

// Delete removes a post owned by principal and returns its ID.
func (s *PostService) Delete(ctx context.Context, principal, id string) (string, error) {
	if principal == "" {
		return "", apperror.Unauthenticated("You must be logged in.")
	}

	err := s.repo.Delete(ctx, id, func(p *model.Post) error {
		if p.Author != principal {
			return apperror.Forbidden("You can only delete your own posts.")
		}
		return nil
	})
	if err != nil {
		s.logFailure("delete", id, principal, err)
		return "", fmt.Errorf("deleting post: %w", err)
	}

	s.logger.Info("post deleted",
		slog.String("id", id),
		slog.String("author", principal),
	)
	return id, nil
}

// logFailure logs store failures at error level. Not-found and forbidden are
// normal outcomes and only get a debug line.
func (s *PostService) logFailure(op, id, principal string, err error) {
	attrs := []any{
		slog.String("op", op),
		slog.String("id", id),
		slog.String("principal", principal),
		slog.String("error", err.Error()),
	}
	if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrForbidden) {
		s.logger.Debug("post mutation rejected", attrs...)
		return
	}
	s.logger.Error("post mutation failed", attrs...)
}
