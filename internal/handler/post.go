package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/fileblog/internal/auth"
	"github.com/sakif/fileblog/internal/model"
)

// PostService is what the post handlers need from service.PostService.
//
// Accepting an interface keeps handler tests free of any store: a fake with
// canned answers is enough.
type PostService interface {
	ListAll(ctx context.Context) ([]model.Post, error)
	ListByOwner(ctx context.Context, principal string) ([]model.Post, error)
	Get(ctx context.Context, id string) (*model.Post, error)
	Insert(ctx context.Context, principal, title, content string) (*model.Post, error)
	Update(ctx context.Context, principal, id, title, content string) (*model.Post, error)
	Delete(ctx context.Context, principal, id string) (string, error)
}

// PostHandler serves the /posts routes.
type PostHandler struct {
	posts  PostService
	logger *slog.Logger
}

// NewPostHandler creates a PostHandler.
func NewPostHandler(posts PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

type postRequest struct {
	Title   formString `json:"title"`
	Content formString `json:"content"`
}

// formString decodes a JSON string as-is and any other JSON value as "".
// A {"title": 5} body then fails validation with the full list of problems
// instead of a bare "Invalid JSON body.".
type formString string

func (s *formString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		v = ""
	}
	*s = formString(v)
	return nil
}

type deleteResponse struct {
	DeletedID string `json:"deletedId"`
}

// HandleList returns every post, newest first.
//
// HTTP: GET /posts
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleListMine returns the caller's posts, newest first.
//
// HTTP: GET /posts/mine (behind auth.RequireAuth)
func (h *PostHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	posts, err := h.posts.ListByOwner(r.Context(), principal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleGet returns one post.
//
// HTTP: GET /posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleHTML returns the post rendered from markdown to sanitized HTML.
//
// HTTP: GET /posts/{id}/html
func (h *PostHandler) HandleHTML(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(renderPost(post)); err != nil {
		h.logger.Warn("failed to write post html", slog.String("error", err.Error()))
	}
}

// HandleCreate publishes a new post as the caller.
//
// HTTP: POST /posts (behind auth.RequireAuth)
// REQUEST BODY: {"title": "Hello World", "content": "at least twenty characters"}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.posts.Insert(r.Context(), principal, string(req.Title), string(req.Content))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdate replaces title and content of one of the caller's posts.
//
// HTTP: PUT /posts/{id} (behind auth.RequireAuth)
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.posts.Update(r.Context(), principal, chi.URLParam(r, "id"), string(req.Title), string(req.Content))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes one of the caller's posts.
//
// HTTP: DELETE /posts/{id} (behind auth.RequireAuth)
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	id, err := h.posts.Delete(r.Context(), principal, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{DeletedID: id})
}
