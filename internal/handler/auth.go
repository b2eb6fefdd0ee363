// Package handler contains the HTTP request handlers of the blog API.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (URL params, cookie, JSON body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, JSON body)
//
// Handlers should NOT contain business logic. Validation, ownership and
// session rules all live in internal/service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/fileblog/internal/auth"
	"github.com/sakif/fileblog/internal/model"
	"github.com/sakif/fileblog/internal/service"
)

// Authenticator is the part of service.AuthService the handler needs.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*service.AuthResult, error)
	Revoke(ctx context.Context, token string)
	TTL() time.Duration
}

// AuthHandler manages login, logout and the "who am I" probe.
type AuthHandler struct {
	auth         Authenticator
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. cookieSecure should be true when the
// site is served over HTTPS.
func NewAuthHandler(a Authenticator, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         a,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// userResponse is {"user": {...}} or {"user": null}.
type userResponse struct {
	User *model.Principal `json:"user"`
}

// HandleLogin checks credentials and sets the session cookie.
//
// HTTP: POST /login
// REQUEST BODY: {"username": "admin", "password": "admin123"}
//
// The cookie is:
//   - HttpOnly: JavaScript can't read it
//   - SameSite=Lax: not sent on cross-site POSTs
//   - Max-Age = session TTL, so the browser drops it when the session dies
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(h.auth.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, userResponse{
		User: &model.Principal{Username: res.Session.Username},
	})
}

// HandleLogout revokes the session (if any) and clears the cookie.
//
// HTTP: POST /logout
//
// Always 200: logging out twice, or without ever logging in, is not an error.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.auth.Revoke(r.Context(), auth.TokenFromRequest(r))

	// MaxAge -1 tells the browser to delete the cookie immediately.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleSession reports who is logged in.
//
// HTTP: GET /session (behind auth.OptionalAuth)
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, userResponse{User: nil})
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: &model.Principal{Username: principal}})
}
