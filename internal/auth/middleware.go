package auth

import (
	"context"
	"net/http"
)

// CookieName is the session cookie set on login.
const CookieName = "sid"

// Resolver turns a session token into a principal. ok is false for any
// token that does not name a live session, including the empty token.
//
// service.AuthService satisfies it. Declaring the interface here, where it is
// consumed, keeps this package free of any storage imports.
type Resolver interface {
	Resolve(ctx context.Context, token string) (principal string, ok bool)
}

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "principal", name), ANY package that knows the string
// can read or shadow your value. Only THIS package can create a key of type
// contextKey, so only this package can read or write the principal.
type contextKey string

const principalKey contextKey = "principal"

// RequireAuth is a middleware that enforces a live session on protected routes.
//
// It reads the "sid" cookie, resolves it, and stores the principal in the
// request context. If there is no live session it answers 401 and stops the
// chain.
//
// MIDDLEWARE PATTERN IN GO:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... do stuff before the handler ...
//	        next.ServeHTTP(w, r)
//	        // ... do stuff after the handler ...
//	    })
//	}
func RequireAuth(sessions Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := sessions.Resolve(r.Context(), TokenFromRequest(r))
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthenticated","message":"You must be logged in.","errors":["You must be logged in."]}` + "\n"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// OptionalAuth attaches the principal when the cookie names a live session
// and lets anonymous requests through untouched.
//
// Use this on public routes like GET /session where an anonymous caller gets
// {"user": null} instead of a 401.
func OptionalAuth(sessions Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, ok := sessions.Resolve(r.Context(), TokenFromRequest(r)); ok {
				r = r.WithContext(WithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a copy of ctx carrying principal.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromContext retrieves the logged-in username from the context.
//
// Returns ("", false) if the request is anonymous.
//
//	principal, ok := auth.PrincipalFromContext(r.Context())
//	if !ok {
//	    // anonymous user
//	}
func PrincipalFromContext(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(principalKey).(string)
	return p, ok && p != ""
}

// TokenFromRequest returns the session cookie value, or "" if there is none.
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
