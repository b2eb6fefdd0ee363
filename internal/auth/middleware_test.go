package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeResolver maps tokens straight to principals.
type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, token string) (string, bool) {
	p, ok := f[token]
	return p, ok
}

// echoPrincipal writes the principal found in the context, or "anonymous".
var echoPrincipal = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		p = "anonymous"
	}
	w.Write([]byte(p))
})

func requestWithCookie(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(fakeResolver{"good": "alice"})(echoPrincipal)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{name: "live session", token: "good", wantStatus: http.StatusOK, wantBody: "alice"},
		{name: "no cookie", token: "", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", token: "bad", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestWithCookie(tt.token))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				return
			}
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t,
				`{"error":"unauthenticated","message":"You must be logged in.","errors":["You must be logged in."]}`,
				rec.Body.String())
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	h := OptionalAuth(fakeResolver{"good": "alice"})(echoPrincipal)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithCookie("good"))
	assert.Equal(t, "alice", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithCookie("bad"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestPrincipalFromContext_EmptyIsAnonymous(t *testing.T) {
	_, ok := PrincipalFromContext(WithPrincipal(context.Background(), ""))
	assert.False(t, ok)

	p, ok := PrincipalFromContext(WithPrincipal(context.Background(), "bob"))
	assert.True(t, ok)
	assert.Equal(t, "bob", p)
}
