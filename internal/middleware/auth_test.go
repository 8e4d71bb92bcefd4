package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/ludoarena/match-engine/internal/match"
	users "github.com/ludoarena/match-engine/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[uuid.UUID]*users.User

func (f fakeUsers) GetUser(_ context.Context, id uuid.UUID) (*users.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, match.ErrNotFound
}

func TestRequireAuthAndAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	testCases := []struct {
		name       string
		user       *users.User
		handler    func(http.Handler) http.Handler
		wantStatus int
	}{
		{"anonymous user", nil, RequireAuth, http.StatusUnauthorized},
		{"signed in user", &users.User{ID: uuid.New()}, RequireAuth, http.StatusNoContent},
		{"anonymous admin route", nil, RequireAdmin, http.StatusUnauthorized},
		{"player on admin route", &users.User{ID: uuid.New()}, RequireAdmin, http.StatusForbidden},
		{"admin on admin route", &users.User{ID: uuid.New(), IsAdmin: true}, RequireAdmin, http.StatusNoContent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), tc.user))
			}
			rec := httptest.NewRecorder()
			tc.handler(ok).ServeHTTP(rec, req)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestLoadAuthenticatedUser(t *testing.T) {
	sm := scs.New()
	u := &users.User{ID: uuid.New(), Username: "red"}
	store := fakeUsers{u.ID: u}

	var seen *users.User
	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			sm.Put(r.Context(), SessionUserKey, u.ID.String())
			return
		}
		LoadAuthenticatedUser(sm, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetAuthenticatedUser(r.Context())
		})).ServeHTTP(w, r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, u.ID, seen.ID)

	seen = nil
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Nil(t, seen)
}
