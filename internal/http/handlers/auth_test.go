package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tcbarzyk/reading-list-backend/internal/auth"
	"github.com/tcbarzyk/reading-list-backend/internal/config"
	"github.com/tcbarzyk/reading-list-backend/internal/domain/user"
	"github.com/tcbarzyk/reading-list-backend/internal/http/handlers"
	"github.com/tcbarzyk/reading-list-backend/internal/security"
	"github.com/tcbarzyk/reading-list-backend/internal/sessions"
)

type fakeUserReader struct {
	users map[string]user.User
}

func (f *fakeUserReader) GetByUsername(ctx context.Context, username string) (user.User, error) {
	u, ok := f.users[username]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

// in-memory stand-in for the redis-backed session store

type fakeSessions struct {
	records map[string]sessions.Record
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{records: map[string]sessions.Record{}}
}

func (f *fakeSessions) Save(ctx context.Context, jti string, rec sessions.Record, ttl time.Duration) error {
	f.records[jti] = rec
	return nil
}

func (f *fakeSessions) Get(ctx context.Context, jti string) (sessions.Record, error) {
	rec, ok := f.records[jti]
	if !ok {
		return sessions.Record{}, sessions.ErrNotFound
	}
	return rec, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, oldJTI, newJTI string, rec sessions.Record, ttl time.Duration) error {
	delete(f.records, oldJTI)
	f.records[newJTI] = rec
	return nil
}

func (f *fakeSessions) Revoke(ctx context.Context, jti string) error {
	delete(f.records, jti)
	return nil
}

func newAuthFixture(t *testing.T) (*gin.Engine, *fakeSessions, *auth.Manager) {
	t.Helper()

	hash, err := security.HashPassword("elevenses")
	if err != nil {
		t.Fatalf("could not hash password: %v", err)
	}

	users := &fakeUserReader{users: map[string]user.User{
		"frodo": {
			ID:           "64d2f8a19c3b4e0012345678",
			Username:     "frodo",
			Email:        "frodo@shire.me",
			PasswordHash: hash,
		},
	}}

	jwtManager := auth.NewManager("test-secret", 15*time.Minute, 7*24*time.Hour)
	store := newFakeSessions()

	h := handlers.NewAuthHandler(users, jwtManager, store, config.Config{Env: "dev"})

	r := gin.New()
	r.POST("/api/login", h.Login)
	r.POST("/api/login/refresh", h.Refresh)
	r.POST("/api/login/logout", h.Logout)

	return r, store, jwtManager
}

func refreshCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	res := w.Result()
	defer res.Body.Close()

	for _, c := range res.Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}

	t.Fatalf("refresh_token cookie not set; headers %v", res.Header)
	return nil
}

func doLogin(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid credentials", `{"username":"frodo","password":"elevenses"}`, http.StatusOK},
		{"wrong password", `{"username":"frodo","password":"secondbreakfast"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"sauron","password":"elevenses"}`, http.StatusUnauthorized},
		{"missing password", `{"username":"frodo"}`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, store, jwtManager := newAuthFixture(t)

			w := doLogin(t, r, tc.body)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d (body %s)", tc.wantStatus, w.Code, w.Body.String())
			}

			if tc.wantStatus != http.StatusOK {
				if len(store.records) != 0 {
					t.Fatalf("no session expected on failure, got %d", len(store.records))
				}
				return
			}

			var resp struct {
				AccessToken string `json:"accessToken"`
				User        struct {
					ID       string `json:"id"`
					Username string `json:"username"`
				} `json:"user"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("could not decode response: %v", err)
			}

			claims, err := jwtManager.VerifyAccessToken(resp.AccessToken)
			if err != nil {
				t.Fatalf("issued access token does not verify: %v", err)
			}

			if claims.UserID != resp.User.ID || claims.Username != "frodo" {
				t.Fatalf("unexpected claims %+v", claims)
			}

			cookie := refreshCookie(t, w)

			if !cookie.HttpOnly {
				t.Fatal("refresh cookie must be HttpOnly")
			}

			if cookie.Path != "/api/login" {
				t.Fatalf("unexpected cookie path %q", cookie.Path)
			}

			if len(store.records) != 1 {
				t.Fatalf("expected one session record, got %d", len(store.records))
			}
		})
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	r, store, jwtManager := newAuthFixture(t)

	login := doLogin(t, r, `{"username":"frodo","password":"elevenses"}`)
	if login.Code != http.StatusOK {
		t.Fatalf("login failed: %d", login.Code)
	}

	cookie := refreshCookie(t, login)

	oldClaims, err := jwtManager.VerifyRefreshToken(cookie.Value)
	if err != nil {
		t.Fatalf("refresh cookie does not verify: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/login/refresh", nil)
	req.AddCookie(cookie)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %s)", w.Code, w.Body.String())
	}

	var resp struct {
		AccessToken string `json:"accessToken"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("could not decode response: %v", err)
	}

	if _, err := jwtManager.VerifyAccessToken(resp.AccessToken); err != nil {
		t.Fatalf("refreshed access token does not verify: %v", err)
	}

	// rotation revoked the old session and issued a new one
	if _, ok := store.records[oldClaims.JTI]; ok {
		t.Fatal("old session should have been rotated out")
	}

	if len(store.records) != 1 {
		t.Fatalf("expected one session after rotation, got %d", len(store.records))
	}

	// a second use of the already-rotated token is refused
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)

	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token should be rejected, got %d", w2.Code)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	r, _, _ := newAuthFixture(t)

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/login/refresh", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/login/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "not-a-jwt"})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})
}

func TestLogout(t *testing.T) {
	r, store, _ := newAuthFixture(t)

	login := doLogin(t, r, `{"username":"frodo","password":"elevenses"}`)
	cookie := refreshCookie(t, login)

	req := httptest.NewRequest(http.MethodPost, "/api/login/logout", nil)
	req.AddCookie(cookie)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}

	if len(store.records) != 0 {
		t.Fatalf("session should be revoked, got %d records", len(store.records))
	}

	cleared := refreshCookie(t, w)

	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got value=%q maxAge=%d", cleared.Value, cleared.MaxAge)
	}

	// logging out without a cookie is still a 204
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodPost, "/api/login/logout", nil))

	if w2.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w2.Code)
	}
}
