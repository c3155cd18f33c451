package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tcbarzyk/reading-list-backend/internal/auth"
	"github.com/tcbarzyk/reading-list-backend/internal/domain/user"
	"github.com/tcbarzyk/reading-list-backend/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	users map[string]user.User
}

func (f *fakeResolver) GetByID(ctx context.Context, id string) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func setupProtected(jwtManager *auth.Manager, resolver middlewares.UserResolver) *gin.Engine {
	mw := middlewares.NewAuthMiddleware(jwtManager, resolver)

	r := gin.New()
	r.POST("/protected", mw.RequireAuth(), func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		name, _ := middlewares.UsernameFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": id, "username": name})
	})

	return r
}

func TestRequireAuth(t *testing.T) {
	const userID = "64d2f8a19c3b4e0012345678"

	jwtManager := auth.NewManager("test-secret", 15*time.Minute, time.Hour)

	resolver := &fakeResolver{users: map[string]user.User{
		userID: {ID: userID, Username: "frodo"},
	}}

	validToken, err := jwtManager.GenerateAccessToken(userID, "frodo")
	if err != nil {
		t.Fatalf("could not mint token: %v", err)
	}

	orphanToken, err := jwtManager.GenerateAccessToken("64d2f8a19c3b4e0000000000", "ghost")
	if err != nil {
		t.Fatalf("could not mint token: %v", err)
	}

	foreignManager := auth.NewManager("other-secret", 15*time.Minute, time.Hour)
	foreignToken, err := foreignManager.GenerateAccessToken(userID, "frodo")
	if err != nil {
		t.Fatalf("could not mint token: %v", err)
	}

	expiredManager := auth.NewManager("test-secret", -time.Minute, time.Hour)
	expiredToken, err := expiredManager.GenerateAccessToken(userID, "frodo")
	if err != nil {
		t.Fatalf("could not mint token: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + validToken, http.StatusOK},
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + validToken, http.StatusUnauthorized},
		{"bearer with no token", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong signing key", "Bearer " + foreignToken, http.StatusUnauthorized},
		{"expired token", "Bearer " + expiredToken, http.StatusUnauthorized},
		{"token for unknown user", "Bearer " + orphanToken, http.StatusUnauthorized},
	}

	r := setupProtected(jwtManager, resolver)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d (body %s)", tc.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRequireAuthSetsIdentityOnContext(t *testing.T) {
	const userID = "64d2f8a19c3b4e0012345678"

	jwtManager := auth.NewManager("test-secret", 15*time.Minute, time.Hour)
	resolver := &fakeResolver{users: map[string]user.User{
		userID: {ID: userID, Username: "frodo"},
	}}

	token, err := jwtManager.GenerateAccessToken(userID, "frodo")
	if err != nil {
		t.Fatalf("could not mint token: %v", err)
	}

	r := setupProtected(jwtManager, resolver)

	req := httptest.NewRequest(http.MethodPost, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	body := w.Body.String()

	if !strings.Contains(body, `"userId":"`+userID+`"`) || !strings.Contains(body, `"username":"frodo"`) {
		t.Fatalf("identity not propagated: %s", body)
	}
}
