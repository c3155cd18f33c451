package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tcbarzyk/reading-list-backend/internal/auth"
	"github.com/tcbarzyk/reading-list-backend/internal/config"
	"github.com/tcbarzyk/reading-list-backend/internal/domain/user"
	"github.com/tcbarzyk/reading-list-backend/internal/security"
	"github.com/tcbarzyk/reading-list-backend/internal/sessions"
)

type UserReader interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type SessionStore interface {
	Save(ctx context.Context, jti string, rec sessions.Record, ttl time.Duration) error
	Get(ctx context.Context, jti string) (sessions.Record, error)
	Rotate(ctx context.Context, oldJTI, newJTI string, rec sessions.Record, ttl time.Duration) error
	Revoke(ctx context.Context, jti string) error
}

type AuthHandler struct {
	users    UserReader
	jwt      *auth.Manager
	sessions SessionStore
	cfg      config.Config
}

func NewAuthHandler(users UserReader, jwtManager *auth.Manager, sessionStore SessionStore, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:    users,
		jwt:      jwtManager,
		sessions: sessionStore,
		cfg:      cfg,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByUsername(cctx, req.Username)
	if err != nil {
		RespondUnauthorized(ctx, "invalid username or password")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnauthorized(ctx, "invalid username or password")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(foundUser.ID, foundUser.Username)

	if err != nil {
		RespondInternal(ctx, "could not generate access token")
		return
	}

	rawRefresh, jti, expiresAt, err := h.jwt.GenerateRefreshToken(foundUser.ID, foundUser.Username)

	if err != nil {
		RespondInternal(ctx, "could not generate refresh token")
		return
	}

	rec := sessions.Record{
		UserID:    foundUser.ID,
		TokenHash: h.jwt.HashRefreshToken(rawRefresh),
	}

	if err := h.sessions.Save(cctx, jti, rec, time.Until(expiresAt)); err != nil {
		RespondInternal(ctx, "could not create session")
		return
	}

	h.setRefreshCookie(ctx, rawRefresh, expiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"user":        foundUser,
	})
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		RespondUnauthorized(ctx, "missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil {
		RespondUnauthorized(ctx, "invalid refresh token")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	rec, err := h.sessions.Get(cctx, claims.JTI)

	if err != nil {
		// never issued, expired out of the store, or already rotated
		RespondUnauthorized(ctx, "invalid refresh token")
		return
	}

	// the stored hash must match the presented token

	if rec.TokenHash != h.jwt.HashRefreshToken(raw) {
		RespondUnauthorized(ctx, "invalid refresh token")
		return
	}

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(rec.UserID, claims.Username)
	if err != nil {
		RespondInternal(ctx, "could not refresh session")
		return
	}

	newRec := sessions.Record{
		UserID:    rec.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
	}

	if err := h.sessions.Rotate(cctx, claims.JTI, newJTI, newRec, time.Until(newExpiresAt)); err != nil {
		RespondInternal(ctx, "could not refresh session")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(rec.UserID, claims.Username)
	if err != nil {
		RespondInternal(ctx, "could not generate access token")
		return
	}

	h.setRefreshCookie(ctx, newRaw, newExpiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// revoke that one session (idempotent)
	_ = h.sessions.Revoke(cctx, claims.JTI)

	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// Helper functions

func (h *AuthHandler) refreshCookieName() string {
	return "refresh_token"
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.refreshCookieName(),
		raw,
		maxAge,
		"/api/login",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		h.refreshCookieName(),
		"",
		-1,
		"/api/login",
		"",
		secure,
		true,
	)
}
