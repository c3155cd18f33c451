package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tcbarzyk/reading-list-backend/internal/config"
	"github.com/tcbarzyk/reading-list-backend/internal/domain/book"
	"github.com/tcbarzyk/reading-list-backend/internal/domain/user"
	"github.com/tcbarzyk/reading-list-backend/internal/security"
)

type UsersRepository interface {
	Create(ctx context.Context, username, email, passwordHash string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
}

// BooksExpander resolves book ids so user responses can inline the
// owned books' summary fields.
type BooksExpander interface {
	GetByIDs(ctx context.Context, ids []string) ([]book.Book, error)
}

type UsersHandler struct {
	repo  UsersRepository
	books BooksExpander
}

func NewUsersHandler(repo UsersRepository, books BooksExpander) *UsersHandler {
	return &UsersHandler{repo: repo, books: books}
}

type userResponse struct {
	ID          string        `json:"id"`
	Username    string        `json:"username"`
	Email       string        `json:"email"`
	Books       []bookSummary `json:"books"`
	DateCreated time.Time     `json:"dateCreated"`
}

type bookSummary struct {
	ID       string         `json:"id"`
	Key      string         `json:"key"`
	BookInfo *book.BookInfo `json:"bookInfo,omitempty"`
	UserInfo book.UserInfo  `json:"userInfo"`
}

func summarize(books []book.Book, withBookInfo bool) []bookSummary {
	out := make([]bookSummary, 0, len(books))

	for _, b := range books {
		s := bookSummary{
			ID:       b.ID,
			Key:      b.Key,
			UserInfo: b.UserInfo,
		}

		if withBookInfo {
			s.BookInfo = b.BookInfo
		}

		out = append(out, s)
	}

	return out
}

func (h *UsersHandler) expand(ctx context.Context, u user.User, withBookInfo bool) (userResponse, error) {
	books, err := h.books.GetByIDs(ctx, u.Books)

	if err != nil {
		return userResponse{}, err
	}

	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Books:       summarize(books, withBookInfo),
		DateCreated: u.DateCreated,
	}, nil
}

func (h *UsersHandler) Register(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if len(req.Password) < user.MinPasswordLen {
		RespondBadRequest(ctx, "password should be more than 5 characters", nil)
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "could not create user")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, req.Username, req.Email, hash)

	if err != nil {
		if errors.Is(err, user.ErrDuplicateIdentity) {
			RespondBadRequest(ctx, "expected `username` and `email` to be unique", nil)
			return
		}

		RespondInternal(ctx, "could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// ListUsers expands each user's books with key and userInfo only.
func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	users, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "could not list users")
		return
	}

	out := make([]userResponse, 0, len(users))

	for _, u := range users {
		resp, err := h.expand(cctx, u, false)

		if err != nil {
			RespondInternal(ctx, "could not list users")
			return
		}

		out = append(out, resp)
	}

	ctx.JSON(http.StatusOK, out)
}

// GetUserByID expands the user's books with full enrichment metadata.
func (h *UsersHandler) GetUserByID(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.repo.GetByID(cctx, ctx.Param("id"))

	if err != nil {
		switch {
		case errors.Is(err, user.ErrMalformedID):
			RespondBadRequest(ctx, "malformed id", nil)
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx)
		default:
			RespondInternal(ctx, "could not fetch user")
		}
		return
	}

	resp, err := h.expand(cctx, u, true)

	if err != nil {
		RespondInternal(ctx, "could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
