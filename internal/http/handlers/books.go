package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tcbarzyk/reading-list-backend/internal/catalog"
	"github.com/tcbarzyk/reading-list-backend/internal/config"
	"github.com/tcbarzyk/reading-list-backend/internal/domain/book"
	"github.com/tcbarzyk/reading-list-backend/internal/http/middlewares"
)

type BooksRepository interface {
	List(ctx context.Context) ([]book.Book, error)
	GetByID(ctx context.Context, id string) (book.Book, error)
	Create(ctx context.Context, ownerID, key string, info *book.BookInfo, userInfo book.UserInfo) (book.Book, error)
	Update(ctx context.Context, id string, req book.UpdateBookRequest) (book.Book, error)
	Delete(ctx context.Context, id string) error
}

// BookLinker maintains the owner's back-reference after a create.
type BookLinker interface {
	AppendBook(ctx context.Context, userID, bookID string) error
}

type Enricher interface {
	Enrich(ctx context.Context, key string) (catalog.Metadata, error)
}

type BooksHandler struct {
	repo     BooksRepository
	users    BookLinker
	enricher Enricher
	log      *slog.Logger
}

func NewBooksHandler(repo BooksRepository, users BookLinker, enricher Enricher, log *slog.Logger) *BooksHandler {
	return &BooksHandler{
		repo:     repo,
		users:    users,
		enricher: enricher,
		log:      log,
	}
}

func (h *BooksHandler) ListBooks(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	books, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "could not list books")

		return
	}

	ctx.JSON(http.StatusOK, books)
}

func (h *BooksHandler) GetBookByID(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	b, err := h.repo.GetByID(cctx, id)

	if err != nil {
		switch {
		case errors.Is(err, book.ErrMalformedID):
			RespondBadRequest(ctx, "malformed id", nil)
		case errors.Is(err, book.ErrNotFound):
			RespondNotFound(ctx)
		default:
			RespondInternal(ctx, "could not fetch book")
		}
		return
	}

	ctx.JSON(http.StatusOK, b)
}

// CreateBook runs the enrichment workflow: the caller supplies a
// catalog key and personal info, the catalog supplies everything else.
// Enrichment either fully succeeds or the create fails; no partially
// enriched record is persisted.
func (h *BooksHandler) CreateBook(ctx *gin.Context) {
	var req book.CreateBookRequest

	if !BindJSON(ctx, &req) {
		return
	}

	ownerID, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "missing authenticated user")
		return
	}

	// two catalog round-trips can be slow; give them room
	cctx, cancel := config.WithTimeout(15 * time.Second)
	defer cancel()

	meta, err := h.enricher.Enrich(cctx, req.Key)

	if err != nil {
		RespondBadRequest(ctx, "book or author info not present", nil)
		return
	}

	info := &book.BookInfo{
		Title:       meta.Title,
		Description: meta.Description,
		CoverKey:    req.CoverKey,
		Author: book.AuthorInfo{
			Key:  meta.Author.Key,
			Name: meta.Author.Name,
			Bio:  meta.Author.Bio,
		},
	}

	created, err := h.repo.Create(cctx, ownerID, req.Key, info, book.NewUserInfo(req.UserInfo))

	if err != nil {
		RespondInternal(ctx, "could not create book")
		return
	}

	// Second, independent write; a failure here leaves the book without
	// a back-reference on the owner.
	if err := h.users.AppendBook(cctx, ownerID, created.ID); err != nil {
		h.log.Error("book created but back-reference failed", "book_id", created.ID, "user_id", ownerID, "err", err)
		RespondInternal(ctx, "could not link book to user")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *BooksHandler) UpdateBook(ctx *gin.Context) {
	var req book.UpdateBookRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.repo.Update(cctx, ctx.Param("id"), req)

	if err != nil {
		switch {
		case errors.Is(err, book.ErrMalformedID):
			RespondBadRequest(ctx, "malformed id", nil)
		case errors.Is(err, book.ErrNotFound):
			RespondNotFound(ctx)
		case errors.Is(err, book.ErrKeyMismatch):
			RespondBadRequest(ctx, "key does not match existing book", nil)
		case errors.Is(err, book.ErrMissingUserInfo):
			RespondBadRequest(ctx, "userInfo is required", nil)
		default:
			RespondInternal(ctx, "could not update book")
		}
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *BooksHandler) DeleteBook(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, ctx.Param("id"))

	if err != nil {
		if errors.Is(err, book.ErrMalformedID) {
			RespondBadRequest(ctx, "malformed id", nil)
			return
		}

		RespondInternal(ctx, "could not delete book")
		return
	}

	ctx.Status(http.StatusNoContent)
}
