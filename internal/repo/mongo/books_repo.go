package mongo

import (
	"context"

	"github.com/tcbarzyk/reading-list-backend/internal/domain/book"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type BooksRepo struct {
	store *Store
}

func NewBooksRepo(store *Store) *BooksRepo {
	return &BooksRepo{store: store}
}

type bookDoc struct {
	ID       bson.ObjectID `bson:"_id"`
	Key      string        `bson:"key"`
	BookInfo *bookInfoDoc  `bson:"bookInfo,omitempty"`
	UserInfo userInfoDoc   `bson:"userInfo"`
	User     bson.ObjectID `bson:"user,omitempty"`
}

type bookInfoDoc struct {
	Title       string        `bson:"title"`
	Description string        `bson:"description"`
	CoverKey    string        `bson:"coverKey,omitempty"`
	Author      authorInfoDoc `bson:"author"`
}

type authorInfoDoc struct {
	Key  string `bson:"key"`
	Name string `bson:"name"`
	Bio  string `bson:"bio"`
}

type userInfoDoc struct {
	Notes  string `bson:"notes"`
	Status string `bson:"status"`
}

func (d bookDoc) toDomain() book.Book {
	b := book.Book{
		ID:       d.ID.Hex(),
		Key:      d.Key,
		UserInfo: book.UserInfo(d.UserInfo),
	}

	if d.BookInfo != nil {
		b.BookInfo = &book.BookInfo{
			Title:       d.BookInfo.Title,
			Description: d.BookInfo.Description,
			CoverKey:    d.BookInfo.CoverKey,
			Author:      book.AuthorInfo(d.BookInfo.Author),
		}
	}

	if !d.User.IsZero() {
		b.User = d.User.Hex()
	}

	return b
}

func infoDocFrom(info *book.BookInfo) *bookInfoDoc {
	if info == nil {
		return nil
	}

	return &bookInfoDoc{
		Title:       info.Title,
		Description: info.Description,
		CoverKey:    info.CoverKey,
		Author:      authorInfoDoc(info.Author),
	}
}

func (r *BooksRepo) List(ctx context.Context) ([]book.Book, error) {
	books := []book.Book{}

	err := r.store.observe("books.list", func() error {
		cursor, err := r.store.col(ColBooks).Find(ctx, bson.D{})

		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc bookDoc

			if err := cursor.Decode(&doc); err != nil {
				return err
			}

			books = append(books, doc.toDomain())
		}

		return cursor.Err()
	})

	if err != nil {
		return nil, err
	}

	return books, nil
}

func (r *BooksRepo) GetByID(ctx context.Context, id string) (book.Book, error) {
	oid, err := parseObjectID(id, book.ErrMalformedID)

	if err != nil {
		return book.Book{}, err
	}

	var doc bookDoc

	err = r.store.observe("books.get", func() error {
		return r.store.col(ColBooks).FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	})

	if err != nil {
		if isNoDocuments(err) {
			return book.Book{}, book.ErrNotFound
		}

		return book.Book{}, err
	}

	return doc.toDomain(), nil
}

// GetByIDs resolves a user's back-references to book records, keeping
// the order of the ids given. Dangling references are skipped, since
// delete does not prune the owner's list.
func (r *BooksRepo) GetByIDs(ctx context.Context, ids []string) ([]book.Book, error) {
	oids := make([]bson.ObjectID, 0, len(ids))

	for _, id := range ids {
		oid, err := parseObjectID(id, book.ErrMalformedID)

		if err != nil {
			return nil, err
		}

		oids = append(oids, oid)
	}

	found := make(map[string]book.Book, len(ids))

	err := r.store.observe("books.get_many", func() error {
		cursor, err := r.store.col(ColBooks).Find(ctx, bson.D{
			{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}},
		})

		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc bookDoc

			if err := cursor.Decode(&doc); err != nil {
				return err
			}

			found[doc.ID.Hex()] = doc.toDomain()
		}

		return cursor.Err()
	})

	if err != nil {
		return nil, err
	}

	books := make([]book.Book, 0, len(ids))

	for _, id := range ids {
		if b, ok := found[id]; ok {
			books = append(books, b)
		}
	}

	return books, nil
}

// Create inserts a fully built book record. The owner back-reference is
// a separate write handled by UsersRepo.AppendBook; the two are not
// atomic.
func (r *BooksRepo) Create(ctx context.Context, ownerID, key string, info *book.BookInfo, userInfo book.UserInfo) (book.Book, error) {
	owner, err := parseObjectID(ownerID, book.ErrMalformedID)

	if err != nil {
		return book.Book{}, err
	}

	doc := bookDoc{
		ID:       bson.NewObjectID(),
		Key:      key,
		BookInfo: infoDocFrom(info),
		UserInfo: userInfoDoc(userInfo),
		User:     owner,
	}

	err = r.store.observe("books.create", func() error {
		_, err := r.store.col(ColBooks).InsertOne(ctx, doc)
		return err
	})

	if err != nil {
		return book.Book{}, err
	}

	return doc.toDomain(), nil
}

// Update merges an update payload into an existing record. The key is
// immutable (omitting it or resubmitting the same value are the same
// branch), userInfo is required, its fields fall back per-field to the
// stored values, and bookInfo always carries forward unchanged.
func (r *BooksRepo) Update(ctx context.Context, id string, req book.UpdateBookRequest) (book.Book, error) {
	oid, err := parseObjectID(id, book.ErrMalformedID)

	if err != nil {
		return book.Book{}, err
	}

	var existing bookDoc

	err = r.store.observe("books.get", func() error {
		return r.store.col(ColBooks).FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&existing)
	})

	if err != nil {
		if isNoDocuments(err) {
			return book.Book{}, book.ErrNotFound
		}

		return book.Book{}, err
	}

	if req.Key != "" && req.Key != existing.Key {
		return book.Book{}, book.ErrKeyMismatch
	}

	if req.UserInfo == nil {
		return book.Book{}, book.ErrMissingUserInfo
	}

	merged := book.MergeUserInfo(book.UserInfo(existing.UserInfo), req.UserInfo)

	existing.UserInfo = userInfoDoc(merged)

	err = r.store.observe("books.update", func() error {
		_, err := r.store.col(ColBooks).ReplaceOne(ctx, bson.D{{Key: "_id", Value: oid}}, existing)
		return err
	})

	if err != nil {
		return book.Book{}, err
	}

	return existing.toDomain(), nil
}

// Delete removes a book if it exists. A miss is not an error; callers
// respond identically either way. The owner's books list is left alone.
func (r *BooksRepo) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id, book.ErrMalformedID)

	if err != nil {
		return err
	}

	return r.store.observe("books.delete", func() error {
		_, err := r.store.col(ColBooks).DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
		return err
	})
}
