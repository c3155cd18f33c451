package mongo

import (
	"context"
	"time"

	"github.com/tcbarzyk/reading-list-backend/internal/domain/user"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type UsersRepo struct {
	store *Store
}

func NewUsersRepo(store *Store) *UsersRepo {
	return &UsersRepo{store: store}
}

type userDoc struct {
	ID           bson.ObjectID   `bson:"_id"`
	Username     string          `bson:"username"`
	Email        string          `bson:"email"`
	PasswordHash string          `bson:"passwordHash"`
	Books        []bson.ObjectID `bson:"books"`
	DateCreated  time.Time       `bson:"dateCreated"`
}

func (d userDoc) toDomain() user.User {
	return user.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Books:        hexIDs(d.Books),
		DateCreated:  d.DateCreated,
	}
}

// Create inserts a new user. The unique indexes on username and email
// back the identity constraint; either collision surfaces as
// ErrDuplicateIdentity.
func (r *UsersRepo) Create(ctx context.Context, username, email, passwordHash string) (user.User, error) {
	doc := userDoc{
		ID:           bson.NewObjectID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Books:        []bson.ObjectID{},
		DateCreated:  time.Now().UTC(),
	}

	err := r.store.observe("users.create", func() error {
		_, err := r.store.col(ColUsers).InsertOne(ctx, doc)
		return err
	})

	if err != nil {
		if isDuplicateKey(err) {
			return user.User{}, user.ErrDuplicateIdentity
		}

		return user.User{}, err
	}

	return doc.toDomain(), nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	oid, err := parseObjectID(id, user.ErrMalformedID)

	if err != nil {
		return user.User{}, err
	}

	var doc userDoc

	err = r.store.observe("users.get", func() error {
		return r.store.col(ColUsers).FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	})

	if err != nil {
		if isNoDocuments(err) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return doc.toDomain(), nil
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	var doc userDoc

	err := r.store.observe("users.get_by_username", func() error {
		return r.store.col(ColUsers).FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&doc)
	})

	if err != nil {
		if isNoDocuments(err) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return doc.toDomain(), nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	users := []user.User{}

	err := r.store.observe("users.list", func() error {
		cursor, err := r.store.col(ColUsers).Find(ctx, bson.D{})

		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc userDoc

			if err := cursor.Decode(&doc); err != nil {
				return err
			}

			users = append(users, doc.toDomain())
		}

		return cursor.Err()
	})

	if err != nil {
		return nil, err
	}

	return users, nil
}

// AppendBook records the back-reference to a newly created book on the
// owning user. Insertion order is creation order.
func (r *UsersRepo) AppendBook(ctx context.Context, userID, bookID string) error {
	owner, err := parseObjectID(userID, user.ErrMalformedID)

	if err != nil {
		return err
	}

	bookOID, err := parseObjectID(bookID, user.ErrMalformedID)

	if err != nil {
		return err
	}

	return r.store.observe("users.append_book", func() error {
		res, err := r.store.col(ColUsers).UpdateOne(ctx,
			bson.D{{Key: "_id", Value: owner}},
			bson.D{{Key: "$push", Value: bson.D{{Key: "books", Value: bookOID}}}},
		)

		if err != nil {
			return err
		}

		if res.MatchedCount == 0 {
			return user.ErrNotFound
		}

		return nil
	})
}
