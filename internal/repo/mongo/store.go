package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/tcbarzyk/reading-list-backend/internal/observability"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	ColBooks = "books"
	ColUsers = "users"
)

// Store owns the MongoDB client and database handle. Repositories are
// constructed on top of it and share the same connection pool.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	metrics *observability.Prom
}

func NewStore(uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect failed: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo: ping failed: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(dbName),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("mongo: ensure indexes failed: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// WithMetrics enables per-operation store metrics. Optional; tests and
// tooling run without it.
func (s *Store) WithMetrics(m *observability.Prom) *Store {
	s.metrics = m
	return s
}

// observe times a logical store op. Misses and duplicate-key outcomes
// are domain results, not store failures, so they count as ok.
func (s *Store) observe(op string, fn func() error) error {
	if s.metrics == nil {
		return fn()
	}

	var opErr error

	_ = s.metrics.ObserveStore(op, func() error {
		opErr = fn()

		if isNoDocuments(opErr) || isDuplicateKey(opErr) {
			return nil
		}

		return opErr
	})

	return opErr
}

// ensureIndexes creates the unique indexes backing the username/email
// identity constraint.
func (s *Store) ensureIndexes(ctx context.Context) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := s.col(ColUsers).Indexes().CreateMany(ctx, userIndexes)

	if err != nil {
		return err
	}

	// book lookups by owner
	_, err = s.col(ColBooks).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}},
	})

	return err
}
