package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound means the JTI has no live session: never issued, expired,
// or already revoked. Callers treat all three the same.
var ErrNotFound = errors.New("refresh session not found")

// Store keeps refresh-token sessions in Redis, keyed by JTI with a TTL
// equal to the token's remaining life. Only the HMAC hash of the raw
// token is stored.
type Store struct {
	rdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Store{rdb: rdb}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

type Record struct {
	UserID    string `json:"userId"`
	TokenHash string `json:"tokenHash"`
}

func sessionKey(jti string) string {
	return "refresh:" + jti
}

func (s *Store) Save(ctx context.Context, jti string, rec Record, ttl time.Duration) error {
	payload, err := json.Marshal(rec)

	if err != nil {
		return err
	}

	return s.rdb.Set(ctx, sessionKey(jti), payload, ttl).Err()
}

func (s *Store) Get(ctx context.Context, jti string) (Record, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(jti)).Bytes()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}

		return Record{}, err
	}

	var rec Record

	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session record: %w", err)
	}

	return rec, nil
}

func (s *Store) Revoke(ctx context.Context, jti string) error {
	return s.rdb.Del(ctx, sessionKey(jti)).Err()
}

// Rotate atomically revokes the presented session and stores its
// successor, so a replayed old token cannot race a fresh one in.
func (s *Store) Rotate(ctx context.Context, oldJTI, newJTI string, rec Record, ttl time.Duration) error {
	payload, err := json.Marshal(rec)

	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(oldJTI))
	pipe.Set(ctx, sessionKey(newJTI), payload, ttl)

	_, err = pipe.Exec(ctx)

	return err
}
