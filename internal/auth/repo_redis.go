package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voicebot/voicebot/internal/shared"
)

// accountRecord is the persisted form; unlike Account it keeps the hash.
type accountRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RedisRepository stores accounts in a single Redis hash keyed by email.
type RedisRepository struct {
	client *redis.Client
	key    string
}

// NewRedisRepository constructs a Redis backed repository.
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client, key: shared.AccountsHashKey}
}

// FindByEmail fetches an account by email.
func (r *RedisRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	raw, err := r.client.HGet(ctx, r.key, email).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	var rec accountRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &Account{
		ID:           rec.ID,
		Name:         rec.Name,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

// Create stores the account unless the email already exists.
func (r *RedisRepository) Create(ctx context.Context, acct *Account) error {
	raw, err := json.Marshal(accountRecord{
		ID:           acct.ID,
		Name:         acct.Name,
		Email:        acct.Email,
		PasswordHash: acct.PasswordHash,
		CreatedAt:    acct.CreatedAt,
	})
	if err != nil {
		return err
	}
	created, err := r.client.HSetNX(ctx, r.key, acct.Email, raw).Result()
	if err != nil {
		return err
	}
	if !created {
		return shared.ErrDuplicateEmail
	}
	return nil
}

var _ Repository = (*RedisRepository)(nil)
