package repositories

import (
	"context"

	"setoran-pa/internal/core/domain"

	"github.com/redis/go-redis/v9"
)

const (
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldIDToken      = "id_token"
)

// redisTokenStore keeps the triple in one hash per profile
type redisTokenStore struct {
	client *redis.Client
	key    string
}

// NewRedisTokenStore creates a token store under setoran:credentials:<profile>
func NewRedisTokenStore(client *redis.Client, profile string) TokenStore {
	return &redisTokenStore{client: client, key: "setoran:credentials:" + profile}
}

func (r *redisTokenStore) Get(ctx context.Context) (domain.Credentials, error) {
	values, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return domain.Credentials{}, err
	}
	creds := domain.Credentials{
		AccessToken:  values[fieldAccessToken],
		RefreshToken: values[fieldRefreshToken],
		IDToken:      values[fieldIDToken],
	}
	if !creds.Complete() {
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	return creds, nil
}

// Save replaces the hash inside MULTI/EXEC
func (r *redisTokenStore) Save(ctx context.Context, creds domain.Credentials) error {
	if !creds.Complete() {
		return ErrPartialCredentials
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key)
		pipe.HSet(ctx, r.key,
			fieldAccessToken, creds.AccessToken,
			fieldRefreshToken, creds.RefreshToken,
			fieldIDToken, creds.IDToken,
		)
		return nil
	})
	return err
}

func (r *redisTokenStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func (r *redisTokenStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
