package repositories

import (
	"context"
	"errors"

	"setoran-pa/internal/core/domain"
)

// ErrPartialCredentials is returned when asked to save an incomplete token triple
var ErrPartialCredentials = errors.New("credentials must carry access, refresh and id tokens")

// TokenStore persists the credential triple.
// Get returns domain.ErrNoCredentials when nothing is stored.
type TokenStore interface {
	Get(ctx context.Context) (domain.Credentials, error)
	Save(ctx context.Context, creds domain.Credentials) error
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
}
