package services

import (
	"context"

	"setoran-pa/internal/core/domain"
)

// Note: SessionService implementation is in session_service.go
// Note: DepositService implementation is in deposit_service.go

// AuthClient performs the OAuth2 grants against the identity provider
type AuthClient interface {
	PasswordGrant(ctx context.Context, username, password string) (domain.Credentials, error)
	RefreshGrant(ctx context.Context, refreshToken string) (domain.Credentials, error)
}

// ResourceClient performs authenticated calls against the deposit backend.
// An expired or rejected access token surfaces as domain.ErrUnauthorized.
type ResourceClient interface {
	Roster(ctx context.Context, accessToken string) (domain.Roster, error)
	Detail(ctx context.Context, accessToken, nim string) (domain.StudentDetail, error)
	Submit(ctx context.Context, accessToken, nim string, items []domain.SubmitItem) (domain.Ack, error)
	Cancel(ctx context.Context, accessToken, nim string, item domain.CancelItem) (domain.Ack, error)
}
