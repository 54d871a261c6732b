package repositories

import (
	"context"

	"setoran-pa/internal/core/domain"
	"setoran-pa/internal/pkg/logger"
	"setoran-pa/internal/pkg/sealer"
)

// SealedTokenStore encrypts every token before it reaches the inner store
type SealedTokenStore struct {
	inner  TokenStore
	sealer *sealer.Sealer
}

// NewSealedTokenStore wraps inner with encryption at rest
func NewSealedTokenStore(inner TokenStore, s *sealer.Sealer) *SealedTokenStore {
	return &SealedTokenStore{inner: inner, sealer: s}
}

// Get decrypts the stored triple. Values that no longer decrypt (for
// example after a key change) read as absent so the user logs in again.
func (s *SealedTokenStore) Get(ctx context.Context) (domain.Credentials, error) {
	sealed, err := s.inner.Get(ctx)
	if err != nil {
		return domain.Credentials{}, err
	}

	var creds domain.Credentials
	fields := []struct {
		in  string
		out *string
	}{
		{sealed.AccessToken, &creds.AccessToken},
		{sealed.RefreshToken, &creds.RefreshToken},
		{sealed.IDToken, &creds.IDToken},
	}
	for _, f := range fields {
		plain, err := s.sealer.Open(f.in)
		if err != nil {
			logger.Log.WithError(err).Warn("⚠️ Stored credentials could not be decrypted, treating as logged out")
			return domain.Credentials{}, domain.ErrNoCredentials
		}
		*f.out = plain
	}
	return creds, nil
}

func (s *SealedTokenStore) Save(ctx context.Context, creds domain.Credentials) error {
	if !creds.Complete() {
		return ErrPartialCredentials
	}
	var sealed domain.Credentials
	var err error
	if sealed.AccessToken, err = s.sealer.Seal(creds.AccessToken); err != nil {
		return err
	}
	if sealed.RefreshToken, err = s.sealer.Seal(creds.RefreshToken); err != nil {
		return err
	}
	if sealed.IDToken, err = s.sealer.Seal(creds.IDToken); err != nil {
		return err
	}
	return s.inner.Save(ctx, sealed)
}

func (s *SealedTokenStore) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

func (s *SealedTokenStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}
