package repositories

import (
	"context"
	"errors"

	"setoran-pa/internal/adapters/persistence/models"
	"setoran-pa/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// gormTokenStore implements TokenStore on the stored_credentials table
type gormTokenStore struct {
	db      *gorm.DB
	profile string
}

// NewGormTokenStore creates a token store keyed by profile
func NewGormTokenStore(db *gorm.DB, profile string) TokenStore {
	return &gormTokenStore{db: db, profile: profile}
}

// Get loads the credentials of the profile
func (r *gormTokenStore) Get(ctx context.Context) (domain.Credentials, error) {
	var row models.StoredCredential
	err := r.db.WithContext(ctx).
		Where("profile = ?", r.profile).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Credentials{}, domain.ErrNoCredentials
		}
		return domain.Credentials{}, err
	}

	creds := domain.Credentials{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		IDToken:      row.IDToken,
	}
	if !creds.Complete() {
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	return creds, nil
}

// Save upserts all three tokens in one statement
func (r *gormTokenStore) Save(ctx context.Context, creds domain.Credentials) error {
	if !creds.Complete() {
		return ErrPartialCredentials
	}

	row := &models.StoredCredential{
		Profile:      r.profile,
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		IDToken:      creds.IDToken,
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "id_token", "updated_at"}),
		}).Create(row).Error
	})
}

// Clear deletes the profile's row
func (r *gormTokenStore) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("profile = ?", r.profile).
		Delete(&models.StoredCredential{}).Error
}

// Ping checks the database connection
func (r *gormTokenStore) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
