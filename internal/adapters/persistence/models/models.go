package models

import (
	"time"

	"gorm.io/gorm"
)

// StoredCredential represents stored_credentials table.
// One row per profile; the three tokens are written together.
type StoredCredential struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Profile      string    `gorm:"uniqueIndex;size:64;not null" json:"profile"`
	AccessToken  string    `gorm:"type:text;not null" json:"-"`
	RefreshToken string    `gorm:"type:text;not null" json:"-"`
	IDToken      string    `gorm:"type:text;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StoredCredential) TableName() string {
	return "stored_credentials"
}

// AutoMigrate runs auto migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&StoredCredential{},
	)
}
