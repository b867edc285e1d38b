package models

import (
	"time"

	"gorm.io/gorm"
)

// EmailVerificationToken is a single-use token emailed at registration
type EmailVerificationToken struct {
	gorm.Model
	UserID    uint   `gorm:"index;not null"`
	Token     string `gorm:"unique;not null"`
	ExpiresAt time.Time
	IsUsed    bool `gorm:"default:false"`
}

func (t *EmailVerificationToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *EmailVerificationToken) IsValid() bool {
	return !t.IsUsed && !t.IsExpired()
}

// PasswordResetToken is a single-use token emailed on forgot-password
type PasswordResetToken struct {
	gorm.Model
	UserID    uint   `gorm:"index;not null"`
	Token     string `gorm:"unique;not null"`
	ExpiresAt time.Time
	IsUsed    bool `gorm:"default:false"`
}

func (t *PasswordResetToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *PasswordResetToken) IsValid() bool {
	return !t.IsUsed && !t.IsExpired()
}

// RefreshToken is an opaque server-validated secret. It is rotated in place on
// refresh so the row keeps its audit linkage while the old value dies.
type RefreshToken struct {
	gorm.Model
	UserID        uint   `gorm:"index;not null"`
	Token         string `gorm:"unique;not null"`
	ExpiresAt     time.Time
	IsBlacklisted bool `gorm:"default:false;index"`

	// Device/session info captured at issue time
	IPAddress         string `gorm:"default:''"`
	UserAgent         string `gorm:"default:''"`
	DeviceFingerprint string `gorm:"default:''"`
}

func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

func (t *RefreshToken) IsValid() bool {
	return !t.IsBlacklisted && !t.IsExpired()
}
