package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleUser       = "user"
	RoleAdmin      = "admin" // course creator / instructor
	RoleSuperAdmin = "super_admin"
)

type User struct {
	gorm.Model
	FullName        string `gorm:"default:''"`
	Email           string `gorm:"unique;not null"`
	Password        string `gorm:"not null"`
	PhoneNumber     string `gorm:"default:''"`
	Role            string `gorm:"default:'user'"` // user, admin, super_admin
	Timezone        string `gorm:"default:'UTC'"`
	IsActive        bool   `gorm:"default:true"`
	IsEmailVerified bool   `gorm:"default:false"`

	LastLogin         *time.Time
	LastActivity      *time.Time
	PasswordChangedAt *time.Time

	// Security
	FailedLoginAttempts int `gorm:"default:0"`
	AccountLockedAt     *time.Time
	AccountLockedUntil  *time.Time

	// Account deletion (grace-period scheduling)
	DeletionRequestedAt  *time.Time
	DeletionScheduledFor *time.Time
	IsDeletionPending    bool `gorm:"default:false"`

	// Two factor authentication
	TwoFactorEnabled        bool           `gorm:"default:false"`
	TwoFactorSecret         string         `gorm:"default:''"`
	TwoFactorSecretIssuedAt *time.Time     // set when setup starts, cleared once confirmed
	BackupCodes             datatypes.JSON // SHA-256 hashes, one per unused code
}

// IsAccountLocked reports whether the lockout window is still open
func (u *User) IsAccountLocked() bool {
	if u.AccountLockedUntil != nil {
		return time.Now().Before(*u.AccountLockedUntil)
	}
	return false
}

// LockAccount locks the account for the given duration
func (u *User) LockAccount(db *gorm.DB, duration time.Duration) error {
	now := time.Now()
	until := now.Add(duration)
	u.AccountLockedAt = &now
	u.AccountLockedUntil = &until
	return db.Model(u).Updates(map[string]interface{}{
		"account_locked_at":    u.AccountLockedAt,
		"account_locked_until": u.AccountLockedUntil,
	}).Error
}

// UnlockAccount clears the lockout and the failed attempt counter
func (u *User) UnlockAccount(db *gorm.DB) error {
	u.FailedLoginAttempts = 0
	u.AccountLockedUntil = nil
	return db.Model(u).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"account_locked_until":  nil,
	}).Error
}

// ResetFailedAttempts zeroes the failed login counter
func (u *User) ResetFailedAttempts(db *gorm.DB) error {
	u.FailedLoginAttempts = 0
	return db.Model(u).Update("failed_login_attempts", 0).Error
}

// RequestDeletion schedules the account for deletion after a grace period
func (u *User) RequestDeletion(db *gorm.DB, graceDays int) error {
	now := time.Now()
	scheduled := now.AddDate(0, 0, graceDays)
	u.DeletionRequestedAt = &now
	u.DeletionScheduledFor = &scheduled
	u.IsDeletionPending = true
	return db.Model(u).Updates(map[string]interface{}{
		"deletion_requested_at":  u.DeletionRequestedAt,
		"deletion_scheduled_for": u.DeletionScheduledFor,
		"is_deletion_pending":    true,
	}).Error
}

// CancelDeletion clears a pending deletion and reactivates the account
func (u *User) CancelDeletion(db *gorm.DB) error {
	u.DeletionRequestedAt = nil
	u.DeletionScheduledFor = nil
	u.IsDeletionPending = false
	u.IsActive = true
	return db.Model(u).Updates(map[string]interface{}{
		"deletion_requested_at":  nil,
		"deletion_scheduled_for": nil,
		"is_deletion_pending":    false,
		"is_active":              true,
	}).Error
}
