package models

import (
	"time"

	"gorm.io/gorm"
)

// LoginAttempt keeps an audit row for every login attempt, successful or not.
// The email is stored even when no matching user exists.
type LoginAttempt struct {
	gorm.Model
	UserID        *uint  `gorm:"index"`
	Email         string `gorm:"index;not null"`
	IPAddress     string `gorm:"default:''"`
	UserAgent     string `gorm:"default:''"`
	Success       bool
	FailureReason string `gorm:"default:''"`
}

// UserSession records a device session created at login
type UserSession struct {
	gorm.Model
	UserID            uint   `gorm:"index;not null"`
	SessionToken      string `gorm:"unique;not null"`
	IPAddress         string `gorm:"default:''"`
	UserAgent         string `gorm:"default:''"`
	DeviceFingerprint string `gorm:"index;default:''"`
	Location          string `gorm:"default:''"` // City, Country
	IsNewDevice       bool   `gorm:"default:false"`
	LastActivity      time.Time
	IsActive          bool `gorm:"default:true;index"`
}
