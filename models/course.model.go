package models

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment payment statuses
const (
	EnrollmentCompleted          = "completed"
	EnrollmentRefunded           = "refunded"
	EnrollmentRefundedWithAccess = "refunded_with_access"
)

type Course struct {
	gorm.Model
	Title       string  `gorm:"not null"`
	Description string  `gorm:"default:''"`
	Price       float64 `gorm:"default:0"`
	CreatedByID uint    `gorm:"index;not null"` // instructor
	IsActive    bool    `gorm:"default:true"`
}

// CourseEnrollment ties a paying user to a course. PaymentRef matches the
// payment reference so refunds can find the enrollment they cancel.
type CourseEnrollment struct {
	gorm.Model
	UserID        uint   `gorm:"index;not null"`
	CourseID      uint   `gorm:"index;not null"`
	PaymentRef    string `gorm:"index;default:''"`
	PaymentStatus string `gorm:"default:'completed'"` // completed, refunded, refunded_with_access
	AmountPaid    float64
	IsActive      bool `gorm:"default:true"`
	CancelledAt   *time.Time
}

// CourseProgress tracks completion percentage per user and course.
// Archived (IsActive=false) rather than deleted when an enrollment is cancelled.
type CourseProgress struct {
	gorm.Model
	UserID             uint    `gorm:"index;not null"`
	CourseID           uint    `gorm:"index;not null"`
	ProgressPercentage float64 `gorm:"default:0"` // 0-100
	CompletedAt        *time.Time
	IsActive           bool `gorm:"default:true"`
}
