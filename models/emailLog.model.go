package models

import (
	"gorm.io/gorm"
)

// Email types recorded in the delivery log
const (
	EmailVerification       = "verification"
	EmailPasswordReset      = "password_reset"
	EmailLoginAlert         = "login_alert"
	EmailNewDevice          = "new_device"
	EmailPasswordChanged    = "password_changed"
	EmailAccountLocked      = "account_locked"
	EmailDeletionRequested  = "account_deletion_requested"
	EmailDeletionCancelled  = "deletion_cancelled"
	EmailAccountDeleted     = "account_deleted"
	EmailDeletionReminder   = "deletion_reminder"
	EmailRefundRequested    = "refund_requested"
	EmailRefundReview       = "refund_review"
	EmailRefundCompleted    = "refund_completed"
	EmailInstructorPayout   = "instructor_payout"
	EmailBankAccountUpdated = "bank_account_updated"
)

// EmailLog is the per-message delivery record, kept for audit
type EmailLog struct {
	gorm.Model
	UserID         *uint  `gorm:"index"`
	EmailType      string `gorm:"index;not null"`
	RecipientEmail string `gorm:"not null"`
	Subject        string `gorm:"default:''"`
	Success        bool   `gorm:"default:true"`
	ErrorMessage   string `gorm:"default:''"`
}
