package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment statuses
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// RefundWindowDays is how long after payment a refund may still be requested
const RefundWindowDays = 30

type Payment struct {
	gorm.Model
	Reference        string `gorm:"unique;not null;index"`
	GatewayName      string `gorm:"not null"` // paystack, flutterwave
	GatewayReference string `gorm:"default:''"`

	UserID   uint `gorm:"index;not null"`
	CourseID uint `gorm:"index;not null"`

	Amount      float64 `gorm:"not null"`
	Currency    string  `gorm:"default:'NGN'"`
	GatewayFee  float64 `gorm:"default:0"`
	PlatformFee float64 `gorm:"default:0"`
	NetAmount   float64 `gorm:"default:0"`

	Status        string `gorm:"default:'pending';index"`
	PaymentMethod string `gorm:"default:''"`

	PaidAt        *time.Time
	FailedAt      *time.Time
	FailureReason string         `gorm:"default:''"`
	GatewayResp   datatypes.JSON `gorm:"column:gateway_response"`

	IPAddress string `gorm:"default:''"`
	UserAgent string `gorm:"default:''"`
}

// MarkAsPaid transitions the payment to completed
func (p *Payment) MarkAsPaid(db *gorm.DB) error {
	now := time.Now()
	p.Status = PaymentCompleted
	p.PaidAt = &now
	return db.Model(p).Updates(map[string]interface{}{
		"status":  PaymentCompleted,
		"paid_at": p.PaidAt,
	}).Error
}

// MarkAsFailed transitions the payment to failed with a reason
func (p *Payment) MarkAsFailed(db *gorm.DB, reason string) error {
	now := time.Now()
	p.Status = PaymentFailed
	p.FailedAt = &now
	p.FailureReason = reason
	return db.Model(p).Updates(map[string]interface{}{
		"status":         PaymentFailed,
		"failed_at":      p.FailedAt,
		"failure_reason": reason,
	}).Error
}

// IsRefundable checks the refund entry conditions: the payment completed,
// it is still inside the refund window, and no completed refund exists yet.
func (p *Payment) IsRefundable(db *gorm.DB) bool {
	if p.Status != PaymentCompleted || p.PaidAt == nil {
		return false
	}

	if time.Since(*p.PaidAt) > RefundWindowDays*24*time.Hour {
		return false
	}

	var count int64
	db.Model(&PaymentRefund{}).
		Where("payment_id = ? AND status = ?", p.ID, RefundCompleted).
		Count(&count)

	return count == 0
}
