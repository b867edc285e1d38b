package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Refund statuses
const (
	RefundPending       = "pending"
	RefundPendingReview = "pending_review"
	RefundProcessing    = "processing"
	RefundCompleted     = "completed"
	RefundFailed        = "failed"
)

// ActiveRefundStatuses are the states that count against the
// one-live-refund-per-payment rule
var ActiveRefundStatuses = []string{RefundPending, RefundProcessing, RefundCompleted}

type PaymentRefund struct {
	gorm.Model
	PaymentID uint    `gorm:"index;not null"`
	Payment   Payment `gorm:"foreignKey:PaymentID"`
	UserID    uint    `gorm:"index;not null"`
	Reference string `gorm:"unique;not null"`
	Amount    float64
	Reason    string `gorm:"default:''"`
	Status    string `gorm:"default:'pending';index"`

	GatewayReference string         `gorm:"default:''"`
	GatewayResp      datatypes.JSON `gorm:"column:gateway_response"`

	ProcessedAt   *time.Time
	CompletedAt   *time.Time
	FailureReason string `gorm:"default:''"`
}

// IsProcessable reports whether an operator may still push this refund
// through the gateway
func (r *PaymentRefund) IsProcessable() bool {
	return r.Status == RefundPending || r.Status == RefundPendingReview
}
