package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payout statuses
const (
	PayoutPending    = "pending"
	PayoutProcessing = "processing"
	PayoutCompleted  = "completed"
	PayoutFailed     = "failed"
)

// MinimumPayoutAmount is the business floor below which a payout is not
// eligible for processing
const MinimumPayoutAmount = 1000.00

// MaxVerificationAttempts caps self-service bank verification retries
const MaxVerificationAttempts = 3

type InstructorPayout struct {
	gorm.Model
	InstructorID uint      `gorm:"index;not null"`
	PeriodStart  time.Time `gorm:"not null"`
	PeriodEnd    time.Time `gorm:"not null"`

	// Earnings breakdown, computed once at creation
	TotalRevenue    float64 `gorm:"default:0"`
	InstructorShare float64 `gorm:"default:0"` // 70%
	PlatformFee     float64 `gorm:"default:0"` // 30%
	GatewayFees     float64 `gorm:"default:0"`
	NetPayout       float64 `gorm:"default:0"`

	Status          string `gorm:"default:'pending';index"`
	PayoutMethod    string `gorm:"default:'bank_transfer'"`
	IsAutoProcessed bool   `gorm:"default:false"`

	ProcessedAt      *time.Time
	GatewayReference string         `gorm:"default:''"`
	GatewayResp      datatypes.JSON `gorm:"column:gateway_response"`
	FailureReason    string         `gorm:"default:''"`
}

// IsEligibleForPayout checks the minimum-amount requirement
func (p *InstructorPayout) IsEligibleForPayout() bool {
	return p.NetPayout >= MinimumPayoutAmount
}

type InstructorBankAccount struct {
	gorm.Model
	InstructorID uint `gorm:"uniqueIndex;not null"`

	BankName      string `gorm:"not null"`
	AccountNumber string `gorm:"not null"` // 10 digits
	AccountName   string `gorm:"not null"`
	BankCode      string `gorm:"not null"`

	RecipientCode string `gorm:"default:''"` // transfer recipient handle on the gateway

	IsVerified              bool `gorm:"default:false"`
	VerifiedAt              *time.Time
	VerifiedAccountName     string `gorm:"default:''"`
	VerificationProvider    string `gorm:"default:''"` // paystack or flutterwave
	VerificationAttempts    int    `gorm:"default:0"`
	LastVerificationAttempt *time.Time
	VerificationError       string `gorm:"default:''"`

	AutoPayoutEnabled bool `gorm:"default:false"`
}

// CanRetryVerification reports whether self-service verification is still allowed
func (a *InstructorBankAccount) CanRetryVerification() bool {
	return a.VerificationAttempts < MaxVerificationAttempts
}
