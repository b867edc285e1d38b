package services

import (
	"fmt"
	"log"
	"time"

	"github.com/jinzhu/now"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lms/gateways"
	"lms/models"
	"lms/utils"
)

// Revenue split between instructor and platform
const (
	InstructorShareRate = 0.70
	PlatformFeeRate     = 0.30
)

// AutoProcessPayoutLimit is the largest payout the monthly job sends
// without an operator touching it
const AutoProcessPayoutLimit = 10000.00

// EarningsBreakdown is a computed earnings statement for one instructor
// over one period
type EarningsBreakdown struct {
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	TotalRevenue    float64   `json:"total_revenue"`
	InstructorShare float64   `json:"instructor_share"`
	PlatformFee     float64   `json:"platform_fee"`
	GatewayFees     float64   `json:"gateway_fees"`
	NetPayout       float64   `json:"net_payout"`
	SalesCount      int64     `json:"sales_count"`
}

// BulkItemResult reports the outcome for one payout within a bulk run
type BulkItemResult struct {
	PayoutID uint   `json:"payout_id"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// BulkSummary aggregates a bulk run
type BulkSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// PayoutEngine owns instructor earnings calculation and payout processing
type PayoutEngine struct {
	DB       *gorm.DB
	Gateways *gateways.Registry
	Mail     *utils.EmailService
}

func NewPayoutEngine(db *gorm.DB, registry *gateways.Registry, mail *utils.EmailService) *PayoutEngine {
	return &PayoutEngine{DB: db, Gateways: registry, Mail: mail}
}

// CalculateEarnings sums completed, unrefunded course sales for the
// instructor's courses within the period and applies the revenue split
func (e *PayoutEngine) CalculateEarnings(instructorID uint, periodStart, periodEnd time.Time) (*EarningsBreakdown, error) {
	type row struct {
		TotalRevenue float64
		GatewayFees  float64
		SalesCount   int64
	}
	var r row

	err := e.DB.Model(&models.Payment{}).
		Select("COALESCE(SUM(payments.amount), 0) AS total_revenue, COALESCE(SUM(payments.gateway_fee), 0) AS gateway_fees, COUNT(*) AS sales_count").
		Joins("JOIN courses ON courses.id = payments.course_id").
		Where("courses.created_by_id = ?", instructorID).
		Where("payments.status = ?", models.PaymentCompleted).
		Where("payments.paid_at >= ? AND payments.paid_at < ?", periodStart, periodEnd).
		Where("payments.id NOT IN (?)", e.DB.Model(&models.PaymentRefund{}).
			Select("payment_id").
			Where("status = ?", models.RefundCompleted)).
		Scan(&r).Error
	if err != nil {
		return nil, err
	}

	breakdown := &EarningsBreakdown{
		PeriodStart:     periodStart,
		PeriodEnd:       periodEnd,
		TotalRevenue:    r.TotalRevenue,
		InstructorShare: r.TotalRevenue * InstructorShareRate,
		PlatformFee:     r.TotalRevenue * PlatformFeeRate,
		GatewayFees:     r.GatewayFees,
		SalesCount:      r.SalesCount,
	}
	breakdown.NetPayout = breakdown.InstructorShare - breakdown.GatewayFees
	if breakdown.NetPayout < 0 {
		breakdown.NetPayout = 0
	}
	return breakdown, nil
}

// CreateMonthlyPayouts builds payout records for every instructor with
// sales in the previous calendar month. Instructors who already have a
// payout for the period, or whose net is not positive, are skipped. Small
// payouts are processed immediately.
func (e *PayoutEngine) CreateMonthlyPayouts() (created int, processed int, err error) {
	lastMonth := now.With(time.Now().AddDate(0, -1, 0))
	periodStart := lastMonth.BeginningOfMonth()
	periodEnd := lastMonth.EndOfMonth().Add(time.Nanosecond)

	var instructorIDs []uint
	err = e.DB.Model(&models.Payment{}).
		Distinct("courses.created_by_id").
		Joins("JOIN courses ON courses.id = payments.course_id").
		Where("payments.status = ?", models.PaymentCompleted).
		Where("payments.paid_at >= ? AND payments.paid_at < ?", periodStart, periodEnd).
		Pluck("courses.created_by_id", &instructorIDs).Error
	if err != nil {
		return 0, 0, err
	}

	for _, instructorID := range instructorIDs {
		var existing int64
		e.DB.Model(&models.InstructorPayout{}).
			Where("instructor_id = ? AND period_start = ?", instructorID, periodStart).
			Count(&existing)
		if existing > 0 {
			continue
		}

		breakdown, err := e.CalculateEarnings(instructorID, periodStart, periodEnd)
		if err != nil {
			log.Printf("[PAYOUT] earnings calculation failed for instructor %d: %v", instructorID, err)
			continue
		}
		if breakdown.NetPayout <= 0 {
			continue
		}

		payout := models.InstructorPayout{
			InstructorID:    instructorID,
			PeriodStart:     periodStart,
			PeriodEnd:       periodEnd,
			TotalRevenue:    breakdown.TotalRevenue,
			InstructorShare: breakdown.InstructorShare,
			PlatformFee:     breakdown.PlatformFee,
			GatewayFees:     breakdown.GatewayFees,
			NetPayout:       breakdown.NetPayout,
			Status:          models.PayoutPending,
		}
		if err := e.DB.Create(&payout).Error; err != nil {
			log.Printf("[PAYOUT] could not create payout for instructor %d: %v", instructorID, err)
			continue
		}
		created++

		if payout.NetPayout <= AutoProcessPayoutLimit {
			if result := e.ProcessPayout(payout.ID); result.Success {
				e.DB.Model(&payout).Update("is_auto_processed", true)
				processed++
			}
		}
	}

	log.Printf("[PAYOUT] monthly run: %d created, %d auto-processed", created, processed)
	return created, processed, nil
}

// ProcessPayout pushes a pending payout to the instructor's bank through
// the gateway that verified the account
func (e *PayoutEngine) ProcessPayout(payoutID uint) (result Result) {
	var payout models.InstructorPayout
	if err := e.DB.First(&payout, payoutID).Error; err != nil {
		return Fail("Payout not found")
	}

	if payout.Status != models.PayoutPending {
		return Fail(fmt.Sprintf("Payout is not processable in status %s", payout.Status))
	}
	if !payout.IsEligibleForPayout() {
		return Fail(fmt.Sprintf("Payout is below the %.2f minimum", models.MinimumPayoutAmount))
	}

	var account models.InstructorBankAccount
	if err := e.DB.Where("instructor_id = ?", payout.InstructorID).First(&account).Error; err != nil {
		return Fail("Instructor has no bank account on file")
	}
	if !account.IsVerified {
		return Fail("Instructor bank account is not verified")
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PAYOUT] panic while processing payout %d: %v", payout.ID, r)
			e.markFailed(&payout, fmt.Sprintf("internal error: %v", r))
			result = Fail("Payout processing failed")
		}
	}()

	if err := e.DB.Model(&payout).Update("status", models.PayoutProcessing).Error; err != nil {
		return Fail("Could not update payout status")
	}

	gateway, err := e.Gateways.Get(account.VerificationProvider)
	if err != nil {
		e.markFailed(&payout, err.Error())
		return Fail(err.Error())
	}

	narration := fmt.Sprintf("Instructor payout %s to %s",
		payout.PeriodStart.Format("Jan 2006"), account.AccountName)
	gwResult, err := gateway.InitiateTransfer(&account, payout.NetPayout, narration)
	if err != nil {
		e.markFailed(&payout, err.Error())
		return Fail("Gateway transfer failed")
	}
	if !gwResult.Success {
		e.markFailed(&payout, gwResult.Message)
		return Fail("Gateway declined the transfer")
	}

	updates := map[string]interface{}{
		"status":            models.PayoutCompleted,
		"processed_at":      time.Now(),
		"gateway_reference": gwResult.Reference,
	}
	if len(gwResult.RawResponse) > 0 {
		updates["gateway_response"] = datatypes.JSON(gwResult.RawResponse)
	}
	if err := e.DB.Model(&payout).Updates(updates).Error; err != nil {
		log.Printf("[PAYOUT] transfer succeeded but status update failed for %d: %v", payout.ID, err)
		return Fail("Transfer sent but could not be recorded")
	}

	var instructor models.User
	if err := e.DB.First(&instructor, payout.InstructorID).Error; err == nil {
		go e.Mail.SendPayoutEmail(&instructor, &payout)
	}

	log.Printf("[PAYOUT] completed payout %d amount %.2f via %s", payout.ID, payout.NetPayout, gateway.Name())
	return Ok("Payout processed successfully")
}

// BulkProcess runs a batch of payouts and reports per-item outcomes plus a
// summary. One failure never aborts the rest of the batch.
func (e *PayoutEngine) BulkProcess(payoutIDs []uint) ([]BulkItemResult, BulkSummary) {
	results := make([]BulkItemResult, 0, len(payoutIDs))
	summary := BulkSummary{Total: len(payoutIDs)}

	for _, id := range payoutIDs {
		result := e.ProcessPayout(id)
		results = append(results, BulkItemResult{
			PayoutID: id,
			Success:  result.Success,
			Message:  result.Message,
		})
		if result.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}
	return results, summary
}

func (e *PayoutEngine) markFailed(payout *models.InstructorPayout, reason string) {
	if err := e.DB.Model(payout).Updates(map[string]interface{}{
		"status":         models.PayoutFailed,
		"failure_reason": reason,
	}).Error; err != nil {
		log.Printf("[PAYOUT] could not mark payout %d as failed: %v", payout.ID, err)
	}
}
