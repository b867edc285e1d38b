package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lms/gateways"
	"lms/models"
	"lms/utils"
)

// AutoProcessRefundLimit is the largest payment amount whose refunds are
// processed without manual review
const AutoProcessRefundLimit = 50000.00

// ProgressKeepAccessThreshold decides whether a refunded student keeps
// course access
const ProgressKeepAccessThreshold = 20.0

// RefundEngine owns the refund lifecycle. It is constructed once at startup
// with its gateway registry and mailer.
type RefundEngine struct {
	DB       *gorm.DB
	Gateways *gateways.Registry
	Mail     *utils.EmailService
}

func NewRefundEngine(db *gorm.DB, registry *gateways.Registry, mail *utils.EmailService) *RefundEngine {
	return &RefundEngine{DB: db, Gateways: registry, Mail: mail}
}

// RequestRefund validates eligibility and either auto-processes the refund
// or parks it for manual review, depending on the amount. A zero amount
// requests a full refund.
func (e *RefundEngine) RequestRefund(userID uint, paymentReference string, amount float64, reason string) (*models.PaymentRefund, Result) {
	var payment models.Payment
	err := e.DB.Where("reference = ? AND user_id = ?", paymentReference, userID).First(&payment).Error
	if err != nil {
		return nil, Fail("Payment not found")
	}

	if !payment.IsRefundable(e.DB) {
		return nil, Fail("This payment is not eligible for a refund")
	}

	if amount == 0 {
		amount = payment.Amount
	}
	if amount < 0 || amount > payment.Amount {
		return nil, Fail("Refund amount must be between 0 and the amount paid")
	}

	var activeCount int64
	e.DB.Model(&models.PaymentRefund{}).
		Where("payment_id = ? AND status IN ?", payment.ID, models.ActiveRefundStatuses).
		Count(&activeCount)
	if activeCount > 0 {
		return nil, Fail("A refund for this payment already exists")
	}

	refund := models.PaymentRefund{
		PaymentID: payment.ID,
		UserID:    userID,
		Reference: "RFD-" + strings.ToUpper(uuid.NewString()[:12]),
		Amount:    amount,
		Reason:    reason,
		Status:    models.RefundPending,
	}
	if err := e.DB.Create(&refund).Error; err != nil {
		return nil, Fail("Could not create refund request")
	}

	var user models.User
	if err := e.DB.First(&user, userID).Error; err == nil {
		go e.Mail.SendRefundRequestedEmail(&user, &refund)
	}

	// Routing is decided by the size of the original payment, not the
	// portion being refunded, so a partial refund on a large payment still
	// goes through review.
	if payment.Amount > AutoProcessRefundLimit {
		e.DB.Model(&refund).Update("status", models.RefundPendingReview)
		refund.Status = models.RefundPendingReview
		e.Mail.SendRefundReviewAlert(&refund)
		return &refund, Ok("Refund request received and queued for review")
	}

	result := e.ProcessRefund(refund.ID)
	e.DB.First(&refund, refund.ID)
	return &refund, result
}

// ProcessRefund drives a pending refund through the gateway. Any failure,
// including gateway errors, lands the refund in the failed state with the
// reason recorded; nothing escapes as a panic or a dangling processing row.
func (e *RefundEngine) ProcessRefund(refundID uint) (result Result) {
	var refund models.PaymentRefund
	if err := e.DB.Preload("Payment").First(&refund, refundID).Error; err != nil {
		return Fail("Refund not found")
	}

	if !refund.IsProcessable() {
		return Fail(fmt.Sprintf("Refund is not processable in status %s", refund.Status))
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[REFUND] panic while processing refund %s: %v", refund.Reference, r)
			e.markFailed(&refund, fmt.Sprintf("internal error: %v", r))
			result = Fail("Refund processing failed")
		}
	}()

	now := time.Now()
	if err := e.DB.Model(&refund).Updates(map[string]interface{}{
		"status":       models.RefundProcessing,
		"processed_at": now,
	}).Error; err != nil {
		return Fail("Could not update refund status")
	}

	gateway, err := e.Gateways.Get(refund.Payment.GatewayName)
	if err != nil {
		e.markFailed(&refund, err.Error())
		return Fail(err.Error())
	}

	gwResult, err := gateway.InitiateRefund(&refund.Payment, refund.Amount, refund.Reason)
	if err != nil {
		e.markFailed(&refund, err.Error())
		return Fail("Gateway refund failed")
	}
	if !gwResult.Success {
		e.markFailed(&refund, gwResult.Message)
		return Fail("Gateway declined the refund")
	}

	updates := map[string]interface{}{
		"status":            models.RefundCompleted,
		"completed_at":      time.Now(),
		"gateway_reference": gwResult.Reference,
	}
	if len(gwResult.RawResponse) > 0 {
		updates["gateway_response"] = datatypes.JSON(gwResult.RawResponse)
	}
	if err := e.DB.Model(&refund).Updates(updates).Error; err != nil {
		log.Printf("[REFUND] gateway succeeded but status update failed for %s: %v", refund.Reference, err)
		return Fail("Refund completed at the gateway but could not be recorded")
	}

	// A full refund ends the enrollment
	if refund.Amount >= refund.Payment.Amount {
		if err := e.cancelEnrollment(&refund); err != nil {
			log.Printf("[REFUND] enrollment cancellation failed for %s: %v", refund.Reference, err)
		}
	}

	var user models.User
	if err := e.DB.First(&user, refund.UserID).Error; err == nil {
		go e.Mail.SendRefundCompletedEmail(&user, &refund)
	}

	log.Printf("[REFUND] completed %s amount %.2f via %s", refund.Reference, refund.Amount, gateway.Name())
	return Ok("Refund processed successfully")
}

func (e *RefundEngine) markFailed(refund *models.PaymentRefund, reason string) {
	if err := e.DB.Model(refund).Updates(map[string]interface{}{
		"status":         models.RefundFailed,
		"failure_reason": reason,
	}).Error; err != nil {
		log.Printf("[REFUND] could not mark refund %s as failed: %v", refund.Reference, err)
	}
}

// cancelEnrollment applies the access policy after a full refund. Students
// who completed more than 20%% of the course keep their access and their
// progress record; everyone else loses access and the progress row is
// archived, not deleted.
func (e *RefundEngine) cancelEnrollment(refund *models.PaymentRefund) error {
	var enrollment models.CourseEnrollment
	err := e.DB.Where("payment_ref = ?", refund.Payment.Reference).First(&enrollment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}

	var progress models.CourseProgress
	progressPct := 0.0
	hasProgress := false
	if err := e.DB.Where("user_id = ? AND course_id = ? AND is_active = ?",
		enrollment.UserID, enrollment.CourseID, true).First(&progress).Error; err == nil {
		progressPct = progress.ProgressPercentage
		hasProgress = true
	}

	return e.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if progressPct > ProgressKeepAccessThreshold {
			// Access is retained, so the progress row stays active too.
			return tx.Model(&enrollment).Updates(map[string]interface{}{
				"payment_status": models.EnrollmentRefundedWithAccess,
				"cancelled_at":   now,
			}).Error
		}

		if err := tx.Model(&enrollment).Updates(map[string]interface{}{
			"payment_status": models.EnrollmentRefunded,
			"is_active":      false,
			"cancelled_at":   now,
		}).Error; err != nil {
			return err
		}

		if hasProgress {
			if err := tx.Model(&progress).Update("is_active", false).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
