package controllers

import (
	"github.com/gofiber/fiber/v2"

	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/services"
	"lms/validators"
)

type RefundController struct {
	Engine *services.RefundEngine
}

func NewRefundController(engine *services.RefundEngine) *RefundController {
	return &RefundController{Engine: engine}
}

func (ctrl *RefundController) RequestRefund(c *fiber.Ctx) error {
	userID := c.Locals("userId").(uint)
	reqData := c.Locals("validatedRefund").(validators.RefundRequest)

	refund, result := ctrl.Engine.RequestRefund(userID, reqData.PaymentReference, reqData.Amount, reqData.Reason)
	if !result.Success {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, result.Message, nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, result.Message, fiber.Map{
		"reference": refund.Reference,
		"amount":    refund.Amount,
		"status":    refund.Status,
	})
}

func (ctrl *RefundController) MyRefunds(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	var refunds []models.PaymentRefund
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&refunds).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch refunds", nil)
	}

	list := make([]fiber.Map, 0, len(refunds))
	for _, r := range refunds {
		list = append(list, fiber.Map{
			"reference":   r.Reference,
			"amount":      r.Amount,
			"reason":      r.Reason,
			"status":      r.Status,
			"requestedAt": r.CreatedAt,
			"completedAt": r.CompletedAt,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Refunds fetched", list)
}

// PendingReviews lists refunds parked for manual review
func (ctrl *RefundController) PendingReviews(c *fiber.Ctx) error {
	db := database.Database.Db

	var refunds []models.PaymentRefund
	if err := db.Where("status = ?", models.RefundPendingReview).
		Order("created_at ASC").Find(&refunds).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch refunds", nil)
	}

	list := make([]fiber.Map, 0, len(refunds))
	for _, r := range refunds {
		list = append(list, fiber.Map{
			"id":          r.ID,
			"reference":   r.Reference,
			"userId":      r.UserID,
			"amount":      r.Amount,
			"reason":      r.Reason,
			"requestedAt": r.CreatedAt,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pending reviews fetched", list)
}

// ProcessRefund lets an operator push a reviewed refund through
func (ctrl *RefundController) ProcessRefund(c *fiber.Ctx) error {
	refundID, err := c.ParamsInt("id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid refund id", nil)
	}

	result := ctrl.Engine.ProcessRefund(uint(refundID))
	if !result.Success {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, result.Message, nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, result.Message, nil)
}
