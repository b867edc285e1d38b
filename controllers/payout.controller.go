package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"

	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/services"
	"lms/utils"
	"lms/validators"
)

type PayoutController struct {
	Engine   *services.PayoutEngine
	Bank     *services.BankService
	Verifier *utils.BankVerifier
}

func NewPayoutController(engine *services.PayoutEngine, bank *services.BankService, verifier *utils.BankVerifier) *PayoutController {
	return &PayoutController{Engine: engine, Bank: bank, Verifier: verifier}
}

func (ctrl *PayoutController) ListBanks(c *fiber.Ctx) error {
	banks, err := ctrl.Verifier.GetBankList()
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Could not fetch bank list", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Banks fetched", banks)
}

func (ctrl *PayoutController) GetBankAccount(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	var account models.InstructorBankAccount
	if err := db.Where("instructor_id = ?", userID).First(&account).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "No bank account on file", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Bank account fetched", fiber.Map{
		"bankName":             account.BankName,
		"accountNumber":        services.MaskAccountNumber(account.AccountNumber),
		"accountName":          account.AccountName,
		"isVerified":           account.IsVerified,
		"verifiedAt":           account.VerifiedAt,
		"verificationAttempts": account.VerificationAttempts,
		"autoPayoutEnabled":    account.AutoPayoutEnabled,
	})
}

func (ctrl *PayoutController) SaveBankAccount(c *fiber.Ctx) error {
	userID := c.Locals("userId").(uint)
	reqData := c.Locals("validatedBankAccount").(validators.BankAccountRequest)

	account, result := ctrl.Bank.SaveBankAccount(userID, reqData.BankName, reqData.BankCode,
		reqData.AccountNumber, reqData.AccountName)
	if !result.Success {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, result.Message, nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, result.Message, fiber.Map{
		"bankName":      account.BankName,
		"accountNumber": services.MaskAccountNumber(account.AccountNumber),
		"accountName":   account.AccountName,
		"isVerified":    account.IsVerified,
	})
}

func (ctrl *PayoutController) VerifyBankAccount(c *fiber.Ctx) error {
	userID := c.Locals("userId").(uint)

	account, result := ctrl.Bank.VerifyAccount(userID)
	if !result.Success {
		data := fiber.Map{}
		if account != nil {
			data["verificationAttempts"] = account.VerificationAttempts
		}
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, result.Message, data)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, result.Message, fiber.Map{
		"isVerified":          account.IsVerified,
		"verifiedAccountName": account.VerifiedAccountName,
		"provider":            account.VerificationProvider,
	})
}

func (ctrl *PayoutController) ToggleAutoPayout(c *fiber.Ctx) error {
	userID := c.Locals("userId").(uint)
	reqData := c.Locals("validatedAutoPayout").(validators.AutoPayoutRequest)

	account, result := ctrl.Bank.ToggleAutoPayout(userID, reqData.Enabled)
	if !result.Success {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, result.Message, nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, result.Message, fiber.Map{
		"autoPayoutEnabled": account.AutoPayoutEnabled,
	})
}

func (ctrl *PayoutController) DeleteBankAccount(c *fiber.Ctx) error {
	userID := c.Locals("userId").(uint)

	result := ctrl.Bank.DeleteBankAccount(userID)
	if !result.Success {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, result.Message, nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, result.Message, nil)
}

// Earnings returns the current month-to-date breakdown for the instructor
func (ctrl *PayoutController) Earnings(c *fiber.Ctx) error {
	userID := c.Locals("userId").(uint)

	monthStart := now.BeginningOfMonth()
	breakdown, err := ctrl.Engine.CalculateEarnings(userID, monthStart, time.Now())
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to calculate earnings", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Earnings calculated", breakdown)
}

func (ctrl *PayoutController) PayoutHistory(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	var payouts []models.InstructorPayout
	if err := db.Where("instructor_id = ?", userID).
		Order("period_start DESC").Find(&payouts).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch payouts", nil)
	}

	list := make([]fiber.Map, 0, len(payouts))
	for _, p := range payouts {
		list = append(list, fiber.Map{
			"id":          p.ID,
			"periodStart": p.PeriodStart,
			"periodEnd":   p.PeriodEnd,
			"netPayout":   p.NetPayout,
			"status":      p.Status,
			"processedAt": p.ProcessedAt,
		})
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payout history fetched", list)
}

// PendingPayouts lists payouts awaiting processing, for operators
func (ctrl *PayoutController) PendingPayouts(c *fiber.Ctx) error {
	db := database.Database.Db

	var payouts []models.InstructorPayout
	if err := db.Where("status = ?", models.PayoutPending).
		Order("created_at ASC").Find(&payouts).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch payouts", nil)
	}

	list := make([]fiber.Map, 0, len(payouts))
	for _, p := range payouts {
		list = append(list, fiber.Map{
			"id":           p.ID,
			"instructorId": p.InstructorID,
			"periodStart":  p.PeriodStart,
			"periodEnd":    p.PeriodEnd,
			"netPayout":    p.NetPayout,
			"createdAt":    p.CreatedAt,
		})
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pending payouts fetched", list)
}

func (ctrl *PayoutController) ProcessPayout(c *fiber.Ctx) error {
	payoutID, err := c.ParamsInt("id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid payout id", nil)
	}

	result := ctrl.Engine.ProcessPayout(uint(payoutID))
	if !result.Success {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, result.Message, nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, result.Message, nil)
}

func (ctrl *PayoutController) BulkProcessPayouts(c *fiber.Ctx) error {
	reqData := c.Locals("validatedBulkPayout").(validators.BulkPayoutRequest)

	results, summary := ctrl.Engine.BulkProcess(reqData.PayoutIDs)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Bulk processing finished", fiber.Map{
		"results": results,
		"summary": summary,
	})
}
