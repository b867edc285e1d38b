package validators

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"lms/middleware"
)

var accountNumberRegex = regexp.MustCompile(`^\d{10}$`)

type BankAccountRequest struct {
	BankName      string `json:"bankName"`
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}

func BankAccountValidator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData BankAccountRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		errors := make(map[string]string)
		reqData.BankName = strings.TrimSpace(reqData.BankName)
		reqData.BankCode = strings.TrimSpace(reqData.BankCode)
		reqData.AccountNumber = strings.TrimSpace(reqData.AccountNumber)
		reqData.AccountName = strings.TrimSpace(reqData.AccountName)

		if reqData.BankName == "" {
			errors["bankName"] = "Bank name is required"
		}
		if reqData.BankCode == "" {
			errors["bankCode"] = "Bank code is required"
		}
		if !accountNumberRegex.MatchString(reqData.AccountNumber) {
			errors["accountNumber"] = "Account number must be exactly 10 digits"
		}
		if reqData.AccountName == "" {
			errors["accountName"] = "Account name is required"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedBankAccount", reqData)
		return c.Next()
	}
}

type AutoPayoutRequest struct {
	Enabled bool `json:"enabled"`
}

func AutoPayoutValidator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData AutoPayoutRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}
		c.Locals("validatedAutoPayout", reqData)
		return c.Next()
	}
}

type BulkPayoutRequest struct {
	PayoutIDs []uint `json:"payoutIds"`
}

func BulkPayoutValidator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData BulkPayoutRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		if len(reqData.PayoutIDs) == 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"payoutIds": "At least one payout id is required",
			})
		}
		if len(reqData.PayoutIDs) > 100 {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"payoutIds": "No more than 100 payouts per batch",
			})
		}

		c.Locals("validatedBulkPayout", reqData)
		return c.Next()
	}
}
