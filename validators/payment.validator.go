package validators

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"lms/middleware"
)

type RefundRequest struct {
	PaymentReference string  `json:"paymentReference"`
	Reason           string  `json:"reason"`
	Amount           float64 `json:"amount"` // zero requests a full refund
}

func RefundRequestValidator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData RefundRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		errors := make(map[string]string)
		reqData.PaymentReference = strings.TrimSpace(reqData.PaymentReference)
		reqData.Reason = strings.TrimSpace(reqData.Reason)

		if reqData.PaymentReference == "" {
			errors["paymentReference"] = "Payment reference is required"
		}
		if reqData.Reason == "" {
			errors["reason"] = "A reason for the refund is required"
		} else if len(reqData.Reason) > 500 {
			errors["reason"] = "Reason must be 500 characters or fewer"
		}
		if reqData.Amount < 0 {
			errors["amount"] = "Amount cannot be negative"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedRefund", reqData)
		return c.Next()
	}
}
