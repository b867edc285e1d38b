package gateways

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"lms/config"
	"lms/models"
)

const paystackBaseURL = "https://api.paystack.co"

// PaystackGateway talks to the Paystack refund and transfer APIs. Paystack
// amounts are in kobo.
type PaystackGateway struct {
	secretKey string
	client    *resty.Client
}

func NewPaystackGateway(cfg *config.Config) *PaystackGateway {
	return &PaystackGateway{
		secretKey: cfg.PaystackSecretKey,
		client:    resty.New().SetTimeout(15 * time.Second).SetBaseURL(paystackBaseURL),
	}
}

func (g *PaystackGateway) Name() string { return "paystack" }

func toKobo(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (g *PaystackGateway) InitiateRefund(payment *models.Payment, amount float64, reason string) (*RefundResult, error) {
	var result struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			ID          int64  `json:"id"`
			Status      string `json:"status"`
			Transaction struct {
				Reference string `json:"reference"`
			} `json:"transaction"`
		} `json:"data"`
	}

	resp, err := g.client.R().
		SetHeader("Authorization", "Bearer "+g.secretKey).
		SetBody(map[string]interface{}{
			"transaction":   payment.GatewayReference,
			"amount":        toKobo(amount),
			"merchant_note": reason,
		}).
		SetResult(&result).
		Post("/refund")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() >= 400 || !result.Status {
		return &RefundResult{
			Success:     false,
			RawResponse: resp.Body(),
			Message:     result.Message,
		}, nil
	}

	return &RefundResult{
		Success:     true,
		Reference:   fmt.Sprintf("%d", result.Data.ID),
		RawResponse: resp.Body(),
		Message:     result.Message,
	}, nil
}

func (g *PaystackGateway) InitiateTransfer(account *models.InstructorBankAccount, amount float64, narration string) (*TransferResult, error) {
	recipient := account.RecipientCode
	if recipient == "" {
		var err error
		recipient, err = g.createRecipient(account)
		if err != nil {
			return nil, err
		}
	}

	var result struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			TransferCode string `json:"transfer_code"`
			Status       string `json:"status"`
		} `json:"data"`
	}

	resp, err := g.client.R().
		SetHeader("Authorization", "Bearer "+g.secretKey).
		SetBody(map[string]interface{}{
			"source":    "balance",
			"amount":    toKobo(amount),
			"recipient": recipient,
			"reason":    narration,
			"reference": uuid.NewString(),
		}).
		SetResult(&result).
		Post("/transfer")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() >= 400 || !result.Status {
		return &TransferResult{
			Success:     false,
			RawResponse: resp.Body(),
			Message:     result.Message,
		}, nil
	}

	return &TransferResult{
		Success:     true,
		Reference:   result.Data.TransferCode,
		RawResponse: resp.Body(),
		Message:     result.Message,
	}, nil
}

func (g *PaystackGateway) createRecipient(account *models.InstructorBankAccount) (string, error) {
	var result struct {
		Status bool `json:"status"`
		Data   struct {
			RecipientCode string `json:"recipient_code"`
		} `json:"data"`
	}

	resp, err := g.client.R().
		SetHeader("Authorization", "Bearer "+g.secretKey).
		SetBody(map[string]interface{}{
			"type":           "nuban",
			"name":           account.AccountName,
			"account_number": account.AccountNumber,
			"bank_code":      account.BankCode,
			"currency":       "NGN",
		}).
		SetResult(&result).
		Post("/transferrecipient")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() >= 400 || !result.Status || result.Data.RecipientCode == "" {
		return "", errors.New("failed to create transfer recipient")
	}
	return result.Data.RecipientCode, nil
}
