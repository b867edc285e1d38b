package gateways

import (
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"lms/config"
	"lms/models"
)

const flutterwaveBaseURL = "https://api.flutterwave.com/v3"

// FlutterwaveGateway talks to the Flutterwave refund and transfer APIs.
// Unlike Paystack, amounts are in whole currency units.
type FlutterwaveGateway struct {
	secretKey string
	client    *resty.Client
}

func NewFlutterwaveGateway(cfg *config.Config) *FlutterwaveGateway {
	return &FlutterwaveGateway{
		secretKey: cfg.FlutterwaveSecretKey,
		client:    resty.New().SetTimeout(15 * time.Second).SetBaseURL(flutterwaveBaseURL),
	}
}

func (g *FlutterwaveGateway) Name() string { return "flutterwave" }

func (g *FlutterwaveGateway) InitiateRefund(payment *models.Payment, amount float64, reason string) (*RefundResult, error) {
	var result struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}

	resp, err := g.client.R().
		SetHeader("Authorization", "Bearer "+g.secretKey).
		SetBody(map[string]interface{}{
			"amount":   amount,
			"comments": reason,
		}).
		SetResult(&result).
		Post("/transactions/" + payment.GatewayReference + "/refund")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() >= 400 || result.Status != "success" {
		return &RefundResult{
			Success:     false,
			RawResponse: resp.Body(),
			Message:     result.Message,
		}, nil
	}

	return &RefundResult{
		Success:     true,
		Reference:   strconv.FormatInt(result.Data.ID, 10),
		RawResponse: resp.Body(),
		Message:     result.Message,
	}, nil
}

func (g *FlutterwaveGateway) InitiateTransfer(account *models.InstructorBankAccount, amount float64, narration string) (*TransferResult, error) {
	var result struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			ID        int64  `json:"id"`
			Reference string `json:"reference"`
		} `json:"data"`
	}

	resp, err := g.client.R().
		SetHeader("Authorization", "Bearer "+g.secretKey).
		SetBody(map[string]interface{}{
			"account_bank":   account.BankCode,
			"account_number": account.AccountNumber,
			"amount":         amount,
			"currency":       "NGN",
			"narration":      narration,
			"reference":      uuid.NewString(),
		}).
		SetResult(&result).
		Post("/transfers")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() >= 400 || result.Status != "success" {
		return &TransferResult{
			Success:     false,
			RawResponse: resp.Body(),
			Message:     result.Message,
		}, nil
	}

	return &TransferResult{
		Success:     true,
		Reference:   result.Data.Reference,
		RawResponse: resp.Body(),
		Message:     result.Message,
	}, nil
}
