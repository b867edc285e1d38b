package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"lms/config"
)

// Bank is one entry from the gateway's bank directory
type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// AccountResolution is the outcome of a name-enquiry lookup
type AccountResolution struct {
	AccountName string
	Provider    string
	NameMatches bool
}

// BankVerifier resolves account numbers against the payment gateways.
// Paystack is the primary provider with Flutterwave as the fallback.
type BankVerifier struct {
	cfg    *config.Config
	client *resty.Client
}

func NewBankVerifier(cfg *config.Config) *BankVerifier {
	return &BankVerifier{
		cfg:    cfg,
		client: resty.New().SetTimeout(10 * time.Second),
	}
}

// GetBankList returns the supported banks from Paystack
func (v *BankVerifier) GetBankList() ([]Bank, error) {
	var result struct {
		Status bool   `json:"status"`
		Data   []Bank `json:"data"`
	}
	resp, err := v.client.R().
		SetHeader("Authorization", "Bearer "+v.cfg.PaystackSecretKey).
		SetResult(&result).
		Get("https://api.paystack.co/bank?country=nigeria")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 || !result.Status {
		return nil, errors.New("failed to fetch bank list")
	}
	return result.Data, nil
}

// VerifyBankAccount performs a name enquiry and compares the resolved name
// against the one the instructor supplied. A Paystack failure falls through
// to Flutterwave before the lookup is declared failed.
func (v *BankVerifier) VerifyBankAccount(accountNumber, bankCode, expectedName string) (*AccountResolution, error) {
	resolved, err := v.resolvePaystack(accountNumber, bankCode)
	provider := "paystack"
	if err != nil {
		resolved, err = v.resolveFlutterwave(accountNumber, bankCode)
		provider = "flutterwave"
		if err != nil {
			return nil, fmt.Errorf("account resolution failed on all providers: %w", err)
		}
	}

	return &AccountResolution{
		AccountName: resolved,
		Provider:    provider,
		NameMatches: NamesMatch(expectedName, resolved),
	}, nil
}

func (v *BankVerifier) resolvePaystack(accountNumber, bankCode string) (string, error) {
	var result struct {
		Status bool `json:"status"`
		Data   struct {
			AccountName string `json:"account_name"`
		} `json:"data"`
	}
	resp, err := v.client.R().
		SetHeader("Authorization", "Bearer "+v.cfg.PaystackSecretKey).
		SetQueryParams(map[string]string{
			"account_number": accountNumber,
			"bank_code":      bankCode,
		}).
		SetResult(&result).
		Get("https://api.paystack.co/bank/resolve")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 || !result.Status || result.Data.AccountName == "" {
		return "", errors.New("paystack could not resolve account")
	}
	return result.Data.AccountName, nil
}

func (v *BankVerifier) resolveFlutterwave(accountNumber, bankCode string) (string, error) {
	var result struct {
		Status string `json:"status"`
		Data   struct {
			AccountName string `json:"account_name"`
		} `json:"data"`
	}
	resp, err := v.client.R().
		SetHeader("Authorization", "Bearer "+v.cfg.FlutterwaveSecretKey).
		SetBody(map[string]string{
			"account_number": accountNumber,
			"account_bank":   bankCode,
		}).
		SetResult(&result).
		Post("https://api.flutterwave.com/v3/accounts/resolve")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != 200 || result.Status != "success" || result.Data.AccountName == "" {
		return "", errors.New("flutterwave could not resolve account")
	}
	return result.Data.AccountName, nil
}

// NamesMatch compares the supplied account name with the bank's record.
// Banks return names in inconsistent order and casing, so the comparison is
// on normalized word sets: every word of the shorter name must appear in the
// longer one.
func NamesMatch(expected, resolved string) bool {
	a := nameWords(expected)
	b := nameWords(resolved)
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	set := make(map[string]bool, len(b))
	for _, w := range b {
		set[w] = true
	}
	for _, w := range a {
		if !set[w] {
			return false
		}
	}
	return true
}

func nameWords(name string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == ' ' {
			return r
		}
		return ' '
	}, name)
	return strings.Fields(strings.ToUpper(cleaned))
}
