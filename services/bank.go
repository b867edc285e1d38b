package services

import (
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"lms/models"
	"lms/utils"
)

// AccountResolver performs the name enquiry against the payment providers
type AccountResolver interface {
	VerifyBankAccount(accountNumber, bankCode, expectedName string) (*utils.AccountResolution, error)
}

// BankService manages instructor payout accounts and their verification
// lifecycle
type BankService struct {
	DB       *gorm.DB
	Verifier AccountResolver
	Mail     *utils.EmailService
}

func NewBankService(db *gorm.DB, verifier AccountResolver, mail *utils.EmailService) *BankService {
	return &BankService{DB: db, Verifier: verifier, Mail: mail}
}

// MaskAccountNumber hides all but the last four digits
func MaskAccountNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

// SaveBankAccount creates or replaces an instructor's payout account. Any
// change to the account details invalidates prior verification and resets
// the attempt counter, since the old verification no longer covers the new
// details.
func (s *BankService) SaveBankAccount(instructorID uint, bankName, bankCode, accountNumber, accountName string) (*models.InstructorBankAccount, Result) {
	var account models.InstructorBankAccount
	err := s.DB.Where("instructor_id = ?", instructorID).First(&account).Error

	if err == gorm.ErrRecordNotFound {
		account = models.InstructorBankAccount{
			InstructorID:  instructorID,
			BankName:      bankName,
			BankCode:      bankCode,
			AccountNumber: accountNumber,
			AccountName:   accountName,
		}
		if err := s.DB.Create(&account).Error; err != nil {
			return nil, Fail("Could not save bank account")
		}
	} else if err != nil {
		return nil, Fail("Could not load bank account")
	} else {
		updates := map[string]interface{}{
			"bank_name":                 bankName,
			"bank_code":                 bankCode,
			"account_number":            accountNumber,
			"account_name":              accountName,
			"is_verified":               false,
			"verified_at":               nil,
			"verified_account_name":     "",
			"verification_provider":     "",
			"verification_attempts":     0,
			"last_verification_attempt": nil,
			"verification_error":        "",
			"recipient_code":            "",
		}
		if err := s.DB.Model(&account).Updates(updates).Error; err != nil {
			return nil, Fail("Could not update bank account")
		}
		s.DB.First(&account, account.ID)
	}

	var instructor models.User
	if err := s.DB.First(&instructor, instructorID).Error; err == nil {
		go s.Mail.SendBankAccountUpdatedEmail(&instructor, bankName, MaskAccountNumber(accountNumber))
	}

	return &account, Ok("Bank account saved. Verification is required before payouts.")
}

// VerifyAccount runs a name enquiry against the gateways. The attempt
// counter is advanced before the lookup, and once it reaches the cap every
// further attempt is rejected without touching the gateways.
func (s *BankService) VerifyAccount(instructorID uint) (*models.InstructorBankAccount, Result) {
	var account models.InstructorBankAccount
	if err := s.DB.Where("instructor_id = ?", instructorID).First(&account).Error; err != nil {
		return nil, Fail("No bank account on file")
	}

	if account.IsVerified {
		return &account, Ok("Bank account is already verified")
	}
	if !account.CanRetryVerification() {
		return &account, Fail("Verification attempt limit reached. Contact support.")
	}

	now := time.Now()
	account.VerificationAttempts++
	s.DB.Model(&account).Updates(map[string]interface{}{
		"verification_attempts":     account.VerificationAttempts,
		"last_verification_attempt": now,
	})

	resolution, err := s.Verifier.VerifyBankAccount(account.AccountNumber, account.BankCode, account.AccountName)
	if err != nil {
		s.DB.Model(&account).Update("verification_error", err.Error())
		log.Printf("[BANK] verification lookup failed for instructor %d: %v", instructorID, err)
		return &account, Fail("Could not verify account with the bank. Try again later.")
	}

	if !resolution.NameMatches {
		s.DB.Model(&account).Update("verification_error", "account name does not match bank records")
		return &account, Fail("The account name does not match the bank's records")
	}

	if err := s.DB.Model(&account).Updates(map[string]interface{}{
		"is_verified":           true,
		"verified_at":           now,
		"verified_account_name": resolution.AccountName,
		"verification_provider": resolution.Provider,
		"verification_error":    "",
	}).Error; err != nil {
		return &account, Fail("Could not record verification")
	}

	s.DB.First(&account, account.ID)
	log.Printf("[BANK] verified account for instructor %d via %s", instructorID, resolution.Provider)
	return &account, Ok("Bank account verified successfully")
}

// DeleteBankAccount removes the payout account unless payouts are still in
// flight against it
func (s *BankService) DeleteBankAccount(instructorID uint) Result {
	var account models.InstructorBankAccount
	if err := s.DB.Where("instructor_id = ?", instructorID).First(&account).Error; err != nil {
		return Fail("No bank account on file")
	}

	var inFlight int64
	s.DB.Model(&models.InstructorPayout{}).
		Where("instructor_id = ? AND status IN ?", instructorID,
			[]string{models.PayoutPending, models.PayoutProcessing}).
		Count(&inFlight)
	if inFlight > 0 {
		return Fail("Cannot delete a bank account with payouts in progress")
	}

	if err := s.DB.Delete(&account).Error; err != nil {
		return Fail("Could not delete bank account")
	}
	return Ok("Bank account deleted")
}

// ToggleAutoPayout flips automatic monthly processing for the instructor.
// Only verified accounts can opt in.
func (s *BankService) ToggleAutoPayout(instructorID uint, enabled bool) (*models.InstructorBankAccount, Result) {
	var account models.InstructorBankAccount
	if err := s.DB.Where("instructor_id = ?", instructorID).First(&account).Error; err != nil {
		return nil, Fail("No bank account on file")
	}
	if enabled && !account.IsVerified {
		return &account, Fail("Verify your bank account before enabling automatic payouts")
	}
	if err := s.DB.Model(&account).Update("auto_payout_enabled", enabled).Error; err != nil {
		return &account, Fail("Could not update auto payout setting")
	}
	account.AutoPayoutEnabled = enabled
	if enabled {
		return &account, Ok("Automatic payouts enabled")
	}
	return &account, Ok("Automatic payouts disabled")
}
