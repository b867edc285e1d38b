package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms/models"
	"lms/utils"
)

// fakeResolver scripts name-enquiry outcomes
type fakeResolver struct {
	resolution *utils.AccountResolution
	err        error
	calls      int
}

func (f *fakeResolver) VerifyBankAccount(accountNumber, bankCode, expectedName string) (*utils.AccountResolution, error) {
	f.calls++
	return f.resolution, f.err
}

func newBankService(t *testing.T, resolver *fakeResolver) *BankService {
	t.Helper()
	db := setupTestDB(t)
	return NewBankService(db, resolver, testMailer(db))
}

func TestSaveBankAccountCreatesUnverified(t *testing.T) {
	svc := newBankService(t, &fakeResolver{})
	instructor := createTestUser(t, svc.DB, "instructor@example.com")

	account, result := svc.SaveBankAccount(instructor.ID, "Test Bank", "058", "0123456789", "Jane Teacher")
	require.True(t, result.Success, result.Message)
	assert.False(t, account.IsVerified)
	assert.Equal(t, 0, account.VerificationAttempts)
}

func TestSaveBankAccountResetsVerification(t *testing.T) {
	resolver := &fakeResolver{resolution: &utils.AccountResolution{
		AccountName: "JANE TEACHER", Provider: "paystack", NameMatches: true,
	}}
	svc := newBankService(t, resolver)
	instructor := createTestUser(t, svc.DB, "instructor@example.com")

	_, result := svc.SaveBankAccount(instructor.ID, "Test Bank", "058", "0123456789", "Jane Teacher")
	require.True(t, result.Success)

	account, result := svc.VerifyAccount(instructor.ID)
	require.True(t, result.Success, result.Message)
	assert.True(t, account.IsVerified)
	assert.Equal(t, "paystack", account.VerificationProvider)

	// Changing the account details invalidates the verification
	account, result = svc.SaveBankAccount(instructor.ID, "Other Bank", "044", "9876543210", "Jane Teacher")
	require.True(t, result.Success)
	assert.False(t, account.IsVerified)
	assert.Equal(t, 0, account.VerificationAttempts)
	assert.Empty(t, account.VerificationProvider)
}

func TestVerifyAccountNameMismatch(t *testing.T) {
	resolver := &fakeResolver{resolution: &utils.AccountResolution{
		AccountName: "SOMEONE ELSE", Provider: "paystack", NameMatches: false,
	}}
	svc := newBankService(t, resolver)
	instructor := createTestUser(t, svc.DB, "instructor@example.com")

	_, result := svc.SaveBankAccount(instructor.ID, "Test Bank", "058", "0123456789", "Jane Teacher")
	require.True(t, result.Success)

	account, result := svc.VerifyAccount(instructor.ID)
	assert.False(t, result.Success)
	assert.False(t, account.IsVerified)
	assert.Equal(t, 1, account.VerificationAttempts)
}

func TestVerifyAccountAttemptCap(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("provider down")}
	svc := newBankService(t, resolver)
	instructor := createTestUser(t, svc.DB, "instructor@example.com")

	_, result := svc.SaveBankAccount(instructor.ID, "Test Bank", "058", "0123456789", "Jane Teacher")
	require.True(t, result.Success)

	for i := 0; i < 3; i++ {
		_, result = svc.VerifyAccount(instructor.ID)
		assert.False(t, result.Success)
	}
	assert.Equal(t, 3, resolver.calls)

	// The fourth attempt is rejected before the providers are consulted
	account, result := svc.VerifyAccount(instructor.ID)
	assert.False(t, result.Success)
	assert.Equal(t, 3, resolver.calls)
	assert.Equal(t, 3, account.VerificationAttempts)
}

func TestDeleteBankAccountBlockedByPendingPayouts(t *testing.T) {
	svc := newBankService(t, &fakeResolver{})
	instructor := createTestUser(t, svc.DB, "instructor@example.com")

	_, result := svc.SaveBankAccount(instructor.ID, "Test Bank", "058", "0123456789", "Jane Teacher")
	require.True(t, result.Success)

	payout := models.InstructorPayout{
		InstructorID: instructor.ID,
		PeriodStart:  time.Now().AddDate(0, -1, 0),
		PeriodEnd:    time.Now(),
		NetPayout:    5000,
		Status:       models.PayoutPending,
	}
	require.NoError(t, svc.DB.Create(&payout).Error)

	result = svc.DeleteBankAccount(instructor.ID)
	assert.False(t, result.Success)

	// Once the payout settles, deletion goes through
	require.NoError(t, svc.DB.Model(&payout).Update("status", models.PayoutCompleted).Error)
	result = svc.DeleteBankAccount(instructor.ID)
	assert.True(t, result.Success, result.Message)
}

func TestToggleAutoPayoutRequiresVerification(t *testing.T) {
	resolver := &fakeResolver{resolution: &utils.AccountResolution{
		AccountName: "JANE TEACHER", Provider: "paystack", NameMatches: true,
	}}
	svc := newBankService(t, resolver)
	instructor := createTestUser(t, svc.DB, "instructor@example.com")

	_, result := svc.SaveBankAccount(instructor.ID, "Test Bank", "058", "0123456789", "Jane Teacher")
	require.True(t, result.Success)

	_, result = svc.ToggleAutoPayout(instructor.ID, true)
	assert.False(t, result.Success)

	_, result = svc.VerifyAccount(instructor.ID)
	require.True(t, result.Success)

	account, result := svc.ToggleAutoPayout(instructor.ID, true)
	require.True(t, result.Success)
	assert.True(t, account.AutoPayoutEnabled)
}
