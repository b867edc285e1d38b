package utils

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lms/models"
)

func TestVerifyTOTPCode(t *testing.T) {
	secret, uri, err := GenerateTwoFactorSecret("user@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Contains(t, uri, "otpauth://totp/")

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	assert.True(t, VerifyTOTPCode(secret, code))

	assert.False(t, VerifyTOTPCode(secret, "000000"))
	assert.False(t, VerifyTOTPCode(secret, "not-a-code"))
}

func TestVerifyTOTPCodeAllowsClockSkew(t *testing.T) {
	secret, _, err := GenerateTwoFactorSecret("user@example.com")
	require.NoError(t, err)

	// A code from the previous period is still inside the skew window
	previous, err := totp.GenerateCode(secret, time.Now().Add(-30*time.Second))
	require.NoError(t, err)
	assert.True(t, VerifyTOTPCode(secret, previous))

	// Two periods back is not
	stale, err := totp.GenerateCode(secret, time.Now().Add(-90*time.Second))
	require.NoError(t, err)
	assert.False(t, VerifyTOTPCode(secret, stale))
}

func TestBackupCodesAreSingleUse(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	plain, hashed, err := GenerateBackupCodes()
	require.NoError(t, err)
	require.Len(t, plain, 10)

	require.NoError(t, db.Model(user).Update("backup_codes", hashed).Error)
	user.BackupCodes = hashed
	assert.Equal(t, 10, RemainingBackupCodes(user))

	ok, err := VerifyBackupCode(db, user, plain[0])
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 9, RemainingBackupCodes(user))

	// The same code cannot be replayed
	ok, err = VerifyBackupCode(db, user, plain[0])
	require.NoError(t, err)
	assert.False(t, ok)

	// Other codes still work, case-insensitively
	ok, err = VerifyBackupCode(db, user, " "+plain[1]+" ")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyBackupCodeEmptyList(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	ok, err := VerifyBackupCode(db, user, "ABCD1234")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, RemainingBackupCodes(user))
}

func TestBackupCodesPersistConsumption(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	plain, hashed, err := GenerateBackupCodes()
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("backup_codes", hashed).Error)
	user.BackupCodes = hashed

	ok, err := VerifyBackupCode(db, user, plain[3])
	require.NoError(t, err)
	require.True(t, ok)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 9, RemainingBackupCodes(&reloaded))
}
