package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lms/models"
)

func seedRefreshToken(t *testing.T, db *gorm.DB, userID uint, expiresAt time.Time, blacklisted bool) *models.RefreshToken {
	t.Helper()
	secret, err := randomToken(32)
	require.NoError(t, err)
	token := &models.RefreshToken{
		UserID:        userID,
		Token:         secret,
		ExpiresAt:     expiresAt,
		IsBlacklisted: blacklisted,
		IPAddress:     "203.0.113.10",
		UserAgent:     "test-agent",
	}
	require.NoError(t, db.Create(token).Error)
	return token
}

func TestRotateRefreshToken(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	original := models.RefreshToken{
		UserID:    user.ID,
		Token:     "original-secret",
		ExpiresAt: time.Now().Add(24 * time.Hour),
		IPAddress: "203.0.113.10",
	}
	require.NoError(t, db.Create(&original).Error)

	rotated, err := RotateRefreshToken(db, "original-secret")
	require.NoError(t, err)

	// Same row, new secret
	assert.Equal(t, original.ID, rotated.ID)
	assert.NotEqual(t, "original-secret", rotated.Token)
	assert.Equal(t, "203.0.113.10", rotated.IPAddress)

	// The old secret no longer resolves to anything
	_, err = RotateRefreshToken(db, "original-secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	var count int64
	db.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRotateRefreshTokenRejectsExpired(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	expired := models.RefreshToken{
		UserID:    user.ID,
		Token:     "expired-secret",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&expired).Error)

	_, err := RotateRefreshToken(db, "expired-secret")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRotateRefreshTokenRejectsBlacklisted(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	revoked := models.RefreshToken{
		UserID:        user.ID,
		Token:         "revoked-secret",
		ExpiresAt:     time.Now().Add(24 * time.Hour),
		IsBlacklisted: true,
	}
	require.NoError(t, db.Create(&revoked).Error)

	_, err := RotateRefreshToken(db, "revoked-secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestBlacklistRefreshTokenIdempotent(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	token := models.RefreshToken{
		UserID:    user.ID,
		Token:     "live-secret",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, db.Create(&token).Error)

	require.NoError(t, BlacklistRefreshToken(db, "live-secret"))
	require.NoError(t, BlacklistRefreshToken(db, "live-secret"))
	// An unknown token is also a no-op, not an error
	require.NoError(t, BlacklistRefreshToken(db, "never-issued"))

	var reloaded models.RefreshToken
	require.NoError(t, db.First(&reloaded, token.ID).Error)
	assert.True(t, reloaded.IsBlacklisted)
}

func TestBlacklistAllUserTokens(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")
	other := testUser(t, db, "other@example.com")

	for i := 0; i < 3; i++ {
		seedRefreshToken(t, db, user.ID, time.Now().Add(24*time.Hour), false)
	}
	otherToken := seedRefreshToken(t, db, other.ID, time.Now().Add(24*time.Hour), false)

	count, err := BlacklistAllUserTokens(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	var reloaded models.RefreshToken
	require.NoError(t, db.First(&reloaded, otherToken.ID).Error)
	assert.False(t, reloaded.IsBlacklisted)
}

func TestCreateEmailVerificationTokenInvalidatesPrior(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	first, err := CreateEmailVerificationToken(db, user.ID)
	require.NoError(t, err)
	second, err := CreateEmailVerificationToken(db, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	var reloaded models.EmailVerificationToken
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.True(t, reloaded.IsUsed)
	assert.True(t, second.IsValid())
}

func TestCreatePasswordResetTokenInvalidatesPrior(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	first, err := CreatePasswordResetToken(db, user.ID)
	require.NoError(t, err)
	_, err = CreatePasswordResetToken(db, user.ID)
	require.NoError(t, err)

	var reloaded models.PasswordResetToken
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.True(t, reloaded.IsUsed)
}
