package utils

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"lms/config"
	"lms/models"
)

var (
	ErrTokenInvalid = errors.New("refresh token is invalid or revoked")
	ErrTokenExpired = errors.New("refresh token has expired")
)

// randomToken returns a URL-safe secret of n random bytes
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateRefreshToken issues an opaque refresh token bound to the requesting
// client and persists it
func CreateRefreshToken(db *gorm.DB, userID uint, c *fiber.Ctx) (*models.RefreshToken, error) {
	secret, err := randomToken(32)
	if err != nil {
		return nil, err
	}

	token := models.RefreshToken{
		UserID:            userID,
		Token:             secret,
		ExpiresAt:         time.Now().AddDate(0, 0, config.AppConfig.RefreshTokenDays),
		IPAddress:         GetClientIP(c),
		UserAgent:         c.Get("User-Agent"),
		DeviceFingerprint: DeviceFingerprint(c),
	}
	if err := db.Create(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// RotateRefreshToken exchanges a valid refresh token for a new secret. The
// row is updated in place, which keeps the audit trail (IP, device) attached
// to the same record and guarantees the old secret stops working the moment
// the new one exists.
func RotateRefreshToken(db *gorm.DB, tokenString string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := db.Where("token = ?", tokenString).First(&token).Error; err != nil {
		return nil, ErrTokenInvalid
	}

	if token.IsBlacklisted {
		return nil, ErrTokenInvalid
	}
	if token.IsExpired() {
		return nil, ErrTokenExpired
	}

	secret, err := randomToken(32)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"token":      secret,
		"expires_at": time.Now().AddDate(0, 0, config.AppConfig.RefreshTokenDays),
		"created_at": time.Now(),
	}
	if err := db.Model(&token).Updates(updates).Error; err != nil {
		return nil, err
	}

	token.Token = secret
	return &token, nil
}

// BlacklistRefreshToken revokes a single refresh token. Unknown tokens are a
// no-op so logout stays idempotent.
func BlacklistRefreshToken(db *gorm.DB, tokenString string) error {
	result := db.Model(&models.RefreshToken{}).
		Where("token = ?", tokenString).
		Update("is_blacklisted", true)
	return result.Error
}

// BlacklistAllUserTokens revokes every refresh token a user holds. Used for
// logout-everywhere and after password changes.
func BlacklistAllUserTokens(db *gorm.DB, userID uint) (int64, error) {
	result := db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_blacklisted = ?", userID, false).
		Update("is_blacklisted", true)
	return result.RowsAffected, result.Error
}

// CreateEmailVerificationToken invalidates any outstanding verification
// tokens before issuing a fresh one
func CreateEmailVerificationToken(db *gorm.DB, userID uint) (*models.EmailVerificationToken, error) {
	db.Model(&models.EmailVerificationToken{}).
		Where("user_id = ? AND is_used = ?", userID, false).
		Update("is_used", true)

	secret, err := randomToken(32)
	if err != nil {
		return nil, err
	}
	token := models.EmailVerificationToken{
		UserID:    userID,
		Token:     secret,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := db.Create(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// CreatePasswordResetToken invalidates outstanding reset tokens before
// issuing a fresh one
func CreatePasswordResetToken(db *gorm.DB, userID uint) (*models.PasswordResetToken, error) {
	db.Model(&models.PasswordResetToken{}).
		Where("user_id = ? AND is_used = ?", userID, false).
		Update("is_used", true)

	secret, err := randomToken(32)
	if err != nil {
		return nil, err
	}
	token := models.PasswordResetToken{
		UserID:    userID,
		Token:     secret,
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}
	if err := db.Create(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}
