package controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lms/models"
	"lms/utils"
)

func enableTwoFactor(t *testing.T, db *gorm.DB, user *models.User) string {
	t.Helper()
	secret, _, err := utils.GenerateTwoFactorSecret(user.Email)
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Updates(map[string]interface{}{
		"two_factor_enabled": true,
		"two_factor_secret":  secret,
	}).Error)
	return secret
}

func TestDisableTwoFactorRequiresCode(t *testing.T) {
	app, db, _ := setupAuthApp(t)

	user := createVerifiedUser(t, db, "totp@example.com")
	enableTwoFactor(t, db, user)
	token := accessTokenFor(t, user)

	// Password alone is not enough
	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/2fa/disable", token, fiber.Map{
		"password": testPassword,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/2fa/disable", token, fiber.Map{
		"password": testPassword,
		"code":     "000000",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	db.First(user, user.ID)
	assert.True(t, user.TwoFactorEnabled)
}

func TestDisableTwoFactorWithValidCode(t *testing.T) {
	app, db, _ := setupAuthApp(t)

	user := createVerifiedUser(t, db, "totp@example.com")
	secret := enableTwoFactor(t, db, user)
	token := accessTokenFor(t, user)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/2fa/disable", token, fiber.Map{
		"password": testPassword,
		"code":     code,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	db.First(user, user.ID)
	assert.False(t, user.TwoFactorEnabled)
	assert.Empty(t, user.TwoFactorSecret)
}

func TestConfirmRejectsExpiredSetup(t *testing.T) {
	app, db, _ := setupAuthApp(t)

	user := createVerifiedUser(t, db, "setup@example.com")
	token := accessTokenFor(t, user)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/2fa/enable", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	db.First(user, user.ID)
	require.NotEmpty(t, user.TwoFactorSecret)
	require.NotNil(t, user.TwoFactorSecretIssuedAt)

	// Let the setup window lapse before confirming
	stale := time.Now().Add(-6 * time.Minute)
	require.NoError(t, db.Model(user).Update("two_factor_secret_issued_at", stale).Error)

	code, err := totp.GenerateCode(user.TwoFactorSecret, time.Now())
	require.NoError(t, err)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/2fa/confirm", token, fiber.Map{
		"code": code,
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// The stale secret is discarded so setup has to start over
	db.First(user, user.ID)
	assert.False(t, user.TwoFactorEnabled)
	assert.Empty(t, user.TwoFactorSecret)
}

func TestConfirmWithinSetupWindow(t *testing.T) {
	app, db, _ := setupAuthApp(t)

	user := createVerifiedUser(t, db, "setup@example.com")
	token := accessTokenFor(t, user)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/auth/2fa/enable", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	db.First(user, user.ID)
	code, err := totp.GenerateCode(user.TwoFactorSecret, time.Now())
	require.NoError(t, err)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/auth/2fa/confirm", token, fiber.Map{
		"code": code,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	db.First(user, user.ID)
	assert.True(t, user.TwoFactorEnabled)
	assert.Nil(t, user.TwoFactorSecretIssuedAt)
}
