package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lms/models"
)

// withRequestCtx runs fn inside a fiber handler so code that needs a request
// context can be exercised
func withRequestCtx(t *testing.T, headers map[string]string, fn func(c *fiber.Ctx)) {
	t.Helper()
	app := fiber.New()
	app.Get("/ctx", func(c *fiber.Ctx) error {
		fn(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ctx", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestDeviceFingerprintStable(t *testing.T) {
	headers := map[string]string{
		"User-Agent":      "Mozilla/5.0",
		"Accept-Language": "en-GB",
		"Accept-Encoding": "gzip",
	}

	var first, second, different string
	withRequestCtx(t, headers, func(c *fiber.Ctx) { first = DeviceFingerprint(c) })
	withRequestCtx(t, headers, func(c *fiber.Ctx) { second = DeviceFingerprint(c) })

	headers["User-Agent"] = "curl/8.0"
	withRequestCtx(t, headers, func(c *fiber.Ctx) { different = DeviceFingerprint(c) })

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, different)
	assert.Len(t, first, 64)
}

func TestGetClientIPPrefersForwardedHeader(t *testing.T) {
	var ip string
	withRequestCtx(t, map[string]string{
		"X-Forwarded-For": "203.0.113.7, 10.0.0.1",
	}, func(c *fiber.Ctx) { ip = GetClientIP(c) })
	assert.Equal(t, "203.0.113.7", ip)
}

func TestIsNewDevice(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	assert.True(t, IsNewDevice(db, user.ID, "fp-1"))

	require.NoError(t, db.Create(&models.UserSession{
		UserID: user.ID, SessionToken: "s-1", DeviceFingerprint: "fp-1", IsActive: true,
	}).Error)

	assert.False(t, IsNewDevice(db, user.ID, "fp-1"))
	assert.True(t, IsNewDevice(db, user.ID, "fp-2"))
}

func logAttempt(t *testing.T, db *gorm.DB, user *models.User, success bool, reason string) bool {
	t.Helper()
	var locked bool
	withRequestCtx(t, map[string]string{"User-Agent": "test-agent"}, func(c *fiber.Ctx) {
		locked = LogLoginAttempt(db, user, user.Email, success, reason, c)
	})
	return locked
}

func TestFailedAttemptsTriggerLockout(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	for i := 0; i < 4; i++ {
		locked := logAttempt(t, db, user, false, FailureInvalidCredentials)
		assert.False(t, locked)
	}

	locked := logAttempt(t, db, user, false, FailureInvalidCredentials)
	assert.True(t, locked)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 5, reloaded.FailedLoginAttempts)
	assert.True(t, reloaded.IsAccountLocked())
}

func TestRateLimitedAttemptsDoNotCountTowardLockout(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	for i := 0; i < 10; i++ {
		locked := logAttempt(t, db, user, false, FailureRateLimited)
		assert.False(t, locked)
	}

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 0, reloaded.FailedLoginAttempts)
	assert.False(t, reloaded.IsAccountLocked())

	// The attempts are still recorded for the audit trail
	var count int64
	db.Model(&models.LoginAttempt{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(10), count)
}

func TestSuccessfulLoginResetsCounter(t *testing.T) {
	db := setupTestDB(t)
	user := testUser(t, db, "user@example.com")

	for i := 0; i < 3; i++ {
		logAttempt(t, db, user, false, FailureInvalidCredentials)
	}
	logAttempt(t, db, user, true, "")

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.Equal(t, 0, reloaded.FailedLoginAttempts)
}
