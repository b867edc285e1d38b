package utils

import (
	"crypto/sha256"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"lms/config"
	"lms/models"
)

// Failure reasons recorded on login attempts
const (
	FailureInvalidCredentials = "invalid_credentials"
	FailureAccountLocked      = "account_locked"
	FailureAccountInactive    = "account_inactive"
	FailureInvalid2FA         = "invalid_2fa_code"
	FailureEmailNotVerified   = "email_not_verified"
	FailureRateLimited        = "rate_limited"
)

// MaxFailedAttempts triggers a lockout once reached
const MaxFailedAttempts = 5

// LockoutDuration is how long a locked account stays locked
const LockoutDuration = 30 * time.Minute

// GetClientIP prefers the forwarded header set by the proxy
func GetClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	return c.IP()
}

// DeviceFingerprint derives a stable identifier from request headers. It is
// a heuristic, not an authentication factor.
func DeviceFingerprint(c *fiber.Ctx) string {
	raw := c.Get("User-Agent") + c.Get("Accept-Language") + c.Get("Accept-Encoding")
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%x", sum)
}

// IsNewDevice reports whether this fingerprint has never been seen on an
// active session for the user
func IsNewDevice(db *gorm.DB, userID uint, fingerprint string) bool {
	var count int64
	db.Model(&models.UserSession{}).
		Where("user_id = ? AND device_fingerprint = ?", userID, fingerprint).
		Count(&count)
	return count == 0
}

// CreateUserSession records a session for audit and device tracking
func CreateUserSession(db *gorm.DB, userID uint, sessionToken string, c *fiber.Ctx) (*models.UserSession, error) {
	fingerprint := DeviceFingerprint(c)
	ip := GetClientIP(c)

	session := models.UserSession{
		UserID:            userID,
		SessionToken:      sessionToken,
		IPAddress:         ip,
		UserAgent:         c.Get("User-Agent"),
		DeviceFingerprint: fingerprint,
		Location:          GetLocationFromIP(ip),
		IsNewDevice:       IsNewDevice(db, userID, fingerprint),
		LastActivity:      time.Now(),
		IsActive:          true,
	}
	if err := db.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// GetLocationFromIP resolves a coarse location for login alerts. Lookup
// failures degrade to "Unknown" rather than blocking the login.
func GetLocationFromIP(ip string) string {
	if ip == "" || ip == "127.0.0.1" || ip == "::1" {
		return "Unknown"
	}

	client := resty.New().SetTimeout(3 * time.Second)
	var result struct {
		Status  string `json:"status"`
		City    string `json:"city"`
		Country string `json:"country"`
	}
	resp, err := client.R().
		SetResult(&result).
		Get(fmt.Sprintf("%s/%s", config.AppConfig.GeoApiURL, ip))
	if err != nil || resp.StatusCode() != 200 || result.Status != "success" {
		return "Unknown"
	}

	if result.City != "" && result.Country != "" {
		return result.City + ", " + result.Country
	}
	if result.Country != "" {
		return result.Country
	}
	return "Unknown"
}

// LogLoginAttempt writes the audit row and, for failures, advances the
// lockout counter. Only genuine credential failures count toward lockout;
// rate-limited or unverified-email rejections are recorded without counting,
// otherwise a flood of throttled requests would lock the account on its own.
// The return value reports whether this attempt tripped the lockout, so the
// caller can notify the user.
func LogLoginAttempt(db *gorm.DB, user *models.User, email string, success bool, failureReason string, c *fiber.Ctx) (locked bool) {
	attempt := models.LoginAttempt{
		Email:         email,
		IPAddress:     GetClientIP(c),
		UserAgent:     c.Get("User-Agent"),
		Success:       success,
		FailureReason: failureReason,
	}
	if user != nil {
		attempt.UserID = &user.ID
	}
	if err := db.Create(&attempt).Error; err != nil {
		log.Printf("Failed to record login attempt: %v", err)
	}

	if user == nil {
		return false
	}

	if success {
		user.ResetFailedAttempts(db)
		return false
	}

	if failureReason != FailureInvalidCredentials && failureReason != FailureInvalid2FA {
		return false
	}

	user.FailedLoginAttempts++
	db.Model(user).Update("failed_login_attempts", user.FailedLoginAttempts)

	if user.FailedLoginAttempts >= MaxFailedAttempts {
		if err := user.LockAccount(db, LockoutDuration); err != nil {
			log.Printf("Failed to lock account %s: %v", email, err)
			return false
		}
		return true
	}
	return false
}
