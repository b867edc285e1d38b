package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lms/config"
	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/utils"
	"lms/validators"
)

// DeletionGraceDays is the window between a deletion request and the
// account being removed
const DeletionGraceDays = 14

type AuthController struct {
	Mail *utils.EmailService
}

func NewAuthController(mail *utils.EmailService) *AuthController {
	return &AuthController{Mail: mail}
}

func (ctrl *AuthController) SignUp(c *fiber.Ctx) error {
	db := database.Database.Db
	reqData := c.Locals("validatedSignUp").(validators.SignUpRequest)

	var existing models.User
	if err := db.Where("email = ?", reqData.Email).First(&existing).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "An account with this email already exists", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reqData.Password), config.AppConfig.SaltRound)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create account", nil)
	}

	user := models.User{
		FullName:    reqData.FullName,
		Email:       reqData.Email,
		Password:    string(hashed),
		PhoneNumber: reqData.PhoneNumber,
		Timezone:    reqData.Timezone,
		Role:        models.RoleUser,
		IsActive:    true,
	}
	if err := db.Create(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create account", nil)
	}

	token, err := utils.CreateEmailVerificationToken(db, user.ID)
	if err == nil {
		go ctrl.Mail.SendVerificationEmail(&user, token.Token)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Account created. Check your email to verify your address.", fiber.Map{
		"id":       user.ID,
		"fullName": user.FullName,
		"email":    user.Email,
	})
}

func (ctrl *AuthController) Login(c *fiber.Ctx) error {
	db := database.Database.Db
	reqData := c.Locals("validatedLogin").(validators.LoginRequest)

	var user models.User
	if err := db.Where("email = ?", reqData.Email).First(&user).Error; err != nil {
		utils.LogLoginAttempt(db, nil, reqData.Email, false, utils.FailureInvalidCredentials, c)
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid email or password", nil)
	}

	if user.IsAccountLocked() {
		utils.LogLoginAttempt(db, &user, reqData.Email, false, utils.FailureAccountLocked, c)
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Account is temporarily locked. Try again later.", nil)
	}

	if !user.IsActive {
		utils.LogLoginAttempt(db, &user, reqData.Email, false, utils.FailureAccountInactive, c)
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Account is deactivated", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqData.Password)); err != nil {
		locked := utils.LogLoginAttempt(db, &user, reqData.Email, false, utils.FailureInvalidCredentials, c)
		if locked && user.AccountLockedUntil != nil {
			go ctrl.Mail.SendAccountLockedEmail(&user, *user.AccountLockedUntil)
		}
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid email or password", nil)
	}

	if !user.IsEmailVerified {
		utils.LogLoginAttempt(db, &user, reqData.Email, false, utils.FailureEmailNotVerified, c)
		if token, err := utils.CreateEmailVerificationToken(db, user.ID); err == nil {
			go ctrl.Mail.SendVerificationEmail(&user, token.Token)
		}
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Please verify your email address. A new verification email has been sent.", nil)
	}

	if user.TwoFactorEnabled {
		if reqData.TOTPCode == "" {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Two-factor code required", fiber.Map{
				"twoFactorRequired": true,
			})
		}
		if !utils.VerifyTOTPCode(user.TwoFactorSecret, reqData.TOTPCode) {
			ok, _ := utils.VerifyBackupCode(db, &user, reqData.TOTPCode)
			if !ok {
				locked := utils.LogLoginAttempt(db, &user, reqData.Email, false, utils.FailureInvalid2FA, c)
				if locked && user.AccountLockedUntil != nil {
					go ctrl.Mail.SendAccountLockedEmail(&user, *user.AccountLockedUntil)
				}
				return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid two-factor code", nil)
			}
		}
	}

	accessToken, err := middleware.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to issue tokens", nil)
	}
	refreshToken, err := utils.CreateRefreshToken(db, user.ID, c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to issue tokens", nil)
	}

	utils.LogLoginAttempt(db, &user, reqData.Email, true, "", c)

	now := time.Now()
	db.Model(&user).Updates(map[string]interface{}{
		"last_login":    now,
		"last_activity": now,
	})

	session, _ := utils.CreateUserSession(db, user.ID, refreshToken.Token, c)

	ip := utils.GetClientIP(c)
	location := ""
	if session != nil {
		location = session.Location
	}
	// One notification per login: new-device when the device is unknown,
	// otherwise the regular login alert.
	if session != nil && session.IsNewDevice {
		go ctrl.Mail.SendNewDeviceEmail(&user, ip, location, c.Get("User-Agent"))
	} else {
		go ctrl.Mail.SendLoginAlertEmail(&user, ip, location, now)
	}

	data := fiber.Map{
		"accessToken":  accessToken,
		"refreshToken": refreshToken.Token,
		"user": fiber.Map{
			"id":              user.ID,
			"fullName":        user.FullName,
			"email":           user.Email,
			"role":            user.Role,
			"isEmailVerified": user.IsEmailVerified,
		},
	}
	if user.IsDeletionPending {
		data["warning"] = "This account is scheduled for deletion"
		data["deletionScheduledFor"] = user.DeletionScheduledFor
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Login successful", data)
}

func (ctrl *AuthController) RefreshToken(c *fiber.Ctx) error {
	db := database.Database.Db
	reqData := c.Locals("validatedRefresh").(validators.RefreshRequest)

	rotated, err := utils.RotateRefreshToken(db, reqData.RefreshToken)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid or expired refresh token", nil)
	}

	var user models.User
	if err := db.First(&user, rotated.UserID).Error; err != nil || !user.IsActive {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Account is not available", nil)
	}

	accessToken, err := middleware.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to issue tokens", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Token refreshed", fiber.Map{
		"accessToken":  accessToken,
		"refreshToken": rotated.Token,
	})
}

func (ctrl *AuthController) Logout(c *fiber.Ctx) error {
	db := database.Database.Db
	reqData := c.Locals("validatedRefresh").(validators.RefreshRequest)

	if err := utils.BlacklistRefreshToken(db, reqData.RefreshToken); err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to log out", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Logged out", nil)
}

func (ctrl *AuthController) LogoutAll(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	count, err := utils.BlacklistAllUserTokens(db, userID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to log out", nil)
	}

	db.Model(&models.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Logged out everywhere", fiber.Map{
		"revokedTokens": count,
	})
}

func (ctrl *AuthController) VerifyEmail(c *fiber.Ctx) error {
	db := database.Database.Db
	reqData := c.Locals("validatedVerifyEmail").(validators.TokenOnlyRequest)

	var token models.EmailVerificationToken
	if err := db.Where("token = ?", reqData.Token).First(&token).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid verification token", nil)
	}
	if !token.IsValid() {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Verification token is expired or already used", nil)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", token.UserID).
			Update("is_email_verified", true).Error; err != nil {
			return err
		}
		return tx.Model(&token).Update("is_used", true).Error
	})
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to verify email", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Email verified successfully", nil)
}

func (ctrl *AuthController) ResendVerification(c *fiber.Ctx) error {
	db := database.Database.Db
	reqData := c.Locals("validatedResend").(validators.EmailOnlyRequest)

	var user models.User
	if err := db.Where("email = ?", reqData.Email).First(&user).Error; err == nil && !user.IsEmailVerified {
		if token, err := utils.CreateEmailVerificationToken(db, user.ID); err == nil {
			go ctrl.Mail.SendVerificationEmail(&user, token.Token)
		}
	}

	// Same response whether or not the account exists
	return middleware.JsonResponse(c, fiber.StatusOK, true, "If the account exists and is unverified, a new email has been sent", nil)
}

func (ctrl *AuthController) ForgotPassword(c *fiber.Ctx) error {
	db := database.Database.Db
	reqData := c.Locals("validatedForgotPassword").(validators.EmailOnlyRequest)

	var user models.User
	if err := db.Where("email = ?", reqData.Email).First(&user).Error; err == nil && user.IsActive {
		if token, err := utils.CreatePasswordResetToken(db, user.ID); err == nil {
			go ctrl.Mail.SendPasswordResetEmail(&user, token.Token)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "If the account exists, a reset email has been sent", nil)
}

func (ctrl *AuthController) ResetPassword(c *fiber.Ctx) error {
	db := database.Database.Db
	reqData := c.Locals("validatedResetPassword").(validators.ResetPasswordRequest)

	var token models.PasswordResetToken
	if err := db.Where("token = ?", reqData.Token).First(&token).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid reset token", nil)
	}
	if !token.IsValid() {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Reset token is expired or already used", nil)
	}

	var user models.User
	if err := db.First(&user, token.UserID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid reset token", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reqData.NewPassword), config.AppConfig.SaltRound)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to reset password", nil)
	}

	now := time.Now()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Updates(map[string]interface{}{
			"password":              string(hashed),
			"password_changed_at":   now,
			"failed_login_attempts": 0,
			"account_locked_at":     nil,
			"account_locked_until":  nil,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&token).Update("is_used", true).Error
	})
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to reset password", nil)
	}

	// A password reset invalidates every open session
	utils.BlacklistAllUserTokens(db, user.ID)
	go ctrl.Mail.SendPasswordChangedEmail(&user)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Password reset successfully. Please log in again.", nil)
}

func (ctrl *AuthController) ChangePassword(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)
	reqData := c.Locals("validatedChangePassword").(validators.ChangePasswordRequest)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqData.CurrentPassword)); err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Current password is incorrect", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(reqData.NewPassword), config.AppConfig.SaltRound)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to change password", nil)
	}

	now := time.Now()
	if err := db.Model(&user).Updates(map[string]interface{}{
		"password":            string(hashed),
		"password_changed_at": now,
	}).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to change password", nil)
	}

	utils.BlacklistAllUserTokens(db, user.ID)
	go ctrl.Mail.SendPasswordChangedEmail(&user)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Password changed. Please log in again.", nil)
}

func (ctrl *AuthController) Profile(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile fetched", fiber.Map{
		"id":                user.ID,
		"fullName":          user.FullName,
		"email":             user.Email,
		"phoneNumber":       user.PhoneNumber,
		"role":              user.Role,
		"timezone":          user.Timezone,
		"isEmailVerified":   user.IsEmailVerified,
		"twoFactorEnabled":  user.TwoFactorEnabled,
		"isDeletionPending": user.IsDeletionPending,
		"lastLogin":         user.LastLogin,
		"createdAt":         user.CreatedAt,
	})
}

func (ctrl *AuthController) UpdateProfile(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)
	reqData := c.Locals("validatedUpdateProfile").(validators.UpdateProfileRequest)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found", nil)
	}

	updates := map[string]interface{}{}
	if reqData.FullName != "" {
		updates["full_name"] = reqData.FullName
	}
	if reqData.PhoneNumber != "" {
		updates["phone_number"] = reqData.PhoneNumber
	}
	if reqData.Timezone != "" {
		updates["timezone"] = reqData.Timezone
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update profile", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Profile updated", fiber.Map{
		"id":          user.ID,
		"fullName":    user.FullName,
		"email":       user.Email,
		"phoneNumber": user.PhoneNumber,
		"timezone":    user.Timezone,
	})
}

func (ctrl *AuthController) Sessions(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	var sessions []models.UserSession
	if err := db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("last_activity DESC").Find(&sessions).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch sessions", nil)
	}

	list := make([]fiber.Map, 0, len(sessions))
	for _, s := range sessions {
		list = append(list, fiber.Map{
			"id":           s.ID,
			"ipAddress":    s.IPAddress,
			"userAgent":    s.UserAgent,
			"location":     s.Location,
			"isNewDevice":  s.IsNewDevice,
			"lastActivity": s.LastActivity,
			"createdAt":    s.CreatedAt,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Sessions fetched", list)
}

func (ctrl *AuthController) RevokeSession(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	sessionID, err := c.ParamsInt("id")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid session id", nil)
	}

	var session models.UserSession
	if err := db.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Session not found", nil)
	}

	db.Model(&session).Update("is_active", false)
	utils.BlacklistRefreshToken(db, session.SessionToken)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Session revoked", nil)
}

func (ctrl *AuthController) RequestDeletion(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found", nil)
	}
	if user.IsDeletionPending {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Account deletion is already scheduled", nil)
	}

	if err := user.RequestDeletion(db, DeletionGraceDays); err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to schedule deletion", nil)
	}

	go ctrl.Mail.SendDeletionRequestedEmail(&user, *user.DeletionScheduledFor)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Account deletion scheduled", fiber.Map{
		"scheduledFor": user.DeletionScheduledFor,
	})
}

// DeleteAccountImmediate removes the account right away instead of waiting
// out the grace period. The password is re-confirmed first.
func (ctrl *AuthController) DeleteAccountImmediate(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)
	reqData := c.Locals("validatedDeleteAccount").(validators.PasswordConfirmRequest)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqData.Password)); err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Password is incorrect", nil)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(&models.UserSession{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(&models.EmailVerificationToken{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.User{}, user.ID).Error
	})
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to delete account", nil)
	}

	go ctrl.Mail.SendAccountDeletedEmail(user.Email, user.FullName)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Account deleted", nil)
}

func (ctrl *AuthController) CancelDeletion(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found", nil)
	}
	if !user.IsDeletionPending {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "No deletion request to cancel", nil)
	}

	if err := user.CancelDeletion(db); err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to cancel deletion", nil)
	}

	go ctrl.Mail.SendDeletionCancelledEmail(&user)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Account deletion cancelled", nil)
}
