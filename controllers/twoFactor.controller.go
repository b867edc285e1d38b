package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/utils"
	"lms/validators"
)

// TwoFactorSetupWindow is how long an unconfirmed secret stays usable. After
// this the user has to start the setup again.
const TwoFactorSetupWindow = 5 * time.Minute

type TwoFactorController struct {
	Mail *utils.EmailService
}

func NewTwoFactorController(mail *utils.EmailService) *TwoFactorController {
	return &TwoFactorController{Mail: mail}
}

// Enable generates a secret and returns the provisioning URI. Two-factor is
// not active until the user confirms a code from their authenticator.
func (ctrl *TwoFactorController) Enable(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found", nil)
	}
	if user.TwoFactorEnabled {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Two-factor is already enabled", nil)
	}

	secret, uri, err := utils.GenerateTwoFactorSecret(user.Email)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate secret", nil)
	}

	if err := db.Model(&user).Updates(map[string]interface{}{
		"two_factor_secret":           secret,
		"two_factor_secret_issued_at": time.Now(),
	}).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save secret", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Scan the QR code and confirm with a code", fiber.Map{
		"secret":          secret,
		"provisioningUri": uri,
	})
}

// Confirm activates two-factor after a valid code proves the authenticator
// is set up. Backup codes are returned once, here.
func (ctrl *TwoFactorController) Confirm(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)
	reqData := c.Locals("validatedTwoFactorCode").(validators.TwoFactorCodeRequest)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found", nil)
	}
	if user.TwoFactorEnabled {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Two-factor is already enabled", nil)
	}
	if user.TwoFactorSecret == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Two-factor setup has not been started", nil)
	}
	if user.TwoFactorSecretIssuedAt == nil || time.Since(*user.TwoFactorSecretIssuedAt) > TwoFactorSetupWindow {
		db.Model(&user).Updates(map[string]interface{}{
			"two_factor_secret":           "",
			"two_factor_secret_issued_at": nil,
		})
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Two-factor setup expired. Start again.", nil)
	}

	if !utils.VerifyTOTPCode(user.TwoFactorSecret, reqData.Code) {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid code", nil)
	}

	plainCodes, hashedCodes, err := utils.GenerateBackupCodes()
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate backup codes", nil)
	}

	if err := db.Model(&user).Updates(map[string]interface{}{
		"two_factor_enabled":          true,
		"two_factor_secret_issued_at": nil,
		"backup_codes":                hashedCodes,
	}).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to enable two-factor", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Two-factor enabled. Store these backup codes safely; they will not be shown again.", fiber.Map{
		"backupCodes": plainCodes,
	})
}

// Disable turns two-factor off. The user must re-prove their password and
// present a valid authenticator or backup code.
func (ctrl *TwoFactorController) Disable(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	var reqData struct {
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := c.BodyParser(&reqData); err != nil || reqData.Password == "" || reqData.Code == "" {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Password and code are required", nil)
	}

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found", nil)
	}
	if !user.TwoFactorEnabled {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Two-factor is not enabled", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(reqData.Password)); err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Password is incorrect", nil)
	}

	if !utils.VerifyTOTPCode(user.TwoFactorSecret, reqData.Code) {
		if ok, _ := utils.VerifyBackupCode(db, &user, reqData.Code); !ok {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid two-factor code", nil)
		}
	}

	if err := db.Model(&user).Updates(map[string]interface{}{
		"two_factor_enabled":          false,
		"two_factor_secret":           "",
		"two_factor_secret_issued_at": nil,
		"backup_codes":                datatypes.JSON("[]"),
	}).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to disable two-factor", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Two-factor disabled", nil)
}

func (ctrl *TwoFactorController) Status(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Two-factor status", fiber.Map{
		"enabled":              user.TwoFactorEnabled,
		"remainingBackupCodes": utils.RemainingBackupCodes(&user),
	})
}

// RegenerateBackupCodes replaces the entire batch. Old codes stop working
// immediately.
func (ctrl *TwoFactorController) RegenerateBackupCodes(c *fiber.Ctx) error {
	db := database.Database.Db
	userID := c.Locals("userId").(uint)
	reqData := c.Locals("validatedTwoFactorCode").(validators.TwoFactorCodeRequest)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "User not found", nil)
	}
	if !user.TwoFactorEnabled {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Two-factor is not enabled", nil)
	}

	if !utils.VerifyTOTPCode(user.TwoFactorSecret, reqData.Code) {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid code", nil)
	}

	plainCodes, hashedCodes, err := utils.GenerateBackupCodes()
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to generate backup codes", nil)
	}

	if err := db.Model(&user).Update("backup_codes", hashedCodes).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save backup codes", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "New backup codes generated. Previous codes are no longer valid.", fiber.Map{
		"backupCodes": plainCodes,
	})
}
