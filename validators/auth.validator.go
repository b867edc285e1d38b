package validators

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"lms/middleware"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type SignUpRequest struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	Timezone    string `json:"timezone"`
}

func SignUpValidator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData SignUpRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		errors := make(map[string]string)

		reqData.FullName = strings.TrimSpace(reqData.FullName)
		reqData.Email = strings.ToLower(strings.TrimSpace(reqData.Email))

		if reqData.FullName == "" {
			errors["fullName"] = "Full name is required"
		}
		if reqData.Email == "" {
			errors["email"] = "Email is required"
		} else if !emailRegex.MatchString(reqData.Email) {
			errors["email"] = "Email is not valid"
		}
		if len(reqData.Password) < 8 {
			errors["password"] = "Password must be at least 8 characters"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedSignUp", reqData)
		return c.Next()
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totpCode"`
}

func LoginValidator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData LoginRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		errors := make(map[string]string)
		reqData.Email = strings.ToLower(strings.TrimSpace(reqData.Email))

		if reqData.Email == "" {
			errors["email"] = "Email is required"
		}
		if reqData.Password == "" {
			errors["password"] = "Password is required"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedLogin", reqData)
		return c.Next()
	}
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func RefreshTokenValidator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData RefreshRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		if strings.TrimSpace(reqData.RefreshToken) == "" {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"refreshToken": "Refresh token is required",
			})
		}

		c.Locals("validatedRefresh", reqData)
		return c.Next()
	}
}

type TokenOnlyRequest struct {
	Token string `json:"token"`
}

func TokenValidator(localsKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData TokenOnlyRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		if strings.TrimSpace(reqData.Token) == "" {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"token": "Token is required",
			})
		}

		c.Locals(localsKey, reqData)
		return c.Next()
	}
}

type EmailOnlyRequest struct {
	Email string `json:"email"`
}

func EmailValidator(localsKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData EmailOnlyRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		reqData.Email = strings.ToLower(strings.TrimSpace(reqData.Email))
		if reqData.Email == "" || !emailRegex.MatchString(reqData.Email) {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"email": "A valid email is required",
			})
		}

		c.Locals(localsKey, reqData)
		return c.Next()
	}
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func ResetPasswordValidator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData ResetPasswordRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		errors := make(map[string]string)
		if strings.TrimSpace(reqData.Token) == "" {
			errors["token"] = "Token is required"
		}
		if len(reqData.NewPassword) < 8 {
			errors["newPassword"] = "Password must be at least 8 characters"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedResetPassword", reqData)
		return c.Next()
	}
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func ChangePasswordValidator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData ChangePasswordRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		errors := make(map[string]string)
		if reqData.CurrentPassword == "" {
			errors["currentPassword"] = "Current password is required"
		}
		if len(reqData.NewPassword) < 8 {
			errors["newPassword"] = "Password must be at least 8 characters"
		}
		if reqData.CurrentPassword != "" && reqData.CurrentPassword == reqData.NewPassword {
			errors["newPassword"] = "New password must be different from the current one"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedChangePassword", reqData)
		return c.Next()
	}
}

type UpdateProfileRequest struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Timezone    string `json:"timezone"`
}

func UpdateProfileValidator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData UpdateProfileRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		reqData.FullName = strings.TrimSpace(reqData.FullName)
		reqData.PhoneNumber = strings.TrimSpace(reqData.PhoneNumber)
		reqData.Timezone = strings.TrimSpace(reqData.Timezone)

		if reqData.FullName == "" && reqData.PhoneNumber == "" && reqData.Timezone == "" {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"fullName": "Provide at least one field to update",
			})
		}

		c.Locals("validatedUpdateProfile", reqData)
		return c.Next()
	}
}

type PasswordConfirmRequest struct {
	Password string `json:"password"`
}

func PasswordConfirmValidator(localsKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData PasswordConfirmRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		if reqData.Password == "" {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"password": "Password is required",
			})
		}

		c.Locals(localsKey, reqData)
		return c.Next()
	}
}

type TwoFactorCodeRequest struct {
	Code string `json:"code"`
}

func TwoFactorCodeValidator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqData TwoFactorCodeRequest
		if err := c.BodyParser(&reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body", nil)
		}

		reqData.Code = strings.TrimSpace(reqData.Code)
		if reqData.Code == "" {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"code": "Code is required",
			})
		}

		c.Locals("validatedTwoFactorCode", reqData)
		return c.Next()
	}
}
