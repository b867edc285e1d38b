package routers

import (
	"github.com/gofiber/fiber/v2"

	"lms/controllers"
	"lms/middleware"
	"lms/validators"
)

func SetupAuthRoutes(app *fiber.App, auth *controllers.AuthController, twoFactor *controllers.TwoFactorController) {
	authGroup := app.Group("/api/v1/auth")

	authGroup.Post("/signup", validators.SignUpValidator(), auth.SignUp)
	authGroup.Post("/login", validators.LoginValidator(), auth.Login)
	authGroup.Post("/refresh", validators.RefreshTokenValidator(), auth.RefreshToken)
	authGroup.Post("/logout", validators.RefreshTokenValidator(), auth.Logout)
	authGroup.Post("/verify-email", validators.TokenValidator("validatedVerifyEmail"), auth.VerifyEmail)
	authGroup.Post("/resend-verification", validators.EmailValidator("validatedResend"), auth.ResendVerification)
	authGroup.Post("/forgot-password", validators.EmailValidator("validatedForgotPassword"), auth.ForgotPassword)
	authGroup.Post("/reset-password", validators.ResetPasswordValidator(), auth.ResetPassword)

	protected := app.Group("/api/v1/auth", middleware.JWTMiddleware())
	protected.Post("/logout-all", auth.LogoutAll)
	protected.Post("/change-password", validators.ChangePasswordValidator(), auth.ChangePassword)
	protected.Get("/profile", auth.Profile)
	protected.Put("/profile", validators.UpdateProfileValidator(), auth.UpdateProfile)
	protected.Get("/sessions", auth.Sessions)
	protected.Delete("/sessions/:id", auth.RevokeSession)
	protected.Post("/delete-account", auth.RequestDeletion)
	protected.Post("/delete-account/immediate", validators.PasswordConfirmValidator("validatedDeleteAccount"), auth.DeleteAccountImmediate)
	protected.Post("/cancel-deletion", auth.CancelDeletion)

	twoFactorGroup := app.Group("/api/v1/auth/2fa", middleware.JWTMiddleware())
	twoFactorGroup.Post("/enable", twoFactor.Enable)
	twoFactorGroup.Post("/confirm", validators.TwoFactorCodeValidator(), twoFactor.Confirm)
	twoFactorGroup.Post("/disable", twoFactor.Disable)
	twoFactorGroup.Get("/status", twoFactor.Status)
	twoFactorGroup.Post("/backup-codes/regenerate", validators.TwoFactorCodeValidator(), twoFactor.RegenerateBackupCodes)
}
