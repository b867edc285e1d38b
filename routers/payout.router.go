package routers

import (
	"github.com/gofiber/fiber/v2"

	"lms/controllers"
	"lms/middleware"
	"lms/models"
	"lms/validators"
)

func SetupPayoutRoutes(app *fiber.App, payout *controllers.PayoutController) {
	instructorGroup := app.Group("/api/v1/instructor", middleware.JWTMiddleware())

	instructorGroup.Get("/banks", payout.ListBanks)
	instructorGroup.Get("/bank-account", payout.GetBankAccount)
	instructorGroup.Post("/bank-account", validators.BankAccountValidator(), payout.SaveBankAccount)
	instructorGroup.Post("/bank-account/verify", payout.VerifyBankAccount)
	instructorGroup.Post("/bank-account/auto-payout", validators.AutoPayoutValidator(), payout.ToggleAutoPayout)
	instructorGroup.Delete("/bank-account", payout.DeleteBankAccount)
	instructorGroup.Get("/earnings", payout.Earnings)
	instructorGroup.Get("/payouts", payout.PayoutHistory)

	adminGroup := app.Group("/api/v1/admin/payouts",
		middleware.JWTMiddleware(),
		middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin))
	adminGroup.Get("/pending", payout.PendingPayouts)
	adminGroup.Post("/:id/process", payout.ProcessPayout)
	adminGroup.Post("/bulk-process", validators.BulkPayoutValidator(), payout.BulkProcessPayouts)
}
