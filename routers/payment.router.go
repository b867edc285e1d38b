package routers

import (
	"github.com/gofiber/fiber/v2"

	"lms/controllers"
	"lms/middleware"
	"lms/models"
	"lms/validators"
)

func SetupPaymentRoutes(app *fiber.App, refund *controllers.RefundController) {
	refundGroup := app.Group("/api/v1/refunds", middleware.JWTMiddleware())

	refundGroup.Post("/", validators.RefundRequestValidator(), refund.RequestRefund)
	refundGroup.Get("/my", refund.MyRefunds)

	adminGroup := app.Group("/api/v1/admin/refunds",
		middleware.JWTMiddleware(),
		middleware.RequireRole(models.RoleSuperAdmin))
	adminGroup.Get("/pending", refund.PendingReviews)
	adminGroup.Post("/:id/process", refund.ProcessRefund)
}
