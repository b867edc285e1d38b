package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"lms/config"
	"lms/controllers"
	"lms/database"
	"lms/gateways"
	"lms/routers"
	"lms/services"
	"lms/utils"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()
	db := database.Database.Db

	registry := gateways.NewRegistry(config.AppConfig)
	mail := utils.NewEmailService(config.AppConfig, db, utils.NewSendgridTransport(config.AppConfig))
	verifier := utils.NewBankVerifier(config.AppConfig)

	refundEngine := services.NewRefundEngine(db, registry, mail)
	payoutEngine := services.NewPayoutEngine(db, registry, mail)
	bankService := services.NewBankService(db, verifier, mail)

	scheduler := utils.NewMaintenanceScheduler(db, mail, payoutEngine.CreateMonthlyPayouts)
	scheduler.Start()
	defer scheduler.Stop()

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	authController := controllers.NewAuthController(mail)
	twoFactorController := controllers.NewTwoFactorController(mail)
	refundController := controllers.NewRefundController(refundEngine)
	payoutController := controllers.NewPayoutController(payoutEngine, bankService, verifier)

	routers.SetupAuthRoutes(app, authController, twoFactorController)
	routers.SetupPaymentRoutes(app, refundController)
	routers.SetupPayoutRoutes(app, payoutController)

	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
