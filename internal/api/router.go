package api

import (
	"time"

	_ "koins/docs"
	"koins/internal/api/handlers"
	"koins/pkg/auth"
	"koins/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	Scan        *handlers.ScanHandler
	Transaction *handlers.TransactionHandler
	Prediction  *handlers.PredictionHandler
}

type RouterConfig struct {
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func SetupRouter(
	h Handlers,
	jwtManager *auth.JWTManager,
	cfg RouterConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	user := app.Group("/user")

	authGroup := user.Group("/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/refresh", h.Auth.RefreshToken)

	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	protected.Get("/profile", h.Auth.GetProfile)
	protected.Put("/profile", h.Auth.UpdateProfile)

	protected.Get("/categories", h.Transaction.ListCategories)

	scans := protected.Group("/scans")
	scans.Post("", h.Scan.ScanImage)
	scans.Post("/text", h.Scan.ScanText)
	protected.Get("/drafts/manual", h.Scan.ManualDraft)

	transactions := protected.Group("/transactions")
	transactions.Post("", h.Transaction.CreateTransaction)
	transactions.Get("", h.Transaction.ListTransactions)
	transactions.Delete("/:id", h.Transaction.DeleteTransaction)

	stats := protected.Group("/stats")
	stats.Get("", h.Transaction.GetStats)
	stats.Get("/categories", h.Transaction.GetCategoryTotals)

	protected.Get("/predictions", h.Prediction.ListPredictions)

	return app
}
