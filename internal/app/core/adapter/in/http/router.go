package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// NewApp 建立 fiber App 並註冊所有路由
func NewApp(handler *Handler, logger *zap.Logger) *fiber.App {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               "account-ledger",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          newErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestLogger(logger))

	app.Get("/health", handler.Health)

	account := app.Group("/account")
	account.Post("", handler.CreateAccount)
	account.Delete("", handler.DeleteAccount)
	account.Get("", handler.GetAccounts)

	transaction := app.Group("/transaction")
	transaction.Post("/use", handler.UseBalance)
	transaction.Post("/cancel", handler.CancelBalance)
	transaction.Get("/:transactionId", handler.QueryTransaction)

	return app
}

// requestLogger 每個請求記一筆 debug log
func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug("http request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return err
	}
}
