// Package routes wires the service graph and registers the HTTP routes.
// Construction happens here, explicitly, so every dependency is visible at
// the call site.
package routes

import (
	"time"

	"aurum/internal/config"
	"aurum/internal/gateway"
	"aurum/internal/handlers"
	"aurum/internal/middleware"
	"aurum/internal/repositories"
	"aurum/internal/repositories/cache"
	"aurum/internal/services/auth"
	"aurum/internal/services/ledger"
	"aurum/internal/services/order"
	"aurum/internal/services/policy"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes builds all repositories, services and handlers on top of the
// given connections and registers the API surface.
func SetupRoutes(app *fiber.App, db *gorm.DB, cacheService *cache.CacheService) {
	// Repositories
	walletRepo := repositories.NewWalletRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	userRepo := repositories.NewUserRepository(db)

	// Auth
	jwtSecret := config.GetEnv("JWT_SECRET", "aurum-dev-secret")
	tokenTTL := config.GetDurationEnv("JWT_TTL", 24*time.Hour)
	authService := auth.NewService(userRepo, jwtSecret, tokenTTL)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// Ledger service: the single balance mutator.
	var ledgerCache ledger.Cache
	if cacheService != nil {
		ledgerCache = cacheService
	}
	ledgerService := ledger.NewService(walletRepo, ledgerCache, nil, ledger.Config{
		MaxRetries:   config.GetIntEnv("LEDGER_MAX_RETRIES", 0),
		RetryBackoff: config.GetDurationEnv("LEDGER_RETRY_BACKOFF", 0),
		CacheTTL:     config.GetDurationEnv("LEDGER_CACHE_TTL", 0),
	})

	// Order state machines.
	orderCfg := order.Config{
		DepositTTL:     config.GetDurationEnv("DEPOSIT_TTL", 0),
		DepositFeeBps:  config.GetInt64Env("DEPOSIT_FEE_BPS", 0),
		WithdrawFeeBps: config.GetInt64Env("WITHDRAW_FEE_BPS", order.DefaultWithdrawFeeBps),
		SweepBatchSize: config.GetIntEnv("SWEEP_BATCH_SIZE", 0),
	}
	depositManager := order.NewDepositManager(orderRepo, ledgerService, orderCfg)
	withdrawManager := order.NewWithdrawManager(orderRepo, ledgerService, orderCfg)

	// Spend policy guard.
	guard := policy.NewGuard(walletRepo, policy.Config{
		Default: policy.CategoryLimit{
			MaxPerTransaction: config.GetInt64Env("LIMIT_MAX_PER_TX", 0),
			DailyCeiling:      config.GetInt64Env("LIMIT_DAILY_CEILING", 0),
			ConfirmAbove:      config.GetInt64Env("LIMIT_CONFIRM_ABOVE", 0),
		},
	})

	// Payment gateway is optional; without an API key deposits stay manual.
	var payments *gateway.StripeGateway
	if key := config.GetEnv("STRIPE_API_KEY", ""); key != "" {
		payments = gateway.NewStripeGateway(key, config.GetEnv("STRIPE_WEBHOOK_SECRET", ""))
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	walletHandler := handlers.NewWalletHandler(ledgerService, guard)
	orderHandler := handlers.NewOrderHandler(depositManager, withdrawManager, payments, config.GetEnv("CURRENCY", "usd"))
	adminHandler := handlers.NewAdminHandler(ledgerService, depositManager, withdrawManager)

	api := app.Group("/api")

	// Public
	api.Post("/register", authHandler.Register)
	api.Post("/login", authHandler.Login)
	api.Post("/webhooks/payments", orderHandler.PaymentWebhook)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Authenticated
	protected := api.Use(authMiddleware.Handler)

	wallet := protected.Group("/wallet")
	wallet.Get("/", walletHandler.GetWallet)
	wallet.Get("/balance", walletHandler.GetBalance)
	wallet.Get("/entries", walletHandler.ListEntries)
	wallet.Post("/check", walletHandler.CheckAffordability)
	wallet.Post("/consume", walletHandler.Consume)
	wallet.Post("/refund", walletHandler.Refund)

	deposits := protected.Group("/deposits")
	deposits.Post("/", orderHandler.CreateDeposit)
	deposits.Get("/", orderHandler.ListDeposits)
	deposits.Get("/:orderNo", orderHandler.GetDeposit)
	deposits.Post("/:orderNo/cancel", orderHandler.CancelDeposit)

	withdrawals := protected.Group("/withdrawals")
	withdrawals.Post("/", orderHandler.CreateWithdraw)
	withdrawals.Get("/", orderHandler.ListWithdraws)
	withdrawals.Get("/:orderNo", orderHandler.GetWithdraw)
	withdrawals.Post("/:orderNo/cancel", orderHandler.CancelWithdraw)

	// Admin
	admin := protected.Group("/admin", authMiddleware.AdminOnly)
	admin.Post("/adjust", adminHandler.Adjust)
	admin.Post("/adjust/batch", adminHandler.BatchAdjust)
	admin.Post("/withdrawals/:orderNo/approve", adminHandler.ApproveWithdraw)
	admin.Post("/withdrawals/:orderNo/reject", adminHandler.RejectWithdraw)
	admin.Post("/withdrawals/:orderNo/process", adminHandler.ProcessWithdraw)
	admin.Post("/withdrawals/:orderNo/complete", adminHandler.CompleteWithdraw)
	admin.Post("/wallets/:userID/freeze", adminHandler.FreezeWallet)
	admin.Post("/wallets/:userID/unfreeze", adminHandler.UnfreezeWallet)
	admin.Post("/wallets/:userID/close", adminHandler.CloseWallet)
	admin.Post("/deposits/expire", adminHandler.ExpireDeposits)
}
