package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/frontdesk-ai/frontdesk/internal/api"
	"github.com/frontdesk-ai/frontdesk/internal/config"
	"github.com/frontdesk-ai/frontdesk/internal/models"
	"github.com/frontdesk-ai/frontdesk/internal/services/billing"
	"github.com/frontdesk-ai/frontdesk/internal/services/clients"
	"github.com/frontdesk-ai/frontdesk/internal/services/conversations"
	"github.com/frontdesk-ai/frontdesk/internal/services/database"
	"github.com/frontdesk-ai/frontdesk/internal/services/governor"
	"github.com/frontdesk-ai/frontdesk/internal/services/middleware"
	"github.com/frontdesk-ai/frontdesk/internal/services/payments"
)

// Server wires the billing core, the REST surface and the media gateway.
type Server struct {
	config *config.Config
	app    *fiber.App
	media  *MediaServer
	db     *database.DB
	redis  *redis.Client

	priceSync *billing.PriceSyncScheduler
}

func New(cfg *config.Config) *Server {
	return &Server{config: cfg}
}

// Run starts the service and blocks until interrupt or fatal error.
func (s *Server) Run() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(s.config)

	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}
	mediaPort := s.config.Server.MediaPort
	if mediaPort == "" {
		mediaPort = "8081"
	}

	db, err := database.New(*s.config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db
	defer func() {
		if err := s.db.Close(); err != nil {
			fiberlog.Errorf("Failed to close database connection: %v", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	s.redis = createRedisClient(s.config.Redis)
	if s.redis != nil {
		defer func() {
			if err := s.redis.Close(); err != nil {
				fiberlog.Errorf("Failed to close Redis client: %v", err)
			}
		}()
	}

	// Billing core
	billingCfg := s.config.Billing
	ledger := billing.NewLedgerService(db.DB)
	balances := billing.NewBalanceService(db.DB, ledger)
	rates := billing.NewRateCatalog(db.DB, 0)
	prices := billing.NewPriceService(db.DB, s.redis,
		time.Duration(billingCfg.PriceCacheTTLSeconds)*time.Second)
	costs := billing.NewCostService(rates, prices)

	clientsService := clients.NewService(db.DB)
	conversationsService := conversations.NewService(db.DB)

	registry := governor.NewRegistry()
	governorService := governor.NewService(balances, conversationsService, ledger, costs, registry, governor.Config{
		SettlementInterval: time.Duration(billingCfg.SettlementIntervalSeconds) * time.Second,
		CutoffPoll:         time.Duration(billingCfg.CutoffPollMillis) * time.Millisecond,
	})

	stripeService := payments.NewStripeService(s.config.Stripe, db.DB, balances)

	// Price sync job
	syncInterval := time.Duration(billingCfg.PriceSyncIntervalMinutes) * time.Minute
	s.priceSync = billing.NewPriceSyncScheduler(prices, syncInterval)
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()
	go s.priceSync.Start(schedulerCtx)
	defer s.priceSync.Stop()

	// Media gateway
	s.media = NewMediaServer(":"+mediaPort, clientsService, governorService, s.config.Engine)

	// REST surface
	s.app = createFiberApp(s.config)
	setupMiddleware(s.app, s.config)
	s.setupRoutes(balances, ledger, rates, registry, clientsService, conversationsService, governorService, stripeService)

	fmt.Printf("FrontDesk starting on :%s (media on :%s)\n", port, mediaPort)
	fmt.Printf("   Environment: %s\n", s.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 2)
	go func() {
		if err := s.app.Listen(":" + port); err != nil {
			serverErrChan <- err
		}
	}()
	go func() {
		if err := s.media.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	}

	fiberlog.Info("Server shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := s.media.Shutdown(shutdownCtx); err != nil {
		fiberlog.Errorf("Media server shutdown error: %v", err)
	}
	if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	fiberlog.Info("Server shutdown completed successfully")
	return nil
}

func (s *Server) setupRoutes(
	balances *billing.BalanceService,
	ledger *billing.LedgerService,
	rates *billing.RateCatalog,
	registry *governor.Registry,
	clientsService *clients.Service,
	conversationsService *conversations.Service,
	governorService *governor.Service,
	stripeService *payments.StripeService,
) {
	auth := middleware.NewAuthMiddleware(s.config.Auth)
	twilio := middleware.NewTwilioMiddleware(s.config.Twilio, s.config.Server.PublicHost)

	healthHandler := api.NewHealthHandler(s.db, s.redis)
	voiceHandler := api.NewVoiceHandler(clientsService, governorService, s.media, s.config.Server.PublicHost)
	balanceHandler := api.NewBalanceHandler(balances)
	sessionsHandler := api.NewSessionsHandler(registry)
	ratesHandler := api.NewRatesHandler(rates)
	usageHandler := api.NewUsageHandler(ledger)
	clientsHandler := api.NewClientsHandler(clientsService, conversationsService)
	stripeHandler := api.NewStripeHandler(stripeService)

	app := s.app
	app.Get("/health", healthHandler.HealthCheck)

	// Twilio webhook plus the turn endpoint the speech pipeline drives
	app.Post("/voice", twilio.RequireSignature(), voiceHandler.HandleIncomingCall)
	app.Post("/voice/sessions/:session_id/turn", voiceHandler.HandleTurn)

	app.Post("/webhooks/stripe", stripeHandler.HandleWebhook)
	app.Get("/packages", stripeHandler.ListPackages)

	admin := app.Group("/admin", auth.RequireAuth())

	sessions := admin.Group("/sessions")
	sessions.Get("/", sessionsHandler.ListSessions)
	sessions.Get("/:session_id", sessionsHandler.GetSession)
	sessions.Post("/:session_id/transfer", sessionsHandler.TransferSession)

	clientsGroup := admin.Group("/clients")
	clientsGroup.Get("/", clientsHandler.ListClients)
	clientsGroup.Post("/", auth.RequireAdmin(), clientsHandler.CreateClient)
	clientsGroup.Get("/:client_id", clientsHandler.GetClient)
	clientsGroup.Put("/:client_id", auth.RequireAdmin(), clientsHandler.UpdateClient)
	clientsGroup.Get("/:client_id/conversations", clientsHandler.ListConversations)

	admin.Get("/balance/:client_id", balanceHandler.GetBalance)
	admin.Post("/balance/:client_id/adjust", auth.RequireAdmin(), balanceHandler.AdjustBalance)

	admin.Get("/rates", ratesHandler.GetRates)
	admin.Post("/rates", auth.RequireAdmin(), ratesHandler.UpsertRate)

	admin.Get("/usage/:client_id", usageHandler.ListUsage)
	admin.Get("/usage/:client_id/summary", usageHandler.GetSummary)

	admin.Post("/stripe/checkout-session", stripeHandler.CreateCheckoutSession)
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:           "FrontDesk v1.0",
		EnablePrintRoutes: !isProd,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		ReadBufferSize:    8192,
		WriteBufferSize:   8192,
		CaseSensitive:     true,
		ServerHeader:      "FrontDesk",
	})
}

func setupMiddleware(app *fiber.App, cfg *config.Config) {
	isProd := cfg.IsProduction()

	app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:               1000,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fmt.Errorf("1000 requests per minute")
		},
	}))

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	if isProd {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, User-Agent, Stripe-Signature",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

func setupLogLevel(cfg *config.Config) {
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "", "info":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", cfg.Server.LogLevel)
	}
}

func createRedisClient(cfg *models.RedisConfig) *redis.Client {
	if cfg == nil || (cfg.URL == "" && cfg.Addr == "") {
		fiberlog.Info("Redis not configured - price cache disabled")
		return nil
	}

	var opt *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			fiberlog.Errorf("Failed to parse Redis URL, price cache disabled: %v", err)
			return nil
		}
		opt = parsed
	} else {
		opt = &redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	opt.PoolSize = 50
	opt.MinIdleConns = 10
	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		fiberlog.Warnf("Redis unreachable, price cache degraded: %v", err)
	}
	return client
}
