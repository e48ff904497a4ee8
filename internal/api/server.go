package api

import (
	"context"
	"log/slog"

	"boletera/internal/cache"
	"boletera/internal/config"
	"boletera/internal/database"
	"boletera/internal/external"
	"boletera/internal/handlers"
	"boletera/internal/jobs"
	"boletera/internal/logger"
	"boletera/internal/middleware"
	"boletera/internal/repository"
	"boletera/internal/service"
	"boletera/internal/storage"

	"github.com/gin-gonic/gin"
)

// Server wires the HTTP API together.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	cache    *cache.Client
	services *service.Services
	sweeper  *jobs.ReservationSweeper
}

// NewServer connects the backing stores, seeds the ticket pool and sets
// up routing. It exits the process on unrecoverable startup failures.
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	if err := db.SeedTickets(); err != nil {
		logger.Fatal("Failed to seed tickets", "error", err)
	}

	// Cache is optional: the service degrades to plain store reads.
	var cacheClient *cache.Client
	if cfg.Cache.Addr != "" {
		cacheClient, err = cache.NewClient(cfg.Cache)
		if err != nil {
			slog.Warn("Cache unavailable, continuing without it", "error", err)
			cacheClient = nil
		}
	}

	proofs, err := storage.NewProofStorage(cfg.UploadDir)
	if err != nil {
		logger.Fatal("Failed to prepare upload storage", "error", err)
	}

	gateway := external.NewClient(cfg.Gateway)
	repos := repository.NewRepositories(db)

	var listCache service.ListCache
	var sweepCache jobs.CacheInvalidator
	if cacheClient != nil {
		listCache = cacheClient
		sweepCache = cacheClient
	}

	services := service.NewServices(repos.Tickets, repos.Payments, repos.Drawing, gateway, listCache, service.Settings{
		TicketPrice:  cfg.TicketPrice,
		HoldDuration: cfg.HoldDuration,
		AdminSecret:  cfg.AdminSecret,
	})

	sweeper := jobs.NewReservationSweeper(repos.Tickets, sweepCache, cfg.SweepInterval)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		cache:    cacheClient,
		services: services,
		sweeper:  sweeper,
	}

	server.setupRoutes(handlers.NewHandlers(services, proofs), proofs)

	return server
}

func (s *Server) setupRoutes(h *handlers.Handlers, proofs *storage.ProofStorage) {
	api := s.router.Group("/api")
	{
		tickets := api.Group("/tickets")
		{
			tickets.GET("", h.ListTickets)
			tickets.GET("/stats", h.GetStats)
			tickets.GET("/results", h.GetPublicResults)
			tickets.GET("/drawing", h.GetDrawingStatus)
			tickets.GET("/:number", h.GetTicket)
			tickets.POST("/:number/buy", h.BuyTicket)
		}

		admin := api.Group("/admin/:secret")
		{
			admin.GET("/sold", h.AdminListSold)
			admin.POST("/finalize-drawing", h.AdminFinalizeDrawing)
			admin.POST("/reset-drawing", h.AdminResetDrawing)
			admin.POST("/:number/mark-paid", h.AdminForceMarkPaid)
			admin.POST("/:number/release", h.AdminForceRelease)
			admin.POST("/:number/mark-reserved", h.AdminForceMarkReserved)
		}

		payments := api.Group("/payments")
		{
			payments.POST("/intent", h.CreatePaymentIntent)
			payments.GET("/:transactionId", h.GetPayment)
		}

		api.POST("/webhooks/payment", h.PaymentWebhook)
	}

	// Uploaded payment proofs are served as static files.
	s.router.Static("/uploads", proofs.Dir())

	s.router.GET("/health", s.healthCheck)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "boletera-api",
	})
}

// StartSweeper launches the background reservation expiry loop.
func (s *Server) StartSweeper(ctx context.Context) {
	s.sweeper.Start(ctx)
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup stops the sweep and closes connections.
func (s *Server) Cleanup() error {
	s.sweeper.Stop()

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("Error closing cache connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
