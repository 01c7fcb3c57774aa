package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ticketbay/ticketbay/config"
	"github.com/ticketbay/ticketbay/internal/handlers"
	"github.com/ticketbay/ticketbay/internal/middleware"
	"github.com/ticketbay/ticketbay/internal/models"
	"github.com/ticketbay/ticketbay/internal/services"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}
	defer config.CloseDatabase(db)

	stripeCfg, err := config.LoadStripeConfig()
	if err != nil {
		return fmt.Errorf("failed to load stripe config: %v", err)
	}

	gateway := services.NewStripeGateway(stripeCfg.SecretKey, stripeCfg.SiteDomain)
	settlement := services.NewSettlementService(db)
	paymentHandler := handlers.NewPaymentHandler(gateway, settlement, stripeCfg.WebhookSecret)
	reconciler := services.NewReconciler(db, gateway, settlement, config.ReconcileInterval())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go reconciler.Run(ctx)

	r := gin.Default()
	setupRoutes(r, db, paymentHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func setupRoutes(r *gin.Engine, db *gorm.DB, paymentHandler *handlers.PaymentHandler) {
	r.Use(middleware.DatabaseMiddleware(db))

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)

		public.GET("/tickets", handlers.ListTickets)
		public.GET("/latest-tickets", handlers.LatestTickets)
		public.GET("/tickets/:id", handlers.GetTicket)

		// Authenticated by the gateway signature, not a bearer token.
		public.POST("/payments/webhook", paymentHandler.Webhook)
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		protected.GET("/profile", handlers.GetProfile)

		protected.POST("/bookings", handlers.CreateBooking)
		protected.GET("/my-bookings", handlers.MyBookings)
		protected.GET("/bookings/:id", handlers.GetBooking)
		protected.GET("/bookings/:id/qr", handlers.BookingPass)

		protected.POST("/payments/checkout-session", paymentHandler.CreateCheckoutSession)
		protected.POST("/bookings/:id/pay", paymentHandler.PayBooking)
	}

	vendor := r.Group("/v1")
	vendor.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole(models.RoleVendor))
	{
		vendor.POST("/tickets", handlers.CreateTicket)
		vendor.DELETE("/tickets/:id", handlers.DeleteTicket)
		vendor.POST("/tickets/validate", handlers.ValidatePass)

		vendor.GET("/vendor/bookings", handlers.VendorBookings)
		vendor.PATCH("/bookings/:id/accept", handlers.AcceptBooking)
		vendor.PATCH("/bookings/:id/reject", handlers.RejectBooking)
	}

	admin := r.Group("/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", handlers.ListUsers)
		admin.PATCH("/users/:id/role", handlers.UpdateUserRole)
		admin.PATCH("/vendors/:id/fraud", handlers.FlagVendorFraud)
		admin.PATCH("/tickets/:id/approve", handlers.ApproveTicket)
		admin.PATCH("/tickets/:id/reject", handlers.RejectTicket)
	}
}
