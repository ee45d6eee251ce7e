package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mystore/internal/config"
	"mystore/internal/database"
	"mystore/internal/handlers"
	"mystore/internal/kafka"
	"mystore/internal/migrations"
	"mystore/internal/redis"
	"mystore/internal/repository"
	"mystore/internal/services"
	"mystore/pkg/logger"
	"mystore/pkg/sms"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	rootCmd := &cobra.Command{
		Use:   "mystore",
		Short: "order management API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg, log)
		},
	}
	rootCmd.AddCommand(
		serveCommand(cfg, log),
		migrateCommand(cfg, log),
		ensureAdminCommand(cfg, log),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand(cfg *config.Config, log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func migrateCommand(cfg *config.Config, log *logger.Logger) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel)
			if err != nil {
				return err
			}
			return migrations.RunMigrations(db, reset, log)
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop all tables before migrating")
	return cmd
}

func ensureAdminCommand(cfg *config.Config, log *logger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-admin",
		Short: "create the staff user from ADMIN_* settings if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel)
			if err != nil {
				return err
			}
			users := newUserService(db, log)
			return migrations.EnsureAdmin(cmd.Context(), users, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword, log)
		},
	}
}

func newUserService(db *gorm.DB, log *logger.Logger) services.UserService {
	return services.NewUserService(db, repository.NewUserRepository(db), repository.NewCustomerRepository(db), log)
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		return err
	}
	if err := migrations.RunMigrations(db, false, log); err != nil {
		return err
	}

	// Initialize Redis
	redisClient, err := redis.Initialize(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	smsClient := sms.NewClient(cfg.SMSAPIURL, cfg.SMSUsername, cfg.SMSAPIKey, cfg.SMSSenderID)

	var publisher services.OrderEventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaOrderTopic, cfg.NotificationTimeout)
		if err != nil {
			log.Warn("Order events disabled", "error", err)
		} else {
			defer producer.Close()
			publisher = services.NewKafkaOrderPublisher(producer)
		}
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	orderItemRepo := repository.NewOrderItemRepository(db)

	// Initialize services
	userService := services.NewUserService(db, userRepo, customerRepo, log)
	customerService := services.NewCustomerService(db, customerRepo, log)
	productService := services.NewProductService(db, productRepo, log)
	notificationService := services.NewNotificationService(smsClient, publisher, cfg.Currency, cfg.NotificationTimeout, log)
	orderService := services.NewOrderService(db, orderRepo, orderItemRepo, productRepo, customerRepo, notificationService, log)
	sessionService := services.NewSessionService(redisClient, userService, customerService, cfg.SessionTTL, log)

	// Setup routes
	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(log, sessionService, handlers.Handlers{
		Auth:      handlers.NewAuthHandler(userService, sessionService, customerService),
		Customers: handlers.NewCustomerHandler(customerService),
		Products:  handlers.NewProductHandler(productService),
		Orders:    handlers.NewOrderHandler(orderService),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
