package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/adapters/cache"
	"github.com/SscSPs/transfer_backoffice/internal/adapters/notification"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/core/services"
	"github.com/SscSPs/transfer_backoffice/internal/handlers"
	"github.com/SscSPs/transfer_backoffice/internal/middleware"
	"github.com/SscSPs/transfer_backoffice/internal/platform/config"
	"github.com/SscSPs/transfer_backoffice/internal/platform/reference"
	"github.com/SscSPs/transfer_backoffice/internal/repositories/database/pgsql"
	"github.com/SscSPs/transfer_backoffice/internal/scheduler"
	"github.com/SscSPs/transfer_backoffice/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// @title Transfer Back-Office API
// @version 1.0
// @description Card distribution, expense approval and exchange till operations.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	refData, err := reference.Load(cfg.ReferenceDataFile)
	if err != nil {
		return err
	}
	logger.Info("Reference data loaded", slog.Int("countries", len(refData.Countries)))

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	if err := database.RunMigrations(ctx, cfg.DatabaseURL, "file://migrations", cfg.EnableDBCheck, logger); err != nil {
		return err
	}

	notifier, closeNotifiers, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifiers()

	serviceContainer := services.NewServiceContainer(pgsql.NewRepositoryProvider(dbPool), refData, notifier)

	var rdb *redis.Client
	var store middleware.SubmissionStore = cache.UnavailableSubmissionStore{}
	if cfg.RedisAddr != "" {
		rdb, err = cache.ConnectRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := rdb.Close(); cerr != nil {
				logger.Warn("Error closing redis client", slog.String("error", cerr.Error()))
			}
		}()
		store = cache.NewRedisSubmissionStore(rdb)
	} else {
		logger.Warn("REDIS_ADDR not set; requests carrying an Idempotency-Key will be refused")
	}

	lim, err := buildLimiter(cfg, rdb)
	if err != nil {
		return err
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.IdempotencyHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := r.SetTrustedProxies(nil); err != nil {
		return err
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, store, lim, dbPool)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.UsageResetSchedule != "" {
		sched, err := scheduler.NewScheduler(serviceContainer.Card, cfg.UsageResetSchedule, logger)
		if err != nil {
			return err
		}
		g.Go(func() error { return sched.Run(gctx) })
	}

	return g.Wait()
}

// buildNotifier fans expense status changes out to every configured channel.
func buildNotifier(cfg *config.Config, logger *slog.Logger) (portssvc.ExpenseNotifier, func(), error) {
	notifiers := notification.Multi{}
	closeFn := func() {}

	nc, err := notification.ConnectNATS(cfg.NATSURL)
	if err != nil {
		return nil, closeFn, err
	}
	if nc != nil {
		notifiers = append(notifiers, notification.NewNATSNotifier(nc, cfg.NATSSubjectPrefix))
		closeFn = func() {
			if err := nc.Drain(); err != nil {
				logger.Warn("Error draining NATS connection", slog.String("error", err.Error()))
			}
		}
		logger.Info("Expense events published to NATS", slog.String("prefix", cfg.NATSSubjectPrefix))
	}

	if cfg.SendGridAPIKey != "" {
		notifiers = append(notifiers, notification.NewSendGridNotifier(cfg.SendGridAPIKey, notification.MailConfig{
			FromEmail: cfg.NotifyFromEmail,
			FromName:  cfg.NotifyFromName,
			RoleMailboxes: map[domain.Role]string{
				domain.RoleAccounting: cfg.NotifyAccountingEmail,
				domain.RoleDirector:   cfg.NotifyDirectorEmail,
			},
		}))
		logger.Info("Expense e-mail notifications enabled")
	}

	return notifiers, closeFn, nil
}

// buildLimiter keeps counters in redis when it is configured so that replicas share them.
func buildLimiter(cfg *config.Config, rdb *redis.Client) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	if rdb == nil {
		return limiter.New(memory.NewStore(), rate), nil
	}
	store, err := sredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "backoffice_rate"})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}
