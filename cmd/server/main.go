package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/booking"
	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/handler"
	"github.com/iliyamo/studio-booking/internal/logger"
	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/queue"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/router"
	"github.com/iliyamo/studio-booking/internal/service"
)

func main() {
	cfg := config.Load()
	zl, err := logger.New(cfg.Production(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	ready := map[string]handler.Pinger{}

	var backend repository.Backend
	switch cfg.StoreBackend {
	case config.BackendMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		backend = repository.NewMySQLBackend(db)
		ready["mysql"] = db
	default:
		backend = repository.NewMemoryBackend()
	}
	zl.Info("store ready", zap.String("backend", cfg.StoreBackend))

	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		zl.Warn("redis unavailable; rate limit, cache and redis seat ledger disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
		ready["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	if cfg.SeatLedger == config.LedgerRedis {
		if rdb != nil {
			backend.Seats = repository.NewRedisSeatLedger(rdb, cfg.SeatLedgerPrefix)
			zl.Info("seat ledger on redis", zap.String("prefix", cfg.SeatLedgerPrefix))
		} else {
			zl.Warn("SEAT_LEDGER=redis but redis is unreachable; using the store ledger")
		}
	}

	if cfg.SeedDemo {
		if err := service.Seed(ctx, backend, cfg.BcryptCost, zl.Named("seed")); err != nil {
			return err
		}
	}

	coord := booking.NewCoordinator(backend.BookingStores(), zl.Named("booking"))
	// The ledger may be empty (fresh Redis) or stale; rebuild it from the
	// registry before taking traffic.
	report, err := coord.Reconcile(ctx)
	if err != nil {
		zl.Error("startup reconciliation incomplete", zap.Error(err))
	}
	zl.Info("startup reconciliation done",
		zap.Int("sessions", report.SessionsChecked),
		zap.Int("members", report.MembersChecked),
		zap.Int("corrections", len(report.Corrections)))

	var publisher service.Publisher = service.NopPublisher{}
	purchase := service.NewPurchaseService(backend.Packs, backend.Payments, backend.Members, cfg.Currency, zl)

	var wg sync.WaitGroup
	if cfg.AMQPEnabled {
		amqpPub := service.NewAMQPPublisher(cfg.RabbitMQURL, zl)
		defer amqpPub.Close()
		publisher = amqpPub

		audit := queue.NewAuditLog(cfg.AuditLogDir)
		consumers := map[string]queue.Handler{
			queue.QueueReservationConfirmed: audit.Handle,
			queue.QueueReservationCancelled: audit.Handle,
			queue.QueuePaymentConfirmed:     purchase.HandlePaymentEvent,
		}
		for q, h := range consumers {
			wg.Add(1)
			go func(q string, h queue.Handler) {
				defer wg.Done()
				queue.Run(ctx, cfg.RabbitMQURL, q, h, zl.Named("consumer"))
			}(q, h)
		}
		zl.Info("amqp consumers started", zap.String("audit_log", audit.Path()))
	}
	events := service.NewBookingEvents(publisher, zl)

	if cfg.ReconcileInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coord.RunReconciler(ctx, cfg.ReconcileInterval)
		}()
	}

	e := newServer(cfg, zl, rdb, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, backend.Members, backend.Tokens, zl),
		Sessions:      handler.NewSessionHandler(coord, zl),
		Reservations:  handler.NewReservationHandler(coord, backend.Members, events, zl),
		Credits:       handler.NewCreditHandler(backend.Members, purchase, zl),
		Packs:         handler.NewPackHandler(backend.Packs, zl),
		Payments:      handler.NewPaymentHandler(purchase, cfg.WebhookSecret, zl),
		AdminSessions: handler.NewAdminSessionHandler(backend.Sessions, backend.Seats, coord, events, zl),
		AdminMembers:  handler.NewAdminMemberHandler(backend.Members, coord, backend.Tokens, cfg.BcryptCost, zl),
		Ready:         handler.Ready(ready),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = e.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}

func newServer(cfg config.Config, zl *zap.Logger, rdb *redis.Client, h router.Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(zl.Named("http")))
	e.Use(echomw.Recover())

	var mw router.Middleware
	if rdb != nil {
		cacheCfg := config.LoadCacheConfig()
		mw = router.Middleware{
			RateLimit:  middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl),
			Cache:      middleware.NewRedisCache(cacheCfg, rdb, zl),
			Invalidate: middleware.InvalidateCache(cacheCfg, rdb, zl),
		}
	}
	router.Register(e, h, mw, cfg.JWTSecret)
	return e
}
