package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/database"
	"github.com/iliyamo/hotel-reservation/internal/handler"
	"github.com/iliyamo/hotel-reservation/internal/metrics"
	"github.com/iliyamo/hotel-reservation/internal/pricing"
	"github.com/iliyamo/hotel-reservation/internal/queue"
	"github.com/iliyamo/hotel-reservation/internal/repository"
	"github.com/iliyamo/hotel-reservation/internal/router"
	"github.com/iliyamo/hotel-reservation/internal/service"
	"github.com/iliyamo/hotel-reservation/internal/stock"
	"github.com/iliyamo/hotel-reservation/internal/token"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	arrival, err := service.ParseClock(cfg.DefaultArrival)
	if err != nil {
		log.Fatalf("config: DEFAULT_ARRIVAL_TIME: %v", err)
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// bookings must never run against an unknown inventory
	stockCache, err := stock.Load(ctx, repository.NewRoomTypeRepo(db), cfg.StockLoadAttempts, cfg.StockLoadBackoff)
	if err != nil {
		log.Fatalf("stock: %v", err)
	}
	m := metrics.New("hotel")
	m.SetStockSize(stockCache.Len())

	sessions, err := token.NewSessionGuard(cfg.SessionTokenSecret)
	if err != nil {
		log.Fatalf("config: SESSION_TOKEN_SECRET: %v", err)
	}
	access, err := token.NewAccessGuard(cfg.AccessTokenSecret)
	if err != nil {
		log.Fatalf("config: ACCESS_TOKEN_SECRET: %v", err)
	}

	svc := service.NewReservationService(
		repository.NewStore(db),
		stockCache,
		pricing.New(cfg.PriceBase, cfg.PricePerPerson),
		sessions,
		access,
		service.Options{
			TentativeExpiry: cfg.TentativeExpiry,
			DefaultArrival:  arrival,
			MaxStayNights:   cfg.MaxStayNights,
		},
	).WithMetrics(m)
	if cfg.QueuePublishEnabled {
		svc.WithEvents(queue.NewPublisher(cfg.RabbitMQURL))
	}

	consumerDone := make(chan struct{})
	if cfg.QueueConsumerEnabled {
		audit := queue.NewAuditWriter(cfg.AuditLogPath)
		go func() {
			defer close(consumerDone)
			defer audit.Close()
			if err := queue.NewAuditConsumer(cfg.RabbitMQURL, audit).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("audit: consumer stopped: %v", err)
			}
		}()
	} else {
		close(consumerDone)
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, router.Deps{
		Reservations: handler.NewReservationHandler(svc),
		Admin:        handler.NewAdminHandler(stockCache, m),
		DB:           db,
		Metrics:      m,
		Redis:        rdb,
		RateLimit:    config.LoadRateLimitConfig(),
		Cache:        config.LoadCacheConfig(),
		JWTSecret:    cfg.JWTSecret,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s, room types=%d)", addr, cfg.Env, stockCache.Len())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	<-consumerDone
}
