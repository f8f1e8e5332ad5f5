package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skyops/emptylegs/api"
	"github.com/skyops/emptylegs/config"
	"github.com/skyops/emptylegs/internal/bootstrap"
	"github.com/skyops/emptylegs/internal/cache"
	"github.com/skyops/emptylegs/internal/kafka"
	"github.com/skyops/emptylegs/internal/provider"
	"github.com/skyops/emptylegs/internal/repository"
	"github.com/skyops/emptylegs/internal/service/booking"
	"github.com/skyops/emptylegs/internal/service/deals"
	syncsvc "github.com/skyops/emptylegs/internal/service/sync"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.DealsCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	providerClient := provider.NewClient(cfg.Provider)

	dealRepo := repository.NewDealRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	syncRunRepo := repository.NewSyncRunRepository(pool)

	dealService := deals.NewDealService(dealRepo, redisCache)
	bookingService := booking.NewBookingService(
		bookingRepo,
		dealRepo,
		redisCache,
		producer,
		time.Duration(cfg.Booking.PaymentWindowHours)*time.Hour,
		cfg.Booking.TicketPrefix,
		cfg.Booking.PaymentLinkBase,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)
	reconciler := syncsvc.NewReconciler(
		syncRunRepo,
		dealRepo,
		providerClient,
		redisCache,
		time.Duration(cfg.Sync.StalenessMinutes)*time.Minute,
	)

	dealHandler := api.NewDealHandler(dealService)
	bookingHandler := api.NewBookingHandler(bookingService)
	syncHandler := api.NewSyncHandler(reconciler)

	if err := bootstrap.Run(ctx, cfg, dealHandler, bookingHandler, syncHandler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
