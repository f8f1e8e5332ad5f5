package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/skyops/emptylegs/config"
	"github.com/skyops/emptylegs/internal/cache"
	"github.com/skyops/emptylegs/internal/domain"
	"github.com/skyops/emptylegs/internal/kafka"
	"github.com/skyops/emptylegs/internal/notify"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.DealsCacheTTL)*time.Second)
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

	// Notification delivery: render and send events the services published.
	notifConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.NotificationsTopic)
	defer notifConsumer.Close()
	sender := notify.NewSender()

	go func() {
		if err := notifConsumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.NotificationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode notification event: %v", err)
				return nil
			}
			return sender.Send(ctx, event)
		}); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	// Inbound evidence: gateway messages resolved to a booking by contact.
	inboundConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.InboundTopic)
	defer inboundConsumer.Close()

	go func() {
		if err := inboundConsumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var inbound kafka.InboundMessage
			if err := json.Unmarshal(msg.Value, &inbound); err != nil {
				log.Printf("decode inbound message: %v", err)
				return nil
			}
			err := bookingService.ResolveInboundEvidence(ctx, inbound.ContactPhone, inbound.MediaRef, inbound.RawText)
			if errors.Is(err, domain.ErrNoApprovedBooking) || errors.Is(err, domain.ErrAmbiguousContact) {
				log.Printf("inbound evidence from %s not attached: %v", inbound.ContactPhone, err)
				return nil
			}
			return err
		}); err != nil {
			log.Printf("inbound consumer stopped: %v", err)
		}
	}()

	syncTicker := time.NewTicker(time.Duration(cfg.Worker.SyncIntervalMinutes) * time.Minute)
	defer syncTicker.Stop()
	dealSweepTicker := time.NewTicker(time.Duration(cfg.Worker.DealSweepMinutes) * time.Minute)
	defer dealSweepTicker.Stop()
	bookingSweepTicker := time.NewTicker(time.Duration(cfg.Worker.BookingSweepMinutes) * time.Minute)
	defer bookingSweepTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-syncTicker.C:
			if _, err := reconciler.Run(ctx, syncsvc.RunInput{SyncType: domain.SyncTypeScheduled, TriggeredBy: "worker"}); err != nil {
				if errors.Is(err, domain.ErrSyncInProgress) {
					log.Printf("sync skipped: %v", err)
					continue
				}
				log.Printf("sync error: %v", err)
			}
		case <-dealSweepTicker.C:
			if _, err := dealService.ExpireDeparted(ctx); err != nil {
				log.Printf("deal sweep error: %v", err)
			}
		case <-bookingSweepTicker.C:
			expired, err := bookingService.ExpireOverdueBookings(ctx)
			if err != nil {
				log.Printf("booking sweep error: %v", err)
				continue
			}
			if len(expired) > 0 {
				log.Printf("expired %d overdue booking(s)", len(expired))
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
