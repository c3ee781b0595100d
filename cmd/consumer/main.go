package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"

	"github.com/the-momentum/open-wearables-sub000/internal/accumstore"
	"github.com/the-momentum/open-wearables-sub000/internal/config"
	"github.com/the-momentum/open-wearables-sub000/internal/consumer"
	"github.com/the-momentum/open-wearables-sub000/internal/identity"
	persistence "github.com/the-momentum/open-wearables-sub000/internal/persistence/postgres"
	"github.com/the-momentum/open-wearables-sub000/internal/priority"
	"github.com/the-momentum/open-wearables-sub000/internal/sleep"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	priorities := priority.NewResolver(persistence.NewPriorityRepository(pool))
	identities := identity.NewResolver(persistence.NewDataSourceRepository(pool), priorities)
	events := persistence.NewEventRecordRepository(pool)

	store := accumstore.NewTTLStore(cfg.AccumulatorTTL)
	sessions := sleep.NewReconstructor(store, events, sleep.Config{
		GapThreshold:              cfg.SleepGapThreshold,
		RestartRequiresStartPhase: cfg.RestartRequiresStartPhase,
	})

	// The sweeper shares the in-process accumulator store, so it runs inside
	// this binary rather than as a separate one.
	sweeper := sleep.NewSweeper(sessions, cfg.SweepInterval, nil)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("sweeper stopped: %v", err)
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.IngestGroupID,
		Topic:   cfg.IngestTopic,
	})
	defer reader.Close()

	handler := consumer.NewIngestionHandler(identities, sessions, events, nil)
	processor := consumer.NewProcessor(reader, handler)

	go func() {
		log.Printf("ingestion consumer reading topic %s", cfg.IngestTopic)
		if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("processor error: %v", err)
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownCh
	cancel()
}
