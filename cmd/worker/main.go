package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/tripdesk/internal/adapters/nats"
	"github.com/samirrijal/tripdesk/internal/adapters/postgres"
	"github.com/samirrijal/tripdesk/internal/adapters/temporal"
	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/core/ports"
	"github.com/samirrijal/tripdesk/internal/core/usecases"
	"github.com/samirrijal/tripdesk/internal/pkg/config"
	"github.com/samirrijal/tripdesk/internal/pkg/logging"
	"github.com/samirrijal/tripdesk/internal/pkg/telemetry"
	"github.com/samirrijal/tripdesk/internal/workflows"
)

func main() {
	cfg, err := config.Load("tripdesk-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, settled events will not be published", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	settlements := usecases.NewSettlementService(postgres.NewTripRepo(db), publisher)

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.TripSettlementWorkflow)
	w.RegisterActivity(&workflows.SettlementActivities{Settlements: settlements})

	// Ended events also start settlement, covering trips whose API call could
	// not reach Temporal. The workflow ID deduplicates the two paths.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "tripdesk-worker")
	if err != nil {
		slog.Warn("nats subscriber unavailable", "error", err)
	} else {
		defer sub.Close()
		starter := temporal.NewStarter(c, cfg.Temporal.TaskQueue)
		err := sub.SubscribeTripEvents(ctx, domain.TripEventEnded, func(ctx context.Context, event *domain.TripEvent) error {
			return starter.StartSettlement(ctx, event.TripID)
		})
		if err != nil {
			slog.Warn("subscribe to ended trips failed", "error", err)
		}
	}

	slog.Info("settlement worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
