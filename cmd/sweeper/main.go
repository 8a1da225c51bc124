package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/outreach-engine/internal/channel"
	"github.com/jwalitptl/outreach-engine/internal/channel/email"
	"github.com/jwalitptl/outreach-engine/internal/config"
	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/outreach"
	"github.com/jwalitptl/outreach-engine/internal/repository"
	"github.com/jwalitptl/outreach-engine/internal/repository/memory"
	"github.com/jwalitptl/outreach-engine/internal/repository/postgres"
	"github.com/jwalitptl/outreach-engine/internal/sweep"
	"github.com/jwalitptl/outreach-engine/pkg/clock"
	"github.com/jwalitptl/outreach-engine/pkg/logger"
	"github.com/jwalitptl/outreach-engine/pkg/messaging/redis"
	"github.com/jwalitptl/outreach-engine/pkg/metrics"
	"github.com/jwalitptl/outreach-engine/pkg/notifier"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err, "failed to load config")
	}

	rules, err := cfg.ToLifecycleConfig()
	if err != nil {
		log.Fatal(err, "invalid lifecycle config")
	}

	candidates, workers, campaigns, err := buildStores(cfg)
	if err != nil {
		log.Fatal(err, "failed to initialize storage")
	}

	var sink notifier.Sink = notifier.NewMemorySink()
	senders := map[model.ChannelKind]channel.Sender{
		model.ChannelEmail: email.NewSender(cfg.ToEmailConfig()),
	}
	if cfg.Redis.Enabled {
		zl := log.Zerolog()
		broker, err := redis.NewRedisBroker(cfg.ToBrokerConfig(), &zl)
		if err != nil {
			log.Fatal(err, "failed to connect to redis")
		}
		defer broker.Close()

		sink = notifier.NewBrokerSink(broker, cfg.Redis.EventTopic)
		senders[model.ChannelChat] = channel.NewBrokerSender(broker, cfg.Redis.OutboundTopic+".chat")
		senders[model.ChannelSMS] = channel.NewBrokerSender(broker, cfg.Redis.OutboundTopic+".sms")
	}

	m := metrics.NewMetrics("outreach_sweeper")
	clk := clock.NewReal()

	dispatcher := outreach.NewDispatcher(
		cfg.ToDispatcherConfig(), senders, campaigns, candidates, sink, log, m, clk)

	scheduler := sweep.NewScheduler(log, m)
	scheduler.Register(sweep.NewCandidateSweep(
		candidates, dispatcher, sink, log, m, clk, rules,
		cfg.Sweeps.CandidateInterval, cfg.ToReminderConfig()))
	scheduler.Register(sweep.NewCheckpointSweep(
		workers, sink, log, m, clk, rules, cfg.Sweeps.CheckpointInterval))
	scheduler.Register(sweep.NewAdvanceNoticeSweep(
		workers, sink, log, m, clk, rules, cfg.Sweeps.AdvanceNoticeInterval))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port+1), Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(err, "health server failed")
		}
	}()

	log.Info("starting sweeper")
	scheduler.Start(ctx)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	scheduler.Wait()
}

func buildStores(cfg *config.Config) (
	repository.CandidateRepository,
	repository.ShiftWorkerRepository,
	repository.CampaignRepository,
	error,
) {
	if !cfg.Database.Enabled {
		return memory.NewCandidateRepository(),
			memory.NewShiftWorkerRepository(),
			memory.NewCampaignRepository(),
			nil
	}

	db, err := postgres.Connect(cfg.ToDBConfig())
	if err != nil {
		return nil, nil, nil, err
	}
	base := postgres.NewBaseRepository(db)
	return postgres.NewCandidateRepository(base),
		postgres.NewShiftWorkerRepository(base),
		postgres.NewCampaignRepository(base),
		nil
}
