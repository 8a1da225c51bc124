package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/outreach-engine/internal/channel"
	"github.com/jwalitptl/outreach-engine/internal/channel/email"
	"github.com/jwalitptl/outreach-engine/internal/config"
	campaignhandler "github.com/jwalitptl/outreach-engine/internal/handler/campaign"
	candidatehandler "github.com/jwalitptl/outreach-engine/internal/handler/candidate"
	"github.com/jwalitptl/outreach-engine/internal/handler/health"
	shiftworkerhandler "github.com/jwalitptl/outreach-engine/internal/handler/shiftworker"
	"github.com/jwalitptl/outreach-engine/internal/model"
	"github.com/jwalitptl/outreach-engine/internal/outreach"
	"github.com/jwalitptl/outreach-engine/internal/repository"
	"github.com/jwalitptl/outreach-engine/internal/repository/memory"
	"github.com/jwalitptl/outreach-engine/internal/repository/postgres"
	"github.com/jwalitptl/outreach-engine/internal/router"
	campaignservice "github.com/jwalitptl/outreach-engine/internal/service/campaign"
	candidateservice "github.com/jwalitptl/outreach-engine/internal/service/candidate"
	shiftworkerservice "github.com/jwalitptl/outreach-engine/internal/service/shiftworker"
	"github.com/jwalitptl/outreach-engine/pkg/clock"
	"github.com/jwalitptl/outreach-engine/pkg/logger"
	"github.com/jwalitptl/outreach-engine/pkg/messaging/redis"
	"github.com/jwalitptl/outreach-engine/pkg/metrics"
	"github.com/jwalitptl/outreach-engine/pkg/notifier"
	"github.com/jwalitptl/outreach-engine/pkg/validator"
)

const version = "1.0.0"

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err, "failed to load config")
	}

	if err := validator.Register(); err != nil {
		log.Fatal(err, "failed to register binding validations")
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

	m := metrics.NewMetrics("outreach")
	clk := clock.NewReal()

	resolver := outreach.NewResolver(candidates, workers, rules, clk)
	dispatcher := outreach.NewDispatcher(
		cfg.ToDispatcherConfig(), senders, campaigns, candidates, sink, log, m, clk)

	candidateSvc := candidateservice.NewService(candidates, sink, clk)
	workerSvc := shiftworkerservice.NewService(workers, sink, clk)
	campaignSvc := campaignservice.NewService(campaigns, resolver, dispatcher, sink, log, m, clk)

	r := router.NewRouter(
		router.Config{
			RateLimit: rate.Limit(cfg.Server.RateLimit),
			RateBurst: cfg.Server.RateBurst,
		},
		health.NewHandler(version),
		candidatehandler.NewHandler(candidateSvc),
		shiftworkerhandler.NewHandler(workerSvc),
		campaignhandler.NewHandler(campaignSvc, log),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("starting api server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "graceful shutdown failed")
	}
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
