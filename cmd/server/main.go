// SupoClip - AI-Assisted Video Clipping Backend
// Copyright 2026 SupoClip contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/supoclip/supoclip

// Command server runs the SupoClip backend: the HTTP API, the embedded
// NATS JetStream broker, and the clip worker, all under one supervision
// tree in a single process.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sony/gobreaker/v2"

	"github.com/supoclip/supoclip/internal/api"
	"github.com/supoclip/supoclip/internal/config"
	"github.com/supoclip/supoclip/internal/database"
	"github.com/supoclip/supoclip/internal/highlights"
	"github.com/supoclip/supoclip/internal/jobqueue"
	"github.com/supoclip/supoclip/internal/logging"
	"github.com/supoclip/supoclip/internal/media"
	"github.com/supoclip/supoclip/internal/metrics"
	"github.com/supoclip/supoclip/internal/supervisor"
	"github.com/supoclip/supoclip/internal/supervisor/services"
	"github.com/supoclip/supoclip/internal/transcache"
	"github.com/supoclip/supoclip/internal/transcription"
	"github.com/supoclip/supoclip/internal/websocket"
	"github.com/supoclip/supoclip/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("SUPOCLIP_CONFIG_FILE"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Configuration load failed")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Caller = cfg.Logging.Caller
	logging.Init(logCfg)
	logging.Info().Str("version", api.Version).Msg("SupoClip starting")

	if err := cfg.EnsureDirs(); err != nil {
		logging.Fatal().Err(err).Msg("Directory bootstrap failed")
	}
	for _, warning := range cfg.CredentialWarnings() {
		logging.Warn().Msg(warning)
	}
	for _, err := range media.CheckBinaries() {
		logging.Warn().Err(err).Msg("Media binary missing, clip generation will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database.
	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Database initialization failed")
	}
	defer db.Close()

	// Transcript cache. Losing it only costs repeat transcription calls,
	// so a failure here is a warning, not fatal.
	var cache *transcache.Cache
	if cache, err = transcache.Open(cfg.Transcription.CacheDir, 0); err != nil {
		logging.Warn().Err(err).Msg("Transcript cache unavailable, continuing without it")
		cache = nil
	} else {
		defer cache.Close()
	}

	// Broker: embedded by default, external when NATS_EMBEDDED=false.
	queueURL := cfg.Queue.URL
	var broker *jobqueue.EmbeddedServer
	if cfg.Queue.Embedded {
		serverCfg := jobqueue.DefaultServerConfig(&cfg.Queue)
		broker, err = jobqueue.NewEmbeddedServer(&serverCfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("Embedded NATS server failed to start")
		}
		queueURL = broker.ClientURL()
		logging.Info().Str("url", queueURL).Msg("Embedded NATS server ready")
	}

	// Task stream.
	nc, err := natsgo.Connect(queueURL, natsgo.RetryOnFailedConnect(true), natsgo.MaxReconnects(-1))
	if err != nil {
		logging.Fatal().Err(err).Msg("NATS connection failed")
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		logging.Fatal().Err(err).Msg("JetStream context failed")
	}
	streamCfg := jobqueue.DefaultStreamConfig(&cfg.Queue)
	streamInit, err := jobqueue.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Stream initializer failed")
	}
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if _, err := streamInit.EnsureStream(initCtx); err != nil {
		cancel()
		logging.Fatal().Err(err).Msg("Task stream setup failed")
	}
	cancel()

	// Queue clients.
	wmLogger := jobqueue.NewWatermillLogger()
	publisher, err := jobqueue.NewPublisher(jobqueue.DefaultPublisherConfig(queueURL), wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Queue publisher failed")
	}
	defer publisher.Close()
	publisher.SetCircuitBreaker(newPublishBreaker())

	jobSubCfg := jobqueue.DefaultSubscriberConfig(queueURL, &cfg.Queue)
	jobSub, err := jobqueue.NewSubscriber(&jobSubCfg, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Job subscriber failed")
	}
	defer jobSub.Close()

	progressSubCfg := jobqueue.DefaultSubscriberConfig(queueURL, &cfg.Queue)
	progressSubCfg.DurableName = "supoclip-progress"
	progressSubCfg.QueueGroup = "supoclip_progress"
	progressSub, err := jobqueue.NewSubscriber(&progressSubCfg, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Progress subscriber failed")
	}
	defer progressSub.Close()

	// Pipeline components.
	toolchain := media.NewToolchain()
	var transcriber worker.Transcriber
	if cfg.Credentials.HasTranscriptionKey() {
		transcriber = transcription.NewClient(&cfg.Transcription, cfg.Credentials.AssemblyAI)
	}
	var selector worker.SegmentSelector
	if s, err := highlights.NewSelector(cfg); err != nil {
		logging.Warn().Err(err).Msg("Highlight selector unavailable, tasks will fail until credentials are set")
	} else {
		selector = s
		logging.Info().Str("provider", s.ProviderName()).Msg("Highlight provider resolved")
	}

	hub := websocket.NewHub()
	clipWorker := worker.New(cfg, db, cache, toolchain, toolchain, transcriber, selector, publisher)
	jobHandler := jobSub.NewJobHandler(clipWorker.Handle)
	forwarder := jobqueue.NewProgressForwarder(progressSub, hub)

	// HTTP API.
	handler := api.NewHandler(cfg, db, publisher, streamInit, hub)
	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           api.NewRouter(cfg, handler),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	// Supervision tree.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if broker != nil {
		tree.AddBrokerService(services.NewBrokerService(broker, 10*time.Second))
	}
	tree.AddPipelineService(services.NewRunnerService("progress-hub", services.RunnerFunc(hub.RunWithContext)))
	tree.AddPipelineService(services.NewRunnerService("clip-worker", jobHandler))
	tree.AddPipelineService(services.NewRunnerService("progress-forwarder", forwarder))
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))

	logging.Info().Str("addr", cfg.ListenAddr()).Msg("Serving")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervisor exited with error")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}
	logging.Info().Msg("Shutdown complete")
}

// newPublishBreaker protects the API from a wedged broker: after repeated
// publish failures, task creation fails fast with QUEUE_UNAVAILABLE
// instead of stacking up blocked requests.
func newPublishBreaker() *gobreaker.CircuitBreaker[interface{}] {
	return gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "jobqueue-publish",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}
