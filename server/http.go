package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kaylum54/Cliperus-V2/config"
	"github.com/kaylum54/Cliperus-V2/constant"
	"github.com/kaylum54/Cliperus-V2/handler"
	"github.com/kaylum54/Cliperus-V2/pkg/capture"
	"github.com/kaylum54/Cliperus-V2/pkg/ffmpeg"
	"github.com/kaylum54/Cliperus-V2/pkg/metrics"
	"github.com/kaylum54/Cliperus-V2/pkg/rabbitmq"
	"github.com/kaylum54/Cliperus-V2/pkg/schedule"
	"github.com/kaylum54/Cliperus-V2/repository"
	"github.com/kaylum54/Cliperus-V2/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	for _, dir := range []string{cfg.Recording.Dir, cfg.Clips.Dir} {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			zerolog.Ctx(ctx).Fatal().Err(err).Str("dir", dir).Msg("failed to create data directory")
		}
	}

	store := repository.NewStore(cfg.DB)
	media := ffmpeg.New()

	var controller capture.Controller = capture.Noop{}
	if cfg.Recording.ObsAddr != "" {
		obs := capture.NewOBSClient(cfg.Recording.ObsAddr, cfg.Recording.ObsPassword)
		if err := obs.Connect(ctx); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("OBS connection failed, recording entries only")
		} else {
			zerolog.Ctx(ctx).Info().Str("addr", cfg.Recording.ObsAddr).Msg("OBS connected")
		}
		controller = obs
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	workerMetrics := metrics.New(registry)

	session := service.NewSession()
	uploads := service.NewUploadQueue(store, media, service.SimulatedTransport{StepDelay: 500 * time.Millisecond}, cfg.Upload, workerMetrics)
	pipeline := service.NewPipeline(store, media, uploads, cfg.Clips, cfg.Recording.AutoDelete, cfg.Archive, cfg.Storage, workerMetrics)
	recorder := service.NewRecorder(store, session, controller, pipeline, cfg.Recording, workerMetrics)
	evaluator := service.NewEvaluator(store, pipeline, workerMetrics)
	checkers := service.NewPlatformCheckers(cfg.Monitor, cfg.Cache)
	monitor := service.NewMonitor(store, recorder, checkers, cfg.Monitor.CheckInterval, workerMetrics)

	go schedule.Loop(ctx, schedule.Task{
		Name:       "segment_scheduler",
		Interval:   cfg.Recording.PassInterval,
		ErrBackoff: 30 * time.Second,
		Run:        recorder.Pass,
	})
	go schedule.Loop(ctx, schedule.Task{
		Name:       "trigger_evaluator",
		Interval:   cfg.Clips.PassInterval,
		ErrBackoff: 10 * time.Second,
		Run:        evaluator.Pass,
	})
	go schedule.Loop(ctx, schedule.Task{
		Name:       "upload_recovery",
		Interval:   cfg.Upload.PassInterval,
		ErrBackoff: 10 * time.Second,
		Run:        uploads.Pass,
	})
	if err := monitor.Start(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to start stream monitor")
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("queue unavailable, trigger events accepted over HTTP only")
	} else {
		signalConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, handler.TriggerEventHandler)
		go func() {
			if err := signalConsumer.Consume(ctx, store); err != nil && !errors.Is(err, context.Canceled) {
				zerolog.Ctx(ctx).Error().Err(err).Msg("trigger event consumer error")
			}
		}()
	}

	r := gin.Default()
	addHealth(r, media)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	h := &handler.Handler{
		Store:         store,
		Recorder:      recorder,
		Monitor:       monitor,
		Pipeline:      pipeline,
		AppCtx:        ctx,
		IngestLimiter: rate.NewLimiter(rate.Limit(50), 100),
	}
	h.Register(r)

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("addr", srv.Addr).Msg("start http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zerolog.Ctx(ctx).Error().Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Msg("server shutdown")
}

func addHealth(r *gin.Engine, media ffmpeg.MediaTool) {
	r.GET("/health", func(c *gin.Context) {
		available, version := media.Available(c.Request.Context())
		c.JSON(200, gin.H{
			"status": "ok",
			"ffmpeg": gin.H{
				"available": available,
				"version":   version,
			},
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
