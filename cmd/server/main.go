package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/autovideo/api/internal/bootstrap"
	"github.com/autovideo/api/internal/client"
	"github.com/autovideo/api/internal/config"
	"github.com/autovideo/api/internal/handler"
	"github.com/autovideo/api/internal/middleware"
	"github.com/autovideo/api/internal/pipeline"
	"github.com/autovideo/api/internal/server"
	"github.com/autovideo/api/internal/service"
	"github.com/autovideo/api/internal/store"
	"github.com/autovideo/api/internal/telemetry"
	ws "github.com/autovideo/api/internal/websocket"
	"github.com/autovideo/api/internal/worker"
)

// version is set at build time via -ldflags.
var version = "dev"

// @title          Auto-Video Builder API
// @version        1.0
// @description    Turns a short idea into a scripted, voiced, captioned and published video.
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
func main() {
	os.Exit(run0())
}

func run0() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	logger := bootstrap.NewLogger(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	slog.Info("autovideo starting", "version", version, "port", cfg.Server.Port,
		"store", cfg.Store.Driver, "dispatcher", cfg.Pipeline.Dispatcher)

	otelShutdown, err := telemetry.Init(ctx, cfg.Telemetry.OTLPEndpoint, "autovideo-api", version, cfg.Telemetry.Insecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	redisClient := bootstrap.NewRedisClient(cfg.Redis)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Warn("redis not available", "error", err)
	}

	jobStore, err := bootstrap.NewJobStore(cfg.Store, redisClient)
	if err != nil {
		return fmt.Errorf("job store: %w", err)
	}

	validate := validator.New()
	hub := ws.NewHub(logger)

	vendors := bootstrap.NewVendors(cfg)
	r2 := bootstrap.NewR2(ctx, cfg.R2, logger)
	executor := pipeline.NewExecutor(jobStore, vendors.Collaborators(r2, validate), logger)

	opts := []pipeline.OrchestratorOption{pipeline.WithObserver(hub)}
	var asynqClient *asynq.Client
	if cfg.Pipeline.Dispatcher == config.DispatcherAsynq {
		asynqClient = asynq.NewClient(bootstrap.RedisClientOpt(cfg.Redis))
		defer asynqClient.Close()
		opts = append(opts, pipeline.WithDispatcher(pipeline.NewAsynqDispatcher(asynqClient)))
	}
	orch := pipeline.NewOrchestrator(jobStore, executor, cfg.Pipeline.AutoPublish, logger, opts...)

	faces, uploadDir, closeFaces := newFaceService(cfg, r2, logger)
	defer closeFaces()

	app := server.NewApp(cfg, server.Deps{
		Orchestrator: orch,
		Hub:          hub,
		Faces:        faces,
		RateLimiter:  middleware.NewRateLimiter(redisClient),
		Validator:    validate,
		Health:       healthChecks(vendors, r2, redisClient),
		UploadDir:    uploadDir,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		addr := ":" + cfg.Server.Port
		slog.Info("server listening", "addr", addr)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var workerSrv *asynq.Server
	if asynqClient != nil {
		workerSrv = newWorkerServer(cfg)
		mux := asynq.NewServeMux()
		worker.NewExecuteWorker(orch, logger).Register(mux)
		g.Go(func() error {
			if err := workerSrv.Run(mux); err != nil {
				return fmt.Errorf("asynq worker: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("autovideo shutting down")

		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("http shutdown error", "error", err)
		}

		waitCtx, waitCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := orch.Wait(waitCtx); err != nil {
			slog.Warn("in-flight jobs did not finish before shutdown", "error", err)
		}
		waitCancel()

		if workerSrv != nil {
			workerSrv.Shutdown()
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("autovideo stopped")
	return nil
}

func newWorkerServer(cfg *config.Config) *asynq.Server {
	concurrency := cfg.Pipeline.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return asynq.NewServer(
		bootstrap.RedisClientOpt(cfg.Redis),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				pipeline.QueuePipeline: 1,
			},
			LogLevel:        bootstrap.AsynqLogLevel(cfg.Server.LogLevel),
			ShutdownTimeout: 30 * time.Second,
		},
	)
}

// newFaceService opens the face registry. Images go to R2 when configured and to
// the local upload dir otherwise, in which case that dir is returned for static
// serving.
func newFaceService(cfg *config.Config, r2 *client.R2Client, logger *slog.Logger) (*service.FaceService, string, func()) {
	faceStore, err := store.NewFaceStore(cfg.Faces.DBPath)
	if err != nil {
		logger.Warn("face registry disabled", "error", err)
		return nil, "", func() {}
	}
	closeFn := func() { _ = faceStore.Close() }
	maxBytes := int64(cfg.Faces.MaxUploadMB) * 1024 * 1024

	if r2 != nil {
		return service.NewFaceService(faceStore, r2, maxBytes), "", closeFn
	}

	local, err := client.NewLocalStorage(cfg.Faces.UploadDir, "/uploads")
	if err != nil {
		logger.Warn("face registry disabled", "error", err)
		closeFn()
		return nil, "", func() {}
	}
	return service.NewFaceService(faceStore, local, maxBytes), local.Dir(), closeFn
}

func healthChecks(v bootstrap.Vendors, r2 *client.R2Client, rdb *redis.Client) map[string]handler.HealthCheck {
	static := func(ok bool) handler.HealthCheck {
		return func(context.Context) bool { return ok }
	}
	return map[string]handler.HealthCheck{
		"deepseek":   static(v.DeepSeek.IsConfigured()),
		"kie":        static(v.Kie.IsConfigured()),
		"elevenlabs": static(v.ElevenLabs.IsConfigured()),
		"youtube":    static(v.YouTube.IsConfigured()),
		"storage":    static(r2.IsConfigured()),
		"redis": func(ctx context.Context) bool {
			return rdb.Ping(ctx).Err() == nil
		},
	}
}
