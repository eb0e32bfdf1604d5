// Package bootstrap wires configuration into the components shared by the
// server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/autovideo/api/internal/client"
	"github.com/autovideo/api/internal/config"
	"github.com/autovideo/api/internal/pipeline"
	"github.com/autovideo/api/internal/service"
	"github.com/autovideo/api/internal/store"
)

// NewLogger returns a JSON logger at the named level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// ParseLevel maps LOG_LEVEL values onto slog levels; unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// AsynqLogLevel follows LOG_LEVEL for the worker server.
func AsynqLogLevel(level string) asynq.LogLevel {
	switch ParseLevel(level) {
	case slog.LevelDebug:
		return asynq.DebugLevel
	case slog.LevelWarn:
		return asynq.WarnLevel
	case slog.LevelError:
		return asynq.ErrorLevel
	}
	return asynq.InfoLevel
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func RedisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewJobStore picks the job store for cfg.Store.Driver. rdb is only used by the
// redis driver.
func NewJobStore(cfg config.StoreConfig, rdb *redis.Client) (store.JobStore, error) {
	switch cfg.Driver {
	case config.StoreDriverMemory, "":
		return store.NewMemoryStore(), nil
	case config.StoreDriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis store requires a redis client")
		}
		return store.NewRedisStore(rdb, cfg.TTL()), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// NewR2 returns the R2 client, or nil when R2 is not configured or fails to
// initialize.
func NewR2(ctx context.Context, cfg config.R2Config, logger *slog.Logger) *client.R2Client {
	if !cfg.Configured() {
		logger.Info("R2 storage not configured")
		return nil
	}
	r2, err := client.NewR2Client(ctx, cfg)
	if err != nil {
		logger.Warn("R2 client not initialized", "error", err)
		return nil
	}
	return r2
}

// Vendors are the configured API clients
type Vendors struct {
	DeepSeek   *client.DeepSeekClient
	Kie        *client.KieClient
	ElevenLabs *client.ElevenLabsClient
	YouTube    *client.YouTubeClient
}

func NewVendors(cfg *config.Config) Vendors {
	return Vendors{
		DeepSeek:   client.NewDeepSeekClient(cfg.DeepSeek),
		Kie:        client.NewKieClient(cfg.Kie),
		ElevenLabs: client.NewElevenLabsClient(cfg.ElevenLabs),
		YouTube:    client.NewYouTubeClient(cfg.YouTube),
	}
}

// Collaborators builds the stage services. A nil r2 keeps voiceovers as
// memory:// references.
func (v Vendors) Collaborators(r2 *client.R2Client, validate *validator.Validate) pipeline.Collaborators {
	var voiceStorage client.StorageClient
	if r2 != nil {
		voiceStorage = r2
	}
	return pipeline.Collaborators{
		Script:    service.NewScriptService(v.DeepSeek, validate),
		Video:     service.NewVideoService(v.Kie),
		Audio:     service.NewVoiceService(v.ElevenLabs, voiceStorage),
		Captions:  service.NewCaptionService(v.ElevenLabs),
		Publisher: service.NewPublishService(v.YouTube),
	}
}
