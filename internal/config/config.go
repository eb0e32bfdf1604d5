package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Store      StoreConfig
	Pipeline   PipelineConfig
	DeepSeek   DeepSeekConfig
	Kie        KieConfig
	ElevenLabs ElevenLabsConfig
	YouTube    YouTubeConfig
	R2         R2Config
	Faces      FacesConfig
	RateLimit  RateLimitConfig
	Auth       AuthConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Store drivers
const (
	StoreDriverMemory = "memory"
	StoreDriverRedis  = "redis"
)

type StoreConfig struct {
	Driver   string
	TTLHours int
}

// TTL is how long the redis store keeps a job.
func (c StoreConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Dispatchers
const (
	DispatcherGoroutine = "goroutine"
	DispatcherAsynq     = "asynq"
)

type PipelineConfig struct {
	AutoPublish bool
	Dispatcher  string
	Concurrency int
}

type DeepSeekConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type KieConfig struct {
	APIKey      string
	BaseURL     string
	MaxAttempts int
	BaseDelayMs int
	Multiplier  float64
}

type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	VoiceID string
	ModelID string
}

type YouTubeConfig struct {
	ClientID      string
	ClientSecret  string
	RefreshToken  string
	PrivacyStatus string
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// Configured reports whether every credential needed to reach R2 is present.
func (c R2Config) Configured() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != ""
}

type FacesConfig struct {
	DBPath      string
	UploadDir   string
	MaxUploadMB int
}

type RateLimitConfig struct {
	JobsPerHour  int
	FacesPerHour int
}

// Auth modes
const (
	AuthModeNone    = "none"
	AuthModeJWT     = "jwt"
	AuthModeGateway = "gateway"
)

type AuthConfig struct {
	Mode      string
	JWTSecret string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	for _, key := range []string{
		"REDIS_PASSWORD",
		"DEEPSEEK_API_KEY",
		"KIE_API_KEY",
		"ELEVENLABS_API_KEY",
		"YOUTUBE_CLIENT_SECRET",
		"YOUTUBE_REFRESH_TOKEN",
		"R2_ACCOUNT_ID",
		"R2_ACCESS_KEY_ID",
		"R2_SECRET_ACCESS_KEY",
		"JWT_SECRET",
	} {
		readSecret(key)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Bind environment variables with underscores to nested config keys
	for key, env := range map[string]string{
		"server.port":               "PORT",
		"server.env":                "SERVER_ENV",
		"server.log_level":          "LOG_LEVEL",
		"redis.addr":                "REDIS_ADDR",
		"redis.password":            "REDIS_PASSWORD",
		"redis.db":                  "REDIS_DB",
		"store.driver":              "STORE_DRIVER",
		"store.ttl_hours":           "STORE_TTL_HOURS",
		"pipeline.auto_publish":     "AUTO_PUBLISH",
		"pipeline.dispatcher":       "PIPELINE_DISPATCHER",
		"pipeline.concurrency":      "PIPELINE_CONCURRENCY",
		"deepseek.api_key":          "DEEPSEEK_API_KEY",
		"deepseek.base_url":         "DEEPSEEK_BASE_URL",
		"deepseek.model":            "DEEPSEEK_MODEL",
		"kie.api_key":               "KIE_API_KEY",
		"kie.base_url":              "KIE_BASE_URL",
		"kie.max_attempts":          "KIE_POLL_MAX_ATTEMPTS",
		"kie.base_delay_ms":         "KIE_POLL_BASE_DELAY_MS",
		"kie.multiplier":            "KIE_POLL_MULTIPLIER",
		"elevenlabs.api_key":        "ELEVENLABS_API_KEY",
		"elevenlabs.base_url":       "ELEVENLABS_BASE_URL",
		"elevenlabs.voice_id":       "ELEVENLABS_VOICE_ID",
		"elevenlabs.model_id":       "ELEVENLABS_MODEL_ID",
		"youtube.client_id":         "YOUTUBE_CLIENT_ID",
		"youtube.client_secret":     "YOUTUBE_CLIENT_SECRET",
		"youtube.refresh_token":     "YOUTUBE_REFRESH_TOKEN",
		"youtube.privacy_status":    "YOUTUBE_PRIVACY_STATUS",
		"r2.account_id":             "R2_ACCOUNT_ID",
		"r2.access_key_id":          "R2_ACCESS_KEY_ID",
		"r2.secret_access_key":      "R2_SECRET_ACCESS_KEY",
		"r2.bucket_name":            "R2_BUCKET_NAME",
		"r2.public_url":             "R2_PUBLIC_URL",
		"faces.db_path":             "FACES_DB_PATH",
		"faces.upload_dir":          "FACES_UPLOAD_DIR",
		"faces.max_upload_mb":       "FACES_MAX_UPLOAD_MB",
		"ratelimit.jobs_per_hour":   "RATE_LIMIT_JOBS_PER_HOUR",
		"ratelimit.faces_per_hour":  "RATE_LIMIT_FACES_PER_HOUR",
		"auth.mode":                 "AUTH_MODE",
		"auth.jwt_secret":           "JWT_SECRET",
		"telemetry.otlp_endpoint":   "OTEL_EXPORTER_OTLP_ENDPOINT",
		"telemetry.insecure":        "OTEL_EXPORTER_OTLP_INSECURE",
	} {
		_ = v.BindEnv(key, env)
	}

	// Defaults
	v.SetDefault("server.port", "4000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("store.driver", StoreDriverMemory)
	v.SetDefault("store.ttl_hours", 24)
	v.SetDefault("pipeline.auto_publish", false)
	v.SetDefault("pipeline.dispatcher", DispatcherGoroutine)
	v.SetDefault("pipeline.concurrency", 4)

	v.SetDefault("deepseek.base_url", "https://api.deepseek.com")
	v.SetDefault("deepseek.model", "deepseek-chat")

	v.SetDefault("kie.base_url", "https://api.kie.ai")
	v.SetDefault("kie.max_attempts", 20)
	v.SetDefault("kie.base_delay_ms", 2000)
	v.SetDefault("kie.multiplier", 1.3)

	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("elevenlabs.voice_id", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("elevenlabs.model_id", "eleven_multilingual_v2")

	v.SetDefault("youtube.privacy_status", "private")

	v.SetDefault("faces.db_path", "data/faces.db")
	v.SetDefault("faces.upload_dir", "uploads")
	v.SetDefault("faces.max_upload_mb", 5)

	v.SetDefault("ratelimit.jobs_per_hour", 30)
	v.SetDefault("ratelimit.faces_per_hour", 60)

	v.SetDefault("auth.mode", AuthModeNone)
	v.SetDefault("telemetry.insecure", true)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("server.port"),
			Env:      v.GetString("server.env"),
			LogLevel: v.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Store: StoreConfig{
			Driver:   v.GetString("store.driver"),
			TTLHours: v.GetInt("store.ttl_hours"),
		},
		Pipeline: PipelineConfig{
			AutoPublish: v.GetBool("pipeline.auto_publish"),
			Dispatcher:  v.GetString("pipeline.dispatcher"),
			Concurrency: v.GetInt("pipeline.concurrency"),
		},
		DeepSeek: DeepSeekConfig{
			APIKey:  v.GetString("deepseek.api_key"),
			BaseURL: v.GetString("deepseek.base_url"),
			Model:   v.GetString("deepseek.model"),
		},
		Kie: KieConfig{
			APIKey:      v.GetString("kie.api_key"),
			BaseURL:     v.GetString("kie.base_url"),
			MaxAttempts: v.GetInt("kie.max_attempts"),
			BaseDelayMs: v.GetInt("kie.base_delay_ms"),
			Multiplier:  v.GetFloat64("kie.multiplier"),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:  v.GetString("elevenlabs.api_key"),
			BaseURL: v.GetString("elevenlabs.base_url"),
			VoiceID: v.GetString("elevenlabs.voice_id"),
			ModelID: v.GetString("elevenlabs.model_id"),
		},
		YouTube: YouTubeConfig{
			ClientID:      v.GetString("youtube.client_id"),
			ClientSecret:  v.GetString("youtube.client_secret"),
			RefreshToken:  v.GetString("youtube.refresh_token"),
			PrivacyStatus: v.GetString("youtube.privacy_status"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       v.GetString("r2.public_url"),
		},
		Faces: FacesConfig{
			DBPath:      v.GetString("faces.db_path"),
			UploadDir:   v.GetString("faces.upload_dir"),
			MaxUploadMB: v.GetInt("faces.max_upload_mb"),
		},
		RateLimit: RateLimitConfig{
			JobsPerHour:  v.GetInt("ratelimit.jobs_per_hour"),
			FacesPerHour: v.GetInt("ratelimit.faces_per_hour"),
		},
		Auth: AuthConfig{
			Mode:      v.GetString("auth.mode"),
			JWTSecret: v.GetString("auth.jwt_secret"),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: v.GetString("telemetry.otlp_endpoint"),
			Insecure:     v.GetBool("telemetry.insecure"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreDriverMemory, StoreDriverRedis:
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.Pipeline.Dispatcher {
	case DispatcherGoroutine, DispatcherAsynq:
	default:
		return fmt.Errorf("config: unknown pipeline dispatcher %q", c.Pipeline.Dispatcher)
	}
	switch c.Auth.Mode {
	case AuthModeNone, AuthModeGateway:
	case AuthModeJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("config: JWT_SECRET is required when AUTH_MODE=jwt")
		}
	default:
		return fmt.Errorf("config: unknown auth mode %q", c.Auth.Mode)
	}
	return nil
}
