package app

import (
	"strings"
	"time"

	"github.com/yungbote/integration-engine/internal/data/db"
	"github.com/yungbote/integration-engine/internal/platform/envutil"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

type Config struct {
	Port            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	DB db.Config

	RedisAddr    string
	RedisChannel string
	UserLockTTL  time.Duration
	JWTSecretKey string
	MetricsOn    bool
	OtelEnabled  bool
	OtelEndpoint string
	OtelInsecure bool
	OtelRatio    float64
	ServiceName  string
	Environment  string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:            envutil.String("PORT", "8080"),
		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		CORSOrigins:     splitList(envutil.String("CORS_ALLOWED_ORIGINS", "")),
		DB: db.Config{
			Driver:           strings.ToLower(envutil.String("DB_DRIVER", db.DriverPostgres)),
			SQLitePath:       envutil.String("SQLITE_PATH", "integration.db"),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "integration"),
		},
		RedisAddr:       envutil.String("REDIS_ADDR", ""),
		RedisChannel:    envutil.String("REDIS_CHANNEL", "integration.reviews"),
		UserLockTTL:     envutil.Seconds("USER_LOCK_TTL_SECONDS", 10*time.Second),
		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", ""),
		MetricsOn:       envutil.Bool("METRICS_ENABLED", true),
		OtelEnabled:     envutil.Bool("OTEL_ENABLED", false),
		OtelEndpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OtelInsecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		OtelRatio:       envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
		ServiceName:     envutil.String("OTEL_SERVICE_NAME", "integration-engine"),
		Environment:     envutil.String("APP_ENV", "development"),
	}
	if log != nil {
		if cfg.JWTSecretKey == "" {
			log.Warn("JWT_SECRET_KEY is empty; every /api/integration request will be rejected")
		}
		if cfg.RedisAddr == "" {
			log.Info("REDIS_ADDR not set; using in-process user locks and log-only review events")
		}
		log.Info("config loaded",
			"port", cfg.Port,
			"db_driver", cfg.DB.Driver,
			"redis", cfg.RedisAddr != "",
			"metrics", cfg.MetricsOn,
			"otel", cfg.OtelEnabled,
		)
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
