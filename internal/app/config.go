package app

import (
	"time"

	"github.com/fieldcare/fieldcare-backend/internal/data/db"
	httpMW "github.com/fieldcare/fieldcare-backend/internal/http/middleware"
	"github.com/fieldcare/fieldcare-backend/internal/platform/envutil"
	"github.com/fieldcare/fieldcare-backend/internal/platform/logger"
)

type Config struct {
	ServiceName string
	Environment string
	Addr        string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	CORSOrigins []string

	// AggregateMaxAttempts re-runs writes that failed on serialization or
	// a busy database. 1 disables retries.
	AggregateMaxAttempts int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DB db.Config
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		ServiceName:          envutil.String("SERVICE_NAME", "fieldcare-backend"),
		Environment:          envutil.String("APP_ENV", "development"),
		Addr:                 ":" + envutil.String("PORT", "8080"),
		JWTSecretKey:         envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		AccessTokenTTL:       envutil.Duration("ACCESS_TOKEN_TTL", 24*time.Hour),
		CORSOrigins:          envutil.List("CORS_ORIGINS", httpMW.DefaultCORSOrigins),
		AggregateMaxAttempts: envutil.Int("AGGREGATE_MAX_ATTEMPTS", 1),
		RedisAddr:            envutil.String("REDIS_ADDR", ""),
		RedisPassword:        envutil.String("REDIS_PASSWORD", ""),
		RedisDB:              envutil.Int("REDIS_DB", 0),
		DB:                   db.LoadConfig(),
	}
	if addr := envutil.String("ADDR", ""); addr != "" {
		cfg.Addr = addr
	}
	if cfg.JWTSecretKey == "defaultsecret" {
		log.Warn("JWT_SECRET_KEY not set; using the development default")
	}
	return cfg
}
