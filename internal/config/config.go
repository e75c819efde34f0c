package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath               string
	ServerPort           string
	LogLevel             string
	LockTimeout          time.Duration
	SweepInterval        time.Duration
	AutoChallenges       bool
	DefaultChallengeGoal int64
	WebhookURL           string
	WebhookRate          float64
}

// Load reads .env (if present) and the environment. It runs before the logger
// exists, so the .env outcome is reported later by Log.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:     getEnv("DB_PATH", "runcrew.db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		WebhookURL: getEnv("WEBHOOK_URL", ""),
	}

	var err error
	if cfg.LockTimeout, err = getDuration("LOCK_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.AutoChallenges, err = getBool("AUTO_CHALLENGES", true); err != nil {
		return nil, err
	}
	if cfg.DefaultChallengeGoal, err = getInt("DEFAULT_CHALLENGE_GOAL", 100000); err != nil {
		return nil, err
	}
	if cfg.WebhookRate, err = getFloat("WEBHOOK_RATE", 5); err != nil {
		return nil, err
	}

	if cfg.LockTimeout <= 0 {
		return nil, fmt.Errorf("LOCK_TIMEOUT must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if cfg.DefaultChallengeGoal <= 0 {
		return nil, fmt.Errorf("DEFAULT_CHALLENGE_GOAL must be positive")
	}
	if cfg.WebhookRate <= 0 {
		return nil, fmt.Errorf("WEBHOOK_RATE must be positive")
	}

	return cfg, nil
}

func Log(cfg *Config, logger zerolog.Logger) {
	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("lock_timeout", cfg.LockTimeout).
		Dur("sweep_interval", cfg.SweepInterval).
		Bool("auto_challenges", cfg.AutoChallenges).
		Int64("default_challenge_goal", cfg.DefaultChallengeGoal).
		Bool("webhook_enabled", cfg.WebhookURL != "").
		Msg("configuration loaded")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

var Module = fx.Options(
	fx.Provide(Load),
	fx.Invoke(Log),
)
