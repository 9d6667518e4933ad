package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds process settings read from the environment
type Config struct {
	HTTPAddr         string
	GRPCAddr         string
	MinIncrement     int64
	RecentBids       int
	SweepInterval    time.Duration
	SubscriberBuffer int
	GapTimeout       time.Duration
	MySQLDSN         string
	RedisAddr        string
	LogLevel         string
}

// Load reads the configuration, falling back to defaults for unset variables
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:  addr("PORT", "8080"),
		GRPCAddr:  addr("GRPC_PORT", "50051"),
		MySQLDSN:  os.Getenv("MYSQL_DSN"),
		RedisAddr: os.Getenv("REDIS_ADDR"),
		LogLevel:  os.Getenv("LOG_LEVEL"),
	}

	var err error
	if cfg.MinIncrement, err = int64Env("MIN_BID_INCREMENT", 50); err != nil {
		return Config{}, err
	}
	if cfg.MinIncrement <= 0 {
		return Config{}, fmt.Errorf("config: MIN_BID_INCREMENT must be positive, got %d", cfg.MinIncrement)
	}
	if cfg.RecentBids, err = intEnv("RECENT_BIDS_LIMIT", 10); err != nil {
		return Config{}, err
	}
	if cfg.SubscriberBuffer, err = intEnv("SUBSCRIBER_BUFFER", 64); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = durationEnv("SWEEP_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.GapTimeout, err = durationEnv("GAP_TIMEOUT", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("config: SWEEP_INTERVAL must be positive, got %s", cfg.SweepInterval)
	}
	if cfg.GapTimeout <= 0 {
		return Config{}, fmt.Errorf("config: GAP_TIMEOUT must be positive, got %s", cfg.GapTimeout)
	}
	return cfg, nil
}

// addr returns ":<port>" from env or the default port
func addr(key, def string) string {
	if p := os.Getenv(key); p != "" {
		return fmt.Sprintf(":%s", p)
	}
	return ":" + def
}

func int64Env(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s: %w", key, err)
	}
	return n, nil
}

func intEnv(key string, def int) (int, error) {
	n, err := int64Env(key, int64(def))
	return int(n), err
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s: %w", key, err)
	}
	return d, nil
}
