package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable of the relay. Values come from defaults,
// an optional relay.yaml in the working directory, and RELAY_* env vars,
// in increasing precedence.
type Config struct {
	ListenAddr        string
	BroadcastInterval time.Duration
	ReconnectDelay    time.Duration
	SendQueueSize     int
	ReadLimit         int64
	WriteTimeout      time.Duration
	PongTimeout       time.Duration
	LogFile           string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listenAddr", ":8080")
	v.SetDefault("broadcastIntervalMs", 33)
	v.SetDefault("reconnectDelayMs", 3000)
	v.SetDefault("sendQueueSize", 64)
	v.SetDefault("readLimitBytes", 1<<20)
	v.SetDefault("writeTimeoutMs", 5000)
	v.SetDefault("pongTimeoutMs", 60000)
	v.SetDefault("logFile", "relay.log")
}

// Load reads the configuration. A missing config file is fine; a present
// but unreadable one is an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("relay")
	v.AddConfigPath(".")
	v.SetEnvPrefix("RELAY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		ListenAddr:        v.GetString("listenAddr"),
		BroadcastInterval: time.Duration(v.GetInt("broadcastIntervalMs")) * time.Millisecond,
		ReconnectDelay:    time.Duration(v.GetInt("reconnectDelayMs")) * time.Millisecond,
		SendQueueSize:     v.GetInt("sendQueueSize"),
		ReadLimit:         v.GetInt64("readLimitBytes"),
		WriteTimeout:      time.Duration(v.GetInt("writeTimeoutMs")) * time.Millisecond,
		PongTimeout:       time.Duration(v.GetInt("pongTimeoutMs")) * time.Millisecond,
		LogFile:           v.GetString("logFile"),
	}
	if cfg.BroadcastInterval <= 0 {
		return nil, fmt.Errorf("broadcastIntervalMs must be positive, got %v", cfg.BroadcastInterval)
	}
	if cfg.SendQueueSize <= 0 {
		return nil, fmt.Errorf("sendQueueSize must be positive, got %d", cfg.SendQueueSize)
	}
	return cfg, nil
}
