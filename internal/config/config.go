package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port       int
	LogLevel   string
	NatsURL    string
	NatsToken  string
	QAURL      string
	QAModel    string
	QAMinScore float64
}

func Load() Config {
	return Config{
		Port:       envInt("SOUNDLENS_PORT", 8780),
		LogLevel:   envStr("LOG_LEVEL", "info"),
		NatsURL:    envStr("NATS_URL", ""),
		NatsToken:  envStr("NATS_TOKEN", ""),
		QAURL:      envStr("QA_URL", "http://qa:8600"),
		QAModel:    envStr("QA_MODEL", "deepset/roberta-base-squad2"),
		QAMinScore: envFloat("QA_MIN_SCORE", 0.3),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
