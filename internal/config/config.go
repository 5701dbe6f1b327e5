package config

import (
	"os"
	"time"
)

type Config struct {
	Port              string
	DBPath            string
	SourceURL         string
	PageSize          int
	RecurringInterval time.Duration
}

func Load() Config {
	return Config{
		Port:              getEnv("PORT", "8080"),
		DBPath:            getEnv("DB_PATH", "konakore.db"),
		SourceURL:         getEnv("SOURCE_URL", "https://konachan.net"),
		PageSize:          getEnvInt("PAGE_SIZE", 100),
		RecurringInterval: time.Duration(getEnvInt("RECENT_SYNC_INTERVAL_MINUTES", 48)) * time.Minute,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int(c-'0')
	}
	return n
}
