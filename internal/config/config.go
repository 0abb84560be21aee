package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	Env               string
	LogLevel          string
	MongoURI          string
	MongoDB           string
	MattermostURL     string
	BotToken          string
	BroadcastChannels []string
	LogChannel        string
	DefaultLocale     string
}

func Load() *Config {
	// Missing .env is fine; env vars win either way.
	_ = godotenv.Load()

	return &Config{
		Port:              getEnv("PORT", "3000"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGODB_DATABASE", "workday"),
		MattermostURL:     strings.TrimRight(getEnv("MATTERMOST_URL", "http://localhost:8065"), "/"),
		BotToken:          getEnv("BOT_TOKEN", ""),
		BroadcastChannels: splitList(getEnv("BROADCAST_CHANNELS", "general,main,chat")),
		LogChannel:        getEnv("LOG_CHANNEL", "logs"),
		DefaultLocale:     getEnv("DEFAULT_LOCALE", "en"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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
