package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	LogLevel string

	Host string
	Port int

	DBPath      string
	SettingsDir string

	GitHubBaseURL string
	GitHubOwner   string
	GitHubRepo    string
	GitHubToken   string
	PMBasePath    string

	AutoSyncEnabled bool
	SyncInterval    time.Duration

	OpenAIEndpoint string
	OpenAIModel    string
	OpenAIAPIKey   string
}

func LoadConfig() Config {
	level := os.Getenv("PMHUB_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	host := os.Getenv("PMHUB_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := atoiOrDefault(os.Getenv("PMHUB_PORT"), 4820)
	if port <= 0 {
		port = 4820
	}

	dbPath := os.Getenv("PMHUB_DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(defaultDataDir(), "pmhub.db")
	}
	settingsDir := os.Getenv("PMHUB_CONFIG_DIR")
	if settingsDir == "" {
		settingsDir = defaultDataDir()
	}

	baseURL := os.Getenv("PMHUB_GITHUB_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	basePath := os.Getenv("PMHUB_PM_BASE_PATH")
	if basePath == "" {
		basePath = "product-management"
	}

	interval := durationOrDefault(os.Getenv("PMHUB_SYNC_INTERVAL"), 5*time.Minute)
	autoSync := os.Getenv("PMHUB_AUTO_SYNC") != "0"

	return Config{
		LogLevel:        level,
		Host:            host,
		Port:            port,
		DBPath:          dbPath,
		SettingsDir:     settingsDir,
		GitHubBaseURL:   baseURL,
		GitHubOwner:     os.Getenv("PMHUB_GITHUB_OWNER"),
		GitHubRepo:      os.Getenv("PMHUB_GITHUB_REPO"),
		GitHubToken:     os.Getenv("GITHUB_TOKEN"),
		PMBasePath:      basePath,
		AutoSyncEnabled: autoSync,
		SyncInterval:    interval,
		OpenAIEndpoint:  os.Getenv("OPENAI_ENDPOINT"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".pmhub"
	}
	return filepath.Join(home, ".pmhub")
}

func atoiOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func durationOrDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
