package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"tooba/internal/config"
	"tooba/pkg/logger"
)

// healthcheck checks a running server once and exits non-zero when it is
// down, for container HEALTHCHECK lines that have no shell or curl.
func main() {
	cfg, err := config.Load()
	if err != nil {
		cfg = config.LoadConfigFromEnv()
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: "json", Out: os.Stderr})

	url := getenv("HEALTH_URL", "http://127.0.0.1:"+cfg.Port+"/health")
	timeout, err := time.ParseDuration(getenv("CHECK_TIMEOUT", "2s"))
	if err != nil {
		timeout = 2 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	ok, latency := checkHealth(context.Background(), client, url, log)
	if !ok {
		os.Exit(1)
	}
	log.Debug().Str("url", url).Dur("latency", latency).Msg("healthy")
}

func checkHealth(ctx context.Context, client *http.Client, url string, log zerolog.Logger) (bool, time.Duration) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("bad health url")
		return false, 0
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("health check failed")
		return false, 0
	}
	defer resp.Body.Close()
	latency := time.Since(start)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().Int("status", resp.StatusCode).Str("url", url).Dur("latency", latency).Msg("unhealthy")
		return false, latency
	}
	return true, latency
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
