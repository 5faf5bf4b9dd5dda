package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Example env config:
// TOOBA_ROOT=/srv/tv
// TOOBA_VIDEO_EXTENSIONS=.mp4,.webm,.mkv,.avi
// TOOBA_THUMB_EXTENSION=.tbn
// TOOBA_MATCH_THRESHOLD=0.8
// TOOBA_WATCH=false
// TOOBA_WATCH_DEBOUNCE=2s
// TOOBA_WARM_SCAN=true
// API_PORT=8080
// LOG_LEVEL=info
// LOG_FORMAT=console
type Config struct {
	RootPath        string
	VideoExtensions []string
	ThumbExtension  string
	MatchThreshold  float64
	Port            string
	LogLevel        string
	LogFormat       string
	Watch           bool
	WatchDebounce   time.Duration
	WarmScan        bool
}

const (
	defaultThumbExtension = ".tbn"
	defaultThreshold      = 0.8
	defaultPort           = "8080"
	defaultDebounce       = 2 * time.Second
)

func defaultVideoExtensions() []string {
	return []string{".mp4", ".webm", ".mkv", ".avi"}
}

func DefaultConfig() Config {
	return Config{
		VideoExtensions: defaultVideoExtensions(),
		ThumbExtension:  defaultThumbExtension,
		MatchThreshold:  defaultThreshold,
		Port:            defaultPort,
		LogLevel:        "info",
		LogFormat:       "console",
		Watch:           false,
		WatchDebounce:   defaultDebounce,
		WarmScan:        true,
	}
}

func LoadConfigFromEnv() Config {
	return applyEnv(DefaultConfig()).normalize()
}

// Load layers TOOBA_CONFIG (a YAML file, optional) over the defaults and the
// environment over both.
func Load() (Config, error) {
	cfg := DefaultConfig()
	if path := strings.TrimSpace(os.Getenv("TOOBA_CONFIG")); path != "" {
		var err error
		if cfg, err = LoadFile(path, cfg); err != nil {
			return Config{}, err
		}
	}
	return applyEnv(cfg).normalize(), nil
}

func applyEnv(cfg Config) Config {
	if v := strings.TrimSpace(envDefault("TOOBA_ROOT", os.Getenv("MEDIA_ROOT"))); v != "" {
		cfg.RootPath = v
	}
	if v := os.Getenv("TOOBA_VIDEO_EXTENSIONS"); v != "" {
		cfg.VideoExtensions = splitCSV(v)
	}
	if v := strings.TrimSpace(os.Getenv("TOOBA_THUMB_EXTENSION")); v != "" {
		cfg.ThumbExtension = v
	}
	if v := os.Getenv("TOOBA_MATCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.MatchThreshold = f
		}
	}
	if v := strings.TrimSpace(envDefault("API_PORT", os.Getenv("PORT"))); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("TOOBA_WATCH"); v != "" {
		cfg.Watch = parseBool(v, cfg.Watch)
	}
	if v := os.Getenv("TOOBA_WATCH_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			cfg.WatchDebounce = d
		}
	}
	if v := os.Getenv("TOOBA_WARM_SCAN"); v != "" {
		cfg.WarmScan = parseBool(v, cfg.WarmScan)
	}
	return cfg
}

// Validate reports configuration that cannot serve a library.
func (c Config) Validate() error {
	if c.RootPath == "" {
		return fmt.Errorf("TOOBA_ROOT is required")
	}
	info, err := os.Stat(c.RootPath)
	if err != nil {
		return fmt.Errorf("root %s: %w", c.RootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", c.RootPath)
	}
	return nil
}

func (c Config) normalize() Config {
	exts := make([]string, 0, len(c.VideoExtensions))
	seen := make(map[string]bool, len(c.VideoExtensions))
	for _, ext := range c.VideoExtensions {
		ext = normalizeExt(ext)
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = defaultVideoExtensions()
	}
	c.VideoExtensions = exts
	c.ThumbExtension = normalizeExt(c.ThumbExtension)
	if c.ThumbExtension == "" {
		c.ThumbExtension = defaultThumbExtension
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		c.MatchThreshold = defaultThreshold
	}
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.WatchDebounce <= 0 {
		c.WatchDebounce = defaultDebounce
	}
	return c
}

func normalizeExt(raw string) string {
	ext := strings.ToLower(strings.TrimSpace(raw))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseBool(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
