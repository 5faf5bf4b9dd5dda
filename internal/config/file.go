package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Example file config:
//
//	root: /srv/tv
//	video_extensions: [.mp4, .mkv]
//	match_threshold: 0.85
//	watch: true
//	watch_debounce: 5s
type fileConfig struct {
	Root            *string  `yaml:"root"`
	VideoExtensions []string `yaml:"video_extensions"`
	ThumbExtension  *string  `yaml:"thumb_extension"`
	MatchThreshold  *float64 `yaml:"match_threshold"`
	Port            *string  `yaml:"port"`
	LogLevel        *string  `yaml:"log_level"`
	LogFormat       *string  `yaml:"log_format"`
	Watch           *bool    `yaml:"watch"`
	WatchDebounce   *string  `yaml:"watch_debounce"`
	WarmScan        *bool    `yaml:"warm_scan"`
}

// LoadFile overlays the keys present in a YAML file onto base.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := base
	if fc.Root != nil {
		cfg.RootPath = strings.TrimSpace(*fc.Root)
	}
	if len(fc.VideoExtensions) > 0 {
		cfg.VideoExtensions = fc.VideoExtensions
	}
	if fc.ThumbExtension != nil {
		cfg.ThumbExtension = *fc.ThumbExtension
	}
	if fc.MatchThreshold != nil {
		cfg.MatchThreshold = *fc.MatchThreshold
	}
	if fc.Port != nil {
		cfg.Port = strings.TrimSpace(*fc.Port)
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogFormat != nil {
		cfg.LogFormat = *fc.LogFormat
	}
	if fc.Watch != nil {
		cfg.Watch = *fc.Watch
	}
	if fc.WatchDebounce != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*fc.WatchDebounce))
		if err != nil {
			return base, fmt.Errorf("parse config %s: watch_debounce: %w", path, err)
		}
		cfg.WatchDebounce = d
	}
	if fc.WarmScan != nil {
		cfg.WarmScan = *fc.WarmScan
	}
	return cfg, nil
}
