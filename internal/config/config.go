package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr               string
	UpstreamBaseURL    string
	UpstreamTimeout    time.Duration
	PageSize           int
	RedisURL           string
	SnapshotTTL        time.Duration
	ScheduleWindowDays int
	TimeZone           string
	CORSOrigin         string
}

// Load reads configuration from the environment, then overlays the YAML
// file named by DAYBOARD_CONFIG when set. File values win over env values
// only for fields the file actually sets.
func Load() Config {
	cfg := Config{
		Addr:            getenv("API_ADDR", ":8790"),
		UpstreamBaseURL: getenv("DAYBOARD_UPSTREAM_URL", "http://localhost:8080/api"),
		UpstreamTimeout: time.Duration(getenvInt("DAYBOARD_UPSTREAM_TIMEOUT_SECONDS", 10)) * time.Second,
		PageSize:        getenvInt("DAYBOARD_PAGE_SIZE", 50),
		// Redis - empty disables the snapshot cache
		RedisURL:           getenv("REDIS_URL", "redis://localhost:6379/0"),
		SnapshotTTL:        time.Duration(getenvInt("DAYBOARD_SNAPSHOT_TTL_SECONDS", 3600)) * time.Second,
		ScheduleWindowDays: getenvInt("DAYBOARD_SCHEDULE_WINDOW_DAYS", 7),
		TimeZone:           getenv("DAYBOARD_TIMEZONE", ""),
		CORSOrigin:         getenv("DAYBOARD_CORS_ORIGIN", "*"),
	}
	if path := os.Getenv("DAYBOARD_CONFIG"); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			log.Printf("config: ignoring %s: %v", path, err)
		}
	}
	return cfg
}

// fileConfig mirrors Config with optional fields so an overlay file can set
// only what it cares about.
type fileConfig struct {
	Addr                   *string `yaml:"addr"`
	UpstreamBaseURL        *string `yaml:"upstreamBaseUrl"`
	UpstreamTimeoutSeconds *int    `yaml:"upstreamTimeoutSeconds"`
	PageSize               *int    `yaml:"pageSize"`
	RedisURL               *string `yaml:"redisUrl"`
	SnapshotTTLSeconds     *int    `yaml:"snapshotTtlSeconds"`
	ScheduleWindowDays     *int    `yaml:"scheduleWindowDays"`
	TimeZone               *string `yaml:"timeZone"`
	CORSOrigin             *string `yaml:"corsOrigin"`
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}
	if file.Addr != nil {
		cfg.Addr = *file.Addr
	}
	if file.UpstreamBaseURL != nil {
		cfg.UpstreamBaseURL = *file.UpstreamBaseURL
	}
	if file.UpstreamTimeoutSeconds != nil {
		cfg.UpstreamTimeout = time.Duration(*file.UpstreamTimeoutSeconds) * time.Second
	}
	if file.PageSize != nil {
		cfg.PageSize = *file.PageSize
	}
	if file.RedisURL != nil {
		cfg.RedisURL = *file.RedisURL
	}
	if file.SnapshotTTLSeconds != nil {
		cfg.SnapshotTTL = time.Duration(*file.SnapshotTTLSeconds) * time.Second
	}
	if file.ScheduleWindowDays != nil {
		cfg.ScheduleWindowDays = *file.ScheduleWindowDays
	}
	if file.TimeZone != nil {
		cfg.TimeZone = *file.TimeZone
	}
	if file.CORSOrigin != nil {
		cfg.CORSOrigin = *file.CORSOrigin
	}
	return nil
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
