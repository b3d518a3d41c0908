package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	CORSOrigins            string
	TokenTTL               time.Duration
	LockDuration           time.Duration
	UnreadCacheTTL         time.Duration
	AuditQueueSize         int
	MaxPhotoMB             int
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PERSCOM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "PERSCOM API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("token.ttl", "24h")
	v.SetDefault("lock.duration", "30m")
	v.SetDefault("unread.cache_ttl", "1m")
	v.SetDefault("audit.queue_size", 256)
	v.SetDefault("max.photo_mb", 5)
	v.SetDefault("cloudinary.folder", "perscom/photos")
	v.SetDefault("cors.origins", "*")

	tokenTTL, err := parseDuration(v.GetString("token.ttl"), 24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid token ttl: %w", err)
	}

	lockDuration, err := parseDuration(v.GetString("lock.duration"), 30*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid lock duration: %w", err)
	}

	cacheTTL, err := parseDuration(v.GetString("unread.cache_ttl"), time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid unread cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CORSOrigins:            v.GetString("cors.origins"),
		TokenTTL:               tokenTTL,
		LockDuration:           lockDuration,
		UnreadCacheTTL:         cacheTTL,
		AuditQueueSize:         v.GetInt("audit.queue_size"),
		MaxPhotoMB:             v.GetInt("max.photo_mb"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.AuditQueueSize <= 0 {
		cfg.AuditQueueSize = 256
	}

	if cfg.MaxPhotoMB <= 0 {
		cfg.MaxPhotoMB = 5
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
