package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config is read once at startup from the environment (and an optional .env file).
type Config struct {
	DatabaseURL       string
	JWTSecret         []byte
	TokenTTL          time.Duration
	HTTPAddr          string
	MediaDir          string
	RedisAddr         string
	RedisPassword     string
	CORSOrigins       []string
	Env               string
	LoginRatePerMin   int
	DefaultPageSize   int
	MaxPageSize       int
	RequestTimeout    time.Duration
	MaxAvatarBytes    int64
	AvatarMaxPixels   int
	AvatarJPEGQuality int

	// AvatarMaxSourcePixels bounds width*height of an uploaded image before decoding.
	AvatarMaxSourcePixels int
}

func loadConfig(logger *zap.Logger) Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", zap.Error(err))
	}

	secret := getEnv("JWT_SECRET", "")
	if secret == "" {
		secret = "your_secret_key_please_change_in_production"
		logger.Warn("JWT_SECRET not set, using development fallback")
	}

	dsn := getEnv("DATABASE_URL", "")
	if dsn == "" {
		dsn = "user=admin password=password dbname=saathidb sslmode=disable"
		logger.Warn("DATABASE_URL not set, using default connection string")
	}

	return Config{
		DatabaseURL:       dsn,
		JWTSecret:         []byte(secret),
		TokenTTL:          getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		MediaDir:          getEnv("MEDIA_DIR", "./uploads/media"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		CORSOrigins:       getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3001"}),
		Env:               getEnv("GO_ENV", "development"),
		LoginRatePerMin:   getEnvAsInt("LOGIN_RATE_PER_MIN", 10),
		DefaultPageSize:   getEnvAsInt("DEFAULT_PAGE_SIZE", 12),
		MaxPageSize:       getEnvAsInt("MAX_PAGE_SIZE", 50),
		RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxAvatarBytes:    int64(getEnvAsInt("MAX_AVATAR_BYTES", 3<<20)),
		AvatarMaxPixels:   getEnvAsInt("AVATAR_MAX_PIXELS", 800),
		AvatarJPEGQuality: getEnvAsInt("AVATAR_JPEG_QUALITY", 82),

		AvatarMaxSourcePixels: getEnvAsInt("AVATAR_MAX_SOURCE_PIXELS", 40_000_000),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
