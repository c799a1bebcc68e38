package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
// The client reads API, Sync, Board, Write and Identity; the dev server reads
// Dev and Redis.
type Config struct {
	API      APIConfig
	Sync     SyncConfig
	Board    BoardConfig
	Write    WriteConfig
	Identity IdentityConfig
	Dev      DevConfig
	Redis    RedisConfig
}

// APIConfig locates the backend.
type APIConfig struct {
	BaseURL     string
	WSURL       string
	HTTPTimeout time.Duration
}

// SyncConfig holds push-channel and resync timing.
type SyncConfig struct {
	ResyncInterval time.Duration
	PingInterval   time.Duration
	Reconnect      bool
	ReconnectDelay time.Duration
}

// BoardConfig holds the initial board geometry.
type BoardConfig struct {
	Dimension  int
	PixelScale float64
}

// WriteConfig throttles outbound write requests.
type WriteConfig struct {
	Rate  float64
	Burst int
}

// IdentityConfig holds the user identity and where it is persisted.
type IdentityConfig struct {
	User string
	File string
}

// DevConfig holds the local stand-in server settings.
type DevConfig struct {
	Addr         string
	Dimension    int
	Cooldown     time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	Rate         float64
	Burst        int
}

// RedisConfig holds Redis connection settings. An empty Addr keeps fan-out
// and cooldowns in process.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// LoadDotEnv loads variables from a .env file. Variables already present in
// the environment are not overwritten and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config.LoadDotEnv: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	httpTimeout, err := getEnvDuration("PIXELBOARD_HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	resync, err := getEnvDuration("PIXELBOARD_RESYNC_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	ping, err := getEnvDuration("PIXELBOARD_PING_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	reconnect, err := getEnvBool("PIXELBOARD_RECONNECT", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	reconnectDelay, err := getEnvDuration("PIXELBOARD_RECONNECT_DELAY", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dimension, err := getEnvInt("PIXELBOARD_BOARD_DIMENSION", 1000)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	scale, err := getEnvFloat("PIXELBOARD_PIXEL_SCALE", 1)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeRate, err := getEnvFloat("PIXELBOARD_WRITE_RATE", 1)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeBurst, err := getEnvInt("PIXELBOARD_WRITE_BURST", 1)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	devDimension, err := getEnvInt("PIXELBOARD_DEV_DIMENSION", 1000)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	devCooldown, err := getEnvDuration("PIXELBOARD_DEV_COOLDOWN", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("PIXELBOARD_DEV_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("PIXELBOARD_DEV_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	devRate, err := getEnvFloat("PIXELBOARD_DEV_RATE", 10)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	devBurst, err := getEnvInt("PIXELBOARD_DEV_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("PIXELBOARD_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		API: APIConfig{
			BaseURL:     getEnv("PIXELBOARD_API_URL", "http://localhost:8000/api"),
			WSURL:       getEnv("PIXELBOARD_WS_URL", "ws://localhost:8000/ws"),
			HTTPTimeout: httpTimeout,
		},
		Sync: SyncConfig{
			ResyncInterval: resync,
			PingInterval:   ping,
			Reconnect:      reconnect,
			ReconnectDelay: reconnectDelay,
		},
		Board: BoardConfig{
			Dimension:  dimension,
			PixelScale: scale,
		},
		Write: WriteConfig{
			Rate:  writeRate,
			Burst: writeBurst,
		},
		Identity: IdentityConfig{
			User: getEnv("PIXELBOARD_USER", ""),
			File: getEnv("PIXELBOARD_IDENTITY_FILE", ""),
		},
		Dev: DevConfig{
			Addr:         getEnv("PIXELBOARD_DEV_ADDR", ":8000"),
			Dimension:    devDimension,
			Cooldown:     devCooldown,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("PIXELBOARD_DEV_CORS_ORIGINS", []string{"*"}),
			Rate:         devRate,
			Burst:        devBurst,
		},
		Redis: RedisConfig{
			Addr:     getEnv("PIXELBOARD_REDIS_ADDR", ""),
			Password: getEnv("PIXELBOARD_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if err := checkURL("PIXELBOARD_API_URL", c.API.BaseURL, "http", "https"); err != nil {
		return err
	}
	if err := checkURL("PIXELBOARD_WS_URL", c.API.WSURL, "ws", "wss"); err != nil {
		return err
	}
	if c.API.HTTPTimeout <= 0 {
		return fmt.Errorf("PIXELBOARD_HTTP_TIMEOUT must be positive, got %s", c.API.HTTPTimeout)
	}
	if c.Sync.ResyncInterval <= 0 {
		return fmt.Errorf("PIXELBOARD_RESYNC_INTERVAL must be positive, got %s", c.Sync.ResyncInterval)
	}
	if c.Sync.PingInterval <= 0 {
		return fmt.Errorf("PIXELBOARD_PING_INTERVAL must be positive, got %s", c.Sync.PingInterval)
	}
	if c.Sync.Reconnect && c.Sync.ReconnectDelay <= 0 {
		return fmt.Errorf("PIXELBOARD_RECONNECT_DELAY must be positive, got %s", c.Sync.ReconnectDelay)
	}
	if c.Board.Dimension < 1 {
		return fmt.Errorf("PIXELBOARD_BOARD_DIMENSION must be >= 1, got %d", c.Board.Dimension)
	}
	if c.Board.PixelScale <= 0 {
		return fmt.Errorf("PIXELBOARD_PIXEL_SCALE must be positive, got %g", c.Board.PixelScale)
	}
	if c.Write.Rate <= 0 {
		return fmt.Errorf("PIXELBOARD_WRITE_RATE must be positive, got %g", c.Write.Rate)
	}
	if c.Write.Burst < 1 {
		return fmt.Errorf("PIXELBOARD_WRITE_BURST must be >= 1, got %d", c.Write.Burst)
	}
	if c.Dev.Dimension < 1 {
		return fmt.Errorf("PIXELBOARD_DEV_DIMENSION must be >= 1, got %d", c.Dev.Dimension)
	}
	if c.Dev.Cooldown < 0 {
		return fmt.Errorf("PIXELBOARD_DEV_COOLDOWN must not be negative, got %s", c.Dev.Cooldown)
	}
	if c.Dev.ReadTimeout <= 0 {
		return fmt.Errorf("PIXELBOARD_DEV_READ_TIMEOUT must be positive, got %s", c.Dev.ReadTimeout)
	}
	if c.Dev.WriteTimeout <= 0 {
		return fmt.Errorf("PIXELBOARD_DEV_WRITE_TIMEOUT must be positive, got %s", c.Dev.WriteTimeout)
	}
	if c.Dev.Rate <= 0 || c.Dev.Burst < 1 {
		return fmt.Errorf("PIXELBOARD_DEV_RATE and PIXELBOARD_DEV_BURST must be positive, got %g/%d", c.Dev.Rate, c.Dev.Burst)
	}

	if c.Board.PixelScale < 0.1 || c.Board.PixelScale > 15 {
		log.Warn().Float64("scale", c.Board.PixelScale).Msg("PIXELBOARD_PIXEL_SCALE outside 0.1-15 will be clamped")
	}

	return nil
}

func checkURL(key, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing %s=%q as url: %w", key, raw, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be an absolute %s url, got %q", key, strings.Join(schemes, "/"), raw)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
