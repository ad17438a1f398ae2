package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds everything the service reads at startup. Values come
// from configs/config.yaml with SCREENGRABX_* environment overrides.
type AppConfig struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Render   RenderConfig
	Cache    CacheConfig
	Database DatabaseConfig
}

type ServerConfig struct {
	ListenAddr string
	PublicHost string
	MaxConns   int
}

type UpstreamConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec float64
}

type RenderConfig struct {
	Workers    int
	Timeout    time.Duration
	Width      int
	ChromePath string
}

type CacheConfig struct {
	Dir           string
	MaxBytes      int64
	TTL           time.Duration
	StaleCeiling  time.Duration
	SweepInterval time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func setDefaults() {
	viper.SetDefault("server.listenaddr", ":8080")
	viper.SetDefault("server.publichost", "http://localhost:8080")
	viper.SetDefault("server.maxconns", 256)

	viper.SetDefault("upstream.baseurl", "https://api.vxtwitter.com")
	viper.SetDefault("upstream.timeout", 10*time.Second)
	viper.SetDefault("upstream.requestspersec", 5.0)

	viper.SetDefault("render.workers", runtime.NumCPU())
	viper.SetDefault("render.timeout", 20*time.Second)
	viper.SetDefault("render.width", 600)
	viper.SetDefault("render.chromepath", "")

	viper.SetDefault("cache.dir", "./cache")
	viper.SetDefault("cache.maxbytes", int64(2<<30))
	viper.SetDefault("cache.ttl", 6*time.Hour)
	viper.SetDefault("cache.staleceiling", 24*time.Hour)
	viper.SetDefault("cache.sweepinterval", time.Hour)

	viper.SetDefault("database.host", "db")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "screengrabx")
	viper.SetDefault("database.dbname", "screengrabx")
	viper.SetDefault("database.sslmode", "disable")
}

// Load reads the YAML config if present and applies env overrides. A
// missing config file is fine, the defaults plus env are enough to run.
func Load() (*AppConfig, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("SCREENGRABX")
	// Nested keys hold dots, env vars cannot: server.listenaddr is
	// overridden by SCREENGRABX_SERVER_LISTENADDR.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Render.Workers < 1 {
		cfg.Render.Workers = 1
	}
	if cfg.Cache.MaxBytes <= 0 {
		return nil, fmt.Errorf("cache.maxbytes must be positive, got %d", cfg.Cache.MaxBytes)
	}

	return &cfg, nil
}
