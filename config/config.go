package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	CORS       CORSConfig       `yaml:"cors"`
	Classifier ClassifierConfig `yaml:"classifier"`
	History    HistoryConfig    `yaml:"history"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	LogLevel        string        `yaml:"log_level"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver      string        `yaml:"driver"`
	DSN         string        `yaml:"dsn"`
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	Name        string        `yaml:"name"`
	SSLMode     string        `yaml:"sslmode"`
	Table       string        `yaml:"table"`
	Timeout     time.Duration `yaml:"timeout"`
	AutoMigrate bool          `yaml:"auto_migrate"`
}

type RedisConfig struct {
	// URL empty disables caching and the live feed.
	URL             string        `yaml:"url"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	LiveChannel     string        `yaml:"live_channel"`
	ConnectAttempts int           `yaml:"connect_attempts"`
}

type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins"`
}

type ClassifierConfig struct {
	ArtifactPath string `yaml:"artifact"`
}

type HistoryConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

type MQTTConfig struct {
	URL      string `yaml:"url"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      int    `yaml:"qos"`
}

// GetDSN prefers an explicit DSN over the individual connection fields.
func (d DatabaseConfig) GetDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Redacted is safe to log.
func (d DatabaseConfig) Redacted() string {
	if d.DSN != "" {
		if u, err := url.Parse(d.DSN); err == nil && u.User != nil {
			return u.Redacted()
		}
		return "dsn=<set>"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s table=%s", d.Host, d.Port, d.Name, d.Table)
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			MetricsAddr:     ":9090",
			LogLevel:        "info",
		},
		Database: DatabaseConfig{
			Driver:      "postgres",
			Host:        "localhost",
			Port:        5432,
			User:        "water",
			Name:        "water_quality",
			SSLMode:     "disable",
			Table:       "readings",
			Timeout:     5 * time.Second,
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			CacheTTL:        5 * time.Second,
			LiveChannel:     "waterquality:live",
			ConnectAttempts: 3,
		},
		CORS: CORSConfig{
			AllowedOrigins: "*",
		},
		Classifier: ClassifierConfig{
			ArtifactPath: "model.json",
		},
		History: HistoryConfig{
			DefaultLimit: 50,
			MaxLimit:     200,
		},
		MQTT: MQTTConfig{
			URL:      "tcp://localhost:1883",
			Topic:    "waterquality/readings/+",
			ClientID: "water-quality-collector",
		},
	}
}

// LoadConfig starts from defaults, applies CONFIG_FILE (YAML) when set and
// then environment variables, which always win.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var err error

	if cfg.Server.Port, err = getIntEnv("SERVER_PORT", cfg.Server.Port); err != nil {
		return fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	if cfg.Server.ShutdownTimeout, err = getDurationEnv("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg.Server.MetricsAddr = getEnv("METRICS_ADDR", cfg.Server.MetricsAddr)
	cfg.Server.LogLevel = getEnv("LOG_LEVEL", cfg.Server.LogLevel)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_DSN", cfg.Database.DSN)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	if cfg.Database.Port, err = getIntEnv("DB_PORT", cfg.Database.Port); err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.Table = getEnv("DB_TABLE", cfg.Database.Table)
	if cfg.Database.Timeout, err = getDurationEnv("DB_TIMEOUT", cfg.Database.Timeout); err != nil {
		return fmt.Errorf("invalid DB_TIMEOUT: %w", err)
	}
	if cfg.Database.AutoMigrate, err = getBoolEnv("DB_AUTO_MIGRATE", cfg.Database.AutoMigrate); err != nil {
		return fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	if cfg.Redis.CacheTTL, err = getDurationEnv("REDIS_CACHE_TTL", cfg.Redis.CacheTTL); err != nil {
		return fmt.Errorf("invalid REDIS_CACHE_TTL: %w", err)
	}
	cfg.Redis.LiveChannel = getEnv("REDIS_LIVE_CHANNEL", cfg.Redis.LiveChannel)
	if cfg.Redis.ConnectAttempts, err = getIntEnv("REDIS_CONNECT_ATTEMPTS", cfg.Redis.ConnectAttempts); err != nil {
		return fmt.Errorf("invalid REDIS_CONNECT_ATTEMPTS: %w", err)
	}

	cfg.CORS.AllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CORS.AllowedOrigins)
	cfg.Classifier.ArtifactPath = getEnv("CLASSIFIER_ARTIFACT", cfg.Classifier.ArtifactPath)

	if cfg.History.DefaultLimit, err = getIntEnv("HISTORY_DEFAULT_LIMIT", cfg.History.DefaultLimit); err != nil {
		return fmt.Errorf("invalid HISTORY_DEFAULT_LIMIT: %w", err)
	}
	if cfg.History.MaxLimit, err = getIntEnv("HISTORY_MAX_LIMIT", cfg.History.MaxLimit); err != nil {
		return fmt.Errorf("invalid HISTORY_MAX_LIMIT: %w", err)
	}

	cfg.MQTT.URL = getEnv("MQTT_URL", cfg.MQTT.URL)
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", cfg.MQTT.Topic)
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	if cfg.MQTT.QoS, err = getIntEnv("MQTT_QOS", cfg.MQTT.QoS); err != nil {
		return fmt.Errorf("invalid MQTT_QOS: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" && c.Database.Host == "" {
			errs = append(errs, errors.New("database host or DSN required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Database.Table == "" {
		errs = append(errs, errors.New("database table required"))
	}
	if c.Database.Timeout <= 0 {
		errs = append(errs, errors.New("database timeout must be positive"))
	}
	if c.Classifier.ArtifactPath == "" {
		errs = append(errs, errors.New("classifier artifact path required"))
	}
	if c.History.DefaultLimit <= 0 || c.History.MaxLimit <= 0 {
		errs = append(errs, errors.New("history limits must be positive"))
	} else if c.History.DefaultLimit > c.History.MaxLimit {
		errs = append(errs, fmt.Errorf("history default limit %d exceeds max %d", c.History.DefaultLimit, c.History.MaxLimit))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt qos %d must be 0, 1 or 2", c.MQTT.QoS))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}

func getBoolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}
