package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	strutil "idregistry/pkg/platform/strings"
)

// Config is the full registryd configuration. Values resolve in three layers:
// built-in defaults, then the YAML file, then environment overrides.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Admin    AdminConfig    `yaml:"admin"`
	Registry RegistryConfig `yaml:"registry"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

// PostgresConfig configures the shared database handle.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig configures the lookup cache. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// KafkaConfig configures the audit event bus. Empty brokers disable the
// relay and consumer; audit events then stay in the outbox.
type KafkaConfig struct {
	Brokers           []string      `yaml:"brokers"`
	ConsumerGroup     string        `yaml:"consumer_group"`
	Partitions        int32         `yaml:"partitions"`
	ReplicationFactor int16         `yaml:"replication_factor"`
	RelayInterval     time.Duration `yaml:"relay_interval"`
	RelayBatchSize    int           `yaml:"relay_batch_size"`
}

// AdminConfig guards the administrative surface.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// RegistryConfig carries registry domain settings.
type RegistryConfig struct {
	// TrustedCaller seeds the bootstrap gate on first start. Later changes go
	// through the admin API.
	TrustedCaller string `yaml:"trusted_caller"`
	// RatePerSecond and Burst bound per-caller mutation throughput.
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
	// TokenAudience, when set, restricts access tokens to this audience.
	TokenAudience string `yaml:"token_audience"`
}

// ProxyConfig configures the hosted recovery proxy. An empty address
// disables the proxy surface entirely.
type ProxyConfig struct {
	// Address is the proxy's own registry address, the one participants set
	// as their recovery address to opt in.
	Address string `yaml:"address"`
	// Controller seeds the proxy's first controller on first start. Later
	// handoffs go through the proxy API.
	Controller string `yaml:"controller"`
}

// LogConfig controls structured log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   15 * time.Second,
			RequestTimeout:    30 * time.Second,
		},
		Postgres: PostgresConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			CacheTTL:     5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup:     "idregistry-audit",
			Partitions:        3,
			ReplicationFactor: 1,
			RelayInterval:     time.Second,
			RelayBatchSize:    100,
		},
		Registry: RegistryConfig{
			RatePerSecond: 10,
			Burst:         20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. The file at path is optional; when path is
// empty the conventional locations are tried. Environment variables win over
// file values so deployments can keep secrets out of the file.
func Load(path string) (Config, error) {
	cfg := Defaults()

	candidates := []string{path}
	if path == "" {
		candidates = []string{"configs/registryd.yaml", "registryd.yaml"}
	}

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		data, err := os.ReadFile(candidate)
		if err != nil {
			if os.IsNotExist(err) && path == "" {
				continue
			}
			if os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config file %s: %w", candidate, err)
			}
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", candidate, err)
		}
		break
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if addr := os.Getenv("REGISTRY_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strutil.SplitCSV(brokers)
	}
	if token := os.Getenv("ADMIN_TOKEN"); token != "" {
		cfg.Admin.Token = token
	}
	if caller := os.Getenv("REGISTRY_TRUSTED_CALLER"); caller != "" {
		cfg.Registry.TrustedCaller = caller
	}
	if audience := os.Getenv("TOKEN_AUDIENCE"); audience != "" {
		cfg.Registry.TokenAudience = audience
	}
	if addr := os.Getenv("PROXY_ADDRESS"); addr != "" {
		cfg.Proxy.Address = addr
	}
	if controller := os.Getenv("PROXY_CONTROLLER"); controller != "" {
		cfg.Proxy.Controller = controller
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

