// Package config loads server settings from defaults, an optional config
// file and ECO_ prefixed environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	Service  string `mapstructure:"service"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`

	HTTP  HTTPConfig  `mapstructure:"http"`
	GRPC  GRPCConfig  `mapstructure:"grpc"`
	Store StoreConfig `mapstructure:"store"`
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
	Auth  AuthConfig  `mapstructure:"auth"`
	Kafka KafkaConfig `mapstructure:"kafka"`
	Order OrderConfig `mapstructure:"order"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

type GRPCConfig struct {
	Addr string `mapstructure:"addr"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig with an empty Addr selects the in-process cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	PoolSize int    `mapstructure:"pool_size"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// KafkaConfig with no brokers logs order events instead of publishing them.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type OrderConfig struct {
	Workers          int `mapstructure:"workers"`
	QueueSize        int `mapstructure:"queue_size"`
	QuoteConcurrency int `mapstructure:"quote_concurrency"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service", "eco-bazaar")
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("http.allow_origins", []string{"*"})
	v.SetDefault("grpc.addr", ":50051")

	v.SetDefault("store.driver", StoreMySQL)
	v.SetDefault("mysql.dsn", "root:root@tcp(localhost:3306)/ecobazaar?parseTime=true")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 25)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 100)

	v.SetDefault("auth.secret", "change-me")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "eco.orders.placed")

	v.SetDefault("order.workers", 10)
	v.SetDefault("order.queue_size", 10000)
	v.SetDefault("order.quote_concurrency", 8)
}

// Load reads path when it is not empty; a missing file is an error only when
// the path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("ECO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMySQL:
		if c.MySQL.DSN == "" {
			return errors.New("mysql.dsn is required for the mysql store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("invalid auth.token_ttl: %s", c.Auth.TokenTTL)
	}
	if c.Order.Workers <= 0 {
		return fmt.Errorf("invalid order.workers: %d", c.Order.Workers)
	}
	if c.Order.QueueSize <= 0 {
		return fmt.Errorf("invalid order.queue_size: %d", c.Order.QueueSize)
	}
	if c.Order.QuoteConcurrency <= 0 {
		c.Order.QuoteConcurrency = 1
	}
	return nil
}
