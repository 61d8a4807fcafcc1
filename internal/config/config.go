package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"krypton/pkg/idgen"
)

// EnvPrefix 环境变量前缀，例如 KRYPTON_DATABASE_URL
const EnvPrefix = "KRYPTON"

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Market   MarketConfig   `mapstructure:"market"`
	Business BusinessConfig `mapstructure:"business"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig NodeID 是雪花 ID 的节点号，每个实例唯一
type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	Mode   string `mapstructure:"mode"`
	NodeID int64  `mapstructure:"node_id"`
}

// DatabaseConfig 数据库配置，URL 和 Token 必填
type DatabaseConfig struct {
	Driver         string        `mapstructure:"driver"`
	URL            string        `mapstructure:"url"`
	Token          string        `mapstructure:"token"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`
	LogLevel       string        `mapstructure:"log_level"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	LedgerEvents  string `mapstructure:"ledger_events"`
	PasswordReset string `mapstructure:"password_reset"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	ResetTokenTTL time.Duration `mapstructure:"reset_token_ttl"`
	BcryptCost    int           `mapstructure:"bcrypt_cost"`
}

// MarketConfig 行情源配置
// 法币不走行情接口，直接使用 FiatRates（每单位折合美元）
type MarketConfig struct {
	BaseURL        string             `mapstructure:"base_url"`
	PollInterval   time.Duration      `mapstructure:"poll_interval"`
	Timeout        time.Duration      `mapstructure:"timeout"`
	FiatRates      map[string]float64 `mapstructure:"fiat_rates"`
	FallbackPrices map[string]float64 `mapstructure:"fallback_prices"`
}

type BusinessConfig struct {
	MaxRetryCount  int           `mapstructure:"max_retry_count"`
	PendingTimeout time.Duration `mapstructure:"pending_timeout"`
	HistoryLimit   int           `mapstructure:"history_limit"`
}

// AdminConfig 启动时自动创建的管理员账号，Email 为空时跳过
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Name     string `mapstructure:"name"`
	Phone    string `mapstructure:"phone"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.node_id", 1)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.url", "")
	v.SetDefault("database.token", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("database.query_timeout", 10*time.Second)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic.ledger_events", "ledger_events")
	v.SetDefault("kafka.topic.password_reset", "password_reset")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.reset_token_ttl", time.Hour)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("market.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("market.poll_interval", 5*time.Minute)
	v.SetDefault("market.timeout", 10*time.Second)
	v.SetDefault("market.fiat_rates", map[string]float64{"USD": 1, "GBP": 1.30, "EUR": 1.18})
	v.SetDefault("market.fallback_prices", map[string]float64{
		"BTC": 50000, "ETH": 3000, "XRP": 0.50, "USD": 1, "GBP": 1.30, "EUR": 1.18,
	})

	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.pending_timeout", 5*time.Minute)
	v.SetDefault("business.history_limit", 10)

	v.SetDefault("admin.email", "")
	v.SetDefault("admin.name", "Admin")
	v.SetDefault("admin.phone", "")
	v.SetDefault("admin.password", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig 加载配置文件并用环境变量覆盖。configPath 为空时只读环境变量。
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	normalizeKeys(cfg.Market.FiatRates)
	normalizeKeys(cfg.Market.FallbackPrices)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 一次性返回所有缺失或非法的配置项
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url (KRYPTON_DATABASE_URL) is required"))
	}
	if c.Database.Token == "" {
		errs = append(errs, errors.New("database.token (KRYPTON_DATABASE_TOKEN) is required"))
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret (KRYPTON_AUTH_JWT_SECRET) is required"))
	}
	if c.Server.NodeID < 0 || c.Server.NodeID > idgen.MaxNode {
		errs = append(errs, fmt.Errorf("server.node_id (KRYPTON_SERVER_NODE_ID) must be between 0 and %d", idgen.MaxNode))
	}
	if c.Market.PollInterval <= 0 {
		errs = append(errs, errors.New("market.poll_interval must be positive"))
	}
	return errors.Join(errs...)
}

// viper 会把 map 的 key 转成小写，资产代码统一用大写
func normalizeKeys(m map[string]float64) {
	for k, val := range m {
		upper := strings.ToUpper(k)
		if upper != k {
			delete(m, k)
			m[upper] = val
		}
	}
}
