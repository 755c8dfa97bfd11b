package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"StockPulse/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			Enabled bool    `yaml:"enabled"`
			RPS     float64 `yaml:"rps" default:"20"`
			Burst   int     `yaml:"burst" default:"40"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Provider struct {
		QuoteURL  string        `yaml:"quote_url" default:"https://qt.gtimg.cn/q=" validate:"required,url"`
		KlineURL  string        `yaml:"kline_url" default:"https://web.ifzq.gtimg.cn/appstock/app/fqkline/get" validate:"required,url"`
		MinuteURL string        `yaml:"minute_url" default:"https://web.ifzq.gtimg.cn/appstock/app/minute/query" validate:"required,url"`
		SearchURL string        `yaml:"search_url" default:"https://smartbox.gtimg.cn/s3/" validate:"required,url"`
		DetailURL string        `yaml:"detail_url" default:"https://stock.gtimg.cn/data/index.php" validate:"required,url"`
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
		Retries   int           `yaml:"retries" default:"2" validate:"gte=0,lte=10"`
		Backoff   time.Duration `yaml:"backoff" default:"200ms"`
		Charset   string        `yaml:"charset" default:"gbk" validate:"oneof=gbk utf-8"`
		UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; StockPulse/1.0)"`
	} `yaml:"provider"`
	Cache struct {
		Backend       string `yaml:"backend" default:"memory" validate:"oneof=memory redis layered"`
		MemoryMaxSize int    `yaml:"memory_max_size" default:"10000"`
		TTL           struct {
			Quotes  time.Duration `yaml:"quotes" default:"10s"`
			Candles time.Duration `yaml:"candles" default:"5m"`
			Ticks   time.Duration `yaml:"ticks" default:"30s"`
			Search  time.Duration `yaml:"search" default:"1h"`
			Detail  time.Duration `yaml:"detail" default:"1h"`
		} `yaml:"ttl"`
	} `yaml:"cache"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"stockpulse"`
	} `yaml:"redis"`
	Poller struct {
		Enabled       bool          `yaml:"enabled"`
		Symbols       []string      `yaml:"symbols"`
		Interval      time.Duration `yaml:"interval" default:"3s"`
		BatchSize     int           `yaml:"batch_size" default:"60" validate:"gte=1"`
		IgnoreSession bool          `yaml:"ignore_session"`
		Sink          string        `yaml:"sink" default:"kafka" validate:"oneof=kafka clickhouse none"`
		MaxRPS        int           `yaml:"max_rps" default:"200"`
		BufferSize    int           `yaml:"buffer_size" default:"2000"`
	} `yaml:"poller"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"quote-snapshots"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"stockpulse-archiver"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"quote-snapshots-dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
			BatchSize  int           `yaml:"batch_size" default:"500"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"stockpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Backfill struct {
		Enabled      bool          `yaml:"enabled"`
		Workers      int           `yaml:"workers" default:"2" validate:"gte=1"`
		RetryLimit   int           `yaml:"retry_limit" default:"3"`
		RetryDelay   time.Duration `yaml:"retry_delay" default:"30s"`
		PollInterval time.Duration `yaml:"poll_interval" default:"1s"`
		JobTimeout   time.Duration `yaml:"job_timeout" default:"2m"`
		InflightTTL  time.Duration `yaml:"inflight_ttl" default:"30m"`
		QueueName    string        `yaml:"queue_name" default:"backfill"`
		DefaultCount int           `yaml:"default_count" default:"320"`
	} `yaml:"backfill"`
}

var validate = validator.New()

// Default returns a config with every default applied, as if loaded from an
// empty file.
func Default() *Config {
	var c Config
	_ = defaults.Set(&c)
	return &c
}

// Load reads and parses a YAML configuration file. Missing keys take the
// values of their default tags.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("SYMBOLS"); v != "" {
		c.Poller.Symbols = util.SplitCSV(v)
	}
	if v := getenv("POLLER_SINK"); v != "" {
		c.Poller.Sink = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Poller.Sink == "kafka" && c.Poller.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("poller.sink is kafka but kafka.enabled is false")
	}
	if c.Poller.Sink == "clickhouse" && c.Poller.Enabled && !c.ClickHouse.Enabled {
		return fmt.Errorf("poller.sink is clickhouse but clickhouse.enabled is false")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Consumer.Enabled && !c.ClickHouse.Enabled {
		return fmt.Errorf("kafka.consumer requires clickhouse.enabled")
	}
	if c.Backfill.Enabled && !c.ClickHouse.Enabled {
		return fmt.Errorf("backfill requires clickhouse.enabled")
	}
	if c.Cache.Backend != "memory" || c.Backfill.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for cache backend %q or backfill", c.Cache.Backend)
		}
	}
	return nil
}
