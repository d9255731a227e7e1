package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		// Proxies allowed to set X-Forwarded-For. Empty means the peer address is the client.
		TrustedProxies []string `yaml:"trusted_proxies" validate:"dive,cidr"`
		RateLimit      struct {
			RPS   float64 `yaml:"rps" default:"5" validate:"gte=0"`
			Burst int     `yaml:"burst" default:"10" validate:"gte=0"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Analysis struct {
		Interval     time.Duration `yaml:"interval" default:"15m" validate:"gt=0"`
		FetchTimeout time.Duration `yaml:"fetch_timeout" default:"20s" validate:"gt=0"`
		CacheTTL     time.Duration `yaml:"cache_ttl" default:"1h"`
		// Merge order when several sources report the same indicator.
		SourceOrder []string   `yaml:"source_order" default:"[\"naver\",\"yahoo\",\"ecos\",\"manual\"]"`
		Thresholds  Thresholds `yaml:"thresholds"`
	} `yaml:"analysis"`
	Sources struct {
		Timeout time.Duration `yaml:"timeout" default:"10s"`
		Naver   struct {
			Enabled   bool   `yaml:"enabled"`
			BaseURL   string `yaml:"base_url" default:"https://finance.naver.com" validate:"url"`
			UserAgent string `yaml:"user_agent" default:"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"`
		} `yaml:"naver"`
		Yahoo struct {
			Enabled bool   `yaml:"enabled"`
			BaseURL string `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
		} `yaml:"yahoo"`
		ECOS struct {
			Enabled  bool       `yaml:"enabled"`
			BaseURL  string     `yaml:"base_url" default:"https://ecos.bok.or.kr/api" validate:"url"`
			APIKey   string     `yaml:"api_key" default:"sample"`
			Months   int        `yaml:"months" default:"6" validate:"gte=1,lte=60"`
			BaseRate ECOSSeries `yaml:"base_rate"`
			M2Growth ECOSSeries `yaml:"m2_growth"`
		} `yaml:"ecos"`
		Manual struct {
			Enabled bool               `yaml:"enabled"`
			Values  map[string]float64 `yaml:"values"`
		} `yaml:"manual"`
	} `yaml:"sources"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"marketphase"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled         bool     `yaml:"enabled"`
		Brokers         []string `yaml:"brokers"`
		ReportsTopic    string   `yaml:"reports_topic" default:"marketphase.reports"`
		IndicatorsTopic string   `yaml:"indicators_topic"`
		RequiredAcks    int      `yaml:"required_acks" default:"-1"`
		Compression     string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Consumer        struct {
			GroupID    string        `yaml:"group_id" default:"marketphase"`
			Workers    int           `yaml:"workers" default:"2" validate:"gte=1"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"marketphase"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
		// Reports kept in memory when ClickHouse is disabled.
		MemoryReports int `yaml:"memory_reports" default:"500"`
	} `yaml:"clickhouse"`
}

// ECOSSeries addresses one Bank of Korea StatisticSearch series.
type ECOSSeries struct {
	StatCode string `yaml:"stat_code"`
	Cycle    string `yaml:"cycle" default:"M" validate:"oneof=D M Q A"`
	ItemCode string `yaml:"item_code"`
	// YoY turns a level series into its year-over-year growth in percent.
	YoY bool `yaml:"yoy"`
}

// Thresholds mirrors the classifier cutoffs so they can be tuned from YAML.
type Thresholds struct {
	RateLow     float64 `yaml:"rate_low" default:"2.5"`
	RateHigh    float64 `yaml:"rate_high" default:"3.0"`
	KospiLevel  float64 `yaml:"kospi_level" default:"2000"`
	SP500Level  float64 `yaml:"sp500_level" default:"4000"`
	M2High      float64 `yaml:"m2_high" default:"7"`
	M2Low       float64 `yaml:"m2_low" default:"5"`
	VkospiCalm  float64 `yaml:"vkospi_calm" default:"20"`
	VkospiFear  float64 `yaml:"vkospi_fear" default:"25"`
	RateQuorum  int     `yaml:"rate_quorum" default:"2" validate:"gte=1,lte=3"`
	IndexQuorum int     `yaml:"index_quorum" default:"2" validate:"gte=1,lte=2"`
	EconQuorum  int     `yaml:"econ_quorum" default:"1" validate:"gte=1,lte=2"`
}

var validate = validator.New()

// Default returns a config populated from struct tag defaults only.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if c.Sources.ECOS.BaseRate.StatCode == "" {
		c.Sources.ECOS.BaseRate = ECOSSeries{StatCode: "722Y001", Cycle: "M", ItemCode: "0101000"}
	}
	if c.Sources.ECOS.M2Growth.StatCode == "" {
		c.Sources.ECOS.M2Growth = ECOSSeries{StatCode: "101Y003", Cycle: "M", ItemCode: "BBHS00", YoY: true}
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if getenv != nil {
		if err := c.applyEnv(getenv); err != nil {
			return nil, err
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("ECOS_API_KEY"); v != "" {
		c.Sources.ECOS.APIKey = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR port: %w", err)
		}
		c.Redis.Host, c.Redis.Port = host, p
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	return nil
}

// Validate checks tag rules and the cross-field constraints tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Analysis.Thresholds.M2Low > c.Analysis.Thresholds.M2High {
		return fmt.Errorf("analysis.thresholds.m2_low must not exceed m2_high")
	}
	known := map[string]bool{"naver": true, "yahoo": true, "ecos": true, "manual": true}
	for _, name := range c.Analysis.SourceOrder {
		if !known[name] {
			return fmt.Errorf("analysis.source_order: unknown source %q", name)
		}
	}
	for name, s := range map[string]ECOSSeries{"base_rate": c.Sources.ECOS.BaseRate, "m2_growth": c.Sources.ECOS.M2Growth} {
		if s.YoY && s.Cycle != "M" {
			return fmt.Errorf("sources.ecos.%s: yoy needs the monthly cycle", name)
		}
	}
	for name := range c.Sources.Manual.Values {
		if !knownIndicator(name) {
			return fmt.Errorf("sources.manual.values: unknown indicator %q", name)
		}
	}
	return nil
}

var indicatorNames = []string{
	"kospi", "kosdaq", "sp500", "vkospi", "bond3y", "bond10y",
	"base_rate", "us10y", "m2_growth", "usdkrw", "kospi_ma50", "kospi_ma200",
}

func knownIndicator(name string) bool {
	for _, n := range indicatorNames {
		if n == name {
			return true
		}
	}
	return false
}

// AnySourceEnabled reports whether live collection has anything to call.
func (c *Config) AnySourceEnabled() bool {
	s := c.Sources
	return s.Naver.Enabled || s.Yahoo.Enabled || s.ECOS.Enabled || s.Manual.Enabled
}
