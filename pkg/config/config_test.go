package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 15*time.Minute, c.Analysis.Interval)
	assert.Equal(t, []string{"naver", "yahoo", "ecos", "manual"}, c.Analysis.SourceOrder)
	assert.Equal(t, 2.5, c.Analysis.Thresholds.RateLow)
	assert.Equal(t, 2, c.Analysis.Thresholds.RateQuorum)
	assert.Equal(t, 2, c.Analysis.Thresholds.IndexQuorum)
	assert.Equal(t, "722Y001", c.Sources.ECOS.BaseRate.StatCode)
	assert.Equal(t, "0101000", c.Sources.ECOS.BaseRate.ItemCode)
	assert.False(t, c.Sources.ECOS.BaseRate.YoY)
	assert.True(t, c.Sources.ECOS.M2Growth.YoY)
	assert.False(t, c.AnySourceEnabled())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
log:
  level: debug
analysis:
  interval: 5m
  source_order: [manual, yahoo]
  thresholds:
    rate_high: 3.25
sources:
  manual:
    enabled: true
    values:
      bond3y: 2.40
      vkospi: 22.71
kafka:
  enabled: true
  brokers: [localhost:9092]
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 5*time.Minute, c.Analysis.Interval)
	assert.Equal(t, []string{"manual", "yahoo"}, c.Analysis.SourceOrder)
	assert.Equal(t, 3.25, c.Analysis.Thresholds.RateHigh)
	assert.Equal(t, 2.5, c.Analysis.Thresholds.RateLow)
	assert.Equal(t, 22.71, c.Sources.Manual.Values["vkospi"])
	assert.True(t, c.AnySourceEnabled())
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"bad level":      "log:\n  level: loud\n",
		"kafka brokers":  "kafka:\n  enabled: true\n",
		"unknown source": "analysis:\n  source_order: [bloomberg]\n",
		"unknown manual": "sources:\n  manual:\n    values:\n      cpi: 3\n",
		"m2 band":        "analysis:\n  thresholds:\n    m2_low: 9\n",
		"zero quorum":    "analysis:\n  thresholds:\n    rate_quorum: -1\n",
		"bad ecos cycle": "sources:\n  ecos:\n    base_rate:\n      cycle: W\n",
		"index quorum":   "analysis:\n  thresholds:\n    index_quorum: 3\n",
		"quarterly yoy":  "sources:\n  ecos:\n    m2_growth:\n      stat_code: 101Y003\n      cycle: Q\n      yoy: true\n",
		"rate quorum":    "analysis:\n  thresholds:\n    rate_quorum: 4\n",
		"proxy cidr":     "server:\n  trusted_proxies: [10.0.0.1]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	env := map[string]string{
		"LOG_LEVEL":       "WARN",
		"HTTP_PORT":       "9090",
		"ECOS_API_KEY":    "secret",
		"KAFKA_BROKERS":   "a:9092,b:9092",
		"CLICKHOUSE_HOST": "ch",
		"REDIS_ADDR":      "cache:6380",
	}
	require.NoError(t, c.applyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "secret", c.Sources.ECOS.APIKey)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "ch", c.ClickHouse.Host)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)

	err = c.applyEnv(func(k string) string {
		if k == "HTTP_PORT" {
			return "http"
		}
		return ""
	})
	assert.Error(t, err)
}
