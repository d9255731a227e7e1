package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "marketphase",
		User:        "default",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		ReadTimeout: 10 * time.Second,
	})
	assert.Equal(t, "clickhouse://default:p%40ss@ch:9000/marketphase?dial_timeout=5s&read_timeout=10s", dsn)

	dsn = buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "default", User: "u", UseHTTP: true})
	assert.Equal(t, "http://u:@ch:8123/default", dsn)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(context.Background())
	assert.Error(t, err)
}
