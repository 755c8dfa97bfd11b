package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\npoller:\n  sink: none\n  symbols: [sh600000]\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Server.Port != 8080 || c.Cache.TTL.Quotes != 10*time.Second || c.Provider.Charset != "gbk" {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if c.Poller.Sink != "none" || c.Poller.Symbols[0] != "sh600000" {
		t.Fatalf("explicit values lost: %+v", c.Poller)
	}
}

func TestParseRejectsBadSink(t *testing.T) {
	_, err := Parse([]byte("poller:\n  sink: ftp\n"))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateCrossField(t *testing.T) {
	c := Default()
	c.Poller.Enabled = true
	c.Poller.Sink = "kafka"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "kafka") {
		t.Fatalf("expected kafka error, got %v", err)
	}
	c.Kafka.Enabled = true
	c.Kafka.Brokers = []string{"localhost:9092"}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	env := map[string]string{
		"SYMBOLS":       "sh600000, sz000001,,",
		"KAFKA_BROKERS": "a:9092,b:9092",
		"LOG_LEVEL":     "debug",
	}
	c.applyEnv(func(k string) string { return env[k] })
	if len(c.Poller.Symbols) != 2 || c.Poller.Symbols[1] != "sz000001" {
		t.Fatalf("symbols: %v", c.Poller.Symbols)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 || c.Log.Level != "debug" {
		t.Fatalf("env not applied: %+v", c.Kafka)
	}
}

func TestShippedConfigLoads(t *testing.T) {
	c, err := Load("../../config/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Provider.QuoteURL == "" || len(c.Poller.Symbols) == 0 {
		t.Fatalf("unexpected config: %+v", c.Provider)
	}
}
