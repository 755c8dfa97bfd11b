package clickhouse

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:         "ch",
		Port:         9000,
		Database:     "stockpulse",
		User:         "default",
		Password:     "p@ss",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  60 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	})
	for _, want := range []string{
		"clickhouse://default:p%40ss@ch:9000/stockpulse?",
		"dial_timeout=5s",
		"max_execution_time=60",
		"async_insert=1",
		"wait_for_async_insert=1",
	} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "db", User: "u", UseHTTP: true})
	if !strings.HasPrefix(dsn, "http://u:@ch:8123/db") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if strings.Contains(dsn, "async_insert") {
		t.Fatalf("async settings must be absent: %q", dsn)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(context.Background()); err == nil {
		t.Fatal("expected error without host")
	}
}
