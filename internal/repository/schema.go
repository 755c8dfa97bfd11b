package repository

import "fmt"

// Schema returns the idempotent DDL for every table this service writes.
func Schema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.quote_snapshots (
    fullcode    LowCardinality(String),
    code        String,
    name        String,
    price       Float64,
    prev_close  Float64,
    open        Float64,
    high        Float64,
    low         Float64,
    volume      Int64,
    amount      Float64,
    percent     Float64,
    quote_time  DateTime('Asia/Shanghai'),
    received_at DateTime64(3)
) ENGINE = MergeTree
PARTITION BY toYYYYMM(quote_time)
ORDER BY (fullcode, quote_time)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.candles (
    fullcode   LowCardinality(String),
    period     LowCardinality(String),
    date       DateTime('Asia/Shanghai'),
    open       Float64,
    close      Float64,
    high       Float64,
    low        Float64,
    volume     Int64,
    amount     Float64,
    updated_at DateTime64(3)
) ENGINE = ReplacingMergeTree(updated_at)
ORDER BY (fullcode, period, date)`, database),
	}
}
