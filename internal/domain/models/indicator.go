package models

import "github.com/guregu/null/v6"

// Series is index-aligned with its source candles. Invalid entries mean
// "not enough history yet" and marshal as JSON null.
type Series []null.Float

type MovingAverages struct {
	MA5  Series `json:"ma5"`
	MA10 Series `json:"ma10"`
	MA30 Series `json:"ma30"`
}

type MACD struct {
	DIF       Series `json:"dif"`
	DEA       Series `json:"dea"`
	Histogram Series `json:"histogram"`
}

type KDJ struct {
	K Series `json:"k"`
	D Series `json:"d"`
	J Series `json:"j"`
}

// IndicatorBundle groups every indicator computed over one candle sequence.
type IndicatorBundle struct {
	MA   MovingAverages `json:"ma"`
	MACD MACD           `json:"macd"`
	RSI  Series         `json:"rsi"`
	KDJ  KDJ            `json:"kdj"`
}

// ValueRange is a padded axis range for charting a set of series.
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}
