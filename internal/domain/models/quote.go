package models

// Quote is one real-time snapshot row from the quote stream.
// Numeric fields that fail to parse are 0, never NaN.
type Quote struct {
	FullCode       string  `json:"fullcode"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Now            float64 `json:"now"`
	Close          float64 `json:"close"`
	Open           float64 `json:"open"`
	High           float64 `json:"high"`
	Low            float64 `json:"low"`
	Volume         int64   `json:"volume"`
	Amount         float64 `json:"amount"`
	UpDown         float64 `json:"updown"`
	Percent        float64 `json:"percent"`
	Turnover       float64 `json:"turnover"`
	PE             float64 `json:"pe"`
	Amplitude      float64 `json:"amplitude"`
	TotalMV        float64 `json:"total_mv"`
	FlowMV         float64 `json:"flow_mv"`
	Time           string  `json:"time"`
	IsMarketClosed bool    `json:"isMarketClosed"`
}

// QuoteDisplay carries preformatted strings for a quote.
type QuoteDisplay struct {
	Quote
	PercentText string `json:"percentText"`
	PriceText   string `json:"priceText"`
	VolumeText  string `json:"volumeText"`
}

// StockDetail is the key/value info block of a single stock.
type StockDetail struct {
	Code string            `json:"code"`
	Name string            `json:"name"`
	Info map[string]string `json:"info"`
}
