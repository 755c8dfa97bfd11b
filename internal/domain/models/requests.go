package models

// Query models for the market data API. `default` tags are applied after
// binding, so an omitted parameter takes the default before validation.

type QuotesRequest struct {
	Codes   string `query:"codes" json:"codes" validate:"required"`
	Display bool   `query:"display" json:"display"`
}

type CandlesRequest struct {
	Code   string `query:"code" json:"code" validate:"required"`
	Period string `query:"period" json:"period" default:"day" validate:"oneof=day week month"`
	Count  int    `query:"count" json:"count" default:"100" validate:"gte=1,lte=640"`
}

type CodeRequest struct {
	Code string `query:"code" json:"code" validate:"required"`
}

type SearchRequest struct {
	Q string `query:"q" json:"q" validate:"required,max=64"`
}

type IndicatorsRequest struct {
	Code       string `query:"code" json:"code" validate:"required"`
	Period     string `query:"period" json:"period" default:"day" validate:"oneof=day week month"`
	Count      int    `query:"count" json:"count" default:"100" validate:"gte=1,lte=640"`
	MACDFast   int    `query:"macd_fast" json:"macd_fast" default:"12" validate:"gte=1,lte=250"`
	MACDSlow   int    `query:"macd_slow" json:"macd_slow" default:"26" validate:"gte=1,lte=250,gtfield=MACDFast"`
	MACDSignal int    `query:"macd_signal" json:"macd_signal" default:"9" validate:"gte=1,lte=250"`
	RSI        int    `query:"rsi" json:"rsi" default:"14" validate:"gte=1,lte=250"`
	KDJN       int    `query:"kdj_n" json:"kdj_n" default:"9" validate:"gte=1,lte=250"`
	KDJM1      int    `query:"kdj_m1" json:"kdj_m1" default:"3" validate:"gte=1,lte=250"`
	KDJM2      int    `query:"kdj_m2" json:"kdj_m2" default:"3" validate:"gte=1,lte=250"`
}

// SessionRequest takes a 14-digit YYYYMMDDHHMMSS feed timestamp.
type SessionRequest struct {
	Time string `query:"time" json:"time" validate:"required,len=14,numeric"`
}

type SessionResponse struct {
	Time   string `json:"time"`
	Closed bool   `json:"closed"`
}

type ArchiveCandlesRequest struct {
	Code   string `query:"code" json:"code" validate:"required"`
	Period string `query:"period" json:"period" default:"day" validate:"oneof=day week month"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=10000"`
}

// BackfillRequest leaves Count at 0 to use the configured default.
type BackfillRequest struct {
	Code   string `json:"code" validate:"required"`
	Period string `json:"period" default:"day" validate:"oneof=day week month"`
	Count  int    `json:"count" validate:"gte=0,lte=640"`
}

// BackfillStatsRequest optionally names a symbol whose worker lock is checked.
type BackfillStatsRequest struct {
	Code   string `query:"code" json:"code" validate:"omitempty,max=32"`
	Period string `query:"period" json:"period" default:"day" validate:"oneof=day week month"`
}
