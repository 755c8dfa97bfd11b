package models

// Market identifies the exchange a market-prefixed code belongs to.
type Market string

const (
	MarketShanghai Market = "Shanghai"
	MarketShenzhen Market = "Shenzhen"
	MarketHongKong Market = "HongKong"
	MarketUS       Market = "US"
	MarketUnknown  Market = "Unknown"
)

var marketLabels = map[Market]string{
	MarketShanghai: "上海",
	MarketShenzhen: "深圳",
	MarketHongKong: "香港",
	MarketUS:       "美股",
}

// Label returns the Chinese display label.
func (m Market) Label() string {
	if l, ok := marketLabels[m]; ok {
		return l
	}
	return "未知"
}

type SearchResult struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	FullCode string `json:"fullcode"`
	Market   Market `json:"market"`
}
