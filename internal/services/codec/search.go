package codec

import (
	"strings"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/services/symbol"
)

// DecodeSearch scans a smartbox response for CN/HK hits followed by US hits.
func DecodeSearch(text string) []models.SearchResult {
	var out []models.SearchResult
	for _, m := range cnSearchPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, models.SearchResult{
			Code:     m[1],
			Name:     strings.TrimSpace(m[2]),
			FullCode: m[3],
			Market:   symbol.MarketName(m[3]),
		})
	}
	for _, m := range usSearchPattern.FindAllStringSubmatch(text, -1) {
		if !isUpperWord(m[1]) {
			continue
		}
		out = append(out, models.SearchResult{
			Code:     m[1],
			Name:     strings.TrimSpace(m[2]),
			FullCode: "us" + strings.ToUpper(m[1]),
			Market:   models.MarketUS,
		})
	}
	return out
}

func isUpperWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
