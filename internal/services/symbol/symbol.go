// Package symbol canonicalizes ticker strings into market-prefixed codes.
package symbol

import (
	"strings"

	"StockPulse/internal/domain/models"
)

const usPrefix = "us"

// Normalize maps user input to the provider's market-prefixed form.
// "USaapl" and "AAPL.US" both become "usAAPL"; anything else is returned as is.
func Normalize(code string) string {
	if len(code) >= 2 && strings.EqualFold(code[:2], usPrefix) {
		return usPrefix + strings.ToUpper(code[2:])
	}
	if base, ok := dotUS(code); ok {
		return usPrefix + strings.ToUpper(base)
	}
	return code
}

// dotUS matches LETTERS.US with uppercase letters only.
func dotUS(code string) (string, bool) {
	base, ok := strings.CutSuffix(code, ".US")
	if !ok || base == "" {
		return "", false
	}
	for i := 0; i < len(base); i++ {
		if base[i] < 'A' || base[i] > 'Z' {
			return "", false
		}
	}
	return base, true
}

// NormalizeAll normalizes every non-blank code.
func NormalizeAll(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, Normalize(c))
	}
	return out
}

// MarketName resolves the exchange from the 2-letter prefix.
func MarketName(fullcode string) models.Market {
	if len(fullcode) < 2 {
		return models.MarketUnknown
	}
	switch fullcode[:2] {
	case "sh":
		return models.MarketShanghai
	case "sz":
		return models.MarketShenzhen
	case "hk":
		return models.MarketHongKong
	case "us":
		return models.MarketUS
	default:
		return models.MarketUnknown
	}
}

// Bare strips a 2-letter lowercase market prefix.
func Bare(fullcode string) string {
	if len(fullcode) >= 2 && isLower(fullcode[0]) && isLower(fullcode[1]) {
		return fullcode[2:]
	}
	return fullcode
}

func isLower(b byte) bool { return b >= 'a' && b <= 'z' }
