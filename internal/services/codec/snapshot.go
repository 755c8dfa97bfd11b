package codec

import (
	"strings"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/services/symbol"
)

const (
	unknownSentinel  = "UNKOWN"
	minSnapshotField = 33
)

// Positions inside a tilde separated snapshot value.
const (
	idxName      = 1
	idxCode      = 2
	idxNow       = 3
	idxClose     = 4
	idxOpen      = 5
	idxVolume    = 6
	idxAmount    = 7
	idxTime      = 30
	idxUpDown    = 31
	idxPercent   = 32
	idxHigh      = 33
	idxLow       = 34
	idxTurnover  = 38
	idxPE        = 39
	idxAmplitude = 43
	idxFlowMV    = 44
	idxTotalMV   = 45
)

// DecodeSnapshot decodes the quote stream with the wall-clock decoder.
func DecodeSnapshot(text string) []models.Quote { return std.DecodeSnapshot(text) }

// DecodeSnapshot extracts every v_<fullcode>="...";  assignment in order of
// appearance. Sentinel values and rows with fewer than 33 fields are skipped.
func (d *Decoder) DecodeSnapshot(text string) []models.Quote {
	matches := assignmentPattern.FindAllStringSubmatch(text, -1)
	quotes := make([]models.Quote, 0, len(matches))
	for _, m := range matches {
		fullcode, value := m[1], m[2]
		if value == unknownSentinel {
			continue
		}
		parts := strings.Split(value, "~")
		if len(parts) < minSnapshotField {
			continue
		}
		quotes = append(quotes, d.quoteFromFields(fullcode, parts))
	}
	return quotes
}

func (d *Decoder) quoteFromFields(fullcode string, p []string) models.Quote {
	code := field(p, idxCode)
	if code == "" {
		code = symbol.Bare(fullcode)
	}
	ts := field(p, idxTime)
	num := func(i int) float64 { return parseNumberOr(field(p, i), 0) }
	return models.Quote{
		FullCode:       fullcode,
		Code:           code,
		Name:           field(p, idxName),
		Now:            num(idxNow),
		Close:          num(idxClose),
		Open:           num(idxOpen),
		High:           num(idxHigh),
		Low:            num(idxLow),
		Volume:         parseIntOr(field(p, idxVolume), 0),
		Amount:         num(idxAmount),
		UpDown:         num(idxUpDown),
		Percent:        num(idxPercent),
		Turnover:       num(idxTurnover),
		PE:             num(idxPE),
		Amplitude:      num(idxAmplitude),
		TotalMV:        num(idxTotalMV),
		FlowMV:         num(idxFlowMV),
		Time:           ts,
		IsMarketClosed: d.session.IsClosed(ts),
	}
}
