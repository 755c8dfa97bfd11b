package codec

import (
	"strings"

	"github.com/tidwall/gjson"

	"StockPulse/internal/domain/models"
)

const minCandleRow = 6

// periodKeys lists the spellings the provider uses for a period, most
// specific first.
func periodKeys(period string) []string {
	return []string{period, "qfq" + period, period + "qfq", period + "_qfq", "hk" + period}
}

// DecodeCandles decodes a kline body.
func DecodeCandles(body []byte, code, period string) []models.Candle {
	return std.DecodeCandles(body, code, period)
}

// DecodeCandles reads the rows stored under code and the first present period
// key. Rows are [date, open, close, high, low, volume, amount?].
func (d *Decoder) DecodeCandles(body []byte, code, period string) []models.Candle {
	if code == "" || period == "" {
		return nil
	}
	node := symbolNode(body, code)
	if !node.Exists() {
		return nil
	}
	var rows gjson.Result
	for _, key := range periodKeys(period) {
		if r := child(node, key); r.Exists() {
			rows = r
			break
		}
	}
	if !rows.IsArray() {
		return nil
	}
	items := rows.Array()
	out := make([]models.Candle, 0, len(items))
	for _, row := range items {
		if !row.IsArray() {
			continue
		}
		cols := row.Array()
		if len(cols) < minCandleRow {
			continue
		}
		var amount float64
		if len(cols) > 6 {
			amount = jsonNumber(cols[6])
		}
		out = append(out, models.Candle{
			Date:   cols[0].String(),
			Open:   jsonNumber(cols[1]),
			Close:  jsonNumber(cols[2]),
			High:   jsonNumber(cols[3]),
			Low:    jsonNumber(cols[4]),
			Volume: jsonInt(cols[5]),
			Amount: amount,
		})
	}
	return out
}

// DecodeTicks decodes a minute query body.
func DecodeTicks(body []byte, code string) []models.Tick { return std.DecodeTicks(body, code) }

// DecodeTicks tries, in order, data.data as "HHMM price volume amount"
// strings, data as rows, then the symbol value itself as rows.
func (d *Decoder) DecodeTicks(body []byte, code string) []models.Tick {
	if code == "" {
		return nil
	}
	node := symbolNode(body, code)
	if !node.Exists() {
		return nil
	}
	if lines := node.Get("data.data"); lines.IsArray() {
		return ticksFromLines(lines.Array())
	}
	if rows := child(node, "data"); rows.IsArray() {
		return ticksFromRows(rows.Array())
	}
	if node.IsArray() {
		return ticksFromRows(node.Array())
	}
	return nil
}

func ticksFromLines(items []gjson.Result) []models.Tick {
	out := make([]models.Tick, 0, len(items))
	for _, it := range items {
		if it.Type != gjson.String {
			continue
		}
		tok := strings.Fields(it.Str)
		if len(tok) < 4 {
			continue
		}
		out = append(out, models.Tick{
			Time:   tok[0],
			Price:  parseNumberOr(tok[1], 0),
			Volume: parseIntOr(tok[2], 0),
			Amount: parseNumberOr(tok[3], 0),
		})
	}
	return out
}

func ticksFromRows(items []gjson.Result) []models.Tick {
	out := make([]models.Tick, 0, len(items))
	for _, it := range items {
		if !it.IsArray() {
			continue
		}
		cols := it.Array()
		if len(cols) < 4 {
			continue
		}
		out = append(out, models.Tick{
			Time:   cols[0].String(),
			Price:  jsonNumber(cols[1]),
			Volume: jsonInt(cols[2]),
			Amount: jsonNumber(cols[3]),
		})
	}
	return out
}

// symbolNode finds the value for code under the top-level "data" object,
// falling back to the document root.
func symbolNode(body []byte, code string) gjson.Result {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}
	}
	root := gjson.ParseBytes(body)
	if data := child(root, "data"); data.IsObject() {
		if v := child(data, code); v.Exists() {
			return v
		}
	}
	return child(root, code)
}

// child looks up a literal object key, bypassing gjson path syntax so codes
// containing '.' or '*' are matched verbatim.
func child(obj gjson.Result, key string) gjson.Result {
	var out gjson.Result
	if !obj.IsObject() {
		return out
	}
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.Str == key {
			out = v
			return false
		}
		return true
	})
	return out
}
