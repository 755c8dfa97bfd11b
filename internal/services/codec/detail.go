package codec

import (
	"github.com/tidwall/gjson"

	"StockPulse/internal/domain/models"
)

// DecodeDetail reads {name, list:[{key,value}]} from the detail endpoint,
// either at the root or under "data".
func DecodeDetail(body []byte, code string) models.StockDetail {
	detail := models.StockDetail{Code: code, Info: map[string]string{}}
	if code == "" || !gjson.ValidBytes(body) {
		return detail
	}
	node := gjson.ParseBytes(body)
	if data := child(node, "data"); data.IsObject() {
		node = data
	}
	detail.Name = child(node, "name").String()
	list := child(node, "list")
	if !list.IsArray() {
		return detail
	}
	for _, item := range list.Array() {
		key, value := item.Get("key").String(), item.Get("value")
		if key == "" || !present(value) {
			continue
		}
		detail.Info[key] = value.String()
	}
	return detail
}

// present reports whether an item value carries data: missing, null, false,
// empty strings and zero are all skipped.
func present(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.String:
		return v.Str != ""
	case gjson.Number:
		return v.Num != 0
	}
	return v.Exists()
}
