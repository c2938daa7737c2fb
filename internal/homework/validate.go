package homework

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// DecodeResponse decodes a response body into a generic JSON value.
// Numbers are kept as json.Number so watermarks survive without float rounding.
func DecodeResponse(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &TransportError{Op: "decode", Err: err}
	}
	if dec.More() {
		return nil, &TransportError{Op: "decode", Err: fmt.Errorf("trailing data after JSON value")}
	}
	return v, nil
}

// Validate checks the top-level shape of a decoded status payload.
// An empty item list is valid.
func Validate(payload any) (StatusResponse, error) {
	m, ok := payload.(map[string]any)
	if !ok {
		return StatusResponse{}, &SchemaError{Reason: fmt.Sprintf("unexpected response type %s", typeName(payload))}
	}

	var missing []string
	for _, k := range []string{KeyItems, KeyNextWatermark} {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return StatusResponse{}, &SchemaError{Reason: "response is missing keys", Keys: missing}
	}

	items, ok := m[KeyItems].([]any)
	if !ok {
		return StatusResponse{}, &SchemaError{
			Reason: fmt.Sprintf("unexpected %s type %s", KeyItems, typeName(m[KeyItems])),
			Keys:   []string{KeyItems},
		}
	}

	wm, ok := asWatermark(m[KeyNextWatermark])
	if !ok {
		return StatusResponse{}, &SchemaError{
			Reason: fmt.Sprintf("unexpected %s value %v", KeyNextWatermark, m[KeyNextWatermark]),
			Keys:   []string{KeyNextWatermark},
		}
	}

	return StatusResponse{Items: items, NextWatermark: wm}, nil
}

func asWatermark(v any) (Watermark, bool) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return Watermark(n), true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return Watermark(int64(x)), true
	case int:
		return Watermark(x), true
	case int64:
		return Watermark(x), true
	default:
		return 0, false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number, float64, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
