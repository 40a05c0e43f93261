package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// StripCodeFence removes markdown fencing from a model response. The prompt
// forbids fencing but models do not always comply, so we defensively peel
// ```json / ``` wrappers and then cut to the outermost JSON object.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}

// NormalizeAndSanitizeJSON massages a structurally-valid model payload so it
// can pass the strict schema:
//   - drops null / "" optionals at the top level
//   - coerces numeric fields that arrived as strings
//   - removes unknown keys (additionalProperties=false friendliness)
//   - drops product rows without a usable name
//
// It returns the cleaned bytes and the list of adjustments for logging.
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)

	// top-level optionals: null/empty -> absent
	for _, k := range []string{"supplier", "invoiceNumber", "invoiceDate"} {
		switch t := m[k].(type) {
		case nil:
			if _, present := m[k]; present {
				delete(m, k)
				dropped = append(dropped, k+"(null)")
			}
		case string:
			if strings.TrimSpace(t) == "" {
				delete(m, k)
				dropped = append(dropped, k+"(empty)")
			} else {
				m[k] = strings.TrimSpace(t)
			}
		}
	}

	// totalAmount: coerce string -> number, drop anything unusable
	if v, present := m["totalAmount"]; present {
		if f, ok := coerceNumber(v); ok {
			m["totalAmount"] = f
		} else {
			delete(m, "totalAmount")
			dropped = append(dropped, "totalAmount(type)")
		}
	}

	// products: coerce row fields, drop unnamed rows and unknown keys
	if arr, ok := m["products"].([]any); ok {
		cleaned := make([]any, 0, len(arr))
		for i, item := range arr {
			row, ok := item.(map[string]any)
			if !ok {
				dropped = append(dropped, fmt.Sprintf("products[%d](type)", i))
				continue
			}
			name, _ := row["name"].(string)
			if strings.TrimSpace(name) == "" {
				dropped = append(dropped, fmt.Sprintf("products[%d](unnamed)", i))
				continue
			}
			out := map[string]any{"name": strings.TrimSpace(name)}
			for _, k := range []string{"quantity", "unitPrice", "totalPrice"} {
				if v, present := row[k]; present && v != nil {
					if f, ok := coerceNumber(v); ok {
						out[k] = f
					} else {
						dropped = append(dropped, fmt.Sprintf("products[%d].%s(type)", i, k))
					}
				}
			}
			if bc, ok := row["barcode"].(string); ok && strings.TrimSpace(bc) != "" {
				out["barcode"] = strings.TrimSpace(bc)
			}
			cleaned = append(cleaned, out)
		}
		m["products"] = cleaned
	}

	// remove unknown top-level keys
	allowed := map[string]struct{}{
		"supplier": {}, "invoiceNumber": {}, "invoiceDate": {},
		"totalAmount": {}, "products": {},
	}
	for k := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.parse.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func coerceNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
