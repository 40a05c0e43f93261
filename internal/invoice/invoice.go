// Package invoice defines the line-item data contract produced by the
// extraction pipeline and the cleaning rules that every parsed payload goes
// through before it reaches a caller.
package invoice

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Product is one cleaned invoice line item. Name is always non-empty and
// trimmed; the numeric fields are always finite and non-negative.
type Product struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
	Barcode    string  `json:"barcode,omitempty"`
}

// Data is the cleaned extraction result. Optional fields use the zero value
// for "absent"; the JSON encoding omits them so downstream consumers can tell
// "not provided" from "legitimately zero".
type Data struct {
	Products      []Product `json:"products"`
	Supplier      string    `json:"supplier,omitempty"`
	InvoiceDate   string    `json:"invoiceDate,omitempty"`
	InvoiceNumber string    `json:"invoiceNumber,omitempty"`
	TotalAmount   float64   `json:"totalAmount,omitempty"`
}

// RawProduct is the tolerant wire shape for one line item. The upstream model
// is asked for numbers but sometimes returns strings, nulls, or garbage, so
// every field decodes as any and Clean does the coercion.
type RawProduct struct {
	Name       any `json:"name"`
	Quantity   any `json:"quantity"`
	UnitPrice  any `json:"unitPrice"`
	TotalPrice any `json:"totalPrice"`
	Barcode    any `json:"barcode"`
}

// RawData is the tolerant wire shape for a full parse payload. Products stays
// nil when the key was absent entirely, which callers treat differently from
// an empty array.
type RawData struct {
	Supplier      any          `json:"supplier"`
	InvoiceDate   any          `json:"invoiceDate"`
	InvoiceNumber any          `json:"invoiceNumber"`
	TotalAmount   any          `json:"totalAmount"`
	Products      []RawProduct `json:"products"`
}

// dateFormats are the alternate layouts we reformat to ISO when the model
// ignores the YYYY-MM-DD instruction.
var dateFormats = []string{"2006/01/02", "01/02/2006", "02-01-2006"}

// Clean normalizes a raw payload into the Data contract. It runs regardless
// of whether the payload validated structurally: rows without a usable name
// are dropped, quantities become positive integers (default 1), prices become
// finite non-negative numbers (default 0), and empty optionals become absent.
// Clean is idempotent: cleaning already-clean data changes nothing.
func Clean(raw RawData) Data {
	out := Data{
		Supplier:      asTrimmedString(raw.Supplier),
		InvoiceNumber: asTrimmedString(raw.InvoiceNumber),
		InvoiceDate:   cleanDate(raw.InvoiceDate),
	}
	if v, ok := asNumber(raw.TotalAmount); ok && v > 0 {
		out.TotalAmount = v
	}
	out.Products = CleanProducts(raw.Products)
	return out
}

// CleanProducts applies the per-row cleaning rules, dropping rows whose name
// is empty after trimming.
func CleanProducts(rows []RawProduct) []Product {
	products := make([]Product, 0, len(rows))
	for _, r := range rows {
		name := asTrimmedString(r.Name)
		if name == "" {
			continue
		}
		products = append(products, Product{
			Name:       name,
			Quantity:   cleanQuantity(r.Quantity),
			UnitPrice:  cleanPrice(r.UnitPrice),
			TotalPrice: cleanPrice(r.TotalPrice),
			Barcode:    cleanBarcode(r.Barcode),
		})
	}
	return products
}

func cleanQuantity(v any) int {
	f, ok := asNumber(v)
	if !ok || f <= 0 {
		return 1
	}
	n := int(math.Round(f))
	if n < 1 {
		n = 1
	}
	return n
}

func cleanPrice(v any) float64 {
	f, ok := asNumber(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

// cleanBarcode keeps a barcode only when it is 8–13 digits, covering the
// EAN-8 through EAN-13/UPC-A length classes. Anything else is noise.
func cleanBarcode(v any) string {
	s := asTrimmedString(v)
	if len(s) < 8 || len(s) > 13 {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return s
}

// cleanDate keeps ISO dates as-is and reformats a few common alternates.
// An unrecognized non-empty value passes through untouched rather than being
// guessed at.
func cleanDate(v any) string {
	s := asTrimmedString(v)
	if s == "" {
		return ""
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return s
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// asTrimmedString coerces a wire value to a trimmed string. Non-string
// scalars stringify; null, objects, and arrays collapse to "".
func asTrimmedString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return ""
	default:
		return ""
	}
}

// asNumber coerces a wire value to a finite float64. Strings accept a decimal
// comma. NaN and infinities report not-ok so callers substitute defaults.
func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case int:
		return float64(t), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
