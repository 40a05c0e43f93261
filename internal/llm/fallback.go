package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/caraseli02/invoice-extractor/internal/invoice"
)

// lineItemRe matches "<name> <qty> <unit_price> <total_price>" rows, with
// decimal-comma tolerance for European invoices.
var lineItemRe = regexp.MustCompile(`^(.+?)\s+(\d+)\s+(\d+(?:[.,]\d+)?)\s+(\d+(?:[.,]\d+)?)\s*$`)

// taxLineRe filters rows that are tax lines rather than products.
var taxLineRe = regexp.MustCompile(`(?i)\b(vat|tax|tva|iva|mwst|btw)\b`)

// FallbackParser is the degraded regex line parser used when no model
// credential is configured. It only recovers product rows — never supplier,
// date, or invoice number — and exists solely to keep the feature minimally
// functional without the paid dependency.
type FallbackParser struct {
	logger *slog.Logger
}

func NewFallbackParser(logger *slog.Logger) *FallbackParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackParser{logger: logger}
}

// ParseInvoice scans the OCR text line by line for product-shaped rows.
func (p *FallbackParser) ParseInvoice(_ context.Context, ocrText string) (invoice.RawData, []byte, error) {
	products := make([]invoice.RawProduct, 0, 8)

	for _, line := range strings.Split(ocrText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || taxLineRe.MatchString(line) {
			continue
		}
		m := lineItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, err := strconv.Atoi(m[2])
		if err != nil || qty <= 0 {
			qty = 1
		}
		products = append(products, invoice.RawProduct{
			Name:       strings.TrimSpace(m[1]),
			Quantity:   float64(qty),
			UnitPrice:  parseDecimal(m[3]),
			TotalPrice: parseDecimal(m[4]),
		})
	}

	p.logger.Info("llm.fallback.parsed", "lines", len(products))

	data := invoice.RawData{Products: products}
	raw, _ := json.Marshal(data)
	return data, raw, nil
}

func parseDecimal(s string) float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0
	}
	return f
}
