package llm

import "strings"

// PromptVersion tags the extraction prompt so output drift can be traced back
// to a prompt change.
const PromptVersion = "v1"

// maxPromptOCRBytes caps how much OCR text goes into the user prompt.
const maxPromptOCRBytes = 8000

// BuildSystemPrompt composes the fixed extraction instruction. The contract
// is strict: raw JSON only, defaults for missing numerics, unnamed rows
// skipped, tax lines excluded.
func BuildSystemPrompt() string {
	parts := []string{
		"You are an invoice parser. Return ONLY raw JSON that matches the provided JSON Schema — no markdown fencing, no prose, no explanations.",
		"Extract the supplier name, invoice number, invoice date, total amount, and ALL product line items.",
		"Use ISO-8601 dates (YYYY-MM-DD) for invoiceDate, or null when no date is visible.",
		"Every product needs a 'name'; skip rows where no product name can be read.",
		"If a quantity is missing or unreadable, use 1.",
		"If a unit price or total price is missing or unreadable, use 0.",
		"Exclude VAT/tax lines and subtotal rows from the products array; they are not products.",
		"Include 'barcode' when a product code is visible; barcodes are typically EAN-13 or UPC digits.",
		"Never invent values. If a field is not present on the invoice, use null.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the OCR text, truncated so a pathological scan
// cannot blow the token budget.
func BuildUserPrompt(ocrText string) string {
	ocr := strings.TrimSpace(ocrText)

	var b strings.Builder
	b.WriteString("Invoice OCR text:\n")
	if len(ocr) > maxPromptOCRBytes {
		b.WriteString(ocr[:maxPromptOCRBytes])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(ocr)
	}
	return b.String()
}
