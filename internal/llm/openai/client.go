// Package openai implements llm.Parser against the OpenAI chat/completions
// API. The credential never leaves this side of the proxy boundary.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caraseli02/invoice-extractor/internal/common"
	"github.com/caraseli02/invoice-extractor/internal/invoice"
	"github.com/caraseli02/invoice-extractor/internal/llm"
)

// ParseInvoice sends the fixed extraction prompt with the OCR text and
// returns the decoded wire payload plus the raw JSON the model produced.
// Temperature is 0 and the output token ceiling is bounded; both are part of
// the extraction contract, not tunables.
func (c *Client) ParseInvoice(ctx context.Context, ocrText string) (invoice.RawData, []byte, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	c.logger.Info("llm.parse.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"prompt_version", llm.PromptVersion,
		"text_len", len(ocrText),
	)

	schema := llm.BuildInvoiceJSONSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(ocrText)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, status, respHeaders, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		if status != 0 {
			c.logger.Error("llm.parse.upstream_status",
				"req_id", rid, "status", status,
				"elapsed_ms", time.Since(start).Milliseconds())
			return invoice.RawData{}, raw, &llm.UpstreamError{
				Status:     status,
				RetryAfter: respHeaders.Get("Retry-After"),
				Body:       string(raw),
			}
		}
		c.logger.Error("llm.parse.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return invoice.RawData{}, nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.logger.Error("llm.parse.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds())
		return invoice.RawData{}, raw, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Error("llm.parse.no_choices",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds())
		return invoice.RawData{}, raw, fmt.Errorf("no choices in openai response")
	}

	content := llm.StripCodeFence(cc.Choices[0].Message.Content)
	rawContent := []byte(content)

	// Validate strictly first; on failure try the lenient sanitize pass and
	// re-validate before giving up.
	if err := llm.ValidateJSONAgainstSchema(schema, rawContent); err != nil {
		cleaned, droppedKeys, sErr := llm.NormalizeAndSanitizeJSON(rawContent, c.logger)
		if sErr != nil {
			c.logger.Error("llm.parse.sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds())
			return invoice.RawData{}, rawContent, fmt.Errorf("sanitize model output: %w", sErr)
		}
		if vErr := llm.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			c.logger.Error("llm.parse.schema_validation_failed",
				"req_id", rid, "error", vErr,
				"elapsed_ms", time.Since(start).Milliseconds())
			return invoice.RawData{}, rawContent, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.logger.Warn("llm.parse.lenient_sanitize_applied",
			"req_id", rid, "dropped", droppedKeys,
			"elapsed_ms", time.Since(start).Milliseconds())
		rawContent = cleaned
	}

	var out invoice.RawData
	if err := json.Unmarshal(rawContent, &out); err != nil {
		c.logger.Error("llm.parse.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return invoice.RawData{}, rawContent, fmt.Errorf("unmarshal invoice payload: %w", err)
	}

	c.logger.Info("llm.parse.ok",
		"req_id", rid,
		"products", len(out.Products),
		"elapsed_ms", time.Since(start).Milliseconds())
	return out, rawContent, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
