package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caraseli02/invoice-extractor/internal/llm"
)

func clientFor(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
}

func TestParseInvoice(t *testing.T) {
	t.Run("decodes a compliant payload", func(t *testing.T) {
		c := clientFor(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "gpt-4o-mini", body["model"])
			assert.EqualValues(t, 0, body["temperature"])
			assert.Len(t, body["messages"], 3)

			json.NewEncoder(w).Encode(chatResponse(
				`{"supplier":"ACME","products":[{"name":"Milk","quantity":2,"unitPrice":1.5,"totalPrice":3.0}]}`))
		})

		data, raw, err := c.ParseInvoice(context.Background(), "some ocr text")
		require.NoError(t, err)
		require.NotEmpty(t, raw)
		require.Len(t, data.Products, 1)
		assert.Equal(t, "Milk", data.Products[0].Name)
		assert.Equal(t, "ACME", data.Supplier)
	})

	t.Run("peels markdown fencing", func(t *testing.T) {
		c := clientFor(t, func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(chatResponse(
				"```json\n{\"products\":[{\"name\":\"Milk\"}]}\n```"))
		})

		data, _, err := c.ParseInvoice(context.Background(), "text")
		require.NoError(t, err)
		require.Len(t, data.Products, 1)
	})

	t.Run("sanitizes a near-miss payload", func(t *testing.T) {
		// string quantity and an unknown key fail strict validation but
		// survive the lenient pass
		c := clientFor(t, func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(chatResponse(
				`{"confidence":0.9,"products":[{"name":"Milk","quantity":"2"}]}`))
		})

		data, _, err := c.ParseInvoice(context.Background(), "text")
		require.NoError(t, err)
		require.Len(t, data.Products, 1)
		assert.Equal(t, 2.0, data.Products[0].Quantity)
	})

	t.Run("unsalvageable payload fails", func(t *testing.T) {
		c := clientFor(t, func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(chatResponse(`I could not find any products.`))
		})

		_, _, err := c.ParseInvoice(context.Background(), "text")
		assert.Error(t, err)
	})

	t.Run("401 surfaces an UpstreamError", func(t *testing.T) {
		c := clientFor(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
		})

		_, _, err := c.ParseInvoice(context.Background(), "text")
		var ue *llm.UpstreamError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, http.StatusUnauthorized, ue.Status)
	})

	t.Run("429 carries Retry-After", func(t *testing.T) {
		c := clientFor(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, _, err := c.ParseInvoice(context.Background(), "text")
		var ue *llm.UpstreamError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, http.StatusTooManyRequests, ue.Status)
		assert.Equal(t, "30", ue.RetryAfter)
	})

	t.Run("empty choices fails", func(t *testing.T) {
		c := clientFor(t, func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		})

		_, _, err := c.ParseInvoice(context.Background(), "text")
		assert.Error(t, err)
	})
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil)
	assert.Equal(t, "https://api.openai.com/v1", c.cfg.BaseURL)
	assert.Equal(t, "gpt-4o-mini", c.cfg.Model)
	assert.Equal(t, 2000, c.cfg.MaxTokens)
	assert.NotZero(t, c.cfg.Timeout)
}
