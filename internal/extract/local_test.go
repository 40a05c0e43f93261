package extract

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caraseli02/invoice-extractor/internal/invoice"
	"github.com/caraseli02/invoice-extractor/internal/llm"
	"github.com/caraseli02/invoice-extractor/internal/ocr"
)

type fakeDetector struct {
	text string
	err  error
}

func (f fakeDetector) DetectText(context.Context, string) (string, error) {
	return f.text, f.err
}

func TestLocalOCRErrorMapping(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Kind
	}{
		{"no text", ocr.ErrNoText, KindInvalidOCRResponse},
		{"service rejection", &ocr.ServiceError{Status: 403, Message: "quota exceeded"}, KindOCRServiceError},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"cancelled", context.Canceled, KindNetworkError},
		{"transport", assert.AnError, KindNetworkError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LocalOCR{Client: fakeDetector{err: tc.err}}.RecognizeText(context.Background(), "x")
			var ee *Error
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tc.want, ee.Kind)
		})
	}

	t.Run("success passes through", func(t *testing.T) {
		text, err := LocalOCR{Client: fakeDetector{text: "hello"}}.RecognizeText(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
	})

	t.Run("service message survives", func(t *testing.T) {
		_, err := LocalOCR{Client: fakeDetector{err: &ocr.ServiceError{Message: "quota exceeded"}}}.
			RecognizeText(context.Background(), "x")
		var ee *Error
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, "quota exceeded", ee.Message)
	})
}

type fakeParser struct {
	data invoice.RawData
	err  error
}

func (f fakeParser) ParseInvoice(context.Context, string) (invoice.RawData, []byte, error) {
	return f.data, nil, f.err
}

func TestLocalParseErrorMapping(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		want    Kind
		message string
	}{
		{
			"upstream 401",
			&llm.UpstreamError{Status: http.StatusUnauthorized},
			KindParseServiceError, "authentication",
		},
		{
			"upstream 429 with retry-after",
			&llm.UpstreamError{Status: http.StatusTooManyRequests, RetryAfter: "30"},
			KindParseServiceError, "30",
		},
		{
			"upstream 500",
			&llm.UpstreamError{Status: http.StatusInternalServerError},
			KindParseServiceError, "500",
		},
		{"deadline", context.DeadlineExceeded, KindTimeout, ""},
		{"cancelled", context.Canceled, KindNetworkError, ""},
		{"malformed model output", assert.AnError, KindInvalidParseResponse, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LocalParse{Parser: fakeParser{err: tc.err}}.ParseText(context.Background(), "x")
			var ee *Error
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tc.want, ee.Kind)
			if tc.message != "" {
				assert.Contains(t, ee.Message, tc.message)
			}
		})
	}

	t.Run("nil products is an invalid response", func(t *testing.T) {
		_, err := LocalParse{Parser: fakeParser{}}.ParseText(context.Background(), "x")
		var ee *Error
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, KindInvalidParseResponse, ee.Kind)
	})

	t.Run("empty products slice passes through", func(t *testing.T) {
		data, err := LocalParse{Parser: fakeParser{data: invoice.RawData{
			Products: []invoice.RawProduct{},
		}}}.ParseText(context.Background(), "x")
		require.NoError(t, err)
		assert.NotNil(t, data.Products)
	})
}
