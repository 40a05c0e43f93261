package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFile(t *testing.T) {
	testCases := []struct {
		name     string
		mime     string
		size     int64
		wantKind Kind
	}{
		{"jpeg accepted", "image/jpeg", 1024, ""},
		{"jpg accepted", "image/jpg", 1024, ""},
		{"png accepted", "image/png", 1024, ""},
		{"mime case-insensitive", "IMAGE/PNG", 1024, ""},
		{"pdf rejected", "application/pdf", 1024, KindInvalidFileType},
		{"pdf rejected regardless of size", "application/pdf", 15 * 1024 * 1024, KindInvalidFileType},
		{"gif rejected", "image/gif", 1024, KindInvalidFileType},
		{"empty mime rejected", "", 1024, KindInvalidFileType},
		{"oversized png rejected", "image/png", 15 * 1024 * 1024, KindFileTooLarge},
		{"exactly at limit accepted", "image/png", 10 * 1024 * 1024, ""},
		{"one byte over rejected", "image/png", 10*1024*1024 + 1, KindFileTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateFile(Upload{Name: "invoice.png", MIME: tc.mime, Size: tc.size})
			if tc.wantKind == "" {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tc.wantKind, err.Kind)
		})
	}
}

func TestEncodeImage(t *testing.T) {
	t.Run("encodes without data-uri prefix", func(t *testing.T) {
		b64, err := EncodeImage(Upload{Reader: strings.NewReader("hello")})
		require.Nil(t, err)
		assert.Equal(t, "aGVsbG8=", b64)
	})

	t.Run("read failure maps to FileReadError", func(t *testing.T) {
		_, err := EncodeImage(Upload{Reader: failingReader{}})
		require.NotNil(t, err)
		assert.Equal(t, KindFileReadError, err.Kind)
	})
}

func TestNormalizeBase64(t *testing.T) {
	assert.Equal(t, "aGVsbG8=", NormalizeBase64("data:image/png;base64,aGVsbG8="))
	assert.Equal(t, "aGVsbG8=", NormalizeBase64("aGVsbG8="))
	assert.Equal(t, "aGVsbG8=", NormalizeBase64("  aGVsbG8=  "))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, assert.AnError
}
