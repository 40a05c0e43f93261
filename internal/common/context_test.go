package common

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestIDContext(t *testing.T) {
	t.Run("roundtrip", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "my-trace-id")
		assert.Equal(t, "my-trace-id", RequestIDFromContext(ctx))
	})

	t.Run("mints when absent", func(t *testing.T) {
		id := RequestIDFromContext(context.Background())
		assert.NotEmpty(t, id)
	})

	t.Run("stable once set", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "fixed")
		assert.Equal(t, RequestIDFromContext(ctx), RequestIDFromContext(ctx))
	})
}
