package logging

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	assert.Same(t, Global(), FromContext(context.Background()))
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")

	assert.Equal(t, "req-42", RequestID(ctx))
	assert.NotSame(t, Global(), FromContext(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
}

func TestWithWalletKeepsRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-2")
	ctx = WithWallet(ctx, "0xabc")

	assert.Equal(t, "req-2", RequestID(ctx))
	assert.NotSame(t, Global(), FromContext(ctx))
}
