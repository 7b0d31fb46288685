package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContextFallback(t *testing.T) {
	a := assert.New(t)

	a.NotNil(FromContext(context.Background()), "an unadorned context still logs")
}

func TestWithLoggerRoundTrip(t *testing.T) {
	a := assert.New(t)

	logger := NewLogger(false)
	ctx := WithLogger(context.Background(), logger)
	a.Same(logger, FromContext(ctx))
}

func TestNewLogger(t *testing.T) {
	a := assert.New(t)

	a.NotNil(NewLogger(false))
	a.NotNil(NewLogger(true))
}
