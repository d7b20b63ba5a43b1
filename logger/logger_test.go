package logger

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID_FromPlainContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "unknown", RequestID(context.Background()))
}

func TestRequestID_FromGinContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Set(RequestIDKey, "req-gin")

	assert.Equal(t, "req-gin", RequestID(c))
}

func TestError_AttachesRequestIDAndCause(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := Log
	Log = zap.New(core)
	defer func() { Log = prev }()

	Error(WithRequestID(context.Background(), "req-2"), "write failed", assert.AnError)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-2", fields["request_id"])
		assert.Equal(t, assert.AnError.Error(), fields["error"])
	}
}
