package tracing

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/hisaab/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestSafeAttributesDropsContactDetails(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/invoices/:id"),
		attribute.String("client.email", "asha@example.com"),
		attribute.String("upi.vpa", "x@bank"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))

	plain := errors.New("not_found")
	assert.Equal(t, plain, SafeError(plain))

	wrapped := fmt.Errorf("insert invoice: %w", errors.New("secret detail"))
	assert.EqualError(t, SafeError(wrapped), "insert invoice")
}

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(nil, Config{ServiceName: "hisaab"}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, provider)
}

func TestGinMiddlewareTagsAccountAndResource(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	api := r.Group("/api", func(c *gin.Context) {
		c.Request = c.Request.WithContext(obscontext.WithAccountID(c.Request.Context(), "1001"))
		c.Next()
	})
	api.POST("/invoices/:id/pay", func(c *gin.Context) { c.Status(http.StatusConflict) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/invoices/42/pay", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "HTTP POST /api/invoices/:id/pay", span.Name())

	attrs := map[attribute.Key]string{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "1001", attrs["hisaab.account_id"])
	assert.Equal(t, "42", attrs["hisaab.invoice_id"])
	assert.Equal(t, "409", attrs["http.status_code"])
	require.Len(t, span.Events(), 1)
	assert.Equal(t, "request refused", span.Events()[0].Name)
}
