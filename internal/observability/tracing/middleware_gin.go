package tracing

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/hisaab/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// untraced paths are polled by probes and scrapers.
var untraced = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// resourceKinds names the :id path parameter per route prefix so spans can be
// searched by invoice or reminder.
var resourceKinds = []struct {
	prefix string
	key    attribute.Key
}{
	{"/api/invoices/", "hisaab.invoice_id"},
	{"/api/reminders/", "hisaab.reminder_id"},
	{"/api/clients/", "hisaab.client_id"},
	{"/api/projects/", "hisaab.project_id"},
	{"/api/savings-goals/", "hisaab.savings_goal_id"},
}

// GinMiddleware opens a server span per API request. Account and resource ids
// are attached once the inner handlers have resolved them.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("hisaab/http")
	return func(c *gin.Context) {
		if _, skip := untraced[c.Request.URL.Path]; skip {
			c.Next()
			return
		}

		method := strings.ToUpper(c.Request.Method)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			ctx = withBaggage(ctx, "request_id", requestID)
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		}
		if accountID := obscontext.AccountIDFromContext(c.Request.Context()); accountID != "" {
			attrs = append(attrs, attribute.String("hisaab.account_id", accountID))
		}
		if id := c.Param("id"); id != "" {
			for _, kind := range resourceKinds {
				if strings.HasPrefix(route, kind.prefix) {
					attrs = append(attrs, attribute.String(string(kind.key), id))
					break
				}
			}
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		switch {
		case status >= http.StatusInternalServerError:
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		case status == http.StatusConflict, status == http.StatusUnprocessableEntity:
			// refused transition or missing contact
			span.AddEvent("request refused", trace.WithAttributes(attribute.Int("http.status_code", status)))
		}
	}
}

func withBaggage(ctx context.Context, key, value string) context.Context {
	member, err := baggage.NewMember(key, value)
	if err != nil {
		return ctx
	}
	bag, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
