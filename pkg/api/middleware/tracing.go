package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/painterjd/deuce/internal/logger"
	"github.com/painterjd/deuce/internal/telemetry"
	"github.com/painterjd/deuce/pkg/api/handlers"
)

// Tracing opens a server span for each request and threads the trace and
// span IDs into the logging context so access log lines correlate with
// traces. The span is named after the raw path at start and renamed to the
// matched route template once routing has run, keeping span names bounded.
//
// Does nothing when telemetry is disabled.
func Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !telemetry.IsEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		ctx, span := telemetry.StartSpan(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				telemetry.HTTPMethod(r.Method),
				telemetry.ClientIP(r.RemoteAddr),
			),
		)
		defer span.End()

		if projectID := r.Header.Get(handlers.HeaderProjectID); projectID != "" {
			span.SetAttributes(telemetry.ProjectID(projectID))
		}
		if lc := logger.FromContext(ctx); lc != nil {
			if lc.TransactionID != "" {
				span.SetAttributes(telemetry.TransactionID(lc.TransactionID))
			}
			ctx = logger.WithContext(ctx, lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)))
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		if route := chi.RouteContext(r.Context()).RoutePattern(); route != "" {
			span.SetName(r.Method + " " + route)
			span.SetAttributes(telemetry.HTTPRoute(route))
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		span.SetAttributes(telemetry.HTTPStatus(status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}
