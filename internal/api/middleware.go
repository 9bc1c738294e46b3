package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"dataservices/internal/metrics"
	"dataservices/internal/tenant"
)

// requestLogger logs and measures every request. It runs inside the tenant
// scope so the tenant is part of the log line.
func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			rec := recover()
			status := ww.Status()
			if rec != nil {
				status = http.StatusInternalServerError
			} else if status == 0 {
				status = http.StatusOK
			}

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			elapsed := time.Since(start)
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			tenantID, _ := tenant.IDFromContext(r.Context())
			fields := []zap.Field{
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("tenant_id", tenantID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", elapsed),
			}
			switch {
			case rec != nil:
				a.Logger.Error("Request panicked", append(fields, zap.Any("panic", rec))...)
				panic(rec)
			case status >= http.StatusInternalServerError:
				a.Logger.Error("Request completed", fields...)
			default:
				a.Logger.Info("Request completed", fields...)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}
