package shopx

import (
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Logger returns a middleware that writes one structured log entry per
// request: method, path, status, latency, client ip, response size and,
// when the Clients middleware ran first, the client id.
//
// Usage:
//
//	logger, _ := zap.NewProduction()
//	mux := shopx.NewServeMux()
//	mux.Use(shopx.Logger(logger))
//
// Server errors are logged at error level, client errors at warn level and
// everything else at info level.
func Logger(logger *zap.Logger) Middleware {
	return MiddlewareFunc(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			var client string
			next.ServeHTTP(rw, r.WithContext(withClientSlot(r.Context(), &client)))

			status := rw.status
			if status == 0 {
				status = http.StatusOK
			}

			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", ip),
				zap.Int("size", rw.size),
			}
			if client != "" {
				fields = append(fields, zap.String("client", client))
			}

			switch {
			case status >= 500:
				logger.Error("http_request", fields...)
			case status >= 400:
				logger.Warn("http_request", fields...)
			default:
				logger.Info("http_request", fields...)
			}
		})
	})
}
