package middleware

import (
	"context"
	"storefront-service/metrics"
	"time"

	"github.com/gin-gonic/gin"
)

// Metrics records request count, latency and error class for every request.
// Data points are shipped off the request goroutine.
func Metrics(rec metrics.Recorder, service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rec == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		dims := map[string]string{
			"Service": service,
			"Method":  c.Request.Method,
			"Path":    path,
			"Status":  statusClass(status),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = rec.RecordCount(ctx, metrics.MetricHTTPRequests, dims)
			_ = rec.RecordLatency(ctx, metrics.MetricHTTPLatency, duration, dims)
			switch {
			case status >= 500:
				_ = rec.RecordCount(ctx, metrics.MetricHTTPErrors, dims)
				_ = rec.RecordCount(ctx, metrics.MetricHTTP5xx, dims)
			case status >= 400:
				_ = rec.RecordCount(ctx, metrics.MetricHTTPErrors, dims)
				_ = rec.RecordCount(ctx, metrics.MetricHTTP4xx, dims)
			}
		}()
	}
}

func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
