// This middleware is used to integrate zerolog extension created in logger.go into gin server.

package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// LoggerGinExtension forces gin to log every request through Logger instead of its default writer.
// Websocket requests are logged once the connection has been closed, their latency is the session lifetime.
func LoggerGinExtension(logger Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		start := time.Now() // Start timer
		path := gctx.Request.URL.Path
		raw := gctx.Request.URL.RawQuery

		// Process request
		gctx.Next()

		latency := time.Since(start)
		if latency > time.Minute {
			latency = latency.Truncate(time.Second)
		}
		if raw != "" && gctx.Query("token") == "" {
			// Never log query strings carrying access tokens
			path = path + "?" + raw
		}

		status := gctx.Writer.Status()
		var event *zerolog.Event
		if status >= 500 {
			event = logger.WithCtx(gctx).Error()
		} else if status >= 400 {
			event = logger.WithCtx(gctx).Warn()
		} else {
			event = logger.WithCtx(gctx).Info()
		}
		event.
			Str("client_ip", gctx.ClientIP()).
			Str("method", gctx.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Int("body_size", gctx.Writer.Size()).
			Str("errors", gctx.Errors.ByType(gin.ErrorTypePrivate).String()).
			Msg("request handled")
	}
}
