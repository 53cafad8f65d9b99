package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// This middleware handles CORS policy for Tracker server.
// Credentials are only allowed for a concrete origin, browsers refuse them with "*".
func CORSMiddleware(addr string) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		header := gctx.Writer.Header()
		header.Set("Access-Control-Allow-Origin", addr)
		if addr != "*" {
			header.Set("Vary", "Origin")
			header.Set("Access-Control-Allow-Credentials", "true")
		}
		header.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Service-Key, X-Correlation-ID, X-Request-ID")
		header.Set("Access-Control-Expose-Headers", "X-Correlation-ID, X-Request-ID")
		header.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if gctx.Request.Method == http.MethodOptions {
			gctx.AbortWithStatus(http.StatusNoContent)
			return
		}

		gctx.Next()
	}
}
