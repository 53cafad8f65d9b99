package middlewares

import (
	"Tracker/internal/errors"
	"Tracker/pkg/log"
	"crypto/subtle"

	"github.com/gin-gonic/gin"
)

// Header carrying the key shared with the CRUD layer.
const ServiceKeyHeader = "X-Service-Key"

// This middleware guards the internal endpoints only the CRUD layer may call.
func ServiceKeyMiddleware(serviceKey string, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		presented := gctx.GetHeader(ServiceKeyHeader)
		if serviceKey == "" || presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(serviceKey)) != 1 {
			logger.WithCtx(gctx).Warn().Str("client_ip", gctx.ClientIP()).Msg("Rejected internal request with a bad service key")
			err := errors.Unauthorized("")
			gctx.AbortWithStatusJSON(err.Status, err)
			return
		}
		gctx.Next()
	}
}
