package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
)

// CorrelationHeader carries the correlation id across services.
const CorrelationHeader = "X-Correlation-ID"

// This middleware will be used to populate every incoming request's context with an Unique CorrelationID.
// Which will help to debug an issue which happened between a chain of events during handling a request.
// An id sent by the CRUD layer is kept so a domain write and its fan-out share one id.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(gctx *gin.Context) {
		correlationID := gctx.GetHeader(CorrelationHeader)
		if _, err := xid.FromString(correlationID); err != nil {
			correlationID = xid.New().String()
		}
		// Setting the correlationID in request's context
		gctx.Set("correlation_id", correlationID)
		// Setting the correlationID to response header
		gctx.Writer.Header().Set(CorrelationHeader, correlationID)
		gctx.Next()
	}
}
