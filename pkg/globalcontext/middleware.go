// Context middleware is used in gin to populate request context with unique ID.
// This ID will be helpful in debugging issues happening for a request in handler chain.

package globalcontext

import (
	"Tracker/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carrying the request id, set on every response.
const RequestIDHeader = "X-Request-ID"

// Populates every incoming request's context with a UUID under "ReqID".
// A valid UUID sent by a proxy in X-Request-ID is reused instead.
func UniqueIDMiddleware(logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		rqId, parseerr := uuid.Parse(gctx.GetHeader(RequestIDHeader))
		if parseerr != nil {
			var uuiderr error
			if rqId, uuiderr = uuid.NewRandom(); uuiderr != nil {
				logger.Error().Err(uuiderr).Msg("Error during generating UUID for ReqID.")
				gctx.Next()
				return
			}
		}
		gctx.Set("ReqID", rqId.String())
		gctx.Header(RequestIDHeader, rqId.String())
		gctx.Next()
	}
}
