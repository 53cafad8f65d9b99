// Mock methods required in Tracker tests are all here.

package test

import (
	"Tracker/pkg/db"
	"Tracker/pkg/log"
	"Tracker/pkg/middlewares"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
)

// MockRouter returns a fresh gin engine in test mode with the global middlewares Tracker uses.
func MockRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middlewares.CorrelationMiddleware())
	router.Use(middlewares.CORSMiddleware("*")) // CORS middleware which allows request from all origin
	return router
}

// MockRedis starts an in-process redis-server living as long as the test.
func MockRedis(t testing.TB) (*db.RedisDB, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client, dberr := db.NewDbConnection(context.Background(), log.NewNop(), db.Options{Addr: server.Addr(), TxMaxRetries: 3})
	if dberr != nil {
		t.Fatalf("connect to miniredis: %v", dberr)
	}
	t.Cleanup(func() {
		client.CloseDbConnection(context.Background())
	})
	return client, server
}
