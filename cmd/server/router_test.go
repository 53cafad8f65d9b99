// Router tests in Tracker.

package main

import (
	"Tracker/internal/config"
	"Tracker/internal/test"
	"Tracker/pkg/log"
	"Tracker/pkg/middlewares"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func newRouter(serviceKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	Router(router, config.Config{CORSOrigin: "*", ServiceKey: serviceKey}, routerServices{}, prometheus.NewRegistry(), log.NewNop())
	return router
}

var internalRoutes = []struct {
	method string
	path   string
}{
	{http.MethodPost, "/api/internal/projects/1/events"},
	{http.MethodPut, "/api/internal/users/1"},
	{http.MethodDelete, "/api/internal/users/1"},
	{http.MethodPut, "/api/internal/projects/1"},
	{http.MethodPost, "/api/internal/projects/1/members/2"},
	{http.MethodDelete, "/api/internal/projects/1/members/2"},
	{http.MethodGet, "/api/internal/bugs/7/typing"},
	{http.MethodGet, "/api/internal/groups"},
}

func TestInternalRoutesNeedServiceKey(t *testing.T) {
	logger := log.NewNop()

	// Without a configured key the routes don't exist at all
	router := newRouter("")
	for _, route := range internalRoutes {
		t.Run("disabled "+route.method+" "+route.path, func(t *testing.T) {
			test.ExecuteAPITest(logger, t, router, test.RequestAPITest{
				Method:       route.method,
				Path:         route.path,
				WantResponse: []int{http.StatusNotFound},
				Headers:      map[string]string{middlewares.ServiceKeyHeader: ""},
			})
		})
	}

	router = newRouter("crud-service-key")
	for _, route := range internalRoutes {
		t.Run("guarded "+route.method+" "+route.path, func(t *testing.T) {
			test.ExecuteAPITest(logger, t, router, test.RequestAPITest{
				Method:       route.method,
				Path:         route.path,
				WantResponse: []int{http.StatusUnauthorized},
				Headers:      map[string]string{middlewares.ServiceKeyHeader: "wrong-key"},
			})
		})
	}
}
