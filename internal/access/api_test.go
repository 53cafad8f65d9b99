// Project access API tests in Tracker.

package access

import (
	"Tracker/internal/entity"
	"Tracker/internal/test"
	"Tracker/pkg/log"
	"Tracker/pkg/middlewares"
	"Tracker/pkg/validations"
	"bytes"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const serviceKey = "crud-service-key"

var auth = map[string]string{middlewares.ServiceKeyHeader: serviceKey, "Content-Type": "application/json"}

func newAccessRouter(t *testing.T) (*gin.Engine, Service, *miniredis.Miniredis) {
	t.Helper()
	logger := log.NewNop()
	validations.RegisterCustomValidations(ctx, logger)
	client, server := test.MockRedis(t)
	svc := NewService(NewRepository(client), logger)
	router := test.MockRouter()
	APIHandlers(router, svc, middlewares.ServiceKeyMiddleware(serviceKey, logger), logger)
	return router, svc, server
}

func request(method, path, body string, headers map[string]string, want int) test.RequestAPITest {
	return test.RequestAPITest{
		Method:       method,
		Path:         path,
		Body:         bytes.NewReader([]byte(body)),
		WantResponse: []int{want},
		Headers:      headers,
	}
}

func TestSaveProjectAPI(t *testing.T) {
	router, svc, _ := newAccessRouter(t)
	logger := log.NewNop()

	tests := map[string]struct {
		path string
		body string
		want int
	}{
		"bad project id": {"/api/internal/projects/abc", `{"name":"Tracker","owner_id":10}`, http.StatusBadRequest},
		"missing name":   {"/api/internal/projects/1", `{"owner_id":10}`, http.StatusBadRequest},
		"missing owner":  {"/api/internal/projects/1", `{"name":"Tracker"}`, http.StatusBadRequest},
		"negative owner": {"/api/internal/projects/1", `{"name":"Tracker","owner_id":-3}`, http.StatusBadRequest},
		"not json":       {"/api/internal/projects/1", `name=Tracker`, http.StatusUnprocessableEntity},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			test.ExecuteAPITest(logger, t, router, request(http.MethodPut, tc.path, tc.body, auth, tc.want))
		})
	}
	test.ExecuteAPITest(logger, t, router, request(http.MethodPut, "/api/internal/projects/1", `{"name":"Tracker","owner_id":10}`, nil, http.StatusUnauthorized))

	allowed, err := svc.Authorize(ctx, entity.Identity{ID: 10}, entity.GroupFor("1"))
	require.NoError(t, err)
	assert.False(t, allowed)

	test.ExecuteAPITest(logger, t, router, request(http.MethodPut, "/api/internal/projects/1", `{"name":"Tracker","owner_id":10}`, auth, http.StatusNoContent))
	allowed, err = svc.Authorize(ctx, entity.Identity{ID: 10}, entity.GroupFor("1"))
	require.NoError(t, err)
	assert.True(t, allowed)

	// Ownership transfer
	test.ExecuteAPITest(logger, t, router, request(http.MethodPut, "/api/internal/projects/1", `{"name":"Tracker","owner_id":12}`, auth, http.StatusNoContent))
	allowed, err = svc.Authorize(ctx, entity.Identity{ID: 10}, entity.GroupFor("1"))
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMemberAPI(t *testing.T) {
	router, svc, server := newAccessRouter(t)
	logger := log.NewNop()
	require.NoError(t, svc.SaveProject(ctx, entity.Project{ID: "1", Name: "Tracker", OwnerID: 10}))

	test.ExecuteAPITest(logger, t, router, request(http.MethodPost, "/api/internal/projects/1/members/11", "", nil, http.StatusUnauthorized))
	test.ExecuteAPITest(logger, t, router, request(http.MethodPost, "/api/internal/projects/1/members/abc", "", auth, http.StatusBadRequest))
	test.ExecuteAPITest(logger, t, router, request(http.MethodPost, "/api/internal/projects/0/members/11", "", auth, http.StatusBadRequest))
	test.ExecuteAPITest(logger, t, router, request(http.MethodPost, "/api/internal/projects/99/members/11", "", auth, http.StatusNotFound))

	test.ExecuteAPITest(logger, t, router, request(http.MethodPost, "/api/internal/projects/1/members/11", "", auth, http.StatusNoContent))
	allowed, err := svc.Authorize(ctx, entity.Identity{ID: 11}, entity.GroupFor("1"))
	require.NoError(t, err)
	assert.True(t, allowed)

	test.ExecuteAPITest(logger, t, router, request(http.MethodDelete, "/api/internal/projects/1/members/11", "", auth, http.StatusNoContent))
	allowed, err = svc.Authorize(ctx, entity.Identity{ID: 11}, entity.GroupFor("1"))
	require.NoError(t, err)
	assert.False(t, allowed)

	// Removing twice is not an error
	test.ExecuteAPITest(logger, t, router, request(http.MethodDelete, "/api/internal/projects/1/members/11", "", auth, http.StatusNoContent))

	server.Close()
	test.ExecuteAPITest(logger, t, router, request(http.MethodPost, "/api/internal/projects/1/members/11", "", auth, http.StatusInternalServerError))
}
