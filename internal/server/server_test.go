package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/copperline/docflow/internal/events"
	"github.com/copperline/docflow/internal/loader"
	"github.com/copperline/docflow/internal/server"
	"github.com/copperline/docflow/pkg/api"
)

const testFlow = `{
	"flow_id": "qa_simple",
	"version": "1.0",
	"name": "Simple QA",
	"steps": [{
		"step_id": "answer",
		"tasks": [{
			"task_id": "answer",
			"function": "qa_agent_flow",
			"export_to_flow": true
		}]
	}]
}`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	require.NoError(t, bucket.WriteAll(
		context.Background(), "qa_simple.json", []byte(testFlow), nil))
	ld := loader.NewWithBucket(bucket, 16)
	t.Cleanup(func() { _ = ld.Close() })

	return server.NewServer(ld, events.NewHub()).SetupRoutes()
}

func doRequest(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	w := doRequest(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestListFlows(t *testing.T) {
	router := newTestRouter(t)
	w := doRequest(router, "/flows")
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.FlowsListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, []string{"qa_simple (json)"}, resp.Flows)
}

func TestGetFlow(t *testing.T) {
	router := newTestRouter(t)

	t.Run("existing flow", func(t *testing.T) {
		w := doRequest(router, "/flows/qa_simple")
		require.Equal(t, http.StatusOK, w.Code)

		var flow api.FlowDefinition
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flow))
		assert.Equal(t, "qa_simple", flow.FlowID)
		assert.Len(t, flow.Steps, 1)
	})

	t.Run("unknown flow", func(t *testing.T) {
		w := doRequest(router, "/flows/missing")
		require.Equal(t, http.StatusNotFound, w.Code)

		var resp api.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusNotFound, resp.Status)
		assert.Contains(t, resp.Error, "missing")
	})
}
