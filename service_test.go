package docflow_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperline/docflow"
	"github.com/copperline/docflow/pkg/api"
)

const serviceFlow = `{
	"flow_id": "qa_default",
	"version": "1.0",
	"steps": [{
		"step_id": "answer",
		"tasks": [{
			"task_id": "answer",
			"function": "qa_agent_flow",
			"export_to_flow": true
		}]
	}]
}`

type staticRunner struct {
	result *api.FlowResult
}

func (r *staticRunner) Run(
	context.Context, *api.FlowDefinition, map[string]any,
) (*api.FlowResult, error) {
	return r.result, nil
}

func (r *staticRunner) Cleanup(context.Context) error {
	return nil
}

func writeFlowDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "qa_default.json"), []byte(serviceFlow), 0o644))
	t.Setenv("FLOW_DIR", dir)
}

func newService(
	t *testing.T, runners api.RunnerFactory,
) *docflow.Service {
	t.Helper()
	svc, err := docflow.NewService(context.Background(), runners)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestServiceProcess(t *testing.T) {
	jc := &api.JobContext{JobID: "job-1"}
	taskCfg := &api.TaskConfig{
		Questions: []api.Question{{ID: "q-1", Question: "Who signed?"}},
	}

	t.Run("without annotation", func(t *testing.T) {
		writeFlowDir(t)
		t.Setenv("ANNOTATE", "false")

		runner := &staticRunner{result: &api.FlowResult{
			Status: api.RunSucceeded,
			Outputs: map[string]any{
				"final_result": map[string]any{
					"answer":                  "Both parties",
					"answer_explanation":      "Signature page.",
					"justifying_contents_ids": []any{},
				},
			},
		}}
		svc := newService(t, func(*api.JobContext) (api.Runner, error) {
			return runner, nil
		})

		out, err := svc.Process(context.Background(), jc, taskCfg)
		require.NoError(t, err)
		require.Len(t, out.Answers, 1)
		assert.Equal(t, "Both parties", out.Answers[0].Answer)
	})

	t.Run("with annotation against chunk service", func(t *testing.T) {
		writeFlowDir(t)
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(
					`{"chunks": [{"id": "c-1", "text": "Signed by all."}]}`))
			}))
		defer srv.Close()
		t.Setenv("CHUNK_SERVICE_URL", srv.URL)

		cid := api.ContentID("d-1", "c-1")
		runner := &staticRunner{result: &api.FlowResult{
			Status: api.RunSucceeded,
			Outputs: map[string]any{
				"final_result": map[string]any{
					"answer":                  "Both parties",
					"answer_explanation":      "Signature page.",
					"justifying_contents_ids": []any{cid},
				},
			},
		}}
		svc := newService(t, func(*api.JobContext) (api.Runner, error) {
			return runner, nil
		})

		cfg := *taskCfg
		cfg.FirstSourceFiles = []api.SourceDocument{{
			ID: "d-1", Checksum: "sum-1",
		}}
		out, err := svc.Process(context.Background(), jc, &cfg)
		require.NoError(t, err)
		require.Len(t, out.Answers, 1)
		require.Len(t, out.Answers[0].Annotations, 1)
		assert.Equal(t, "Signed by all.", out.Answers[0].Annotations[0].Text)
	})

	t.Run("nil runner factory fails closed", func(t *testing.T) {
		writeFlowDir(t)
		t.Setenv("ANNOTATE", "false")

		svc := newService(t, nil)
		_, err := svc.Process(context.Background(), jc, taskCfg)
		assert.ErrorIs(t, err, api.ErrDependencyUnavailable)
	})

	t.Run("annotation requires a chunk service", func(t *testing.T) {
		writeFlowDir(t)
		_, err := docflow.NewService(context.Background(), nil)
		assert.ErrorIs(t, err, docflow.ErrChunkServiceURLEmpty)
	})
}

func TestServiceHandler(t *testing.T) {
	writeFlowDir(t)
	t.Setenv("ANNOTATE", "false")
	svc := newService(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	svc.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/flows", nil)
	svc.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qa_default (json)")
}
