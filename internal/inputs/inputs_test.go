package inputs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copperline/docflow/internal/inputs"
	"github.com/copperline/docflow/pkg/api"
)

var (
	testDocs = []api.SourceDocument{
		{ID: "doc-1", Name: "report.pdf", Checksum: "sum-1"},
		{ID: "doc-2", Name: "appendix.pdf", Checksum: "sum-2"},
	}
	testRefs = []api.SourceDocument{
		{ID: "ref-1", Name: "contract.pdf", Checksum: "sum-3"},
	}
	testQuestions = []api.Question{
		{ID: "q-1", Question: "What is the termination date?"},
		{ID: "q-2", Question: "Who are the parties?"},
	}
)

func TestBuildDualSourceInputs(t *testing.T) {
	t.Run("standard input names", func(t *testing.T) {
		in := inputs.BuildDualSourceInputs(
			testDocs, testRefs, testQuestions, nil,
		)
		assert.Equal(t, []any{"doc-1", "doc-2"},
			in["first_source_file_ids"])
		assert.Equal(t, []any{"ref-1"}, in["second_source_file_ids"])
		assert.Equal(t, "What is the termination date?", in["query"])
		assert.Equal(t, []any{}, in["previous_answers"])

		questions, ok := in["questions"].([]any)
		require.True(t, ok)
		require.Len(t, questions, 2)
		first := questions[0].(map[string]any)
		assert.Equal(t, "q-1", first["id"])
	})

	t.Run("no questions yields empty query", func(t *testing.T) {
		in := inputs.BuildDualSourceInputs(testDocs, nil, nil, nil)
		assert.Equal(t, "", in["query"])
		assert.Equal(t, []any{}, in["second_source_file_ids"])
	})

	t.Run("extra params override computed keys", func(t *testing.T) {
		in := inputs.BuildDualSourceInputs(
			testDocs, nil, testQuestions, map[string]any{
				"query":       "forced question",
				"temperature": 0.2,
			},
		)
		assert.Equal(t, "forced question", in["query"])
		assert.Equal(t, 0.2, in["temperature"])
	})
}

func TestBuildSingleSourceInputs(t *testing.T) {
	in := inputs.BuildSingleSourceInputs(testDocs, testQuestions, nil)

	assert.Equal(t, []any{"doc-1", "doc-2"}, in["file_ids"])
	assert.Equal(t, "What is the termination date?", in["query"])

	files, ok := in["files"].([]any)
	require.True(t, ok)
	require.Len(t, files, 2)
	first := files[0].(map[string]any)
	assert.Equal(t, "doc-1", first["id"])
	assert.Equal(t, "sum-1", first["checksum"])

	assert.Contains(t, in, "questions")
	assert.Contains(t, in, "previous_answers")
}

func TestClassifyAdditional(t *testing.T) {
	t.Run("empty blob", func(t *testing.T) {
		isFlow, params := inputs.ClassifyAdditional("")
		assert.False(t, isFlow)
		assert.Nil(t, params)
	})

	t.Run("inline flow definition", func(t *testing.T) {
		isFlow, params := inputs.ClassifyAdditional(
			`{"flow_id": "adhoc", "steps": [{"step_id": "s1"}]}`,
		)
		assert.True(t, isFlow)
		assert.Nil(t, params)
	})

	t.Run("flow_id alone is just a parameter", func(t *testing.T) {
		isFlow, params := inputs.ClassifyAdditional(
			`{"flow_id": "adhoc", "temperature": 0.5}`,
		)
		assert.False(t, isFlow)
		assert.Equal(t, "adhoc", params["flow_id"])
		assert.Equal(t, 0.5, params["temperature"])
	})

	t.Run("plain parameter object", func(t *testing.T) {
		isFlow, params := inputs.ClassifyAdditional(
			`{"language": "de", "max_chunks": 12}`,
		)
		assert.False(t, isFlow)
		assert.Equal(t, "de", params["language"])
	})

	t.Run("invalid JSON is ignored", func(t *testing.T) {
		isFlow, params := inputs.ClassifyAdditional(`{"language": `)
		assert.False(t, isFlow)
		assert.Nil(t, params)
	})

	t.Run("non-object JSON is ignored", func(t *testing.T) {
		isFlow, params := inputs.ClassifyAdditional(`[1, 2, 3]`)
		assert.False(t, isFlow)
		assert.Nil(t, params)
	})
}
