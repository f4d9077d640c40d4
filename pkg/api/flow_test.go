package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/copperline/docflow/pkg/api"
)

func validFlow() *api.FlowDefinition {
	return &api.FlowDefinition{
		FlowID:  "qa_default",
		Version: "1.0",
		Steps: []api.Step{{
			StepID: "answer",
			Tasks: []api.Task{{
				TaskID:   "answer",
				Function: "qa_agent_flow",
			}},
		}},
	}
}

func TestFlowDefinitionValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, validFlow().Validate())
	})

	t.Run("empty flow id", func(t *testing.T) {
		f := validFlow()
		f.FlowID = ""
		assert.ErrorIs(t, f.Validate(), api.ErrFlowIDEmpty)
	})

	t.Run("no steps", func(t *testing.T) {
		f := validFlow()
		f.Steps = nil
		assert.ErrorIs(t, f.Validate(), api.ErrNoSteps)
	})

	t.Run("empty step id", func(t *testing.T) {
		f := validFlow()
		f.Steps[0].StepID = ""
		assert.ErrorIs(t, f.Validate(), api.ErrStepIDEmpty)
	})

	t.Run("step without tasks", func(t *testing.T) {
		f := validFlow()
		f.Steps[0].Tasks = nil
		assert.ErrorIs(t, f.Validate(), api.ErrNoTasks)
	})

	t.Run("empty task id", func(t *testing.T) {
		f := validFlow()
		f.Steps[0].Tasks[0].TaskID = ""
		assert.ErrorIs(t, f.Validate(), api.ErrTaskIDEmpty)
	})

	t.Run("empty task function", func(t *testing.T) {
		f := validFlow()
		f.Steps[0].Tasks[0].Function = ""
		assert.ErrorIs(t, f.Validate(), api.ErrTaskFunctionEmpty)
	})
}

func TestConditionValidate(t *testing.T) {
	t.Run("nil condition always runs", func(t *testing.T) {
		var c *api.Condition
		assert.NoError(t, c.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		c := &api.Condition{
			Ref:   "$probe.fits_in_context",
			Op:    api.OpEqual,
			Value: true,
		}
		assert.NoError(t, c.Validate())
	})

	t.Run("empty ref", func(t *testing.T) {
		c := &api.Condition{Op: api.OpEqual}
		assert.ErrorIs(t, c.Validate(), api.ErrConditionRefEmpty)
	})

	t.Run("ref without reference prefix", func(t *testing.T) {
		c := &api.Condition{Ref: "probe.value", Op: api.OpEqual}
		assert.ErrorIs(t, c.Validate(), api.ErrConditionBadRef)
	})

	t.Run("unknown operator", func(t *testing.T) {
		c := &api.Condition{Ref: "$probe.value", Op: "~="}
		assert.ErrorIs(t, c.Validate(), api.ErrInvalidConditionOp)
	})

	t.Run("guard errors surface through the flow", func(t *testing.T) {
		f := validFlow()
		f.Steps[0].When = &api.Condition{Ref: "bad", Op: api.OpEqual}
		assert.ErrorIs(t, f.Validate(), api.ErrConditionBadRef)

		f = validFlow()
		f.Steps[0].Tasks[0].When = &api.Condition{
			Ref: "$probe.value", Op: "almost",
		}
		assert.ErrorIs(t, f.Validate(), api.ErrInvalidConditionOp)
	})
}
