package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/copperline/docflow/pkg/util"
)

type (
	// FlowDefinition is a named, versioned directed sequence of conditional
	// steps executed by an external flow runtime. Definitions are immutable
	// once loaded and are cached by FlowID for the life of the process
	FlowDefinition struct {
		FlowID  string     `json:"flow_id"`
		Version string     `json:"version"`
		Name    string     `json:"name"`
		Inputs  FlowInputs `json:"inputs"`
		Steps   []Step     `json:"steps"`
	}

	// FlowInputs declares the named parameters a flow expects, with
	// optional default values
	FlowInputs struct {
		Parameters map[string]string `json:"parameters,omitempty"`
		Defaults   map[string]any    `json:"defaults,omitempty"`
	}

	// Step is an ordered group of tasks, optionally guarded by a condition.
	// A step without a guard always runs
	Step struct {
		StepID string     `json:"step_id"`
		Tasks  []Task     `json:"tasks"`
		When   *Condition `json:"when,omitempty"`
	}

	// Task invokes a registered capability by name. Inputs map parameter
	// names to literals or $-prefixed references into flow inputs or prior
	// task outputs. Tasks marked ExportToFlow surface their outputs at flow
	// scope for citation and mapping
	Task struct {
		TaskID       string         `json:"task_id"`
		Function     string         `json:"function"`
		Inputs       map[string]any `json:"inputs,omitempty"`
		ExportToFlow bool           `json:"export_to_flow"`
		When         *Condition     `json:"when,omitempty"`
	}

	// Condition compares a $-prefixed reference against a literal value
	Condition struct {
		Ref   string `json:"ref"`
		Op    string `json:"op"`
		Value any    `json:"value"`
	}
)

const (
	OpEqual          = "=="
	OpNotEqual       = "!="
	OpGreater        = ">"
	OpGreaterOrEqual = ">="
	OpLess           = "<"
	OpLessOrEqual    = "<="
)

var (
	ErrFlowIDEmpty        = errors.New("flow ID empty")
	ErrNoSteps            = errors.New("flow has no steps")
	ErrStepIDEmpty        = errors.New("step ID empty")
	ErrNoTasks            = errors.New("step has no tasks")
	ErrTaskIDEmpty        = errors.New("task ID empty")
	ErrTaskFunctionEmpty  = errors.New("task function empty")
	ErrConditionRefEmpty  = errors.New("condition ref empty")
	ErrConditionBadRef    = errors.New("condition ref must start with $")
	ErrInvalidConditionOp = errors.New("invalid condition operator")
)

var validOps = util.SetOf(
	OpEqual,
	OpNotEqual,
	OpGreater,
	OpGreaterOrEqual,
	OpLess,
	OpLessOrEqual,
)

// Validate checks that a flow definition is structurally sound. It does not
// resolve task functions or references; that is the flow runtime's job
func (f *FlowDefinition) Validate() error {
	if f.FlowID == "" {
		return ErrFlowIDEmpty
	}
	if len(f.Steps) == 0 {
		return fmt.Errorf("%w: %s", ErrNoSteps, f.FlowID)
	}
	for _, s := range f.Steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("flow %s: %w", f.FlowID, err)
		}
	}
	return nil
}

// Validate checks a step and all of its tasks
func (s *Step) Validate() error {
	if s.StepID == "" {
		return ErrStepIDEmpty
	}
	if len(s.Tasks) == 0 {
		return fmt.Errorf("%w: %s", ErrNoTasks, s.StepID)
	}
	if err := s.When.Validate(); err != nil {
		return fmt.Errorf("step %s: %w", s.StepID, err)
	}
	for _, t := range s.Tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("step %s: %w", s.StepID, err)
		}
	}
	return nil
}

// Validate checks a task's identity, function name, and optional guard
func (t *Task) Validate() error {
	if t.TaskID == "" {
		return ErrTaskIDEmpty
	}
	if t.Function == "" {
		return fmt.Errorf("%w: %s", ErrTaskFunctionEmpty, t.TaskID)
	}
	if err := t.When.Validate(); err != nil {
		return fmt.Errorf("task %s: %w", t.TaskID, err)
	}
	return nil
}

// Validate checks a guard condition. A nil condition is valid (always runs)
func (c *Condition) Validate() error {
	if c == nil {
		return nil
	}
	if c.Ref == "" {
		return ErrConditionRefEmpty
	}
	if !strings.HasPrefix(c.Ref, "$") {
		return fmt.Errorf("%w: %s", ErrConditionBadRef, c.Ref)
	}
	if !validOps.Has(c.Op) {
		return fmt.Errorf("%w: %q", ErrInvalidConditionOp, c.Op)
	}
	return nil
}
