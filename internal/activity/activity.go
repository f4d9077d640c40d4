// Package activity is the per-invocation entry point: it resolves a flow,
// builds its inputs, hands it to the external runner, enriches the raw
// outputs with citations, and resolves them into the final answer list.
// The pipeline is linear; any failure aborts the whole invocation, and no
// partial answers are ever returned.
package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/copperline/docflow/internal/enrich"
	"github.com/copperline/docflow/internal/events"
	"github.com/copperline/docflow/internal/inputs"
	"github.com/copperline/docflow/internal/loader"
	"github.com/copperline/docflow/internal/resolver"
	"github.com/copperline/docflow/pkg/api"
	"github.com/copperline/docflow/pkg/log"
)

type (
	// Options tunes per-deployment activity behavior
	Options struct {
		// DefaultFlow is loaded when the task config names no flow
		DefaultFlow string

		// Annotate runs citation enrichment before output resolution.
		// Disable it only for flow variants that predate annotation
		// support; this is an explicit deployment choice, never
		// auto-detected
		Annotate bool
	}

	// Activity composes the flow pipeline for one worker process
	Activity struct {
		loader  *loader.Loader
		enrich  *enrich.Engine
		runners api.RunnerFactory
		hub     *events.Hub
		opts    Options
	}
)

// New creates the activity. The hub may be nil when no diagnostics stream
// is wanted
func New(
	ld *loader.Loader, eng *enrich.Engine, rf api.RunnerFactory,
	hub *events.Hub, opts Options,
) *Activity {
	return &Activity{
		loader:  ld,
		enrich:  eng,
		runners: rf,
		hub:     hub,
		opts:    opts,
	}
}

// Process runs one invocation end to end:
// received → flow resolved → inputs built → flow executed → [enriched] →
// outputs resolved → returned
func (a *Activity) Process(
	ctx context.Context, jc *api.JobContext, cfg *api.TaskConfig,
) (*api.TaskOutput, error) {
	slog.Info("Processing flow task",
		log.JobID(jc.JobID),
		log.FlowID(a.flowName(cfg)),
		slog.Int("first_source_files", len(cfg.FirstSourceFiles)),
		slog.Int("second_source_files", len(cfg.SecondSourceFiles)),
		slog.Int("questions", len(cfg.Questions)))
	a.publish(jc, "", events.PhaseReceived, nil)

	flow, params, err := a.resolveFlow(ctx, cfg)
	if err != nil {
		return nil, a.fail(jc, "", err)
	}
	a.publish(jc, flow.FlowID, events.PhaseFlowResolved, nil)

	in := inputs.BuildDualSourceInputs(
		cfg.FirstSourceFiles, cfg.SecondSourceFiles, cfg.Questions, params,
	)
	a.publish(jc, flow.FlowID, events.PhaseInputsBuilt, nil)

	answers, err := a.execute(ctx, jc, flow, in, cfg)
	if err != nil {
		return nil, a.fail(jc, flow.FlowID, err)
	}

	a.publish(jc, flow.FlowID, events.PhaseReturned, nil)
	return &api.TaskOutput{Answers: answers}, nil
}

// execute owns the runner's lifetime: acquisition, the run itself, and the
// post-processing that still needs nothing from the runner. Cleanup is a
// scoped release on every exit path; cancellation of ctx must not skip it
func (a *Activity) execute(
	ctx context.Context, jc *api.JobContext, flow *api.FlowDefinition,
	in map[string]any, cfg *api.TaskConfig,
) ([]api.Answer, error) {
	if a.runners == nil {
		return nil, fmt.Errorf("%w: no flow runner configured",
			api.ErrDependencyUnavailable)
	}
	runner, err := a.runners(jc)
	if err != nil {
		return nil, fmt.Errorf("%w: runner: %v",
			api.ErrDependencyUnavailable, err)
	}
	defer func() {
		if err := runner.Cleanup(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Runner cleanup failed",
				log.JobID(jc.JobID), log.Error(err))
		}
	}()

	result, err := runner.Run(ctx, flow, in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrRunnerFailure, err)
	}
	if result.Status != api.RunSucceeded {
		return nil, fmt.Errorf("%w: flow %s finished with status %s: %s",
			api.ErrRunnerFailure, flow.FlowID, result.Status, result.Error)
	}
	a.publish(jc, flow.FlowID, events.PhaseExecuted, nil)
	slog.Info("Flow completed",
		log.JobID(jc.JobID),
		log.FlowID(flow.FlowID),
		log.Status(result.Status))

	if a.opts.Annotate {
		docs := append(
			append([]api.SourceDocument{}, cfg.FirstSourceFiles...),
			cfg.SecondSourceFiles...,
		)
		if err := a.enrich.Enrich(ctx, result.Outputs, docs); err != nil {
			return nil, err
		}
		a.publish(jc, flow.FlowID, events.PhaseEnriched, nil)
	}

	answers, err := resolver.Resolve(result.Outputs, cfg.Questions)
	if err != nil {
		return nil, err
	}
	a.publish(jc, flow.FlowID, events.PhaseResolved, nil)
	return answers, nil
}

// resolveFlow determines which flow to run and which additional params to
// merge into its inputs. Priority: inline flow in additional inputs, then
// the named flow, then the deployment default
func (a *Activity) resolveFlow(
	ctx context.Context, cfg *api.TaskConfig,
) (*api.FlowDefinition, map[string]any, error) {
	isFlow, params := inputs.ClassifyAdditional(cfg.AdditionalInputs)
	if isFlow {
		slog.Info("Using inline flow from additional inputs")
		flow, err := a.loader.LoadFromText(cfg.AdditionalInputs)
		if err != nil {
			return nil, nil, err
		}
		return flow, nil, nil
	}

	flow, err := a.loader.LoadByName(ctx, a.flowName(cfg))
	if err != nil {
		return nil, nil, err
	}
	return flow, params, nil
}

func (a *Activity) flowName(cfg *api.TaskConfig) string {
	if cfg.FlowName != "" {
		return cfg.FlowName
	}
	return a.opts.DefaultFlow
}

func (a *Activity) fail(jc *api.JobContext, flowID string, err error) error {
	slog.Error("Flow task failed",
		log.JobID(jc.JobID), log.FlowID(flowID), log.Error(err))
	a.publish(jc, flowID, events.PhaseFailed, err)
	return err
}

func (a *Activity) publish(
	jc *api.JobContext, flowID string, phase events.Phase, err error,
) {
	if a.hub == nil {
		return
	}
	ev := events.Event{
		JobID: jc.JobID,
		Flow:  flowID,
		Phase: phase,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	a.hub.Publish(ev)
}
