package api

import "context"

type (
	// Runner executes a loaded flow definition against named inputs. It is
	// an external collaborator: task scheduling, reference resolution, and
	// branching all live behind this interface
	Runner interface {
		Run(
			ctx context.Context, flow *FlowDefinition, in map[string]any,
		) (*FlowResult, error)

		// Cleanup releases the runner's resources. It is called on every
		// exit path, including cancellation
		Cleanup(ctx context.Context) error
	}

	// RunnerFactory acquires a runner scoped to one invocation, carrying
	// the job's identity and caller auth headers
	RunnerFactory func(jc *JobContext) (Runner, error)
)
