package api

import "errors"

// Failure taxonomy shared across the loading, enrichment, and resolution
// pipeline. Every one of these surfaces to the caller; the system never
// degrades to an empty answer list, because an answer with fabricated or
// missing citations is worse than a visible failure.
var (
	// ErrFlowNotFound is returned when a named flow has no definition
	// file; its message enumerates the definitions that do exist
	ErrFlowNotFound = errors.New("flow not found")

	// ErrMalformedFlow is returned when a definition file parses but does
	// not have the required shape
	ErrMalformedFlow = errors.New("malformed flow definition")

	// ErrInvalidDefinition is returned when definition text fails to parse
	ErrInvalidDefinition = errors.New("invalid flow definition")

	// ErrSchemaViolation is returned when flow output is missing required
	// fields; the message names every missing field
	ErrSchemaViolation = errors.New("flow output schema violation")

	// ErrTypeViolation is returned when a required flow output field has
	// the wrong type
	ErrTypeViolation = errors.New("flow output type violation")

	// ErrUnrecognizedOutput is returned when flow output matches neither
	// supported shape; the message reports the actual top-level keys
	ErrUnrecognizedOutput = errors.New("unrecognized flow output format")

	// ErrUnresolvedCitations is returned when an answer claims justifying
	// content that could not be matched to real source material
	ErrUnresolvedCitations = errors.New("unresolved citations")

	// ErrRunnerFailure is returned when the external flow runner reports a
	// non-succeeded status; the runner's message passes through verbatim
	ErrRunnerFailure = errors.New("flow execution failed")

	// ErrDependencyUnavailable is returned when a required external
	// service is not reachable. Retry belongs to the surrounding job
	// system, never here
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
