// Package docflow runs declarative document-QA flows on behalf of a
// durable-execution job system and converts their free-form outputs into
// strictly validated, citation-enriched answers.
package docflow

const (
	// Name identifies the service in logs and diagnostics
	Name = "docflow"

	// Version is the service version reported in logs
	Version = "1.0.0"
)
