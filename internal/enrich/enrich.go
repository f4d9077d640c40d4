// Package enrich resolves the opaque content ids a flow cites into
// concrete source excerpts. Content ids are recomputed, never looked up:
// the same deterministic hash the upstream chunk producer used is applied
// to every (document key, chunk id) pair of the supplied documents, so a
// match is exact, not fuzzy.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/copperline/docflow/internal/chunks"
	"github.com/copperline/docflow/pkg/api"
	"github.com/copperline/docflow/pkg/log"
	"github.com/copperline/docflow/pkg/util"
)

// Engine enriches flow outputs with citation annotations before they are
// handed to output resolution
type Engine struct {
	chunks chunks.Client
}

const (
	keyFinalResult = "final_result"
	keyAnswers     = "answers"
	keyJustifying  = "justifying_contents_ids"
	keyCitations   = "citation_annotation_ids"
	keyAnnotations = "annotations"

	unresolvedSampleMax = 5
)

// New creates an enrichment engine backed by the given chunk client
func New(c chunks.Client) *Engine {
	return &Engine{chunks: c}
}

// Enrich resolves every content id referenced by the flow output and
// writes annotations and citation_annotation_ids back into each answer
// record in place. Outputs citing nothing pass through without any
// service call. Any content id that matches no chunk of any supplied
// document is a hard failure; there is no partial success mode
func (e *Engine) Enrich(
	ctx context.Context, outputs map[string]any, docs []api.SourceDocument,
) error {
	records := citationRecords(outputs)
	ordered := collectContentIDs(records)
	if len(ordered) == 0 {
		return nil
	}

	outstanding := util.SetOf(ordered...)
	resolved := map[string]api.Annotation{}

	for _, doc := range docs {
		if len(outstanding) == 0 {
			break
		}
		if doc.ID == "" || doc.Checksum == "" {
			slog.Debug("Skipping document without id or checksum",
				log.DocumentID(doc.ID))
			continue
		}
		chunkSet, err := e.chunks.ChunksByChecksum(ctx, doc.Checksum)
		if err != nil {
			return err
		}
		scanDocument(doc, chunkSet, outstanding, resolved)
	}

	if len(outstanding) > 0 {
		return unresolvedError(ordered, outstanding)
	}

	for _, rec := range records {
		writeBack(rec, resolved)
	}
	return nil
}

// scanDocument recomputes content ids for every chunk under every known
// encoding of the document identifier, stopping as soon as nothing is
// outstanding. Document and chunk counts can be large; the short-circuit
// matters
func scanDocument(
	doc api.SourceDocument, chunkSet []api.Chunk,
	outstanding util.Set[string], resolved map[string]api.Annotation,
) {
	keys := doc.Keys()
	for _, chunk := range chunkSet {
		if len(outstanding) == 0 {
			return
		}
		for _, key := range keys {
			id := api.ContentID(key, chunk.ID)
			if !outstanding.Has(id) {
				continue
			}
			resolved[id] = newAnnotation(doc, chunk, id)
			outstanding.Remove(id)
		}
	}
}

func newAnnotation(
	doc api.SourceDocument, chunk api.Chunk, id string,
) api.Annotation {
	var positions []api.Position
	for _, p := range chunk.Positions {
		// Only bounding boxes carry over; other position kinds are
		// omitted, not errors
		if p.Kind != api.PositionKindBBox {
			continue
		}
		positions = append(positions, api.Position{
			Page: p.Page,
			X0:   p.X0,
			Y0:   p.Y0,
			X1:   p.X1,
			Y1:   p.Y1,
		})
	}
	return api.Annotation{
		ID:           id,
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		Text:         chunk.Text,
		Positions:    positions,
	}
}

// citationRecords finds the per-answer output mappings of either
// recognized shape. Shape validation proper happens later, in resolution
func citationRecords(outputs map[string]any) []map[string]any {
	if fr, ok := outputs[keyFinalResult].(map[string]any); ok {
		return []map[string]any{fr}
	}
	switch raw := outputs[keyAnswers].(type) {
	case []map[string]any:
		return raw
	case []any:
		var records []map[string]any
		for _, el := range raw {
			if m, ok := el.(map[string]any); ok {
				records = append(records, m)
			}
		}
		return records
	}
	return nil
}

// collectContentIDs gathers the distinct content ids referenced across all
// records, preserving first-seen order
func collectContentIDs(records []map[string]any) []string {
	var ordered []string
	seen := util.Set[string]{}
	for _, rec := range records {
		for _, id := range stringSlice(rec[keyJustifying]) {
			if seen.Has(id) {
				continue
			}
			seen.Add(id)
			ordered = append(ordered, id)
		}
	}
	return ordered
}

func writeBack(rec map[string]any, resolved map[string]api.Annotation) {
	ids := stringSlice(rec[keyJustifying])
	if len(ids) == 0 {
		return
	}

	seen := util.Set[string]{}
	citations := make([]string, 0, len(ids))
	annotations := make([]api.Annotation, 0, len(ids))
	for _, id := range ids {
		if seen.Has(id) {
			continue
		}
		seen.Add(id)
		citations = append(citations, id)
		annotations = append(annotations, resolved[id])
	}

	rec[keyCitations] = citations
	rec[keyAnnotations] = annotations
}

func unresolvedError(ordered []string, outstanding util.Set[string]) error {
	sample := make([]string, 0, unresolvedSampleMax)
	for _, id := range ordered {
		if !outstanding.Has(id) || len(sample) == unresolvedSampleMax {
			continue
		}
		sample = append(sample, id)
	}
	return fmt.Errorf(
		"%w: %d content id(s) matched no chunk of any supplied document"+
			" (e.g. %s)",
		api.ErrUnresolvedCitations, len(outstanding),
		strings.Join(sample, ", "))
}

// stringSlice tolerates both decoded-JSON and native slices; non-string
// elements are left for resolution to reject with a typed error
func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		res := make([]string, 0, len(vals))
		for _, el := range vals {
			if s, ok := el.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}
	return nil
}
