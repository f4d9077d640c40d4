// Package inputs maps caller-supplied documents and questions into the
// named inputs a flow definition expects. Two calling conventions are
// supported and must both keep working: the single-document-set convention
// used by the earliest flows, and the dual-document-set convention every
// current flow is written against.
package inputs

import (
	"encoding/json"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/copperline/docflow/pkg/api"
	"github.com/copperline/docflow/pkg/log"
)

// BuildSingleSourceInputs builds flow inputs under the single-document-set
// convention: file_ids, query (first question's text), previous_answers,
// plus legacy files/questions mirrors kept for backwards compatibility.
// Extra params merge last and may override any computed key; that is
// intentional, callers can force flow behavior via inline parameters
func BuildSingleSourceInputs(
	files []api.SourceDocument, questions []api.Question,
	extra map[string]any,
) map[string]any {
	in := map[string]any{
		"file_ids":         documentIDs(files),
		"query":            firstQuestionText(questions),
		"previous_answers": previousAnswers(questions),
		"files":            DocumentMaps(files),
		"questions":        QuestionMaps(questions),
	}
	mergeExtra(in, extra)
	return in
}

// BuildDualSourceInputs builds flow inputs under the dual-document-set
// convention: first_source_file_ids, second_source_file_ids, query,
// questions, previous_answers. Flows must use these standard input names
func BuildDualSourceInputs(
	first, second []api.SourceDocument, questions []api.Question,
	extra map[string]any,
) map[string]any {
	in := map[string]any{
		"first_source_file_ids":  documentIDs(first),
		"second_source_file_ids": documentIDs(second),
		"query":                  firstQuestionText(questions),
		"questions":              QuestionMaps(questions),
		"previous_answers":       previousAnswers(questions),
	}
	mergeExtra(in, extra)
	return in
}

// ClassifyAdditional inspects the free-form additional-inputs blob. A blob
// that parses as JSON and carries both a flow_id and a steps key is a
// complete ad hoc flow definition and takes precedence over any named
// flow; any other valid JSON object contributes its keys as additional
// flow parameters. Invalid JSON is logged and ignored, matching the
// established caller contract
func ClassifyAdditional(blob string) (isFlow bool, params map[string]any) {
	if blob == "" {
		return false, nil
	}
	if !gjson.Valid(blob) {
		slog.Warn("Ignoring additional inputs that are not valid JSON")
		return false, nil
	}
	if gjson.Get(blob, "flow_id").Exists() &&
		gjson.Get(blob, "steps").Exists() {
		return true, nil
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(blob), &parsed); err != nil {
		slog.Warn("Ignoring non-object additional inputs", log.Error(err))
		return false, nil
	}
	return false, parsed
}

// DocumentMaps serializes source documents for flow consumption
func DocumentMaps(docs []api.SourceDocument) []any {
	res := make([]any, 0, len(docs))
	for _, d := range docs {
		res = append(res, map[string]any{
			"id":         d.ID,
			"name":       d.Name,
			"checksum":   d.Checksum,
			"extension":  d.Extension,
			"providerId": d.ProviderID,
		})
	}
	return res
}

// QuestionMaps serializes question records for flow consumption
func QuestionMaps(questions []api.Question) []any {
	res := make([]any, 0, len(questions))
	for _, q := range questions {
		res = append(res, map[string]any{
			"id":               q.ID,
			"question":         q.Question,
			"answerType":       q.AnswerType,
			"guidelines":       q.Guidelines,
			"expectedAnswer":   q.ExpectedAnswer,
			"inputQuestionIds": stringsToAny(q.InputQuestionIDs),
		})
	}
	return res
}

func documentIDs(docs []api.SourceDocument) []any {
	ids := make([]any, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids
}

func firstQuestionText(questions []api.Question) string {
	if len(questions) == 0 {
		return ""
	}
	return questions[0].Question
}

// previousAnswers resolution from question dependency chains is not
// implemented; the flow receives an explicit empty sequence rather than
// fabricated values.
// TODO: resolve answers for questions[i].InputQuestionIDs once the job
// system exposes prior answers to this activity
func previousAnswers([]api.Question) []any {
	return []any{}
}

func mergeExtra(in, extra map[string]any) {
	for k, v := range extra {
		in[k] = v
	}
}

func stringsToAny(vals []string) []any {
	res := make([]any, 0, len(vals))
	for _, v := range vals {
		res = append(res, v)
	}
	return res
}
