// Package resolver converts opaque flow outputs into the ordered,
// validated answer list the activity returns. Exactly two output shapes
// are recognized, dispatched as an explicit tagged union and decoded by a
// strict parse-then-validate pass; the resolver fails rather than guesses.
package resolver

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/copperline/docflow/pkg/api"
)

type (
	// tagged is the union of the two recognized output shapes: exactly
	// one of final (single-question) or answers (multi-question) is set
	tagged struct {
		final   *record
		answers []record
	}

	// record is one answer mapping after strict decoding
	record struct {
		id                  string
		question            string
		answer              string
		explanation         string
		validity            float64
		hasValidity         bool
		validityExplanation string
		justifying          []string
		citations           []string
		annotations         []api.Annotation
	}
)

const (
	keyFinalResult = "final_result"
	keyAnswers     = "answers"

	fieldID          = "id"
	fieldQuestion    = "question"
	fieldAnswer      = "answer"
	fieldExplanation = "answer_explanation"
	fieldJustifying  = "justifying_contents_ids"
	fieldCitations   = "citation_annotation_ids"
	fieldAnnotations = "annotations"
	fieldValidity    = "validity"
	fieldValidityExp = "validity_explanation"
)

// requiredFields are common to both shapes; the multi-question shape adds
// identity fields because each element must say which question it answers
var (
	requiredFields = []string{
		fieldAnswer, fieldExplanation, fieldJustifying,
	}
	identityFields = []string{fieldID, fieldQuestion}
)

// Resolve validates flow outputs against one of the two recognized shapes
// and converts them into answers ordered to match the original questions
func Resolve(
	outputs map[string]any, questions []api.Question,
) ([]api.Answer, error) {
	out, err := decode(outputs)
	if err != nil {
		return nil, err
	}
	if out.final != nil {
		return resolveSingle(out.final, questions)
	}
	return resolveMulti(out.answers, questions)
}

func resolveSingle(
	rec *record, questions []api.Question,
) ([]api.Answer, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf(
			"%w: %s present but no original question to bind it to",
			api.ErrSchemaViolation, keyFinalResult)
	}
	if err := checkCitationLinkage(rec, keyFinalResult); err != nil {
		return nil, err
	}

	q := questions[0]
	validity := 1.0
	if rec.hasValidity {
		validity = rec.validity
	}
	return []api.Answer{{
		ID:                   q.ID,
		Question:             q.Question,
		Answer:               rec.answer,
		SourcedContent:       sourcedContent(rec),
		ExpectedAnswer:       q.ExpectedAnswer,
		Explanation:          rec.explanation,
		Validity:             validity,
		ValidityExplanation:  rec.validityExplanation,
		JustifyingContentIDs: rec.justifying,
		CitationIDs:          rec.citations,
		Annotations:          rec.annotations,
		InputQuestionIDs:     q.InputQuestionIDs,
	}}, nil
}

func resolveMulti(
	recs []record, questions []api.Question,
) ([]api.Answer, error) {
	answers := make([]api.Answer, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		path := fmt.Sprintf("%s[%d]", keyAnswers, i)
		if err := checkCitationLinkage(rec, path); err != nil {
			return nil, err
		}

		ans := api.Answer{
			ID:                   rec.id,
			Question:             rec.question,
			Answer:               rec.answer,
			SourcedContent:       sourcedContent(rec),
			Explanation:          rec.explanation,
			Validity:             rec.validity,
			ValidityExplanation:  rec.validityExplanation,
			JustifyingContentIDs: rec.justifying,
			CitationIDs:          rec.citations,
			Annotations:          rec.annotations,
		}

		// Grading ground truth and dependency links always come from the
		// caller's question record, never from flow output
		if idx := questionIndex(rec.question, questions); idx >= 0 {
			ans.ExpectedAnswer = questions[idx].ExpectedAnswer
			ans.InputQuestionIDs = questions[idx].InputQuestionIDs
		}
		answers = append(answers, ans)
	}

	// Reorder to match the original question ordering; answers whose
	// question text has no match sort last, stable among themselves
	notFound := len(questions)
	sort.SliceStable(answers, func(i, j int) bool {
		return orderKey(answers[i].Question, questions, notFound) <
			orderKey(answers[j].Question, questions, notFound)
	})
	return answers, nil
}

// checkCitationLinkage enforces the citation-linkage invariant: claimed
// justifying content must have been resolved to concrete annotations by
// the enrichment engine before resolution runs
func checkCitationLinkage(rec *record, path string) error {
	if len(rec.justifying) > 0 && len(rec.citations) == 0 {
		return fmt.Errorf(
			"%w: %s cites %d content id(s) but none were resolved",
			api.ErrUnresolvedCitations, path, len(rec.justifying))
	}
	return nil
}

func sourcedContent(rec *record) string {
	if len(rec.citations) == 0 {
		return rec.answer
	}
	return fmt.Sprintf("[%s](cite:%s)",
		rec.answer, strings.Join(rec.citations, ","))
}

func questionIndex(text string, questions []api.Question) int {
	for i, q := range questions {
		if q.Question == text {
			return i
		}
	}
	return -1
}

func orderKey(text string, questions []api.Question, notFound int) int {
	if idx := questionIndex(text, questions); idx >= 0 {
		return idx
	}
	return notFound
}

func decode(outputs map[string]any) (*tagged, error) {
	if raw, ok := outputs[keyFinalResult]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, typeError(keyFinalResult, "object")
		}
		rec, err := decodeRecord(m, keyFinalResult, false)
		if err != nil {
			return nil, err
		}
		return &tagged{final: rec}, nil
	}

	if raw, ok := outputs[keyAnswers]; ok {
		list, ok := anySlice(raw)
		if !ok {
			return nil, typeError(keyAnswers, "array")
		}
		recs := make([]record, 0, len(list))
		for i, el := range list {
			path := fmt.Sprintf("%s[%d]", keyAnswers, i)
			m, ok := el.(map[string]any)
			if !ok {
				return nil, typeError(path, "object")
			}
			rec, err := decodeRecord(m, path, true)
			if err != nil {
				return nil, err
			}
			recs = append(recs, *rec)
		}
		return &tagged{answers: recs}, nil
	}

	return nil, fmt.Errorf("%w: top-level keys %s",
		api.ErrUnrecognizedOutput, topKeys(outputs))
}

// decodeRecord is the two-phase decode of one answer mapping: first every
// missing required field is collected and reported together, then each
// present field is type-checked
func decodeRecord(
	m map[string]any, path string, identity bool,
) (*record, error) {
	required := requiredFields
	if identity {
		required = append(
			append([]string{}, identityFields...), requiredFields...,
		)
	}

	var missing []string
	for _, field := range required {
		if _, ok := m[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s missing required fields: %s",
			api.ErrSchemaViolation, path, strings.Join(missing, ", "))
	}

	rec := &record{}
	var err error
	if identity {
		if rec.id, err = getString(m, path, fieldID); err != nil {
			return nil, err
		}
		if rec.question, err = getString(m, path, fieldQuestion); err != nil {
			return nil, err
		}
	}
	if rec.answer, err = getString(m, path, fieldAnswer); err != nil {
		return nil, err
	}
	if rec.explanation, err = getString(m, path, fieldExplanation); err != nil {
		return nil, err
	}
	if rec.justifying, err = getStrings(m, path, fieldJustifying); err != nil {
		return nil, err
	}

	if _, ok := m[fieldCitations]; ok {
		if rec.citations, err = getStrings(m, path, fieldCitations); err != nil {
			return nil, err
		}
	}
	if _, ok := m[fieldValidity]; ok {
		if rec.validity, err = getNumber(m, path, fieldValidity); err != nil {
			return nil, err
		}
		rec.hasValidity = true
	}
	if _, ok := m[fieldValidityExp]; ok {
		if rec.validityExplanation, err = getString(
			m, path, fieldValidityExp,
		); err != nil {
			return nil, err
		}
	}
	if raw, ok := m[fieldAnnotations]; ok {
		if rec.annotations, err = decodeAnnotations(raw, path); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func decodeAnnotations(raw any, path string) ([]api.Annotation, error) {
	// The enrichment engine writes typed annotations; anything else comes
	// from a flow that built its own and arrives as decoded JSON
	if anns, ok := raw.([]api.Annotation); ok {
		return anns, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, typeError(path+"."+fieldAnnotations, "array of objects")
	}
	var anns []api.Annotation
	if err := json.Unmarshal(encoded, &anns); err != nil {
		return nil, typeError(path+"."+fieldAnnotations, "array of objects")
	}
	return anns, nil
}

func getString(m map[string]any, path, field string) (string, error) {
	s, ok := m[field].(string)
	if !ok {
		return "", typeError(path+"."+field, "string")
	}
	return s, nil
}

func getStrings(m map[string]any, path, field string) ([]string, error) {
	switch vals := m[field].(type) {
	case []string:
		return vals, nil
	case []any:
		res := make([]string, 0, len(vals))
		for _, el := range vals {
			s, ok := el.(string)
			if !ok {
				return nil, typeError(path+"."+field, "list of strings")
			}
			res = append(res, s)
		}
		return res, nil
	}
	return nil, typeError(path+"."+field, "list of strings")
}

func getNumber(m map[string]any, path, field string) (float64, error) {
	switch v := m[field].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return 0, typeError(path+"."+field, "number")
}

func typeError(path, expected string) error {
	return fmt.Errorf("%w: %s: expected %s",
		api.ErrTypeViolation, path, expected)
}

func anySlice(raw any) ([]any, bool) {
	switch vals := raw.(type) {
	case []any:
		return vals, true
	case []map[string]any:
		res := make([]any, 0, len(vals))
		for _, m := range vals {
			res = append(res, m)
		}
		return res, true
	}
	return nil, false
}

func topKeys(outputs map[string]any) string {
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, strconv.Quote(k))
	}
	sort.Strings(keys)
	return "[" + strings.Join(keys, ", ") + "]"
}
