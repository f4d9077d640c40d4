package api

type (
	// Question is a caller-supplied question record. ExpectedAnswer is
	// grading ground truth and is never overwritten by flow output
	Question struct {
		ID               string   `json:"id"`
		Question         string   `json:"question"`
		AnswerType       string   `json:"answerType,omitempty"`
		Guidelines       string   `json:"guidelines,omitempty"`
		ExpectedAnswer   string   `json:"expectedAnswer,omitempty"`
		InputQuestionIDs []string `json:"inputQuestionIds,omitempty"`
	}

	// Answer is one resolved, citation-enriched answer bound to an
	// original question
	Answer struct {
		ID                   string       `json:"id"`
		Question             string       `json:"question"`
		Answer               string       `json:"answer"`
		SourcedContent       string       `json:"sourcedContent"`
		ExpectedAnswer       string       `json:"expectedAnswer,omitempty"`
		Explanation          string       `json:"explanation,omitempty"`
		Validity             float64      `json:"answerValidity"`
		ValidityExplanation  string       `json:"validityExplanation,omitempty"`
		JustifyingContentIDs []string     `json:"justifyingContentIds,omitempty"`
		CitationIDs          []string     `json:"citationAnnotationIds,omitempty"`
		Annotations          []Annotation `json:"annotations,omitempty"`
		InputQuestionIDs     []string     `json:"inputQuestionIds,omitempty"`
	}

	// Annotation is a resolved citation: a concrete excerpt of a source
	// document with optional page-position geometry. Its ID is the content
	// id that referenced the excerpt
	Annotation struct {
		ID           string     `json:"id"`
		DocumentID   string     `json:"documentId"`
		DocumentName string     `json:"documentName,omitempty"`
		Text         string     `json:"text"`
		Positions    []Position `json:"positions,omitempty"`
	}

	// Position is a page number plus a bounding box in float coordinates
	Position struct {
		Page int     `json:"page"`
		X0   float64 `json:"x0"`
		Y0   float64 `json:"y0"`
		X1   float64 `json:"x1"`
		Y1   float64 `json:"y1"`
	}

	// SourceDocument identifies one caller-supplied document. Checksum
	// addresses the document's chunks in the chunk-lookup service
	SourceDocument struct {
		ID         string `json:"id"`
		Checksum   string `json:"checksum"`
		Name       string `json:"name"`
		Extension  string `json:"extension,omitempty"`
		ProviderID string `json:"providerId,omitempty"`
	}

	// Chunk is one ordered fragment of a source document as returned by
	// the chunk-lookup service
	Chunk struct {
		ID        string          `json:"id"`
		Text      string          `json:"text"`
		Positions []ChunkPosition `json:"positions,omitempty"`
	}

	// ChunkPosition is positional metadata attached to a chunk. Only the
	// bounding-box kind maps to a Position; other kinds are ignored
	ChunkPosition struct {
		Kind string  `json:"kind"`
		Page int     `json:"page"`
		X0   float64 `json:"x0"`
		Y0   float64 `json:"y0"`
		X1   float64 `json:"x1"`
		Y1   float64 `json:"y1"`
	}
)

// PositionKindBBox is the only chunk position kind carried into annotations
const PositionKindBBox = "bbox"
