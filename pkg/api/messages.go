package api

type (
	// FlowsListResponse contains the discoverable flow definitions
	FlowsListResponse struct {
		Flows []string `json:"flows"`
		Count int      `json:"count"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}
)
