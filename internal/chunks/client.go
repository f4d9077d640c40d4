// Package chunks talks to the external chunk-lookup service that holds the
// ordered fragments of every ingested source document, addressed by the
// document's content checksum.
package chunks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/copperline/docflow/pkg/api"
)

type (
	// Client fetches the full ordered chunk set of a document
	Client interface {
		ChunksByChecksum(
			ctx context.Context, checksum string,
		) ([]api.Chunk, error)
	}

	// HTTPClient is the production chunk service client
	HTTPClient struct {
		httpClient *http.Client
		baseURL    string
	}

	chunksResponse struct {
		Chunks []api.Chunk `json:"chunks"`
	}
)

var (
	ErrHTTPError       = errors.New("chunk service returned HTTP error")
	ErrDocumentUnknown = errors.New("chunk service has no such document")
	ErrBaseURLEmpty    = errors.New("chunk service base URL empty")
)

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a chunk service client. The timeout bounds each
// fetch so a dead service cannot hang an invocation forever
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, ErrBaseURLEmpty
	}
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}, nil
}

// ChunksByChecksum fetches every chunk of the document whose content
// checksum is the given value. A connection-level failure maps to
// ErrDependencyUnavailable; retry belongs to the surrounding job system
func (c *HTTPClient) ChunksByChecksum(
	ctx context.Context, checksum string,
) ([]api.Chunk, error) {
	endpoint := fmt.Sprintf("%s/documents/%s/chunks",
		c.baseURL, url.PathEscape(checksum))

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, endpoint, nil,
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	dur := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("Chunk service request failed",
			slog.String("checksum", checksum),
			slog.Duration("duration", dur),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: chunk service: %v",
			api.ErrDependencyUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: checksum %s",
			ErrDocumentUnknown, checksum)
	case resp.StatusCode != http.StatusOK:
		slog.Error("Chunk service HTTP error",
			slog.String("checksum", checksum),
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(body)))
		return nil, fmt.Errorf("%w: HTTP %d", ErrHTTPError, resp.StatusCode)
	}

	var response chunksResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("chunk service response: %w", err)
	}
	return response.Chunks, nil
}
