package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alfredjeanlab/chunks/internal/builder"
	"github.com/alfredjeanlab/chunks/internal/model"
)

// HTTPClient implements ChunksClient using the chunks HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Compile-time check that HTTPClient implements ChunksClient.
var _ ChunksClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Global chunks ---

func (c *HTTPClient) CreateChunk(ctx context.Context, req *CreateChunkRequest) (*model.Chunk, error) {
	var chunk model.Chunk
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chunks", req, &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (c *HTTPClient) GetChunk(ctx context.Context, id string) (*model.Chunk, error) {
	var chunk model.Chunk
	if err := c.doJSON(ctx, http.MethodGet, "/v1/chunks/"+url.PathEscape(id), nil, &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (c *HTTPClient) GetChunkByKey(ctx context.Context, key string) (*model.Chunk, error) {
	var chunk model.Chunk
	if err := c.doJSON(ctx, http.MethodGet, "/v1/chunks/key/"+url.PathEscape(key), nil, &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (c *HTTPClient) ListChunks(ctx context.Context, req *ListChunksRequest) (*ListChunksResponse, error) {
	q := url.Values{}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	setPaging(q, req.Limit, req.Offset)

	var resp ListChunksResponse
	if err := c.doJSON(ctx, http.MethodGet, withQuery("/v1/chunks", q), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) UpdateChunk(ctx context.Context, id string, req *UpdateChunkRequest) (*model.Chunk, error) {
	var chunk model.Chunk
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/chunks/"+url.PathEscape(id), req, &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (c *HTTPClient) DeleteChunk(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/chunks/"+url.PathEscape(id), nil, nil)
}

// --- Inline chunks ---

func (c *HTTPClient) CreateInlineChunk(ctx context.Context, req *CreateInlineChunkRequest) (*model.InlineChunk, error) {
	var chunk model.InlineChunk
	if err := c.doJSON(ctx, http.MethodPost, "/v1/inline-chunks", req, &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (c *HTTPClient) GetInlineChunk(ctx context.Context, id string) (*model.InlineChunk, error) {
	var chunk model.InlineChunk
	if err := c.doJSON(ctx, http.MethodGet, "/v1/inline-chunks/"+url.PathEscape(id), nil, &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (c *HTTPClient) ListInlineChunks(ctx context.Context, req *ListInlineChunksRequest) (*ListInlineChunksResponse, error) {
	q := url.Values{}
	if req.OwnerType != "" {
		q.Set("owner_type", req.OwnerType)
	}
	if req.OwnerID != "" {
		q.Set("owner_id", req.OwnerID)
	}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	setPaging(q, req.Limit, req.Offset)

	var resp ListInlineChunksResponse
	if err := c.doJSON(ctx, http.MethodGet, withQuery("/v1/inline-chunks", q), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) UpdateInlineChunk(ctx context.Context, id string, req *UpdateInlineChunkRequest) (*model.InlineChunk, error) {
	var chunk model.InlineChunk
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/inline-chunks/"+url.PathEscape(id), req, &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (c *HTTPClient) DeleteInlineChunk(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/inline-chunks/"+url.PathEscape(id), nil, nil)
}

// --- Rendering ---

func (c *HTTPClient) Render(ctx context.Context, key string) (string, error) {
	var resp struct {
		Content string `json:"content"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/render/"+url.PathEscape(key), nil, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *HTTPClient) RenderScoped(ctx context.Context, owner model.OwnerRef, key, defaultKey string) (string, error) {
	q := url.Values{}
	if defaultKey != "" {
		q.Set("default", defaultKey)
	}
	var resp struct {
		Content string `json:"content"`
	}
	path := withQuery(ownerPath(owner)+"/render/"+url.PathEscape(key), q)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *HTTPClient) RenderOwner(ctx context.Context, owner model.OwnerRef) (map[string]string, error) {
	var resp struct {
		Chunks map[string]string `json:"chunks"`
	}
	if err := c.doJSON(ctx, http.MethodGet, ownerPath(owner)+"/render", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Chunks == nil {
		resp.Chunks = map[string]string{}
	}
	return resp.Chunks, nil
}

// --- Builders ---

func (c *HTTPClient) ListBuilders(ctx context.Context) ([]builder.Choice, error) {
	var resp struct {
		Builders []builder.Choice `json:"builders"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/builders", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Builders, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func ownerPath(owner model.OwnerRef) string {
	return "/v1/owners/" + url.PathEscape(owner.Type) + "/" + url.PathEscape(owner.ID)
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func setPaging(q url.Values, limit, offset int) {
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", offset))
	}
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
