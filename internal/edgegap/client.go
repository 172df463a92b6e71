// internal/edgegap/client.go

// Package edgegap talks to the fleet-provisioning provider that runs one
// dedicated game-server instance per room. This service owns the decision to
// create, poll and delete deployments; the provider owns their lifecycle.
package edgegap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the provider's public API endpoint.
const DefaultBaseURL = "https://api.edgegap.com/v1"

// Client is the deployment contract the lobby service consumes.
type Client interface {
	CreateDeployment(ctx context.Context, req *CreateDeploymentRequest) (*CreateDeploymentResponse, error)
	GetDeploymentStatus(ctx context.Context, requestID string) (*DeploymentStatus, error)
	// DeleteDeployment is safe to call more than once; deleting an
	// already-deleted deployment is not an error.
	DeleteDeployment(ctx context.Context, requestID string) (*DeleteDeploymentResponse, error)
}

// APIError is a call the provider received and rejected, as opposed to a
// transport failure reaching it.
type APIError struct {
	StatusCode int
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("edgegap api error (%d): %s", e.StatusCode, e.Message)
}

// HTTPClient is the live implementation of Client.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logrus.Logger
}

// NewHTTPClient builds a provider client. baseURL falls back to
// DefaultBaseURL when empty.
func NewHTTPClient(baseURL, apiKey string, logger *logrus.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// CreateDeployment requests a new game-server instance.
func (c *HTTPClient) CreateDeployment(ctx context.Context, req *CreateDeploymentRequest) (*CreateDeploymentResponse, error) {
	var resp CreateDeploymentResponse
	if err := c.do(ctx, http.MethodPost, "/deploy", req, &resp); err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"request_id": resp.RequestID,
		"app":        resp.RequestApp,
		"version":    resp.RequestVersion,
	}).Debug("deployment requested")
	return &resp, nil
}

// GetDeploymentStatus fetches a deployment's current lifecycle state.
func (c *HTTPClient) GetDeploymentStatus(ctx context.Context, requestID string) (*DeploymentStatus, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request id is required")
	}
	var resp DeploymentStatus
	if err := c.do(ctx, http.MethodGet, "/status/"+requestID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteDeployment tears a deployment down. A 404 from the provider means
// the deployment is already gone, which callers treat as success.
func (c *HTTPClient) DeleteDeployment(ctx context.Context, requestID string) (*DeleteDeploymentResponse, error) {
	if requestID == "" {
		return nil, fmt.Errorf("request id is required")
	}
	var resp DeleteDeploymentResponse
	err := c.do(ctx, http.MethodDelete, "/stop/"+requestID, nil, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return &DeleteDeploymentResponse{Message: "deployment already removed"}, nil
		}
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("edgegap request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		// best effort: the provider usually returns {"message": ..., "errors": ...}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
