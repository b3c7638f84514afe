package codeassist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	apperrors "geminicli2api/internal/errors"
)

// API action paths under {endpoint}/v1internal.
const (
	actionLoadCodeAssist        = "loadCodeAssist"
	actionOnboardUser           = "onboardUser"
	actionGenerateContent       = "generateContent"
	actionStreamGenerateContent = "streamGenerateContent"
)

// Client talks to the Google Code Assist API on behalf of one request. It is
// stateless; the caller supplies the bearer token per call so the same
// client serves every credential in the pool.
type Client struct {
	endpoint string
	cli      *http.Client
}

func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			// No overall timeout: streaming responses stay open as long as
			// generation runs. Cancellation flows through the context.
			Timeout: 0,
		}
	}
	return &Client{endpoint: endpoint, cli: httpClient}
}

func (c *Client) actionURL(action string) string {
	return c.endpoint + "/v1internal:" + action
}

func (c *Client) newRequest(ctx context.Context, url string, body []byte, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent())
	return req, nil
}

// LoadCodeAssist probes the account's Code Assist state: current tier,
// allowed tiers, and any server-assigned companion project. projectID may be
// empty for pure discovery probes.
func (c *Client) LoadCodeAssist(ctx context.Context, token, projectID string) (gjson.Result, error) {
	payload := map[string]interface{}{
		"metadata": clientMetadata(projectID),
	}
	if projectID != "" {
		payload["cloudaicompanionProject"] = projectID
	}
	return c.postAction(ctx, actionLoadCodeAssist, payload, token)
}

// OnboardUser starts (or polls) the onboarding long-running operation for
// the given tier and project.
func (c *Client) OnboardUser(ctx context.Context, token, tierID, projectID string) (gjson.Result, error) {
	payload := map[string]interface{}{
		"tierId":   tierID,
		"metadata": clientMetadata(projectID),
	}
	if projectID != "" {
		payload["cloudaicompanionProject"] = projectID
	}
	return c.postAction(ctx, actionOnboardUser, payload, token)
}

func (c *Client) postAction(ctx context.Context, action string, payload map[string]interface{}, token string) (gjson.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("marshal %s payload: %w", action, err)
	}
	req, err := c.newRequest(ctx, c.actionURL(action), body, token)
	if err != nil {
		return gjson.Result{}, err
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s request: %w", action, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%s response: %w", action, err)
	}
	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, &apperrors.OnboardingError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return gjson.ParseBytes(respBody), nil
}

// wrapRequest builds the v1internal envelope around a Gemini request body
// without re-marshaling the inner request.
func wrapRequest(model, projectID string, request json.RawMessage) ([]byte, error) {
	body := []byte(`{}`)
	body, err := sjson.SetBytes(body, "model", model)
	if err != nil {
		return nil, err
	}
	body, err = sjson.SetBytes(body, "project", projectID)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(body, "request", request)
}

// Generate performs a non-streaming generation call. On a non-200 the body
// is consumed and mapped to an APIError carrying the upstream status.
func (c *Client) Generate(ctx context.Context, token, model, projectID string, request json.RawMessage) ([]byte, error) {
	body, err := wrapRequest(model, projectID, request)
	if err != nil {
		return nil, fmt.Errorf("marshal generate payload: %w", err)
	}
	req, err := c.newRequest(ctx, c.actionURL(actionGenerateContent), body, token)
	if err != nil {
		return nil, err
	}
	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.MapHTTPError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// GenerateStream opens an SSE generation stream. On success the caller owns
// resp.Body and must close it; on a non-200 the body is consumed here and
// mapped to an APIError.
func (c *Client) GenerateStream(ctx context.Context, token, model, projectID string, request json.RawMessage) (*http.Response, error) {
	body, err := wrapRequest(model, projectID, request)
	if err != nil {
		return nil, fmt.Errorf("marshal generate payload: %w", err)
	}
	req, err := c.newRequest(ctx, c.actionURL(actionStreamGenerateContent)+"?alt=sse", body, token)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stream request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, apperrors.MapHTTPError(resp.StatusCode, respBody)
	}
	return resp, nil
}
