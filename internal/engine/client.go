// Package engine provides the Workers AI generation client. It is a thin
// collaborator: it sends role-tagged messages with decoding parameters and
// hands back whatever value the API produced without shaping it; payload
// recovery belongs to the planner.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/planner"
)

const defaultBaseURL = "https://api.cloudflare.com/client/v4"

// Config holds Workers AI client settings.
type Config struct {
	AccountID string
	APIToken  string
	Model     string
	BaseURL   string // override for tests; empty means the public API
}

// Client calls the Workers AI run endpoint.
type Client struct {
	accountID  string
	apiToken   string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Workers AI client. Request deadlines come from the
// caller's context; the underlying transport carries a generous upper bound
// so an abandoned request cannot hold a connection forever.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		accountID:  cfg.AccountID,
		apiToken:   cfg.APIToken,
		model:      cfg.Model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// runRequest is the Workers AI run payload.
type runRequest struct {
	Messages    []planner.Message `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
}

// runEnvelope is the Workers AI response wrapper. Result is deliberately
// untyped: depending on the model it may be a string, an object with a
// "response" text field, or an object with nested structured output.
type runEnvelope struct {
	Result  any        `json:"result"`
	Success bool       `json:"success"`
	Errors  []apiError `json:"errors"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Generate posts the message list to the model run endpoint and returns the
// decoded result value untouched.
func (c *Client) Generate(ctx context.Context, messages []planner.Message, params planner.GenParams) (any, error) {
	body, err := json.Marshal(runRequest{
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal run request: %w", err)
	}

	url := fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.baseURL, c.accountID, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send run request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close run response body", "error", closeErr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read run response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("workers ai returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var envelope runEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// Some gateways proxy the model output without the envelope;
		// surface the raw text and let the planner sort out its shape.
		return string(raw), nil
	}
	if !envelope.Success {
		return nil, fmt.Errorf("workers ai run failed: %s", joinAPIErrors(envelope.Errors))
	}

	return envelope.Result, nil
}

func joinAPIErrors(errs []apiError) string {
	if len(errs) == 0 {
		return "unknown error"
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%d: %s", e.Code, e.Message))
	}
	return strings.Join(parts, "; ")
}
