package classify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrModelUnavailable indicates the model sidecar could not produce a verdict.
var ErrModelUnavailable = errors.New("model classifier unavailable")

const defaultModelTimeout = 10 * time.Second

// ModelVerdict is the output of the trained binary classifier.
type ModelVerdict struct {
	Decision   bool
	Confidence float64
}

// Model is a locally provisioned trained classifier.
type Model interface {
	Infer(ctx context.Context, title, summary string) (ModelVerdict, error)
}

// ModelClient talks to a model-serving sidecar over HTTP.
type ModelClient struct {
	baseURL    string
	httpClient *http.Client
}

type modelRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type modelResponse struct {
	Relevant   bool    `json:"relevant"`
	Confidence float64 `json:"confidence"`
}

func NewModelClient(baseURL string, timeout time.Duration) *ModelClient {
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	return &ModelClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *ModelClient) Infer(ctx context.Context, title, summary string) (ModelVerdict, error) {
	body, err := json.Marshal(modelRequest{Title: title, Body: summary})
	if err != nil {
		return ModelVerdict{}, fmt.Errorf("failed to marshal model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return ModelVerdict{}, fmt.Errorf("failed to create model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ModelVerdict{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ModelVerdict{}, fmt.Errorf("%w: model service returned %d", ErrModelUnavailable, resp.StatusCode)
	}

	var result modelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ModelVerdict{}, fmt.Errorf("%w: failed to decode response: %w", ErrModelUnavailable, err)
	}

	if result.Confidence < 0 || result.Confidence > 1 {
		return ModelVerdict{}, fmt.Errorf("%w: confidence %v out of range", ErrModelUnavailable, result.Confidence)
	}

	return ModelVerdict{Decision: result.Relevant, Confidence: result.Confidence}, nil
}

// Health checks that the sidecar is reachable.
func (c *ModelClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unhealthy status %d", ErrModelUnavailable, resp.StatusCode)
	}
	return nil
}
