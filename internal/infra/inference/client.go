// Package inference calls the hosted text-completion endpoint used by the
// transaction parser and the advice generator.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/infra/observability"
	"github.com/yosef2222/FinanceTracker/internal/infra/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("inference")

const serviceName = "inference"

// DefaultURL is the foundation-models completion endpoint.
const DefaultURL = "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"

// Options configures a Client.
type Options struct {
	URL      string
	FolderID string
	Token    string
	Model    string
}

// Client posts completion requests. Calls go through a resilience.Guard
// so retries, the breaker and the concurrency cap apply to every caller.
type Client struct {
	httpClient *http.Client
	opts       Options
	guard      *resilience.Guard
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a new Client.
func NewClient(httpClient *http.Client, opts Options, guard *resilience.Guard, metrics *observability.Metrics, logger *zap.Logger) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	return &Client{
		httpClient: httpClient,
		opts:       opts,
		guard:      guard,
		metrics:    metrics,
		logger:     logger,
	}
}

type completionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type completionRequest struct {
	ModelURI          string            `json:"modelUri"`
	CompletionOptions completionOptions `json:"completionOptions"`
	Messages          []domain.Message  `json:"messages"`
}

type completionResponse struct {
	Result struct {
		Alternatives []struct {
			Message domain.Message `json:"message"`
			Status  string         `json:"status"`
		} `json:"alternatives"`
	} `json:"result"`
}

// ModelURI returns gpt://{folder}/{model}/latest.
func (c *Client) ModelURI() string {
	return fmt.Sprintf("gpt://%s/%s/latest", c.opts.FolderID, c.opts.Model)
}

// Complete sends req and returns the first alternative's text. Every
// failure is reported as *domain.ErrExternalService.
func (c *Client) Complete(ctx context.Context, req *domain.CompletionRequest) (string, error) {
	ctx, span := tracer.Start(ctx, "Client.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("inference.temperature", req.Temperature),
		attribute.Int("inference.max_tokens", req.MaxTokens),
	)

	body, err := json.Marshal(completionRequest{
		ModelURI: c.ModelURI(),
		CompletionOptions: completionOptions{
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		},
		Messages: req.Messages,
	})
	if err != nil {
		return "", &domain.ErrExternalService{Service: serviceName, Err: err}
	}

	start := time.Now()
	var text string
	err = c.guard.Do(ctx, func(ctx context.Context) error {
		var callErr error
		text, callErr = c.post(ctx, body)
		return callErr
	})
	c.metrics.RecordRequestDuration("inference_complete", time.Since(start))

	if err != nil {
		span.RecordError(err)
		c.metrics.IncrExternalError(serviceName)
		c.logger.Warn("inference call failed", zap.Error(err))
		return "", &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(body))
	if err != nil {
		return "", resilience.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.Token)
	httpReq.Header.Set("x-folder-id", c.opts.FolderID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("inference API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
		// 4xx other than throttling will not succeed on retry.
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", resilience.Permanent(statusErr)
		}
		return "", statusErr
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", resilience.Permanent(fmt.Errorf("decode inference response: %w", err))
	}
	if len(out.Result.Alternatives) == 0 {
		return "", resilience.Permanent(errors.New("inference response has no alternatives"))
	}
	return out.Result.Alternatives[0].Message.Text, nil
}
