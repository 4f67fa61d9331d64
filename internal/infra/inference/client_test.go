package inference_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/infra/inference"
	"github.com/yosef2222/FinanceTracker/internal/infra/observability"
	"github.com/yosef2222/FinanceTracker/internal/infra/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClient(t *testing.T, url string, retries int) *inference.Client {
	t.Helper()
	guard := resilience.NewGuard("inference-test", resilience.Config{
		MaxRetries:     retries,
		InitialBackoff: time.Millisecond,
		MaxConcurrency: 2,
	})
	return inference.NewClient(&http.Client{Timeout: 2 * time.Second}, inference.Options{
		URL:      url,
		FolderID: "folder-1",
		Token:    "secret",
		Model:    "yandexgpt-lite",
	}, guard, observability.NewMetrics(), zap.NewNop())
}

func TestComplete_SendsRequestAndReturnsFirstAlternative(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "folder-1", r.Header.Get("x-folder-id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"alternatives":[
			{"message":{"role":"assistant","text":"first"},"status":"ALTERNATIVE_STATUS_FINAL"},
			{"message":{"role":"assistant","text":"second"}}]}}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 0)
	text, err := c.Complete(context.Background(), &domain.CompletionRequest{
		Temperature: 0.3,
		MaxTokens:   1000,
		Messages: []domain.Message{
			{Role: "system", Text: "sys"},
			{Role: "user", Text: "coffee 4.50"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "first", text)
	assert.Equal(t, "gpt://folder-1/yandexgpt-lite/latest", got["modelUri"])

	opts := got["completionOptions"].(map[string]any)
	assert.Equal(t, false, opts["stream"])
	assert.InDelta(t, 0.3, opts["temperature"], 1e-9)
	assert.InDelta(t, 1000, opts["maxTokens"], 1e-9)

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "coffee 4.50", msgs[1].(map[string]any)["text"])
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"alternatives":[{"message":{"role":"assistant","text":"ok"}}]}}`))
	}))
	defer srv.Close()

	text, err := newClient(t, srv.URL, 3).Complete(context.Background(), &domain.CompletionRequest{})

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, 3).Complete(context.Background(), &domain.CompletionRequest{})

	var extErr *domain.ErrExternalService
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "inference", extErr.Service)
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_EmptyAlternatives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":{"alternatives":[]}}`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, 0).Complete(context.Background(), &domain.CompletionRequest{})

	var extErr *domain.ErrExternalService
	assert.ErrorAs(t, err, &extErr)
}
