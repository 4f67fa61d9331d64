package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/infra/observability"
	"github.com/yosef2222/FinanceTracker/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var assistTracer = otel.Tracer("service/assistant")

const (
	parseTemperature  = 0.3
	parseMaxTokens    = 1000
	adviceTemperature = 0.6
	adviceMaxTokens   = 2000
	maxPromptLength   = 500
	adviceLookback    = 3 // months

	// GenericAdvice is returned when no personalised advice can be produced.
	GenericAdvice = "Personalised advice is unavailable right now. General advice: review your spending regularly and adjust your budgets to match it."
)

// LedgerReader is the read side the assistant summarises. LedgerService
// satisfies it.
type LedgerReader interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.TransactionResponse, error)
	ListBudgets(ctx context.Context, userID string) ([]domain.BudgetResponse, error)
}

// Assistant wraps the external text-inference endpoint: it parses free-text
// expenses and generates monthly advice.
type Assistant struct {
	ledger    LedgerReader
	inference port.TextInference
	cache     port.Cache[domain.Advice]
	adviceTTL time.Duration
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewAssistant creates the assistant service with all dependencies injected.
func NewAssistant(
	ledger LedgerReader,
	inference port.TextInference,
	cache port.Cache[domain.Advice],
	adviceTTL time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Assistant {
	return &Assistant{
		ledger:    ledger,
		inference: inference,
		cache:     cache,
		adviceTTL: adviceTTL,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// ============================================================
// Parse - POST /v1/transactions/parse
// ============================================================

// ParseTransaction reads a free-text expense. Inference failures never
// surface as errors: the caller gets a fallback record with IsFallback set.
// Only an invalid prompt or an unreadable catalog fail the call.
func (a *Assistant) ParseTransaction(ctx context.Context, prompt string) (*domain.ParsedTransaction, error) {
	ctx, span := assistTracer.Start(ctx, "Assistant.ParseTransaction")
	defer span.End()

	if prompt == "" {
		return nil, &domain.ErrValidation{Field: "prompt", Message: "prompt is required"}
	}
	if len([]rune(prompt)) > maxPromptLength {
		return nil, &domain.ErrValidation{Field: "prompt", Message: fmt.Sprintf("prompt must be at most %d characters", maxPromptLength)}
	}

	categories, err := a.ledger.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("categories fetch: %w", err)
	}

	start := time.Now()
	text, err := a.inference.Complete(ctx, &domain.CompletionRequest{
		Temperature: parseTemperature,
		MaxTokens:   parseMaxTokens,
		Messages: []domain.Message{
			{Role: "system", Text: parseSystemPrompt},
			{Role: "user", Text: buildParsePrompt(prompt, categories)},
		},
	})
	a.metrics.RecordRequestDuration("inference_parse", time.Since(start))

	if err != nil {
		a.logger.Warn("parse: inference call failed, using fallback", zap.Error(err))
		a.metrics.IncrParse("fallback")
		return fallbackParse(prompt, categories, a.now()), nil
	}

	parsed, err := decodeParse(text, categories, a.now())
	if err != nil {
		a.logger.Warn("parse: undecodable inference answer, using fallback", zap.Error(err))
		a.metrics.IncrParse("fallback")
		return fallbackParse(prompt, categories, a.now()), nil
	}

	a.metrics.IncrParse("parsed")
	span.SetAttributes(attribute.String("category.id", parsed.CategoryID))
	return parsed, nil
}

// ============================================================
// Advice - GET /v1/advice
// ============================================================

// GenerateAdvice returns this month's advice for the user, served from the
// cache when present. Generic advice is returned, uncached, when the ledger
// or the inference endpoint fails.
func (a *Assistant) GenerateAdvice(ctx context.Context, userID string) (*domain.Advice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := assistTracer.Start(ctx, "Assistant.GenerateAdvice")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	start := time.Now()
	defer func() {
		a.metrics.RecordRequestDuration("advice", time.Since(start))
	}()

	now := a.now().UTC()
	cacheKey := AdviceCacheKey(userID, now)
	if cached, ok := a.cache.Get(ctx, cacheKey); ok {
		a.metrics.IncrCacheHit("advice")
		return &cached, nil
	}
	a.metrics.IncrCacheMiss("advice")

	text, err := a.personalAdvice(ctx, userID, now)
	if err != nil {
		a.logger.Warn("advice: falling back to generic advice",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return &domain.Advice{Text: GenericAdvice, GeneratedAt: now}, nil
	}

	advice := domain.Advice{Text: text, GeneratedAt: now}
	a.cache.Set(ctx, cacheKey, advice, a.adviceTTL)
	return &advice, nil
}

// AdviceCacheKey scopes cached advice to a user and calendar month.
func AdviceCacheKey(userID string, at time.Time) string {
	return fmt.Sprintf("advice:%s:%s", userID, at.UTC().Format("2006-01"))
}

func (a *Assistant) personalAdvice(ctx context.Context, userID string, now time.Time) (string, error) {
	var (
		transactions []domain.TransactionResponse
		budgets      []domain.BudgetResponse
	)

	from := now.AddDate(0, -adviceLookback, 0)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := a.ledger.ListTransactions(gCtx, userID, domain.TransactionFilter{From: &from, To: &now})
		if err != nil {
			return fmt.Errorf("transactions fetch: %w", err)
		}
		transactions = t
		return nil
	})

	g.Go(func() error {
		b, err := a.ledger.ListBudgets(gCtx, userID)
		if err != nil {
			return fmt.Errorf("budgets fetch: %w", err)
		}
		budgets = b
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}

	summary := summarize(transactions, budgets, now)
	text, err := a.inference.Complete(ctx, &domain.CompletionRequest{
		Temperature: adviceTemperature,
		MaxTokens:   adviceMaxTokens,
		Messages: []domain.Message{
			{Role: "system", Text: adviceSystemPrompt},
			{Role: "user", Text: buildAdvicePrompt(summary)},
		},
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("empty advice text")
	}
	return text, nil
}
