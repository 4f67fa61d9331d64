package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Text inference
// ============================================================

// Message is one turn of a completion request.
type Message struct {
	Role string `json:"role"` // system, user, assistant
	Text string `json:"text"`
}

// CompletionRequest is what the services send to the inference endpoint.
type CompletionRequest struct {
	Temperature float64
	MaxTokens   int
	Messages    []Message
}

// ============================================================
// Transaction parsing & advice
// ============================================================

// ParseRequest is the body for POST /v1/transactions/parse.
type ParseRequest struct {
	Prompt string `json:"prompt"`
}

// ParsedTransaction is the best-effort reading of a free-text expense.
// IsFallback marks records built without a decodable inference answer.
type ParsedTransaction struct {
	Amount      decimal.Decimal `json:"amount"`
	Merchant    string          `json:"merchant"`
	Description string          `json:"description"`
	CategoryID  string          `json:"categoryId"`
	Date        time.Time       `json:"date"`
	IsFallback  bool            `json:"isFallback"`
}

// Advice is returned by GET /v1/advice.
type Advice struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generatedAt"`
}
