package service

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	unknownMerchant = "Unknown"

	parseSystemPrompt  = "You help users record financial transactions. Answer strictly in the requested JSON format."
	adviceSystemPrompt = "You are a financial advisor who gives personal advice on optimising spending and budgets."
)

// ============================================================
// Transaction parsing
// ============================================================

func buildParsePrompt(userPrompt string, categories []domain.Category) string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}

	var sb strings.Builder
	sb.WriteString("The user entered:\n")
	fmt.Fprintf(&sb, "%q\n\n", userPrompt)
	sb.WriteString("Extract the following fields:\n")
	sb.WriteString("- amount: the amount spent (number only)\n")
	sb.WriteString("- merchant: where the money was spent (short name)\n")
	sb.WriteString("- description: what was bought (use the merchant if not stated)\n")
	fmt.Fprintf(&sb, "- category: one of [%s]\n\n", strings.Join(names, ", "))
	sb.WriteString("Reply ONLY with JSON:\n")
	sb.WriteString("{\n  \"amount\": number,\n  \"merchant\": \"string\",\n  \"description\": \"string\",\n  \"category\": \"string\"\n}\n")
	fmt.Fprintf(&sb, "If the category is unclear, use '%s'.\n", domain.FallbackCategoryName)
	return sb.String()
}

var codeFence = regexp.MustCompile("```(?:json)?")

type parseAnswer struct {
	Amount      *decimal.Decimal `json:"amount"`
	Merchant    string           `json:"merchant"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
}

// decodeParse reads the inference answer. Markdown fences around the JSON
// are tolerated; a missing or negative amount, or a category that matches
// nothing (not even the fallback), is an error.
func decodeParse(text string, categories []domain.Category, now time.Time) (*domain.ParsedTransaction, error) {
	clean := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))

	var ans parseAnswer
	if err := json.Unmarshal([]byte(clean), &ans); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	if ans.Amount == nil {
		return nil, fmt.Errorf("answer has no amount")
	}
	if ans.Amount.IsNegative() {
		return nil, fmt.Errorf("answer has negative amount %s", ans.Amount)
	}

	merchant := strings.TrimSpace(ans.Merchant)
	if merchant == "" {
		merchant = unknownMerchant
	}
	description := strings.TrimSpace(ans.Description)
	if description == "" {
		description = merchant
	}
	name := strings.TrimSpace(ans.Category)
	if name == "" {
		name = domain.FallbackCategoryName
	}

	c := findCategory(categories, name)
	if c == nil {
		c = findCategory(categories, domain.FallbackCategoryName)
	}
	if c == nil {
		return nil, fmt.Errorf("category %q not in catalog", name)
	}

	return &domain.ParsedTransaction{
		Amount:      *ans.Amount,
		Merchant:    merchant,
		Description: description,
		CategoryID:  c.ID,
		Date:        now.UTC(),
	}, nil
}

// fallbackParse builds the best-effort record used when the answer cannot
// be decoded. The category is the fallback category, else the first one.
func fallbackParse(prompt string, categories []domain.Category, now time.Time) *domain.ParsedTransaction {
	categoryID := ""
	if c := findCategory(categories, domain.FallbackCategoryName); c != nil {
		categoryID = c.ID
	} else if len(categories) > 0 {
		categoryID = categories[0].ID
	}
	return &domain.ParsedTransaction{
		Amount:      decimal.Zero,
		Merchant:    unknownMerchant,
		Description: prompt,
		CategoryID:  categoryID,
		Date:        now.UTC(),
		IsFallback:  true,
	}
}

func findCategory(categories []domain.Category, name string) *domain.Category {
	for i := range categories {
		if strings.EqualFold(categories[i].Name, name) {
			return &categories[i]
		}
	}
	return nil
}

// ============================================================
// Advice
// ============================================================

type categoryTotal struct {
	Name  string
	Spent decimal.Decimal
}

type budgetUsage struct {
	Category string
	Amount   decimal.Decimal
	Spent    decimal.Decimal
	Percent  decimal.Decimal
	Status   string
}

type spendingSummary struct {
	Categories []categoryTotal
	Budgets    []budgetUsage
	LastMonth  decimal.Decimal
	Lookback   decimal.Decimal
}

func summarize(transactions []domain.TransactionResponse, budgets []domain.BudgetResponse, now time.Time) spendingSummary {
	var s spendingSummary

	monthAgo := now.AddDate(0, -1, 0)
	byName := map[string]decimal.Decimal{}
	for _, t := range transactions {
		byName[t.Category.Name] = byName[t.Category.Name].Add(t.Amount)
		s.Lookback = s.Lookback.Add(t.Amount)
		if !t.Date.Before(monthAgo) {
			s.LastMonth = s.LastMonth.Add(t.Amount)
		}
	}
	for name, spent := range byName {
		s.Categories = append(s.Categories, categoryTotal{Name: name, Spent: spent})
	}
	sort.Slice(s.Categories, func(i, j int) bool { return s.Categories[i].Name < s.Categories[j].Name })

	for _, b := range budgets {
		pct := domain.Percent(b.CurrentSpending, b.Amount)
		s.Budgets = append(s.Budgets, budgetUsage{
			Category: b.Category.Name,
			Amount:   b.Amount,
			Spent:    b.CurrentSpending,
			Percent:  pct,
			Status:   budgetStatus(b.Amount, b.CurrentSpending, pct),
		})
	}
	return s
}

var (
	overLimit = decimal.NewFromInt(100)
	nearLimit = decimal.NewFromInt(80)
)

func budgetStatus(amount, spent, pct decimal.Decimal) string {
	switch {
	case !amount.IsPositive() && spent.IsPositive():
		return "EXCEEDED"
	case pct.GreaterThan(overLimit):
		return "EXCEEDED"
	case pct.GreaterThan(nearLimit):
		return "APPROACHING LIMIT"
	default:
		return "WITHIN LIMIT"
	}
}

func buildAdvicePrompt(s spendingSummary) string {
	var sb strings.Builder
	sb.WriteString("Analyse the following user data and give personal recommendations.\n\n")

	fmt.Fprintf(&sb, "### Spending by category over the last %d months:\n", adviceLookback)
	for _, c := range s.Categories {
		fmt.Fprintf(&sb, "- %s: %s\n", c.Name, c.Spent.StringFixed(2))
	}
	sb.WriteString("\n### Budget usage:\n")
	for _, b := range s.Budgets {
		fmt.Fprintf(&sb, "- %s: budget %s, actual %s (%s%%), status: %s\n",
			b.Category, b.Amount.StringFixed(2), b.Spent.StringFixed(2), b.Percent.StringFixed(0), b.Status)
	}
	fmt.Fprintf(&sb, "\nTotal spending over the last month: %s\n", s.LastMonth.StringFixed(2))
	fmt.Fprintf(&sb, "Total spending over %d months: %s\n\n", adviceLookback, s.Lookback.StringFixed(2))

	sb.WriteString("### Request:\n")
	sb.WriteString("1. Which categories can be cut back\n")
	sb.WriteString("2. How to tune the current budgets\n")
	sb.WriteString("3. Tips for growing savings\n")
	sb.WriteString("4. An overall view of financial health\n")
	sb.WriteString("Be specific and keep a friendly, motivating tone.\n")
	return sb.String()
}
