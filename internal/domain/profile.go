package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// User financial profile
// ============================================================

// Profile is the user's mutable financial profile.
type Profile struct {
	UserID              string          `json:"userId"`
	FullName            string          `json:"fullName"`
	Email               string          `json:"email"`
	BirthDate           *time.Time      `json:"birthDate,omitempty"`
	Salary              decimal.Decimal `json:"salary"`
	Cushion             decimal.Decimal `json:"cushion"`
	FinancialGoal       string          `json:"financialGoal"`
	FinancialGoalAmount decimal.Decimal `json:"financialGoalAmount"`
	FinancialGoalMonths int             `json:"financialGoalMonths"`
	FinancialStrategy   string          `json:"financialStrategy"`
}

// ProfileUpdate is the body for PUT /v1/profile. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName            *string          `json:"fullName,omitempty"`
	BirthDate           *time.Time       `json:"birthDate,omitempty"`
	Salary              *decimal.Decimal `json:"salary,omitempty"`
	Cushion             *decimal.Decimal `json:"cushion,omitempty"`
	FinancialGoal       *string          `json:"financialGoal,omitempty"`
	FinancialGoalAmount *decimal.Decimal `json:"financialGoalAmount,omitempty"`
	FinancialGoalMonths *int             `json:"financialGoalMonths,omitempty"`
	FinancialStrategy   *string          `json:"financialStrategy,omitempty"`
}

// Apply copies the set fields of u onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.BirthDate != nil {
		d := Day(*u.BirthDate)
		p.BirthDate = &d
	}
	if u.Salary != nil {
		p.Salary = *u.Salary
	}
	if u.Cushion != nil {
		p.Cushion = *u.Cushion
	}
	if u.FinancialGoal != nil {
		p.FinancialGoal = *u.FinancialGoal
	}
	if u.FinancialGoalAmount != nil {
		p.FinancialGoalAmount = *u.FinancialGoalAmount
	}
	if u.FinancialGoalMonths != nil {
		p.FinancialGoalMonths = *u.FinancialGoalMonths
	}
	if u.FinancialStrategy != nil {
		p.FinancialStrategy = *u.FinancialStrategy
	}
}
