package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Debit  Flow = "debit"
	Credit Flow = "credit"
)

type (
	// Flow is the direction of money movement, derived from the amount sign.
	Flow string

	// CandidateRow is a normalized transaction produced by the CSV
	// importer. It is never persisted; staging consumes it immediately.
	CandidateRow struct {
		Date        string
		Description string
		Amount      decimal.Decimal
	}

	// InboxItem is a staged transaction awaiting review. An empty
	// SuggestedCategory means no suggestion.
	InboxItem struct {
		TempID            string          `json:"tempId"`
		Date              string          `json:"date"`
		Description       string          `json:"description"`
		Amount            decimal.Decimal `json:"amount"`
		Flow              Flow            `json:"flow"`
		SuggestedCategory string          `json:"suggestedCategory,omitempty"`
	}

	// LedgerTransaction is a committed, append-only ledger row. The core
	// never mutates or deletes one.
	LedgerTransaction struct {
		ID          int64           `json:"id"`
		Date        string          `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Flow        Flow            `json:"flow"`
		Category    string          `json:"category,omitempty"`
	}

	Budget struct {
		Category string          `json:"category"`
		Cap      decimal.Decimal `json:"cap"`
	}

	AppSettings struct {
		Theme    string `json:"theme"`
		Accounts string `json:"accounts,omitempty"`
	}

	SetCategoryResult struct {
		Applied bool `json:"applied"`
	}
)

var (
	ErrEmptyCategory = errors.New("empty category")
	ErrNegativeCap   = errors.New("budget cap must not be negative")
)

// FlowFromAmount derives the flow: Debit iff the amount is negative.
func FlowFromAmount(amount decimal.Decimal) Flow {
	if amount.IsNegative() {
		return Debit
	}
	return Credit
}

// ParseFlow maps a stored flow string back to a Flow, defaulting to Debit.
func ParseFlow(s string) Flow {
	if s == string(Credit) {
		return Credit
	}
	return Debit
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Cap.IsNegative() {
		return ErrNegativeCap
	}
	return nil
}
