package core

import "github.com/shopspring/decimal"

// CategoryAmount is an outflow total aggregated by category name.
type CategoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// BudgetUsage joins a configured budget against a month's spend.
type BudgetUsage struct {
	Category string          `json:"category"`
	Cap      decimal.Decimal `json:"cap"`
	Spent    decimal.Decimal `json:"spent"`
}

// SummaryResponse is the monthly read model for a yyyy-mm month.
type SummaryResponse struct {
	Month      string           `json:"month"`
	TotalSpend decimal.Decimal  `json:"totalSpend"`
	ByCategory []CategoryAmount `json:"byCategory"`
	Budgets    []BudgetUsage    `json:"budgets"`
}

// NetWorthPoint is one month on the trailing net-worth curve. Cash,
// invested and debt are fixed-ratio decompositions of the cumulative
// value, an approximation of trend shape rather than real account data.
type NetWorthPoint struct {
	Date     string          `json:"date"`
	NetWorth decimal.Decimal `json:"netWorth"`
	Cash     decimal.Decimal `json:"cash"`
	Invested decimal.Decimal `json:"invested"`
	Debt     decimal.Decimal `json:"debt"`
}
