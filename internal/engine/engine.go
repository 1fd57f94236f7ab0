// Package engine orchestrates the vault core: staging imported rows,
// applying categorization suggestions, promoting staged rows into the
// ledger, and serving the read-model aggregations. Every operation is
// dispatched through a bounded worker pool and runs to completion once
// admitted.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/avatar25/ArthaOS/internal/core"
	"github.com/avatar25/ArthaOS/internal/csvimport"
	"github.com/avatar25/ArthaOS/internal/log"
	"github.com/avatar25/ArthaOS/internal/memory"
	"github.com/avatar25/ArthaOS/internal/storage"
)

// Fixed decomposition ratios for the net-worth curve. A pinned
// heuristic approximating trend shape, not a measured allocation.
var (
	cashRatio     = decimal.RequireFromString("0.4")
	investedRatio = decimal.RequireFromString("0.55")
	debtRatio     = decimal.RequireFromString("0.2")
)

type Engine struct {
	repo   *storage.SQLiteRepository
	memory *memory.Memory
	logger *log.Logger
	sem    *semaphore.Weighted
	now    func() time.Time
}

func New(repo *storage.SQLiteRepository, mem *memory.Memory, logger *log.Logger, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		repo:   repo,
		memory: mem,
		logger: logger,
		sem:    semaphore.NewWeighted(int64(workers)),
		now:    time.Now,
	}
}

func (e *Engine) acquire(ctx context.Context) (func(), error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire worker slot: %w", err)
	}
	return func() { e.sem.Release(1) }, nil
}

// ImportCSV normalizes the raw bytes and stages every candidate row
// with a fresh tempId, derived flow, and a memory suggestion. The whole
// batch stages in one store transaction or not at all. Nothing is
// learned at import time.
func (e *Engine) ImportCSV(ctx context.Context, raw []byte) ([]core.InboxItem, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	candidates, err := csvimport.Normalize(raw)
	if err != nil {
		return nil, err
	}

	items := make([]core.InboxItem, 0, len(candidates))
	for _, row := range candidates {
		items = append(items, core.InboxItem{
			TempID:            uuid.NewString(),
			Date:              row.Date,
			Description:       row.Description,
			Amount:            row.Amount,
			Flow:              core.FlowFromAmount(row.Amount),
			SuggestedCategory: e.memory.Suggest(row.Description),
		})
	}

	if err := e.repo.UpsertInbox(ctx, items); err != nil {
		return nil, fmt.Errorf("stage import: %w", err)
	}

	e.logger.InfoContext(ctx, "Import staged",
		log.FieldOperation, log.OpStage,
		log.FieldRows, len(items))
	return items, nil
}

func (e *Engine) ListInbox(ctx context.Context) ([]core.InboxItem, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return e.repo.ListInbox(ctx)
}

// SetInboxCategory overwrites the staged category of one row. An
// unknown id is a benign no-op reported as applied=false. On success
// the chosen category is reinforced into memory immediately; a
// reinforcement failure is logged and never fails the call.
func (e *Engine) SetInboxCategory(ctx context.Context, tempID, category string) (core.SetCategoryResult, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return core.SetCategoryResult{}, err
	}
	defer release()

	applied, err := e.repo.SetInboxCategory(ctx, tempID, category)
	if err != nil {
		return core.SetCategoryResult{}, err
	}
	if !applied {
		return core.SetCategoryResult{Applied: false}, nil
	}

	if description, err := e.repo.InboxDescription(ctx, tempID); err == nil {
		if err := e.memory.Learn(ctx, description, category); err != nil {
			e.logger.WarnContext(ctx, "Failed to reinforce categorization memory",
				log.FieldTempID, tempID, log.FieldError, err)
		}
	}

	return core.SetCategoryResult{Applied: true}, nil
}

// CommitInbox promotes every staged row into the ledger in a single
// transaction and returns the committed count. Memory reinforcement
// runs after the ledger write is durable, so the ledger is never held
// hostage by the memory: failures there are logged and swallowed.
func (e *Engine) CommitInbox(ctx context.Context) (int, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	swept, err := e.repo.SweepInbox(ctx)
	if err != nil {
		return 0, err
	}

	for _, item := range swept {
		if item.SuggestedCategory == "" {
			continue
		}
		if err := e.memory.Learn(ctx, item.Description, item.SuggestedCategory); err != nil {
			e.logger.WarnContext(ctx, "Categorization memory update failed",
				log.FieldTempID, item.TempID, log.FieldError, err)
		}
	}

	e.logger.InfoContext(ctx, "Inbox committed",
		log.FieldOperation, log.OpCommit,
		log.FieldRows, len(swept))
	return len(swept), nil
}

// MonthlySummary builds the read model for a yyyy-mm month: total
// outflow, outflow by category, and budget usage.
func (e *Engine) MonthlySummary(ctx context.Context, month string) (core.SummaryResponse, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return core.SummaryResponse{}, err
	}
	defer release()

	total, err := e.repo.MonthTotalSpend(ctx, month)
	if err != nil {
		return core.SummaryResponse{}, err
	}
	byCategory, err := e.repo.MonthCategorySpend(ctx, month)
	if err != nil {
		return core.SummaryResponse{}, err
	}
	budgets, err := e.repo.MonthBudgetUsage(ctx, month)
	if err != nil {
		return core.SummaryResponse{}, err
	}

	return core.SummaryResponse{
		Month:      month,
		TotalSpend: total,
		ByCategory: byCategory,
		Budgets:    budgets,
	}, nil
}

// NetWorthCurve emits 12 monthly points, oldest first, ending at the
// current month. Each point carries the cumulative signed sum of all
// ledger history up to that month plus the fixed-ratio decomposition.
func (e *Engine) NetWorthCurve(ctx context.Context) ([]core.NetWorthPoint, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	buckets, err := e.repo.MonthlyNetAmounts(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)

	// History before the window seeds the running sum.
	cumulative := decimal.Zero
	for key, amount := range buckets {
		month, err := time.Parse("2006-01-02", key)
		if err != nil {
			continue
		}
		if month.Before(start) {
			cumulative = cumulative.Add(amount)
		}
	}

	curve := make([]core.NetWorthPoint, 0, 12)
	cursor := start
	for i := 0; i < 12; i++ {
		key := cursor.Format("2006-01-02")
		if amount, ok := buckets[key]; ok {
			cumulative = cumulative.Add(amount)
		}

		curve = append(curve, core.NetWorthPoint{
			Date:     key,
			NetWorth: cumulative,
			Cash:     maxZero(cumulative.Mul(cashRatio)),
			Invested: maxZero(cumulative.Mul(investedRatio)),
			Debt:     maxZero(cumulative.Neg().Mul(debtRatio)),
		})
		cursor = cursor.AddDate(0, 1, 0)
	}

	return curve, nil
}

func (e *Engine) AppSettings(ctx context.Context) (core.AppSettings, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return core.AppSettings{}, err
	}
	defer release()

	return e.repo.AppSettings(ctx)
}

func (e *Engine) SetSetting(ctx context.Context, key, value string) error {
	release, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return e.repo.SetSetting(ctx, key, value)
}

func (e *Engine) Budgets(ctx context.Context) ([]core.Budget, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return e.repo.ListBudgets(ctx)
}

func (e *Engine) SetBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}

	release, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return e.repo.SetBudget(ctx, b)
}

func maxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
