// Package storage is the relational store behind the vault: SQLite via
// database/sql, schema managed by embedded migrations. Every multi-row
// mutation runs in a single transaction so readers never observe a
// partially-staged import or a partially-committed ledger.
package storage

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/avatar25/ArthaOS/internal/core"
	"github.com/avatar25/ArthaOS/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSQLiteRepository opens (or creates) the vault database, applies the
// encryption key pragma, runs migrations, and seeds default budgets when
// the budgets relation is empty.
func NewSQLiteRepository(dbPath string, key [32]byte, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// SQLCipher pragma. Ignored with a warning when the driver carries
	// no cipher extension.
	keyStmt := fmt.Sprintf(`PRAGMA key = "x'%s'"`, hex.EncodeToString(key[:]))
	if _, err := db.Exec(keyStmt); err != nil {
		logger.Warn("PRAGMA key failed (is SQLCipher available?)", log.FieldError, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Warn("PRAGMA journal_mode failed", log.FieldError, err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logger.Warn("PRAGMA synchronous failed", log.FieldError, err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{db: db, logger: logger}

	if err := repo.seedDefaultBudgets(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed default budgets: %w", err)
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Applied once, only when the budgets relation is empty.
func (r *SQLiteRepository) seedDefaultBudgets(ctx context.Context) error {
	var existing int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM budgets").Scan(&existing); err != nil {
		return fmt.Errorf("count budgets: %w", err)
	}
	if existing > 0 {
		return nil
	}

	defaults := []core.Budget{
		{Category: "Housing", Cap: decimal.NewFromInt(1800)},
		{Category: "Groceries", Cap: decimal.NewFromInt(700)},
		{Category: "Dining", Cap: decimal.NewFromInt(350)},
		{Category: "Transportation", Cap: decimal.NewFromInt(250)},
		{Category: "Discretionary", Cap: decimal.NewFromInt(500)},
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin budget seed: %w", err)
	}
	defer tx.Rollback()

	for _, b := range defaults {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO budgets (category, cap) VALUES (?, ?)",
			b.Category, b.Cap,
		); err != nil {
			return fmt.Errorf("seed budget %s: %w", b.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit budget seed: %w", err)
	}

	r.logger.Info("Seeded default budgets", "count", len(defaults))
	return nil
}

// UpsertInbox stages all items in one transaction; a conflict on
// temp_id overwrites the row in place instead of duplicating it.
func (r *SQLiteRepository) UpsertInbox(ctx context.Context, items []core.InboxItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin inbox upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO inbox (temp_id, date, description, amount, flow, suggested_category)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(temp_id) DO UPDATE SET
			date=excluded.date,
			description=excluded.description,
			amount=excluded.amount,
			flow=excluded.flow,
			suggested_category=excluded.suggested_category`)
	if err != nil {
		return fmt.Errorf("prepare inbox upsert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx,
			item.TempID, item.Date, item.Description, item.Amount,
			string(item.Flow), nullIfEmpty(item.SuggestedCategory),
		); err != nil {
			return fmt.Errorf("upsert inbox row %s: %w", item.TempID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit inbox upsert: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListInbox(ctx context.Context) ([]core.InboxItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT temp_id, date, description, amount, flow, suggested_category
		FROM inbox ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("query inbox: %w", err)
	}
	defer rows.Close()

	items := []core.InboxItem{}
	for rows.Next() {
		item, err := scanInboxItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inbox row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inbox rows: %w", err)
	}
	return items, nil
}

// SetInboxCategory overwrites the suggested category of exactly one
// staged row. Returns false when no row with the id exists.
func (r *SQLiteRepository) SetInboxCategory(ctx context.Context, tempID, category string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE inbox SET suggested_category=? WHERE temp_id=?", category, tempID)
	if err != nil {
		return false, fmt.Errorf("update inbox category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inbox category rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *SQLiteRepository) InboxDescription(ctx context.Context, tempID string) (string, error) {
	var description string
	err := r.db.QueryRowContext(ctx,
		"SELECT description FROM inbox WHERE temp_id=?", tempID).Scan(&description)
	if err != nil {
		return "", fmt.Errorf("query inbox description: %w", err)
	}
	return description, nil
}

// SweepInbox promotes every staged row into the ledger and empties the
// staging area, all in one transaction. If any insert fails nothing is
// moved. Returns the swept rows so the caller can reinforce memory.
func (r *SQLiteRepository) SweepInbox(ctx context.Context) ([]core.InboxItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin commit sweep: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT temp_id, date, description, amount, flow, suggested_category FROM inbox`)
	if err != nil {
		return nil, fmt.Errorf("query inbox for sweep: %w", err)
	}

	var items []core.InboxItem
	for rows.Next() {
		item, err := scanInboxItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan inbox row for sweep: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate inbox rows for sweep: %w", err)
	}
	rows.Close()

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (date, description, amount, flow, category)
			VALUES (?, ?, ?, ?, ?)`,
			item.Date, item.Description, item.Amount,
			string(item.Flow), nullIfEmpty(item.SuggestedCategory),
		); err != nil {
			return nil, fmt.Errorf("insert ledger transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM inbox WHERE temp_id=?", item.TempID); err != nil {
			return nil, fmt.Errorf("remove staged row %s: %w", item.TempID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit inbox sweep: %w", err)
	}
	return items, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.LedgerTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, description, amount, flow, category
		FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.LedgerTransaction
	for rows.Next() {
		var (
			t        core.LedgerTransaction
			flow     string
			category sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Date, &t.Description, &t.Amount, &flow, &category); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		t.Flow = core.ParseFlow(flow)
		t.Category = category.String
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

// LoadTokenBindings implements memory.TokenStore.
func (r *SQLiteRepository) LoadTokenBindings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT token, category FROM categorization_memory")
	if err != nil {
		return nil, fmt.Errorf("query categorization memory: %w", err)
	}
	defer rows.Close()

	bindings := make(map[string]string)
	for rows.Next() {
		var token, category string
		if err := rows.Scan(&token, &category); err != nil {
			return nil, fmt.Errorf("scan token binding: %w", err)
		}
		bindings[token] = category
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token bindings: %w", err)
	}
	return bindings, nil
}

// UpsertTokenBindings implements memory.TokenStore. One atomic
// statement per row: insert, or on conflict overwrite the category and
// bump the hit counter. All rows of one call share one transaction.
func (r *SQLiteRepository) UpsertTokenBindings(ctx context.Context, tokens []string, category string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin token upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO categorization_memory (token, category, hit_count, updated_at)
		VALUES (?, ?, 1, datetime('now'))
		ON CONFLICT(token) DO UPDATE SET
			category=excluded.category,
			hit_count=hit_count + 1,
			updated_at=datetime('now')`)
	if err != nil {
		return fmt.Errorf("prepare token upsert: %w", err)
	}
	defer stmt.Close()

	for _, token := range tokens {
		if _, err := stmt.ExecContext(ctx, token, category); err != nil {
			return fmt.Errorf("upsert token %s: %w", token, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit token upsert: %w", err)
	}
	return nil
}

// TokenHitCount returns the reinforcement count for one token, zero
// when the token has never been learned.
func (r *SQLiteRepository) TokenHitCount(ctx context.Context, token string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE((SELECT hit_count FROM categorization_memory WHERE token=?), 0)",
		token).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("query token hit count: %w", err)
	}
	return count, nil
}

// MonthTotalSpend sums the absolute value of all outflow rows whose
// date falls in the yyyy-mm month.
func (r *SQLiteRepository) MonthTotalSpend(ctx context.Context, month string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(ABS(amount)), 0) FROM transactions
		WHERE amount < 0 AND date LIKE ?`, month+"-%").Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query month total spend: %w", err)
	}
	return total, nil
}

// MonthCategorySpend groups a month's outflows by category, descending
// by summed absolute amount. Uncategorized rows fall into a literal
// "Uncategorized" bucket.
func (r *SQLiteRepository) MonthCategorySpend(ctx context.Context, month string) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(category, 'Uncategorized') AS cat, SUM(ABS(amount))
		FROM transactions
		WHERE amount < 0 AND date LIKE ?
		GROUP BY cat ORDER BY SUM(ABS(amount)) DESC`, month+"-%")
	if err != nil {
		return nil, fmt.Errorf("query category spend: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryAmount{}
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Category, &ca.Amount); err != nil {
			return nil, fmt.Errorf("scan category spend: %w", err)
		}
		out = append(out, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category spend: %w", err)
	}
	return out, nil
}

// MonthBudgetUsage left-joins every configured budget against the
// month's spend per category, ordered by category name. Categories with
// no spend report zero.
func (r *SQLiteRepository) MonthBudgetUsage(ctx context.Context, month string) ([]core.BudgetUsage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.category, b.cap, COALESCE(spent.total, 0)
		FROM budgets b
		LEFT JOIN (
			SELECT category, SUM(ABS(amount)) AS total
			FROM transactions
			WHERE amount < 0 AND date LIKE ?
			GROUP BY category
		) spent ON spent.category = b.category
		ORDER BY b.category`, month+"-%")
	if err != nil {
		return nil, fmt.Errorf("query budget usage: %w", err)
	}
	defer rows.Close()

	out := []core.BudgetUsage{}
	for rows.Next() {
		var bu core.BudgetUsage
		if err := rows.Scan(&bu.Category, &bu.Cap, &bu.Spent); err != nil {
			return nil, fmt.Errorf("scan budget usage: %w", err)
		}
		out = append(out, bu)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget usage: %w", err)
	}
	return out, nil
}

// MonthlyNetAmounts buckets all ledger amounts, signed, by calendar
// month. Keys are yyyy-mm-01. Rows whose date never normalized to a
// real date drop out of the curve rather than failing it.
func (r *SQLiteRepository) MonthlyNetAmounts(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-01', date) AS bucket, SUM(amount)
		FROM transactions
		GROUP BY bucket HAVING bucket IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query monthly net amounts: %w", err)
	}
	defer rows.Close()

	buckets := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			bucket string
			amount decimal.Decimal
		)
		if err := rows.Scan(&bucket, &amount); err != nil {
			return nil, fmt.Errorf("scan monthly bucket: %w", err)
		}
		buckets[bucket] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly buckets: %w", err)
	}
	return buckets, nil
}

func (r *SQLiteRepository) AppSettings(ctx context.Context) (core.AppSettings, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return core.AppSettings{}, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	settings := core.AppSettings{Theme: "system"}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return core.AppSettings{}, fmt.Errorf("scan setting: %w", err)
		}
		switch key {
		case "theme":
			settings.Theme = value
		case "accounts":
			settings.Accounts = value
		}
	}
	if err := rows.Err(); err != nil {
		return core.AppSettings{}, fmt.Errorf("iterate settings: %w", err)
	}
	return settings, nil
}

func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("update setting %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT category, cap FROM budgets ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.Category, &b.Cap); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return budgets, nil
}

func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (category, cap) VALUES (?, ?)
		ON CONFLICT(category) DO UPDATE SET cap=excluded.cap`, b.Category, b.Cap)
	if err != nil {
		return fmt.Errorf("update budget %s: %w", b.Category, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInboxItem(row rowScanner) (core.InboxItem, error) {
	var (
		item     core.InboxItem
		flow     string
		category sql.NullString
	)
	if err := row.Scan(&item.TempID, &item.Date, &item.Description,
		&item.Amount, &flow, &category); err != nil {
		return core.InboxItem{}, err
	}
	item.Flow = core.ParseFlow(flow)
	item.SuggestedCategory = category.String
	return item, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
