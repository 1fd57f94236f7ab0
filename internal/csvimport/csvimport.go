// Package csvimport normalizes raw bank-statement CSV exports into
// candidate transaction rows. Individual malformed rows are skipped;
// the import as a whole fails only when nothing usable remains.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avatar25/ArthaOS/internal/core"
)

// ErrNoUsableRows is returned when parsing yields zero candidate rows.
var ErrNoUsableRows = errors.New("csv produced zero usable rows")

// MissingColumnError reports an absent mandatory column.
type MissingColumnError struct {
	Field string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("csv missing %s column", e.Field)
}

// Header candidates per logical field, tried in order. Matching is
// case-insensitive: an exact pass over all candidates first, then a
// substring pass (so a header reading "Debit Amount" satisfies "debit").
var (
	dateCandidates   = []string{"date", "transaction date", "posted date"}
	descCandidates   = []string{"description", "memo", "details", "name", "transaction description"}
	amountCandidates = []string{"amount", "transaction amount"}
	debitCandidates  = []string{"debit"}
	creditCandidates = []string{"credit"}
)

// Input date layouts tried in order; matches are rewritten to yyyy-mm-dd,
// anything else is preserved verbatim.
var dateLayouts = []string{"02/01/06", "02/01/2006", "02-01-2006", "2006-01-02"}

// Normalize parses raw delimited bytes into candidate rows. Date and
// description columns are mandatory; an amount column is optional and
// falls back to separate debit/credit columns (amount = credit - debit).
func Normalize(raw []byte) ([]core.CandidateRow, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoUsableRows
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	dateIdx, ok := findIndex(headers, dateCandidates, nil)
	if !ok {
		return nil, &MissingColumnError{Field: "date"}
	}
	descIdx, ok := findIndex(headers, descCandidates, nil)
	if !ok {
		return nil, &MissingColumnError{Field: "description"}
	}
	// Debit/credit columns resolve first and are excluded from the
	// amount candidate pool, so a "Debit Amount" header is a debit
	// column rather than a substring hit for "amount".
	debitIdx, hasDebit := findIndex(headers, debitCandidates, nil)
	creditIdx, hasCredit := findIndex(headers, creditCandidates, nil)
	taken := map[int]bool{}
	if hasDebit {
		taken[debitIdx] = true
	}
	if hasCredit {
		taken[creditIdx] = true
	}
	amountIdx, hasAmount := findIndex(headers, amountCandidates, taken)

	var rows []core.CandidateRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Warn("Skipping malformed csv row", "error", err)
			continue
		}

		date := strings.TrimSpace(field(record, dateIdx))
		if date == "" {
			slog.Warn("Skipping csv row with empty date")
			continue
		}

		description := strings.TrimSpace(field(record, descIdx))
		if description == "" {
			description = "Transaction"
		}

		var amount decimal.Decimal
		if hasAmount {
			amount, err = parseAmount(field(record, amountIdx))
			if err != nil {
				slog.Warn("Skipping csv row with unparseable amount", "error", err)
				continue
			}
		} else {
			debit := decimal.Zero
			credit := decimal.Zero
			if hasDebit {
				if v, err := parseAmount(field(record, debitIdx)); err == nil {
					debit = v
				}
			}
			if hasCredit {
				if v, err := parseAmount(field(record, creditIdx)); err == nil {
					credit = v
				}
			}
			amount = credit.Sub(debit)
		}

		rows = append(rows, core.CandidateRow{
			Date:        normalizeDate(date),
			Description: description,
			Amount:      amount,
		})
	}

	if len(rows) == 0 {
		return nil, ErrNoUsableRows
	}
	return rows, nil
}

func findIndex(headers []string, candidates []string, exclude map[int]bool) (int, bool) {
	for _, candidate := range candidates {
		for i, header := range headers {
			if exclude[i] {
				continue
			}
			if header == candidate {
				return i, true
			}
		}
	}
	for _, candidate := range candidates {
		for i, header := range headers {
			if exclude[i] {
				continue
			}
			if strings.Contains(header, candidate) {
				return i, true
			}
		}
	}
	return 0, false
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

var amountCleaner = strings.NewReplacer(",", "", "$", "", "€", "", "£", "")

// parseAmount cleans thousands separators and currency symbols. An
// amount wrapped in parentheses, or prefixed with a minus sign, is
// negative. An empty cell parses as zero.
func parseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, nil
	}

	cleaned := amountCleaner.Replace(trimmed)
	negative := (strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")")) ||
		strings.HasPrefix(cleaned, "-")

	cleaned = strings.TrimPrefix(cleaned, "(")
	cleaned = strings.TrimSuffix(cleaned, ")")
	cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "-"))

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", trimmed, err)
	}
	if negative {
		value = value.Neg()
	}
	return value, nil
}

func normalizeDate(raw string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}
