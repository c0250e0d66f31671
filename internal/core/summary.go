package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
	Formatted string          `json:"formatted"`
	Share     float64         `json:"share"` // 0-100
}

// LedgerEntry is a transaction together with the balance accumulated up to it.
type LedgerEntry struct {
	Transaction
	RunningBalance decimal.Decimal `json:"running_balance"`
	Formatted      string          `json:"formatted"`
}

// Ledger is the filtered view of one calendar month.
type Ledger struct {
	Year             int             `json:"year"`
	Month            int             `json:"month"` // 1-12
	Label            string          `json:"label"`
	Entries          []LedgerEntry   `json:"entries"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpense     decimal.Decimal `json:"total_expense"`
	Balance          decimal.Decimal `json:"balance"`
	BalanceFormatted string          `json:"balance_formatted"`
}

// ValidateMonth reports whether month is in 1..12.
func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	return nil
}

// MonthLabel returns the Indonesian label for a month, e.g. "Desember 2025".
func MonthLabel(year, month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%d", year)
	}
	return fmt.Sprintf("%s %d", monthNames[month-1], year)
}

// InMonth reports whether the transaction falls in year/month in loc.
func (t Transaction) InMonth(year, month int, loc *time.Location) bool {
	ts := t.Time(loc)
	return ts.Year() == year && int(ts.Month()) == month
}

// SortNewestFirst orders transactions by timestamp descending, ties by id.
func SortNewestFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Timestamp != txs[j].Timestamp {
			return txs[i].Timestamp > txs[j].Timestamp
		}
		return txs[i].ID > txs[j].ID
	})
}

// BuildLedger filters txs down to year/month and computes totals.
//
// Income adds to the balance and expense subtracts from it. Running balances
// accumulate in chronological order; entries are returned newest first.
func BuildLedger(txs []Transaction, year, month int, loc *time.Location) Ledger {
	l := Ledger{
		Year:         year,
		Month:        month,
		Label:        MonthLabel(year, month),
		Entries:      []LedgerEntry{},
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Balance:      decimal.Zero,
	}

	var filtered []Transaction
	for _, t := range txs {
		if t.InMonth(year, month, loc) {
			filtered = append(filtered, t)
		}
	}
	SortNewestFirst(filtered)

	running := decimal.Zero
	entries := make([]LedgerEntry, len(filtered))
	for i := len(filtered) - 1; i >= 0; i-- {
		t := filtered[i]
		if t.Type == Income {
			l.TotalIncome = l.TotalIncome.Add(t.Amount)
		} else {
			l.TotalExpense = l.TotalExpense.Add(t.Amount)
		}
		running = running.Add(t.Signed())
		entries[i] = LedgerEntry{
			Transaction:    t,
			RunningBalance: running,
			Formatted:      formatSigned(t),
		}
	}
	l.Entries = entries
	l.Balance = running
	l.BalanceFormatted = FormatRupiah(running)
	return l
}

func formatSigned(t Transaction) string {
	if t.Type == Income {
		return "+ " + FormatRupiah(t.Amount)
	}
	return "- " + FormatRupiah(t.Amount)
}

// CategoryBreakdown sums expense amounts per category.
// Income is ignored. Results are sorted by amount descending, then name.
func CategoryBreakdown(txs []Transaction) []CategoryAmount {
	totals := map[string]decimal.Decimal{}
	total := decimal.Zero
	for _, t := range txs {
		if t.Type != Expense {
			continue
		}
		totals[t.Category] = totals[t.Category].Add(t.Amount)
		total = total.Add(t.Amount)
	}

	out := make([]CategoryAmount, 0, len(totals))
	for name, amt := range totals {
		share := 0.0
		if total.IsPositive() {
			share, _ = amt.Div(total).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		}
		out = append(out, CategoryAmount{
			Name:      name,
			Amount:    amt,
			Formatted: FormatRupiah(amt),
			Share:     share,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// FilterMonth returns the transactions that fall in year/month.
func FilterMonth(txs []Transaction, year, month int, loc *time.Location) []Transaction {
	var out []Transaction
	for _, t := range txs {
		if t.InMonth(year, month, loc) {
			out = append(out, t)
		}
	}
	return out
}
