package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var jakarta = time.FixedZone("WIB", 7*3600)

func txAt(id string, typ TxType, amount, category string, t time.Time) Transaction {
	return Transaction{
		ID:        id,
		Title:     id,
		Amount:    decimal.RequireFromString(amount),
		Type:      typ,
		Category:  category,
		Timestamp: t.UnixMilli(),
	}
}

func TestMonthLabel(t *testing.T) {
	if got := MonthLabel(2025, 12); got != "Desember 2025" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := MonthLabel(2026, 1); got != "Januari 2026" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestValidateMonth(t *testing.T) {
	if err := ValidateMonth(12); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, m := range []int{0, 13, -1} {
		if err := ValidateMonth(m); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("month %d expected ErrInvalidMonth, got %v", m, err)
		}
	}
}

func TestBuildLedger(t *testing.T) {
	txs := []Transaction{
		txAt("salary", Income, "5000000", "Salary", time.Date(2025, 12, 1, 9, 0, 0, 0, jakarta)),
		txAt("lunch", Expense, "50000", "Food", time.Date(2025, 12, 2, 12, 0, 0, 0, jakarta)),
		txAt("bus", Expense, "10000", "Transportation", time.Date(2025, 12, 3, 8, 0, 0, 0, jakarta)),
		txAt("november", Expense, "99000", "Food", time.Date(2025, 11, 30, 23, 0, 0, 0, jakarta)),
		// 31 Dec 20:00 UTC is already January in Jakarta
		txAt("newyear", Expense, "7000", "Food", time.Date(2025, 12, 31, 20, 0, 0, 0, time.UTC)),
	}

	l := BuildLedger(txs, 2025, 12, jakarta)
	if l.Label != "Desember 2025" {
		t.Fatalf("unexpected label %q", l.Label)
	}
	if len(l.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(l.Entries))
	}
	wantOrder := []string{"bus", "lunch", "salary"}
	for i, id := range wantOrder {
		if l.Entries[i].ID != id {
			t.Fatalf("entry %d: expected %s, got %s", i, id, l.Entries[i].ID)
		}
	}
	wantRunning := []string{"4940000", "4950000", "5000000"}
	for i, want := range wantRunning {
		if !l.Entries[i].RunningBalance.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("entry %d running balance: expected %s, got %s", i, want, l.Entries[i].RunningBalance)
		}
	}
	if !l.TotalIncome.Equal(decimal.RequireFromString("5000000")) {
		t.Fatalf("unexpected income %s", l.TotalIncome)
	}
	if !l.TotalExpense.Equal(decimal.RequireFromString("60000")) {
		t.Fatalf("unexpected expense %s", l.TotalExpense)
	}
	if l.BalanceFormatted != "Rp4.940.000" {
		t.Fatalf("unexpected formatted balance %q", l.BalanceFormatted)
	}
	if l.Entries[0].Formatted != "- Rp10.000" || l.Entries[2].Formatted != "+ Rp5.000.000" {
		t.Fatalf("unexpected formatted amounts: %q %q", l.Entries[0].Formatted, l.Entries[2].Formatted)
	}

	jan := BuildLedger(txs, 2026, 1, jakarta)
	if len(jan.Entries) != 1 || jan.Entries[0].ID != "newyear" {
		t.Fatalf("expected the newyear entry in January, got %+v", jan.Entries)
	}
	if jan.BalanceFormatted != "-Rp7.000" {
		t.Fatalf("unexpected january balance %q", jan.BalanceFormatted)
	}
}

func TestBuildLedger_Empty(t *testing.T) {
	l := BuildLedger(nil, 2025, 6, time.UTC)
	if l.Entries == nil || len(l.Entries) != 0 {
		t.Fatalf("expected empty non-nil entries, got %#v", l.Entries)
	}
	if !l.Balance.IsZero() || l.BalanceFormatted != "Rp0" {
		t.Fatalf("expected zero balance, got %s (%q)", l.Balance, l.BalanceFormatted)
	}
}

func TestSortNewestFirst_TiesByID(t *testing.T) {
	ts := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		txAt("a", Expense, "1", "Food", ts),
		txAt("c", Expense, "1", "Food", ts),
		txAt("b", Expense, "1", "Food", ts.Add(time.Hour)),
	}
	SortNewestFirst(txs)
	got := txs[0].ID + txs[1].ID + txs[2].ID
	if got != "bca" {
		t.Fatalf("unexpected order %q", got)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	ts := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		txAt("1", Expense, "30000", "Food", ts),
		txAt("2", Expense, "20000", "Food", ts),
		txAt("3", Expense, "50000", "Utilities", ts),
		txAt("4", Income, "900000", "Salary", ts),
		txAt("5", Expense, "25000", "Entertainment", ts),
	}
	got := CategoryBreakdown(txs)
	if len(got) != 3 {
		t.Fatalf("expected 3 categories, got %d: %+v", len(got), got)
	}
	// Food and Utilities tie at 50000; name breaks the tie.
	if got[0].Name != "Food" || got[1].Name != "Utilities" || got[2].Name != "Entertainment" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Formatted != "Rp50.000" {
		t.Fatalf("unexpected formatted %q", got[0].Formatted)
	}
	if got[0].Share != 40 || got[2].Share != 20 {
		t.Fatalf("unexpected shares: %v %v", got[0].Share, got[2].Share)
	}
	for _, c := range got {
		if c.Name == "Salary" {
			t.Fatalf("income must not appear in breakdown")
		}
	}
}

func TestCategoryBreakdown_NoExpenses(t *testing.T) {
	got := CategoryBreakdown([]Transaction{{Type: Income, Amount: decimal.NewFromInt(1), Category: "Salary"}})
	if len(got) != 0 {
		t.Fatalf("expected empty breakdown, got %+v", got)
	}
}
