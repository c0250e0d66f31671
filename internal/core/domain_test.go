package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewTransactionDefaults(t *testing.T) {
	tx := NewTransaction()
	if tx.Type != Expense {
		t.Fatalf("expected Expense default, got %q", tx.Type)
	}
	if tx.Category != DefaultCategory {
		t.Fatalf("expected %q default, got %q", DefaultCategory, tx.Category)
	}
	if !tx.Amount.IsZero() {
		t.Fatalf("expected zero amount, got %s", tx.Amount)
	}
	if tx.Timestamp == 0 {
		t.Fatalf("expected timestamp to be set")
	}
}

func TestParseTxType(t *testing.T) {
	cases := []struct {
		in   string
		want TxType
		ok   bool
	}{
		{"", Expense, true},
		{"Income", Income, true},
		{"income", Income, true},
		{" EXPENSE ", Expense, true},
		{"transfer", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTxType(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
			}
		} else if !errors.Is(err, ErrInvalidType) {
			t.Fatalf("%q expected ErrInvalidType, got %v", tc.in, err)
		}
	}
}

func TestTransactionInputBuild(t *testing.T) {
	now := time.Date(2025, 12, 3, 10, 0, 0, 0, time.UTC)

	tx, err := TransactionInput{Title: " Lunch ", Amount: "25000"}.Build("u1", now)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if tx.Title != "Lunch" || tx.UserID != "u1" {
		t.Fatalf("unexpected tx: %+v", tx)
	}
	if tx.Type != Expense {
		t.Fatalf("expected Expense, got %q", tx.Type)
	}
	if tx.Category != FallbackCategory {
		t.Fatalf("expected fallback category %q, got %q", FallbackCategory, tx.Category)
	}
	if tx.Timestamp != now.UnixMilli() {
		t.Fatalf("expected timestamp %d, got %d", now.UnixMilli(), tx.Timestamp)
	}
	if tx.Amount.String() != "25000" {
		t.Fatalf("expected amount 25000, got %s", tx.Amount)
	}

	tx, err = TransactionInput{Title: "Gaji", Amount: "lots", Type: "income", Category: "Salary", Timestamp: 42}.Build("u1", now)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !tx.Amount.IsZero() {
		t.Fatalf("unparseable amount should default to zero, got %s", tx.Amount)
	}
	if tx.Type != Income || tx.Category != "Salary" || tx.Timestamp != 42 {
		t.Fatalf("unexpected tx: %+v", tx)
	}

	bads := []struct {
		in  TransactionInput
		err error
	}{
		{TransactionInput{Title: "", Amount: "1"}, ErrEmptyTitle},
		{TransactionInput{Title: "   ", Amount: "1"}, ErrEmptyTitle},
		{TransactionInput{Title: strings.Repeat("a", 201), Amount: "1"}, ErrTitleTooLong},
		{TransactionInput{Title: "a", Amount: " "}, ErrEmptyAmount},
		{TransactionInput{Title: "a", Amount: "1", Type: "gift"}, ErrInvalidType},
	}
	for i, b := range bads {
		if _, err := b.in.Build("u1", now); !errors.Is(err, b.err) {
			t.Fatalf("case %d expected %v, got %v", i, b.err, err)
		}
	}
}

func TestTransactionSigned(t *testing.T) {
	in := Transaction{Amount: ParseAmount("100"), Type: Income}
	out := Transaction{Amount: ParseAmount("40"), Type: Expense}
	if got := in.Signed().Add(out.Signed()); got.String() != "60" {
		t.Fatalf("expected 60, got %s", got)
	}
}

func TestTxTypeValidAndSign(t *testing.T) {
	tests := []struct {
		typ   TxType
		valid bool
		sign  int64
	}{
		{Income, true, 1},
		{Expense, true, -1},
		{TxType("Refund"), false, -1},
	}
	for _, tt := range tests {
		if got := tt.typ.Valid(); got != tt.valid {
			t.Errorf("%q.Valid() = %v, want %v", tt.typ, got, tt.valid)
		}
		if got := tt.typ.Sign(); got != tt.sign {
			t.Errorf("%q.Sign() = %d, want %d", tt.typ, got, tt.sign)
		}
	}
}

func TestBuildTitleLengthCountsCharacters(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	// 200 two-byte characters: 400 bytes but within the limit.
	title := strings.Repeat("é", 200)
	tx, err := TransactionInput{Title: title, Amount: "1"}.Build("u1", now)
	if err != nil {
		t.Fatalf("expected 200-character title accepted, got %v", err)
	}
	if tx.Title != title {
		t.Fatalf("title changed: %q", tx.Title)
	}
	if _, err := (TransactionInput{Title: title + "é", Amount: "1"}).Build("u1", now); !errors.Is(err, ErrTitleTooLong) {
		t.Fatalf("expected ErrTitleTooLong for 201 characters, got %v", err)
	}
}

func TestNormalizeCategory(t *testing.T) {
	if got, err := NormalizeCategory("  Coffee "); err != nil || got != "Coffee" {
		t.Fatalf("expected Coffee, got %q (err=%v)", got, err)
	}
	if _, err := NormalizeCategory("   "); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Budi@Example.COM "); got != "budi@example.com" {
		t.Fatalf("unexpected email %q", got)
	}
}
