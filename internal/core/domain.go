package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "Income"
	Expense TxType = "Expense"
)

const (
	// DefaultCategory is the category of a zero-value transaction.
	DefaultCategory = "General"
	// FallbackCategory is used when a transaction is saved without a category.
	FallbackCategory = "Umum"

	maxTitleLength = 200
)

// DefaultCategories are offered to users who have not stored any of their own.
var DefaultCategories = []string{"Food", "Transportation", "Utilities", "Salary", "Entertainment"}

type (
	TxType string

	// Transaction is a single income or expense record owned by one user.
	// Timestamp is in epoch milliseconds.
	Transaction struct {
		ID        string          `json:"id"`
		UserID    string          `json:"user_id,omitempty"`
		Title     string          `json:"title"`
		Amount    decimal.Decimal `json:"amount"`
		Type      TxType          `json:"type"`
		Category  string          `json:"category"`
		Timestamp int64           `json:"timestamp"`
	}

	// TransactionInput is what a client submits when saving a transaction.
	TransactionInput struct {
		Title     string `json:"title"`
		Amount    string `json:"amount"`
		Type      string `json:"type"`
		Category  string `json:"category"`
		Timestamp int64  `json:"timestamp,omitempty"`
	}

	User struct {
		ID           string    `json:"id"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"created_at"`
	}
)

var (
	ErrEmptyTitle    = errors.New("empty title")
	ErrTitleTooLong  = errors.New("title too long (max 200 characters)")
	ErrEmptyAmount   = errors.New("empty amount")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidMonth  = errors.New("invalid month")
)

// NewTransaction returns a zero transaction with the client defaults applied.
func NewTransaction() Transaction {
	return Transaction{
		Amount:    decimal.Zero,
		Type:      Expense,
		Category:  DefaultCategory,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ParseTxType accepts Income or Expense in any case. Blank means Expense.
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Expense, nil
	case "income":
		return Income, nil
	case "expense":
		return Expense, nil
	default:
		return "", ErrInvalidType
	}
}

// Valid reports whether t is Income or Expense.
func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// Sign returns +1 for income and -1 for expense.
func (t TxType) Sign() int64 {
	if t == Income {
		return 1
	}
	return -1
}

// Build validates the input and turns it into a transaction for the given user.
// The id is left empty; storage callers assign it.
func (in TransactionInput) Build(userID string, now time.Time) (Transaction, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Transaction{}, ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return Transaction{}, ErrTitleTooLong
	}
	if strings.TrimSpace(in.Amount) == "" {
		return Transaction{}, ErrEmptyAmount
	}
	typ, err := ParseTxType(in.Type)
	if err != nil {
		return Transaction{}, err
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = FallbackCategory
	}
	ts := in.Timestamp
	if ts <= 0 {
		ts = now.UnixMilli()
	}
	return Transaction{
		UserID:    userID,
		Title:     title,
		Amount:    ParseAmount(in.Amount),
		Type:      typ,
		Category:  category,
		Timestamp: ts,
	}, nil
}

// Time returns the transaction timestamp in the given location.
func (t Transaction) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(t.Timestamp).In(loc)
}

// Signed returns the amount with the sign of its type applied.
func (t Transaction) Signed() decimal.Decimal {
	return t.Amount.Mul(decimal.NewFromInt(t.Type.Sign()))
}

// NormalizeCategory trims a user-supplied category name.
func NormalizeCategory(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyCategory
	}
	return name, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
