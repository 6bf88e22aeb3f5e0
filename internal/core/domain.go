package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	KindExpense Kind = "Expense"
	KindIncome  Kind = "Income"
)

// isoDate is the layout used to store and compare dates.
const isoDate = "2006-01-02"

type (
	// Kind is the transaction type.
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          int64
		Date        Date
		Kind        Kind
		Category    string
		Subcategory string
		Description string
		Amount      Money // always positive
		Account     string
		Tags        string
		TenantID    string
	}
)

// Kinds returns the closed set of kinds in display order.
func Kinds() []Kind {
	return []Kind{KindExpense, KindIncome}
}

// ParseKind accepts the canonical names case-insensitively plus the
// Portuguese labels used by older exports.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "despesa":
		return KindExpense, nil
	case "income", "receita":
		return KindIncome, nil
	}
	return "", &ValidationError{Field: "kind", Err: ErrInvalidKind}
}

func (k Kind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// Sign is +1 for income and -1 for expenses; used only for net cash-flow.
func (k Kind) Sign() int64 {
	if k == KindIncome {
		return 1
	}
	return -1
}

func (k Kind) String() string {
	return string(k)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO 8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(isoDate, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return nil
}

// String returns the ISO form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(isoDate)
}

// YearMonth returns the aggregation bucket of the date.
func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return nil
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Validate enforces what the entry form enforces: a date, a kind, a selected
// category and subcategory and a positive amount. Taxonomy membership is
// checked by the caller, the store does not know about it.
func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return &ValidationError{Field: "kind", Err: ErrInvalidKind}
	}
	if strings.TrimSpace(t.Category) == "" {
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	if strings.TrimSpace(t.Subcategory) == "" {
		return &ValidationError{Field: "subcategory", Err: ErrEmptySubcategory}
	}
	if len(t.Description) > 500 {
		return &ValidationError{Field: "description", Err: fmt.Errorf("too long (max 500 characters)")}
	}
	return t.Amount.Validate()
}

// SignedAmount applies the kind sign to the stored positive amount.
func (t Transaction) SignedAmount() Money {
	return Money{Cents: t.Kind.Sign() * t.Amount.Cents}
}
