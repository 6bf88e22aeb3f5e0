package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var monthAbbrev = [...]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// YearMonth is a date truncated to its calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses the "YYYY-MM" key form.
func ParseYearMonth(s string) (YearMonth, error) {
	y, m, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return YearMonth{}, fmt.Errorf("invalid year-month %q", s)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid year-month %q", s)
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return YearMonth{}, fmt.Errorf("invalid year-month %q", s)
	}
	return YearMonth{Year: year, Month: time.Month(month)}, nil
}

// String returns the sortable key, e.g. "2025-01".
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Label returns the display form, e.g. "Jan/2025".
func (ym YearMonth) Label() string {
	if ym.Month < time.January || ym.Month > time.December {
		return ym.String()
	}
	return fmt.Sprintf("%s/%04d", monthAbbrev[ym.Month-1], ym.Year)
}

func (ym YearMonth) Before(o YearMonth) bool {
	if ym.Year != o.Year {
		return ym.Year < o.Year
	}
	return ym.Month < o.Month
}

// First returns the first day of the month.
func (ym YearMonth) First() Date {
	return NewDate(ym.Year, int(ym.Month), 1)
}

// Last returns the last day of the month.
func (ym YearMonth) Last() Date {
	return Date{Time: ym.First().AddDate(0, 1, -1)}
}

// AddMonths moves n months forward (or back when negative).
func (ym YearMonth) AddMonths(n int) YearMonth {
	return Date{Time: ym.First().AddDate(0, n, 0)}.YearMonth()
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"category"`
	Amount Money  `json:"amount"`
}

func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(b []byte) error {
	parsed, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}
