package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidClosingDay is returned for closing days outside 1..31.
var ErrInvalidClosingDay = errors.New("invalid closing day: must be between 1 and 31")

// MaxClosingDay is the last day that exists in every month.
const MaxClosingDay = 28

// CalendarMonthDay is the value reported for the calendar month setting.
const CalendarMonthDay = 31

// CycleConfig selects how transactions are bucketed into reporting periods.
// The zero value is the calendar month.
type CycleConfig struct {
	closingDay int // 0 means calendar month
}

// CalendarMonth returns the standard calendar month configuration.
func CalendarMonth() CycleConfig {
	return CycleConfig{}
}

// ClosingDay returns a billing-cycle configuration closing on the given day.
// Days past MaxClosingDay fall back to the calendar month.
func ClosingDay(day int) CycleConfig {
	if day < 1 || day > MaxClosingDay {
		return CalendarMonth()
	}
	return CycleConfig{closingDay: day}
}

// CycleConfigFromDay validates a user supplied closing day.
// 29..31 mean "end of month". 29 is deliberately a calendar month rather
// than a cycle closing on the 29th, so every cycle has bounds in February.
func CycleConfigFromDay(day int) (CycleConfig, error) {
	if day < 1 || day > 31 {
		return CycleConfig{}, fmt.Errorf("%w: got %d", ErrInvalidClosingDay, day)
	}
	return ClosingDay(day), nil
}

// IsCalendarMonth reports whether the configuration is the standard month.
func (c CycleConfig) IsCalendarMonth() bool {
	return c.closingDay == 0
}

// Day returns the closing day, or CalendarMonthDay for the calendar month.
func (c CycleConfig) Day() int {
	if c.IsCalendarMonth() {
		return CalendarMonthDay
	}
	return c.closingDay
}

func (c CycleConfig) String() string {
	if c.IsCalendarMonth() {
		return "calendar"
	}
	return fmt.Sprintf("closing-%d", c.closingDay)
}

// CycleKey identifies a reporting period. Month is 0-based (0 = January).
type CycleKey struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewCycleKey builds a key from a calendar month (1-12).
func NewCycleKey(year int, month time.Month) CycleKey {
	return CycleKey{Year: year, Month: int(month) - 1}
}

// ParseCycleKey parses "YYYY-MM" with a 1-based calendar month.
func ParseCycleKey(s string) (CycleKey, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return CycleKey{}, fmt.Errorf("invalid period %q: expected YYYY-MM", s)
	}
	return NewCycleKey(t.Year(), t.Month()), nil
}

func (k CycleKey) Valid() bool {
	return k.Month >= 0 && k.Month <= 11
}

// CalendarMonth returns the key's month as a time.Month.
func (k CycleKey) CalendarMonth() time.Month {
	return time.Month(k.Month + 1)
}

// Compare returns -1, 0 or +1 ordering keys chronologically.
func (k CycleKey) Compare(o CycleKey) int {
	switch {
	case k.Year < o.Year:
		return -1
	case k.Year > o.Year:
		return 1
	case k.Month < o.Month:
		return -1
	case k.Month > o.Month:
		return 1
	}
	return 0
}

func (k CycleKey) Before(o CycleKey) bool {
	return k.Compare(o) < 0
}

// Next returns the following cycle.
func (k CycleKey) Next() CycleKey {
	if k.Month == 11 {
		return CycleKey{Year: k.Year + 1, Month: 0}
	}
	return CycleKey{Year: k.Year, Month: k.Month + 1}
}

// Prev returns the preceding cycle.
func (k CycleKey) Prev() CycleKey {
	if k.Month == 0 {
		return CycleKey{Year: k.Year - 1, Month: 11}
	}
	return CycleKey{Year: k.Year, Month: k.Month - 1}
}

// String formats the key as YYYY-MM with a 1-based month.
func (k CycleKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month+1)
}

// TypeFilter restricts listings to one transaction type.
type TypeFilter string

const (
	FilterAll     TypeFilter = "all"
	FilterIncome  TypeFilter = "income"
	FilterExpense TypeFilter = "expense"
)

// ParseTypeFilter maps an empty value to FilterAll.
func ParseTypeFilter(s string) (TypeFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "income":
		return FilterIncome, nil
	case "expense":
		return FilterExpense, nil
	}
	return "", fmt.Errorf("invalid type filter %q: must be all, income or expense", s)
}

// Match reports whether a transaction type passes the filter.
func (f TypeFilter) Match(t TxType) bool {
	switch f {
	case FilterIncome:
		return t == Income
	case FilterExpense:
		return t == Expense
	}
	return true
}
