package core

import (
	"errors"
	"time"
)

const (
	Expense EntryType = "expense"
	Income  EntryType = "income"
)

const (
	Daily   RepeatInterval = "daily"
	Weekly  RepeatInterval = "weekly"
	Monthly RepeatInterval = "monthly"
	Yearly  RepeatInterval = "yearly"
)

type (
	// EntryType classifies a category or transaction as money in or money out.
	EntryType string

	// RepeatInterval is the frequency of a recurring transaction template.
	RepeatInterval string

	// Date is a UTC calendar date. Time-of-day is always midnight UTC.
	Date struct {
		time.Time
	}

	// Category groups transactions for one user.
	Category struct {
		ID        int64
		UserID    int64
		Name      string
		Type      EntryType
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Transaction is a single ledger entry owned by a user.
	// CategoryID is a weak reference: nil means uncategorized.
	Transaction struct {
		ID          int64
		UserID      int64
		CategoryID  *int64
		Amount      Money
		Type        EntryType
		Date        Date
		Description string
		Tags        []string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// RecurringTransaction is a template from which dated transactions
	// are materialized by the recurring worker.
	RecurringTransaction struct {
		ID                int64
		UserID            int64
		CategoryID        *int64
		Amount            Money
		Type              EntryType
		Description       string
		Every             RepeatInterval
		StartDate         Date
		EndDate           Date // zero value means open-ended
		LastExecutionDate time.Time
		Active            bool
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("invalid entry type")
	ErrInvalidDate   = errors.New("invalid date")
)

// IsValid reports whether t is one of the two enumerated entry types.
func (t EntryType) IsValid() bool {
	return t == Expense || t == Income
}

func (t EntryType) String() string { return string(t) }

// IsValid reports whether r is a supported repetition frequency.
func (r RepeatInterval) IsValid() bool {
	switch r {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

func (r RepeatInterval) String() string { return string(r) }

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), int(u.Month()), u.Day())
}

// ParseDate parses a YYYY-MM-DD string into a UTC Date.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MarshalJSON renders the date as a "YYYY-MM-DD" string.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts a "YYYY-MM-DD" string or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		*d = Date{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
