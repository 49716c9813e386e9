package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 1000
	MaxTags              = 10
	MaxTagLength         = 50
)

// ValidationResult aggregates every field error found on an entity so a
// caller can report them all at once instead of failing on the first.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

func (v *ValidationResult) add(format string, args ...any) {
	v.Valid = false
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Err returns the collected messages as a *ValidationError, or nil when valid.
func (v *ValidationResult) Err() error {
	if v.Valid {
		return nil
	}
	return &ValidationError{Errors: v.Errors}
}

// ValidationError carries the individual field messages so callers can
// report them separately (the HTTP layer turns them into a 422 body).
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// ValidateCategory checks the writable fields of a category.
func ValidateCategory(c Category) ValidationResult {
	v := newValidationResult()
	name := strings.TrimSpace(c.Name)
	if name == "" {
		v.add("name is required")
	} else if len(c.Name) > MaxNameLength {
		v.add("name too long (max %d characters)", MaxNameLength)
	}
	if !c.Type.IsValid() {
		v.add("type must be %q or %q", Expense, Income)
	}
	if c.UserID <= 0 {
		v.add("userId is required")
	}
	return *v
}

// ValidateTransaction checks the writable fields of a transaction.
func ValidateTransaction(t Transaction) ValidationResult {
	v := newValidationResult()
	if t.UserID <= 0 {
		v.add("userId is required")
	}
	if t.Amount.Cents <= 0 {
		v.add("amount must be positive")
	}
	if !t.Type.IsValid() {
		v.add("type must be %q or %q", Expense, Income)
	}
	if t.Date.IsZero() {
		v.add("date is required")
	}
	if len(t.Description) > MaxDescriptionLength {
		v.add("description too long (max %d characters)", MaxDescriptionLength)
	}
	validateTags(v, t.Tags)
	return *v
}

func validateTags(v *ValidationResult, tags []string) {
	if len(tags) > MaxTags {
		v.add("too many tags (max %d)", MaxTags)
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			v.add("tags must not be empty")
			break
		}
		if len(tag) > MaxTagLength {
			v.add("tag %q too long (max %d characters)", tag, MaxTagLength)
			break
		}
	}
}

// ValidateDateRange checks that a start/end pair is ordered. Both ends are
// inclusive, so equal dates are fine.
func ValidateDateRange(start, end Date) ValidationResult {
	v := newValidationResult()
	if start.IsZero() {
		v.add("startDate is required")
	}
	if end.IsZero() {
		v.add("endDate is required")
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start.Time) {
		v.add("endDate must not be before startDate")
	}
	return *v
}

// ValidateRecurring checks a recurring transaction template. Whether a
// start date in the past is acceptable is a policy decision, so the caller
// passes it in along with its notion of "now".
func ValidateRecurring(rt RecurringTransaction, allowPastStart bool, now time.Time) ValidationResult {
	v := newValidationResult()
	if rt.UserID <= 0 {
		v.add("userId is required")
	}
	if rt.Amount.Cents <= 0 {
		v.add("amount must be positive")
	}
	if !rt.Type.IsValid() {
		v.add("type must be %q or %q", Expense, Income)
	}
	if strings.TrimSpace(rt.Description) == "" {
		v.add("description is required")
	} else if len(rt.Description) > MaxDescriptionLength {
		v.add("description too long (max %d characters)", MaxDescriptionLength)
	}
	if !rt.Every.IsValid() {
		v.add("every must be one of %q, %q, %q, %q", Daily, Weekly, Monthly, Yearly)
	}
	if rt.StartDate.IsZero() {
		v.add("startDate is required")
	} else {
		if !allowPastStart && rt.StartDate.Before(DateOf(now).Time) {
			v.add("startDate must not be in the past")
		}
		if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate.Time) {
			v.add("endDate must not be before startDate")
		}
	}
	return *v
}
