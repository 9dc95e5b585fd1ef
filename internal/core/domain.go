package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UserID identifies one of the two users in a couple.
type UserID string

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID   UserID
		Name string
	}

	// Couple links exactly two users. When Connected is false the partner
	// scope is disabled and partner-scoped queries fall back to "ours".
	Couple struct {
		ID        string
		UserA     UserID
		UserB     UserID
		Connected bool
	}

	Category struct {
		ID   string
		Name string
	}

	Expense struct {
		ID          string
		CoupleID    string
		CategoryID  string
		PaidBy      UserID
		Amount      Money
		Date        Date
		Split       SplitConfig
		Description string
		CreatedAt   time.Time
	}

	// Budget is the planned amount for one category in one month.
	// At most one row exists per (category, month, year).
	Budget struct {
		CategoryID string
		Month      int
		Year       int
		Amount     Money
	}

	SavingsGoal struct {
		ID         string
		Name       string
		Target     Money
		Current    Money
		Category   string
		TargetDate Date // zero when the goal has no deadline
		ColorIndex int
	}

	Contribution struct {
		ID     string
		GoalID string
		Amount Money
		Date   Date
		Note   string
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrUnknownUser   = errors.New("user does not belong to couple")
)

// ValidationError reports a rejected input before any state mutation.
// Field names the offending input so callers can surface it next to the form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month (1-12)
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// IsEmpty returns true for the zero date (used for optional dates such as goal deadlines)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m minus o; the result may be negative.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Cents == 0 }

// Partner returns the other user of the couple.
func (c Couple) Partner(u UserID) (UserID, error) {
	switch u {
	case c.UserA:
		return c.UserB, nil
	case c.UserB:
		return c.UserA, nil
	default:
		return "", ErrUnknownUser
	}
}

// Contains reports whether u is one of the couple's two users.
func (c Couple) Contains(u UserID) bool {
	return u == c.UserA || u == c.UserB
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Message: "date is required"}
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return &ValidationError{Field: "description", Message: "description is required"}
	}
	if len(e.Description) > 200 {
		return &ValidationError{Field: "description", Message: "description too long (max 200 characters)"}
	}
	if err := e.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return &ValidationError{Field: "category_id", Message: "category is required"}
	}
	if e.PaidBy == "" {
		return &ValidationError{Field: "paid_by", Message: "payer is required"}
	}
	return e.Split.validate()
}

func (b Budget) Validate() error {
	if b.Amount.Cents < 0 {
		return &ValidationError{Field: "amount", Message: "budget amount cannot be negative"}
	}
	if b.Month < 1 || b.Month > 12 {
		return &ValidationError{Field: "month", Message: "month must be between 1 and 12"}
	}
	if strings.TrimSpace(b.CategoryID) == "" {
		return &ValidationError{Field: "category_id", Message: "category is required"}
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if g.Target.Cents <= 0 {
		return &ValidationError{Field: "target_amount", Message: "target must be positive"}
	}
	if g.Current.Cents < 0 {
		return &ValidationError{Field: "current_amount", Message: "current amount cannot be negative"}
	}
	if len(strings.TrimSpace(g.Name)) == 0 {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	return nil
}

// Remaining returns how much is still missing to reach the target, never negative.
func (g SavingsGoal) Remaining() Money {
	r := g.Target.Cents - g.Current.Cents
	if r < 0 {
		r = 0
	}
	return Money{Cents: r}
}
