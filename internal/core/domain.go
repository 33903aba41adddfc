package core

import (
	"errors"
	"strings"
	"time"
)

const (
	FoodDining     Category = "Food & Dining"
	Transportation Category = "Transportation"
	Shopping       Category = "Shopping"
	Entertainment  Category = "Entertainment"
	BillsUtilities Category = "Bills & Utilities"
	Healthcare     Category = "Healthcare"
	Education      Category = "Education"
	Savings        Category = "Savings & Investment"
	Other          Category = "Other"
)

type (
	// Category is one of the nine fixed expense categories. Other is the
	// catch-all.
	Category string

	Date struct {
		time.Time
	}

	// MonthKey identifies a calendar month as "yyyy-MM". Unique per user in
	// the monthly_savings collection.
	MonthKey string

	Money struct {
		Paise int64
	}

	Expense struct {
		ID          string
		UserID      string
		Amount      Money
		Category    Category
		Description string
		Date        Date
		CreatedAt   time.Time
		// Receipt holds an opaque encoded payload attached by the user,
		// ReceiptName its original filename. Both optional.
		Receipt     string
		ReceiptName string
	}

	// Income is a one-off income entry, distinct from the base salary.
	Income struct {
		ID          string
		UserID      string
		Amount      Money
		Description string
		Date        Date
		CreatedAt   time.Time
	}

	// RecurringExpense is a fixed monthly obligation without a
	// per-occurrence date. Its amount counts toward every cycle.
	RecurringExpense struct {
		ID       string
		Label    string
		Amount   Money
		Category Category
	}

	// SavedLabel is a reusable {name, amount, category} template for
	// one-click expense entry. Not itself a transaction.
	SavedLabel struct {
		ID       string
		Name     string
		Amount   Money
		Category Category
	}

	// MonthlySaving is the immutable once-per-month snapshot of income,
	// expenses and savings for a completed calendar month.
	MonthlySaving struct {
		ID          string
		UserID      string
		Month       MonthKey
		Year        int
		Income      Money
		Expenses    Money
		Saved       Money
		SavingsRate float64
	}

	// BudgetConfig holds the per-user salary preferences.
	BudgetConfig struct {
		Salary     Money
		RenewalDay int
		AvatarURL  string
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidRenewalDay  = errors.New("renewal day must be between 1 and 31")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyLabel         = errors.New("empty label")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotConfigured      = errors.New("not configured")
)

// Categories lists the nine fixed categories in display order.
func Categories() []Category {
	return []Category{
		FoodDining, Transportation, Shopping, Entertainment,
		BillsUtilities, Healthcare, Education, Savings, Other,
	}
}

func (c Category) Valid() bool {
	switch c {
	case FoodDining, Transportation, Shopping, Entertainment,
		BillsUtilities, Healthcare, Education, Savings, Other:
		return true
	}
	return false
}

// NewDate creates a date-only value at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
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

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Key returns the calendar month the date belongs to.
func (d Date) Key() MonthKey {
	return MonthKeyFor(d.Time)
}

// MonthKeyFor derives the "yyyy-MM" key from any instant.
func MonthKeyFor(t time.Time) MonthKey {
	return MonthKey(t.Format("2006-01"))
}

// Time returns the first instant of the month, or the zero time for a
// malformed key.
func (k MonthKey) Time() time.Time {
	t, err := time.Parse("2006-01", string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (m Money) Validate() error {
	if m.Paise <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

func (i Income) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(i.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(i.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return i.Amount.Validate()
}

func (re RecurringExpense) Validate() error {
	if len(strings.TrimSpace(re.Label)) == 0 {
		return ErrEmptyLabel
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if !re.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

func (l SavedLabel) Validate() error {
	if len(strings.TrimSpace(l.Name)) == 0 {
		return ErrEmptyLabel
	}
	if err := l.Amount.Validate(); err != nil {
		return err
	}
	if !l.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

func (c BudgetConfig) Validate() error {
	if c.Salary.Paise < 0 {
		return ErrInvalidAmount
	}
	if c.RenewalDay < 1 || c.RenewalDay > 31 {
		return ErrInvalidRenewalDay
	}
	return nil
}
