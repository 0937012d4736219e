package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
	CategoryBoth    CategoryType = "both"

	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	maxDescriptionLength = 500
	maxNameLength        = 100
)

type (
	TransactionType string
	CategoryType    string
	Frequency       string

	// Transaction is a single ledger entry. Category and Splits are resolved by
	// the data-access layer before the transaction reaches any computation.
	Transaction struct {
		ID            string          `json:"id"`
		UserID        string          `json:"user_id"`
		CategoryID    string          `json:"category_id,omitempty"`
		Amount        decimal.Decimal `json:"amount"`
		Type          TransactionType `json:"type"`
		Description   string          `json:"description,omitempty"`
		Merchant      string          `json:"merchant,omitempty"`
		PaymentMethod string          `json:"payment_method,omitempty"`
		Date          Date            `json:"transaction_date"`
		IsSplit       bool            `json:"is_split"`
		CreatedAt     time.Time       `json:"created_at"`
		Category      *Category       `json:"category,omitempty"`
		Splits        []Split         `json:"splits,omitempty"`
	}

	Split struct {
		ID            string          `json:"id"`
		TransactionID string          `json:"transaction_id"`
		CategoryID    string          `json:"category_id,omitempty"`
		Amount        decimal.Decimal `json:"amount"`
		Notes         string          `json:"notes,omitempty"`
		Category      *Category       `json:"category,omitempty"`
	}

	Category struct {
		ID         string       `json:"id"`
		UserID     string       `json:"user_id"`
		Name       string       `json:"name"`
		Icon       string       `json:"icon"`
		Color      string       `json:"color"`
		Type       CategoryType `json:"type"`
		IsDefault  bool         `json:"is_default"`
		IsArchived bool         `json:"is_archived"`
	}

	// Budget is a monthly limit for one category. Month is always the first day.
	Budget struct {
		ID         string          `json:"id"`
		UserID     string          `json:"user_id"`
		CategoryID string          `json:"category_id"`
		Amount     decimal.Decimal `json:"amount"`
		Month      Date            `json:"month"`
		Category   *Category       `json:"category,omitempty"`
	}

	RecurringRule struct {
		ID                 string          `json:"id"`
		UserID             string          `json:"user_id"`
		CategoryID         string          `json:"category_id,omitempty"`
		Amount             decimal.Decimal `json:"amount"`
		Type               TransactionType `json:"type"`
		Description        string          `json:"description"`
		Merchant           string          `json:"merchant,omitempty"`
		PaymentMethod      string          `json:"payment_method,omitempty"`
		Frequency          Frequency       `json:"frequency"`
		StartDate          Date            `json:"start_date"`
		EndDate            Date            `json:"end_date"`
		NextDueDate        Date            `json:"next_due_date"`
		IsActive           bool            `json:"is_active"`
		AutoGenerate       bool            `json:"auto_generate"`
		ReminderDaysBefore int             `json:"reminder_days_before"`
		LastGeneratedDate  Date            `json:"last_generated_date"`
		Category           *Category       `json:"category,omitempty"`
	}

	SavingsGoal struct {
		ID            string          `json:"id"`
		UserID        string          `json:"user_id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"target_amount"`
		CurrentAmount decimal.Decimal `json:"current_amount"`
		Deadline      Date            `json:"deadline"`
		Icon          string          `json:"icon"`
		Color         string          `json:"color"`
		IsCompleted   bool            `json:"is_completed"`
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrInvalidCategoryType  = errors.New("invalid category type")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidFrequency     = errors.New("invalid frequency")
	ErrDescriptionTooLong   = errors.New("description too long")
	ErrEmptyName            = errors.New("empty name")
	ErrSplitMismatch        = errors.New("split amounts must sum to the transaction amount")
	ErrCategoryTypeMismatch = errors.New("category type does not match transaction type")

	ErrNotFound        = errors.New("not found")
	ErrDefaultCategory = errors.New("default categories cannot be deleted")
	ErrCategoryInUse   = errors.New("cannot delete category that is used in transactions, archive it instead")
)

var validationErrors = []error{
	ErrInvalidAmount,
	ErrInvalidType,
	ErrInvalidCategoryType,
	ErrInvalidDate,
	ErrInvalidRange,
	ErrInvalidFrequency,
	ErrDescriptionTooLong,
	ErrEmptyName,
	ErrSplitMismatch,
	ErrCategoryTypeMismatch,
	ErrDefaultCategory,
	ErrCategoryInUse,
}

// IsValidation reports whether err was caused by rejected input rather than
// a missing record or an infrastructure failure.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (c CategoryType) Valid() bool {
	return c == CategoryIncome || c == CategoryExpense || c == CategoryBoth
}

// Accepts reports whether a category of this type may hold transactions of type t.
func (c CategoryType) Accepts(t TransactionType) bool {
	return c == CategoryBoth || string(c) == string(t)
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func validateAmount(a decimal.Decimal) error {
	if !a.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return nil
}

func validateCategory(c *Category, t TransactionType) error {
	if c == nil {
		return nil
	}
	if !c.Type.Accepts(t) {
		return fmt.Errorf("%w: %s category %q cannot hold %s transactions", ErrCategoryTypeMismatch, c.Type, c.Name, t)
	}
	return nil
}

// SplitTotal sums the split amounts.
func (t Transaction) SplitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, s := range t.Splits {
		total = total.Add(s.Amount)
	}
	return total
}

// Validate checks a transaction at creation time. Resolved categories, when
// present, must be compatible with the transaction type.
func (t Transaction) Validate() error {
	if err := validateAmount(t.Amount); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Description) > maxDescriptionLength {
		return fmt.Errorf("%w (max %d characters)", ErrDescriptionTooLong, maxDescriptionLength)
	}
	if err := validateCategory(t.Category, t.Type); err != nil {
		return err
	}
	if !t.IsSplit {
		return nil
	}
	if len(t.Splits) == 0 {
		return fmt.Errorf("%w: split transaction has no splits", ErrSplitMismatch)
	}
	for i, s := range t.Splits {
		if err := validateAmount(s.Amount); err != nil {
			return fmt.Errorf("split %d: %w", i+1, err)
		}
		if err := validateCategory(s.Category, t.Type); err != nil {
			return fmt.Errorf("split %d: %w", i+1, err)
		}
	}
	if total := t.SplitTotal(); !total.Equal(t.Amount) {
		return fmt.Errorf("%w: splits total %s, transaction amount %s", ErrSplitMismatch, total.StringFixed(2), t.Amount.StringFixed(2))
	}
	return nil
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name too long (max %d characters)", ErrEmptyName, maxNameLength)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategoryType, c.Type)
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return fmt.Errorf("%w: budget requires a category", ErrEmptyName)
	}
	if b.Amount.IsNegative() {
		return fmt.Errorf("%w: budget cannot be negative", ErrInvalidAmount)
	}
	if err := b.Month.Validate(); err != nil {
		return err
	}
	if b.Month.Day() != 1 {
		return fmt.Errorf("%w: budget month must be the first day of the month", ErrInvalidDate)
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if err := validateAmount(r.Amount); err != nil {
		return err
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, r.Type)
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	if strings.TrimSpace(r.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrEmptyName)
	}
	if len(r.Description) > maxDescriptionLength {
		return fmt.Errorf("%w (max %d characters)", ErrDescriptionTooLong, maxDescriptionLength)
	}
	if err := r.StartDate.Validate(); err != nil {
		return fmt.Errorf("start date: %w", err)
	}
	if !r.EndDate.IsEmpty() && r.EndDate.Before(r.StartDate.Time) {
		return fmt.Errorf("%w: end date must not be before start date", ErrInvalidDate)
	}
	if r.ReminderDaysBefore < 0 {
		return fmt.Errorf("%w: reminder days cannot be negative", ErrInvalidDate)
	}
	return validateCategory(r.Category, r.Type)
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := validateAmount(g.TargetAmount); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if g.CurrentAmount.IsNegative() {
		return fmt.Errorf("%w: current amount cannot be negative", ErrInvalidAmount)
	}
	return nil
}

// Reached reports whether the goal's current amount covers its target.
func (g SavingsGoal) Reached() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Progress returns current/target as a percentage capped at 100.
func (g SavingsGoal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	p := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100))
	if p.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return p
}
