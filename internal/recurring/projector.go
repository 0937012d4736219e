package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"fintrack/internal/clock"
	"fintrack/internal/core"
)

// AutoGeneratedSuffix marks descriptions of transactions created by a sweep.
const AutoGeneratedSuffix = " (Auto-generated)"

// Store is the persistence the sweep writes through.
type Store interface {
	InsertTransaction(ctx context.Context, tx core.Transaction) (string, error)
	AdvanceRecurringRule(ctx context.Context, userID, ruleID string, next, lastGenerated core.Date) error
	SetRecurringRuleActive(ctx context.Context, userID, ruleID string, active bool) error
}

// SweepResult summarises one generation sweep. Generated counts inserted
// transactions only.
type SweepResult struct {
	Generated    int         `json:"generated"`
	Deactivated  int         `json:"deactivated"`
	Failed       int         `json:"failed"`
	Transactions []Generated `json:"transactions"`
}

// Generated is a stored transaction together with the rule that produced it.
type Generated struct {
	RuleID string `json:"rule_id"`
	core.Transaction
}

// Projector generates transactions for due rules.
type Projector struct {
	store Store
	clock clock.Clock
	newID func() string
}

func NewProjector(store Store, c clock.Clock) *Projector {
	if c == nil {
		c = clock.System{}
	}
	return &Projector{store: store, clock: c, newID: uuid.NewString}
}

// IsDue reports whether the rule should generate a transaction on today.
func IsDue(rule core.RecurringRule, today core.Date) bool {
	return rule.IsActive && !rule.NextDueDate.IsZero() && !rule.NextDueDate.After(today.Time)
}

// Expired reports whether the rule's current due date lies past its end date.
func Expired(rule core.RecurringRule) bool {
	return !rule.EndDate.IsEmpty() && rule.NextDueDate.After(rule.EndDate.Time)
}

// Sweep processes every due rule once. A rule whose insert fails is left
// untouched so it stays due for the next sweep; other rules still run.
// Callers must not run two sweeps for the same user concurrently.
func (p *Projector) Sweep(ctx context.Context, rules []core.RecurringRule) (SweepResult, error) {
	if p.store == nil {
		return SweepResult{}, fmt.Errorf("projector not properly initialized")
	}

	today := clock.Today(p.clock)
	result := SweepResult{Transactions: []Generated{}}

	for _, rule := range rules {
		if !IsDue(rule, today) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if Expired(rule) {
			if err := p.store.SetRecurringRuleActive(ctx, rule.UserID, rule.ID, false); err != nil {
				slog.ErrorContext(ctx, "Failed to deactivate expired recurring rule",
					"rule_id", rule.ID,
					"error", err)
				result.Failed++
				continue
			}
			result.Deactivated++
			slog.InfoContext(ctx, "Deactivated expired recurring rule",
				"rule_id", rule.ID,
				"next_due_date", rule.NextDueDate.String(),
				"end_date", rule.EndDate.String())
			continue
		}

		next, err := NextDueDate(rule.NextDueDate, rule.Frequency)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping recurring rule with unknown frequency",
				"rule_id", rule.ID,
				"frequency", rule.Frequency,
				"error", err)
			result.Failed++
			continue
		}

		tx := p.Generate(rule)
		id, err := p.store.InsertTransaction(ctx, tx)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from recurring rule",
				"rule_id", rule.ID,
				"description", rule.Description,
				"error", err)
			result.Failed++
			continue
		}
		tx.ID = id

		if err := p.store.AdvanceRecurringRule(ctx, rule.UserID, rule.ID, next, rule.NextDueDate); err != nil {
			// the transaction exists; only the schedule is stale
			slog.ErrorContext(ctx, "Failed to advance recurring rule",
				"rule_id", rule.ID,
				"error", err)
		}

		result.Generated++
		result.Transactions = append(result.Transactions, Generated{RuleID: rule.ID, Transaction: tx})
		slog.InfoContext(ctx, "Created transaction from recurring rule",
			"rule_id", rule.ID,
			"transaction_id", id,
			"amount", rule.Amount.String(),
			"frequency", rule.Frequency,
			"next_due_date", next.String())
	}

	slog.InfoContext(ctx, "Recurring sweep complete",
		"generated", result.Generated,
		"deactivated", result.Deactivated,
		"failed", result.Failed,
		"total_checked", len(rules))

	return result, nil
}

// Generate builds the transaction a rule produces for its current due date.
func (p *Projector) Generate(rule core.RecurringRule) core.Transaction {
	return core.Transaction{
		ID:            p.newID(),
		UserID:        rule.UserID,
		CategoryID:    rule.CategoryID,
		Category:      rule.Category,
		Amount:        rule.Amount,
		Type:          rule.Type,
		Description:   rule.Description + AutoGeneratedSuffix,
		Merchant:      rule.Merchant,
		PaymentMethod: rule.PaymentMethod,
		Date:          rule.NextDueDate,
		CreatedAt:     p.clock.Now(),
	}
}

// Reminder is an active rule falling due within its reminder window.
type Reminder struct {
	Rule      core.RecurringRule `json:"rule"`
	DaysUntil int                `json:"days_until"`
}

// Upcoming returns the active rules due between today and their reminder
// lead time, soonest first. It never mutates state.
func Upcoming(rules []core.RecurringRule, today core.Date) []Reminder {
	out := []Reminder{}
	for _, rule := range rules {
		if !rule.IsActive || rule.NextDueDate.IsZero() {
			continue
		}
		days := today.DaysUntil(rule.NextDueDate)
		if days >= 0 && days <= rule.ReminderDaysBefore {
			out = append(out, Reminder{Rule: rule, DaysUntil: days})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysUntil < out[j].DaysUntil
	})
	return out
}

// FirstDueDate is the initial due date of a rule starting on start.
func FirstDueDate(start core.Date, f core.Frequency) (core.Date, error) {
	return NextDueDate(start, f)
}
