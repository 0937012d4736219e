package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/clock"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/recurring"
)

// RecurringService manages recurring rules and runs generation sweeps.
type RecurringService struct {
	repo      Repository
	projector *recurring.Projector
	clock     clock.Clock
	publisher EventPublisher
	ledger    *LedgerService
	sweeps    singleflight.Group
	logger    *log.Logger

	reminderDays int
}

// NewRecurringService wires the projector to repo. publisher may be nil, in
// which case no events are emitted. ledger, when set, has its cached views
// dropped after a sweep inserts transactions.
func NewRecurringService(repo Repository, c clock.Clock, publisher EventPublisher, ledger *LedgerService) *RecurringService {
	if c == nil {
		c = clock.System{}
	}
	return &RecurringService{
		repo:      repo,
		projector: recurring.NewProjector(repo, c),
		clock:     c,
		publisher: publisher,
		ledger:    ledger,
		logger:    log.Default().WithComponent(log.ComponentRecurring),

		reminderDays: core.DefaultReminderDays,
	}
}

// WithReminderDays sets the reminder lead time given to rules created
// without one.
func (s *RecurringService) WithReminderDays(days int) *RecurringService {
	if days > 0 {
		s.reminderDays = days
	}
	return s
}

func (s *RecurringService) Rules(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	return s.repo.ListRecurringRules(ctx, userID)
}

// CreateRule stores a new active rule. Its first due date is one period after
// the start date.
func (s *RecurringService) CreateRule(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error) {
	if strings.TrimSpace(r.UserID) == "" {
		return core.RecurringRule{}, fmt.Errorf("%w: user is required", core.ErrEmptyName)
	}
	if r.StartDate.IsEmpty() {
		r.StartDate = clock.Today(s.clock)
	}
	if r.ReminderDaysBefore == 0 {
		r.ReminderDaysBefore = s.reminderDays
	}
	r.IsActive = true
	r.LastGeneratedDate = core.Date{}

	if err := s.resolveCategory(ctx, &r); err != nil {
		return core.RecurringRule{}, err
	}
	if err := r.Validate(); err != nil {
		return core.RecurringRule{}, err
	}
	next, err := recurring.FirstDueDate(r.StartDate, r.Frequency)
	if err != nil {
		return core.RecurringRule{}, err
	}
	r.NextDueDate = next

	id, err := s.repo.InsertRecurringRule(ctx, r)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("save recurring rule: %w", err)
	}
	r.ID = id
	s.logger.InfoContext(ctx, "Recurring rule created",
		log.FieldUserID, r.UserID,
		log.FieldRuleID, id,
		"frequency", r.Frequency,
		"next_due_date", r.NextDueDate.String())
	return r, nil
}

func (s *RecurringService) resolveCategory(ctx context.Context, r *core.RecurringRule) error {
	r.Category = nil
	if r.CategoryID == "" {
		return nil
	}
	cats, err := s.repo.ListCategories(ctx, r.UserID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for i := range cats {
		if cats[i].ID == r.CategoryID {
			r.Category = &cats[i]
			return nil
		}
	}
	return fmt.Errorf("category %s: %w", r.CategoryID, core.ErrNotFound)
}

// UpdateRule edits a rule's terms. The active flag and generation history
// stay as stored. Changing the start date or frequency reschedules the next
// due date from the last generated occurrence, or from the start when
// nothing was generated yet.
func (s *RecurringService) UpdateRule(ctx context.Context, r core.RecurringRule) (core.RecurringRule, error) {
	rules, err := s.repo.ListRecurringRules(ctx, r.UserID)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("list recurring rules: %w", err)
	}
	var cur *core.RecurringRule
	for i := range rules {
		if rules[i].ID == r.ID {
			cur = &rules[i]
			break
		}
	}
	if cur == nil {
		return core.RecurringRule{}, fmt.Errorf("recurring rule %s: %w", r.ID, core.ErrNotFound)
	}

	if r.StartDate.IsEmpty() {
		r.StartDate = cur.StartDate
	}
	if r.ReminderDaysBefore == 0 {
		r.ReminderDaysBefore = cur.ReminderDaysBefore
	}
	r.IsActive = cur.IsActive
	r.LastGeneratedDate = cur.LastGeneratedDate
	r.NextDueDate = cur.NextDueDate

	if err := s.resolveCategory(ctx, &r); err != nil {
		return core.RecurringRule{}, err
	}
	if err := r.Validate(); err != nil {
		return core.RecurringRule{}, err
	}

	if !r.StartDate.Equal(cur.StartDate.Time) || r.Frequency != cur.Frequency {
		if r.LastGeneratedDate.IsEmpty() {
			r.NextDueDate, err = recurring.FirstDueDate(r.StartDate, r.Frequency)
		} else {
			r.NextDueDate, err = recurring.NextDueDate(r.LastGeneratedDate, r.Frequency)
		}
		if err != nil {
			return core.RecurringRule{}, err
		}
	}

	if err := s.repo.UpdateRecurringRule(ctx, r); err != nil {
		return core.RecurringRule{}, fmt.Errorf("update recurring rule: %w", err)
	}
	s.logger.InfoContext(ctx, "Recurring rule updated",
		log.FieldUserID, r.UserID,
		log.FieldRuleID, r.ID,
		"frequency", r.Frequency,
		"next_due_date", r.NextDueDate.String())
	return r, nil
}

// DeleteRule removes a rule. Transactions it already generated are kept.
func (s *RecurringService) DeleteRule(ctx context.Context, userID, ruleID string) error {
	if err := s.repo.DeleteRecurringRule(ctx, userID, ruleID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Recurring rule deleted",
		log.FieldUserID, userID,
		log.FieldRuleID, ruleID)
	return nil
}

// ToggleRule pauses or resumes a rule. The schedule is left as it was.
func (s *RecurringService) ToggleRule(ctx context.Context, userID, ruleID string, active bool) error {
	return s.repo.SetRecurringRuleActive(ctx, userID, ruleID, active)
}

// Reminders lists the user's rules due within their reminder window.
func (s *RecurringService) Reminders(ctx context.Context, userID string) ([]recurring.Reminder, error) {
	rules, err := s.repo.ListRecurringRules(ctx, userID)
	if err != nil {
		return nil, err
	}
	return recurring.Upcoming(rules, clock.Today(s.clock)), nil
}

// Sweep generates the due transactions for one user. Concurrent calls for
// the same user share a single run.
func (s *RecurringService) Sweep(ctx context.Context, userID string) (recurring.SweepResult, error) {
	v, err, shared := s.sweeps.Do(userID, func() (any, error) {
		return s.sweep(ctx, userID)
	})
	if shared {
		s.logger.DebugContext(ctx, "Joined in-flight sweep", log.FieldUserID, userID)
	}
	if v == nil {
		return recurring.SweepResult{}, err
	}
	return v.(recurring.SweepResult), err
}

func (s *RecurringService) sweep(ctx context.Context, userID string) (recurring.SweepResult, error) {
	rules, err := s.repo.ListRecurringRules(ctx, userID)
	if err != nil {
		return recurring.SweepResult{}, fmt.Errorf("list recurring rules: %w", err)
	}

	result, err := s.projector.Sweep(ctx, rules)
	if result.Generated > 0 && s.ledger != nil {
		s.ledger.Invalidate(userID)
	}
	for _, g := range result.Transactions {
		s.publish(ctx, g)
	}
	return result, err
}

// publish never fails the sweep; the transaction is already stored.
func (s *RecurringService) publish(ctx context.Context, g recurring.Generated) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionGenerated(ctx, g.Transaction, g.RuleID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish generated transaction",
			log.NewFields().
				WithUser(g.UserID).
				WithError(err, log.ErrorTypeNetwork).
				WithOperation(log.OpPublish).
				WithTransaction(g.ID, string(g.Type), g.Amount.String(), g.CategoryID).
				ToSlice()...)
	}
}

// SweepAll runs a sweep for every user holding an active rule. Per-user
// failures are logged and counted; the first one is returned after all users
// were attempted.
func (s *RecurringService) SweepAll(ctx context.Context) (recurring.SweepResult, error) {
	users, err := s.repo.ListRecurringUsers(ctx)
	if err != nil {
		return recurring.SweepResult{}, fmt.Errorf("list recurring users: %w", err)
	}

	total := recurring.SweepResult{Transactions: []recurring.Generated{}}
	var firstErr error
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		res, err := s.Sweep(ctx, userID)
		total.Generated += res.Generated
		total.Deactivated += res.Deactivated
		total.Failed += res.Failed
		total.Transactions = append(total.Transactions, res.Transactions...)
		if err != nil {
			s.logger.ErrorContext(ctx, "Sweep failed for user",
				log.FieldUserID, userID,
				log.FieldError, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return total, firstErr
}
