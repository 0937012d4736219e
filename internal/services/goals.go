package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type GoalService struct {
	repo   Repository
	logger *log.Logger
}

func NewGoalService(repo Repository) *GoalService {
	return &GoalService{
		repo:   repo,
		logger: log.Default().WithComponent(log.ComponentGoals),
	}
}

func (s *GoalService) List(ctx context.Context, userID string) ([]core.SavingsGoal, error) {
	return s.repo.ListGoals(ctx, userID)
}

// Create stores a new goal. A goal whose starting amount already covers the
// target is stored as completed.
func (s *GoalService) Create(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if strings.TrimSpace(g.UserID) == "" {
		return core.SavingsGoal{}, fmt.Errorf("%w: user is required", core.ErrEmptyName)
	}
	g.Name = strings.TrimSpace(g.Name)
	if g.Icon == "" {
		g.Icon = core.DefaultGoalIcon
	}
	if g.Color == "" {
		g.Color = core.DefaultGoalColor
	}
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	g.IsCompleted = g.Reached()

	id, err := s.repo.InsertGoal(ctx, g)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("save goal: %w", err)
	}
	g.ID = id
	return g, nil
}

// Contribute adds amount to the goal and marks it completed once the target
// is reached.
func (s *GoalService) Contribute(ctx context.Context, userID, goalID string, amount decimal.Decimal) (core.SavingsGoal, error) {
	if !amount.IsPositive() {
		return core.SavingsGoal{}, fmt.Errorf("%w: contribution must be greater than zero", core.ErrInvalidAmount)
	}
	g, err := s.repo.GetGoal(ctx, userID, goalID)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	g.IsCompleted = g.Reached()

	if err := s.repo.UpdateGoalProgress(ctx, userID, goalID, g.CurrentAmount, g.IsCompleted); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update goal: %w", err)
	}
	if g.IsCompleted {
		s.logger.InfoContext(ctx, "Savings goal reached",
			log.FieldUserID, userID,
			log.FieldGoalID, goalID,
			log.FieldAmount, g.CurrentAmount.String())
	}
	return g, nil
}

// ToggleCompletion flips the completed flag without touching the amount.
func (s *GoalService) ToggleCompletion(ctx context.Context, userID, goalID string) (core.SavingsGoal, error) {
	g, err := s.repo.GetGoal(ctx, userID, goalID)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g.IsCompleted = !g.IsCompleted
	if err := s.repo.UpdateGoalProgress(ctx, userID, goalID, g.CurrentAmount, g.IsCompleted); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

// Update rewrites a goal's terms and progress. Completion follows the
// amounts, as it does on creation.
func (s *GoalService) Update(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	cur, err := s.repo.GetGoal(ctx, g.UserID, g.ID)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g.Name = strings.TrimSpace(g.Name)
	if g.Icon == "" {
		g.Icon = cur.Icon
	}
	if g.Color == "" {
		g.Color = cur.Color
	}
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	g.IsCompleted = g.Reached()

	if err := s.repo.UpdateGoal(ctx, g); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, goalID string) error {
	if err := s.repo.DeleteGoal(ctx, userID, goalID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Savings goal deleted",
		log.FieldUserID, userID,
		log.FieldGoalID, goalID)
	return nil
}
