package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portsrepo "github.com/SscSPs/transfer_backoffice/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/SscSPs/transfer_backoffice/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// expenseReviewerRoles see every expense and may edit any that is still modifiable.
var expenseReviewerRoles = []domain.Role{domain.RoleAdmin, domain.RoleDirector, domain.RoleAccounting}

// stageRoles lists who may act at each approval stage.
var stageRoles = map[domain.ValidationStage][]domain.Role{
	domain.StageAccounting: {domain.RoleAccounting, domain.RoleAdmin},
	domain.StageDirector:   {domain.RoleDirector, domain.RoleAdmin},
}

// expenseService implements the ExpenseSvcFacade interface
type expenseService struct {
	BaseService
	expenseRepo    portsrepo.ExpenseRepositoryWithTx
	cashExcessRepo portsrepo.CashExcessRepository
	reference      domain.ReferenceData
	notifier       portssvc.ExpenseNotifier
}

// ExpenseServiceOption is a functional option for configuring the expense service
type ExpenseServiceOption func(*expenseService)

// WithExpenseNotifier adds the status-change notifier
func WithExpenseNotifier(notifier portssvc.ExpenseNotifier) ExpenseServiceOption {
	return func(s *expenseService) {
		s.notifier = notifier
	}
}

// WithExpenseClock overrides the clock used for audit stamps
func WithExpenseClock(now func() time.Time) ExpenseServiceOption {
	return func(s *expenseService) {
		s.Now = now
	}
}

// NewExpenseService creates a new expense service with the provided options
func NewExpenseService(expenseRepo portsrepo.ExpenseRepositoryWithTx, cashExcessRepo portsrepo.CashExcessRepository, reference domain.ReferenceData, options ...ExpenseServiceOption) portssvc.ExpenseSvcFacade {
	svc := &expenseService{
		expenseRepo:    expenseRepo,
		cashExcessRepo: cashExcessRepo,
		reference:      reference,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.ExpenseSvcFacade = (*expenseService)(nil)

// canSee reports whether the actor may read or change the expense at all.
func canSee(actor domain.Actor, e *domain.Expense) bool {
	return actor.HasRole(expenseReviewerRoles...) || e.RequesterID == actor.UserID
}

func (s *expenseService) findExpense(ctx context.Context, expenseID string) (*domain.Expense, error) {
	expense, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find expense", slog.String("expense_id", expenseID))
		}
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) GetExpense(ctx context.Context, expenseID string, actor domain.Actor) (*domain.Expense, error) {
	expense, err := s.findExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, expense) {
		return nil, fmt.Errorf("%w: expense %s belongs to another user", apperrors.ErrForbidden, expenseID)
	}
	return expense, nil
}

func (s *expenseService) ListExpenses(ctx context.Context, params dto.ListExpensesParams, actor domain.Actor) (*dto.ListExpensesResponse, error) {
	if params.Status != "" && !params.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown expense status %q", apperrors.ErrValidation, params.Status)
	}
	limit := pagination.ClampLimit(params.Limit)
	filter := domain.ExpenseFilter{
		Status:   params.Status,
		AgencyID: params.AgencyID,
		Limit:    limit + 1,
	}
	if !actor.HasRole(expenseReviewerRoles...) {
		filter.RequesterID = actor.UserID
	}
	if params.NextToken != "" {
		createdAt, id, err := pagination.DecodeCursor(params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		filter.CursorCreatedAt = &createdAt
		filter.CursorID = id
	}

	expenses, err := s.expenseRepo.ListExpenses(ctx, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list expenses")
		return nil, err
	}

	resp := &dto.ListExpensesResponse{Expenses: expenses}
	if len(expenses) > limit {
		resp.Expenses = expenses[:limit]
		last := resp.Expenses[limit-1]
		token := pagination.EncodeCursor(last.CreatedAt, last.ExpenseID)
		resp.NextToken = &token
	}
	if resp.Expenses == nil {
		resp.Expenses = []domain.Expense{}
	}
	return resp, nil
}

func (s *expenseService) ListCashiersWithExcess(ctx context.Context, actor domain.Actor) ([]domain.CashierExcess, error) {
	if actor.Role == domain.RoleCashier {
		own, err := s.cashExcessRepo.FindCashierExcess(ctx, actor.UserID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return []domain.CashierExcess{}, nil
		}
		if err != nil {
			s.LogError(ctx, err, "Failed to read own cash excess")
			return nil, err
		}
		if !own.Available.IsPositive() {
			return []domain.CashierExcess{}, nil
		}
		return []domain.CashierExcess{*own}, nil
	}

	agency := ""
	if !actor.HasRole(expenseReviewerRoles...) {
		agency = actor.AgencyID
	}
	cashiers, err := s.cashExcessRepo.ListCashiersWithExcess(ctx, agency)
	if err != nil {
		s.LogError(ctx, err, "Failed to list cashiers with excess")
		return nil, err
	}
	return cashiers, nil
}

func (s *expenseService) validateCategory(category string) error {
	if len(s.reference.ExpenseCategories) > 0 && !s.reference.HasExpenseCategory(category) {
		return fmt.Errorf("%w: unknown expense category %q", apperrors.ErrValidation, category)
	}
	return nil
}

// checkExcess verifies that the cashier's current excess covers amount.
func (s *expenseService) checkExcess(ctx context.Context, cashierID string, amount decimal.Decimal) error {
	excess, err := s.cashExcessRepo.FindCashierExcess(ctx, cashierID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%w: cashier %s has no cash excess", apperrors.ErrValidation, cashierID)
	}
	if err != nil {
		s.LogError(ctx, err, "Failed to read cash excess", slog.String("cashier_id", cashierID))
		return err
	}
	if !excess.Available.IsPositive() {
		return fmt.Errorf("%w: cashier %s has no cash excess", apperrors.ErrValidation, cashierID)
	}
	if amount.GreaterThan(excess.Available) {
		return fmt.Errorf("%w: amount %s exceeds the available cash excess of %s", apperrors.ErrValidation, amount.String(), excess.Available.String())
	}
	return nil
}

func (s *expenseService) CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, actor domain.Actor) (*domain.Expense, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", apperrors.ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", apperrors.ErrValidation)
	}
	if err := s.validateCategory(req.Category); err != nil {
		return nil, err
	}

	agencyID := strings.TrimSpace(req.AgencyID)
	if agencyID == "" {
		agencyID = actor.AgencyID
	}

	cashierID := ""
	if req.DeductFromExcess {
		cashierID = strings.TrimSpace(req.DeductedCashierID)
		if actor.Role == domain.RoleCashier {
			if cashierID == "" {
				cashierID = actor.UserID
			}
			if cashierID != actor.UserID {
				return nil, fmt.Errorf("%w: a cashier can only deduct from their own cash excess", apperrors.ErrForbidden)
			}
		}
		if cashierID == "" {
			return nil, fmt.Errorf("%w: select the cashier whose cash excess pays for the expense", apperrors.ErrValidation)
		}
		if err := s.checkExcess(ctx, cashierID, req.Amount); err != nil {
			return nil, err
		}
	}

	now := s.CurrentTime()
	expense := domain.Expense{
		ExpenseID:         uuid.NewString(),
		Description:       description,
		Amount:            req.Amount,
		Category:          req.Category,
		RequesterID:       actor.UserID,
		RequesterName:     actor.Name,
		RequesterMail:     actor.Email,
		AgencyID:          agencyID,
		Comment:           strings.TrimSpace(req.Comment),
		Status:            domain.ExpensePending,
		DeductFromExcess:  req.DeductFromExcess,
		DeductedCashierID: cashierID,
		AuditFields:       domain.NewAuditFields(actor.UserID, now),
	}

	if err := s.expenseRepo.SaveExpense(ctx, expense); err != nil {
		s.LogError(ctx, err, "Failed to save expense", slog.String("expense_id", expense.ExpenseID))
		return nil, err
	}

	s.LogInfo(ctx, "Expense created",
		slog.String("expense_id", expense.ExpenseID),
		slog.String("amount", expense.Amount.String()),
		slog.Bool("deduct_from_excess", expense.DeductFromExcess))
	s.notify(ctx, expense, "", "", "", actor, []domain.Role{domain.RoleAccounting})
	return &expense, nil
}

// lockModifiable locks the expense and returns it if the actor may change it and its status allows it.
func (s *expenseService) lockModifiable(ctx context.Context, tx pgx.Tx, expenseID string, actor domain.Actor) (*domain.Expense, error) {
	expense, err := s.expenseRepo.FindExpenseByIDForUpdate(ctx, tx, expenseID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to lock expense", slog.String("expense_id", expenseID))
		}
		return nil, err
	}
	if !canSee(actor, expense) {
		return nil, fmt.Errorf("%w: expense %s belongs to another user", apperrors.ErrForbidden, expenseID)
	}
	if !expense.CanModify() {
		return nil, fmt.Errorf("%w: expense %s is %s", apperrors.ErrInvalidState, expenseID, expense.Status)
	}
	return expense, nil
}

func (s *expenseService) UpdateExpense(ctx context.Context, expenseID string, req dto.UpdateExpenseRequest, actor domain.Actor) (*domain.Expense, error) {
	tx, err := s.expenseRepo.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin expense update")
		return nil, err
	}
	defer s.Rollback(ctx, s.expenseRepo, tx)

	expense, err := s.lockModifiable(ctx, tx, expenseID, actor)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, fmt.Errorf("%w: description cannot be empty", apperrors.ErrValidation)
		}
		expense.Description = description
	}
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: amount cannot be negative", apperrors.ErrValidation)
		}
		if expense.DeductFromExcess && req.Amount.IsPositive() && !req.Amount.Equal(expense.Amount) {
			if err := s.checkExcess(ctx, expense.DeductedCashierID, *req.Amount); err != nil {
				return nil, err
			}
		}
		expense.Amount = *req.Amount
	}
	if req.Category != nil {
		if err := s.validateCategory(*req.Category); err != nil {
			return nil, err
		}
		expense.Category = *req.Category
	}
	if req.AgencyID != nil {
		expense.AgencyID = strings.TrimSpace(*req.AgencyID)
	}
	if req.Comment != nil {
		expense.Comment = strings.TrimSpace(*req.Comment)
	}
	expense.LastUpdatedAt = s.CurrentTime()
	expense.LastUpdatedBy = actor.UserID

	if err := s.expenseRepo.UpdateExpenseDetailsInTx(ctx, tx, *expense); err != nil {
		s.LogError(ctx, err, "Failed to update expense", slog.String("expense_id", expenseID))
		return nil, err
	}
	if err := s.expenseRepo.Commit(ctx, tx); err != nil {
		s.LogError(ctx, err, "Failed to commit expense update", slog.String("expense_id", expenseID))
		return nil, err
	}
	return expense, nil
}

func (s *expenseService) DeleteExpense(ctx context.Context, expenseID string, actor domain.Actor) error {
	tx, err := s.expenseRepo.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin expense deletion")
		return err
	}
	defer s.Rollback(ctx, s.expenseRepo, tx)

	if _, err := s.lockModifiable(ctx, tx, expenseID, actor); err != nil {
		return err
	}
	if err := s.expenseRepo.DeleteExpenseInTx(ctx, tx, expenseID); err != nil {
		s.LogError(ctx, err, "Failed to delete expense", slog.String("expense_id", expenseID))
		return err
	}
	if err := s.expenseRepo.Commit(ctx, tx); err != nil {
		s.LogError(ctx, err, "Failed to commit expense deletion", slog.String("expense_id", expenseID))
		return err
	}
	s.LogInfo(ctx, "Expense deleted", slog.String("expense_id", expenseID))
	return nil
}

func (s *expenseService) ValidateExpense(ctx context.Context, expenseID string, req dto.ValidateExpenseRequest, actor domain.Actor) (*domain.Expense, error) {
	if req.Approved == nil {
		return nil, fmt.Errorf("%w: approved is required", apperrors.ErrValidation)
	}
	roles, ok := stageRoles[req.Stage]
	if !ok {
		return nil, fmt.Errorf("%w: unknown validation stage %q", apperrors.ErrValidation, req.Stage)
	}
	if err := s.AuthorizeActor(ctx, actor, "validate expenses at "+string(req.Stage)+" stage", roles...); err != nil {
		return nil, err
	}
	approved := *req.Approved

	return s.transition(ctx, expenseID, actor, req.Stage, func(e *domain.Expense, now time.Time) error {
		return e.ApplyValidation(req.Stage, approved, req.RejectionReason, actor.UserID, now)
	})
}

func (s *expenseService) BypassApprove(ctx context.Context, expenseID string, actor domain.Actor) (*domain.Expense, error) {
	if err := s.AuthorizeActor(ctx, actor, "bypass accounting validation", stageRoles[domain.StageDirector]...); err != nil {
		return nil, err
	}
	expense, err := s.transition(ctx, expenseID, actor, domain.StageDirector, func(e *domain.Expense, now time.Time) error {
		return e.ApplyBypassApproval(actor.UserID, now)
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Expense approved bypassing accounting", slog.String("expense_id", expenseID))
	return expense, nil
}

// transition locks the expense, applies the state change and, on a final approval,
// commits the cash-excess deduction in the same transaction.
func (s *expenseService) transition(ctx context.Context, expenseID string, actor domain.Actor, stage domain.ValidationStage, apply func(*domain.Expense, time.Time) error) (*domain.Expense, error) {
	tx, err := s.expenseRepo.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin expense validation")
		return nil, err
	}
	defer s.Rollback(ctx, s.expenseRepo, tx)

	expense, err := s.expenseRepo.FindExpenseByIDForUpdate(ctx, tx, expenseID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to lock expense", slog.String("expense_id", expenseID))
		}
		return nil, err
	}

	previous := expense.Status
	now := s.CurrentTime()
	if err := apply(expense, now); err != nil {
		return nil, err
	}

	if expense.Status.IsFinalApproved() && expense.DeductFromExcess {
		if err := s.debitExcess(ctx, tx, expense, actor, now); err != nil {
			return nil, err
		}
	}

	if err := s.expenseRepo.UpdateExpenseInTx(ctx, tx, *expense); err != nil {
		s.LogError(ctx, err, "Failed to update expense status", slog.String("expense_id", expenseID))
		return nil, err
	}
	if err := s.expenseRepo.Commit(ctx, tx); err != nil {
		s.LogError(ctx, err, "Failed to commit expense validation", slog.String("expense_id", expenseID))
		return nil, err
	}

	s.LogInfo(ctx, "Expense status changed",
		slog.String("expense_id", expenseID),
		slog.String("from", string(previous)),
		slog.String("to", string(expense.Status)))

	reason := expense.AccountingRejectionReason
	otherRole := domain.RoleDirector
	if stage == domain.StageDirector {
		reason = expense.DirectorRejectionReason
		otherRole = domain.RoleAccounting
	}
	s.notify(ctx, *expense, previous, stage, reason, actor, []domain.Role{otherRole})
	return expense, nil
}

func (s *expenseService) debitExcess(ctx context.Context, tx pgx.Tx, expense *domain.Expense, actor domain.Actor, now time.Time) error {
	excess, err := s.cashExcessRepo.FindCashierExcessForUpdate(ctx, tx, expense.DeductedCashierID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("%w: cashier %s has no cash excess", apperrors.ErrValidation, expense.DeductedCashierID)
	}
	if err != nil {
		s.LogError(ctx, err, "Failed to lock cash excess", slog.String("cashier_id", expense.DeductedCashierID))
		return err
	}
	if expense.Amount.GreaterThan(excess.Available) {
		return fmt.Errorf("%w: amount %s exceeds the available cash excess of %s", apperrors.ErrValidation, expense.Amount.String(), excess.Available.String())
	}

	entry := domain.CashExcessEntry{
		EntryID:   uuid.NewString(),
		CashierID: expense.DeductedCashierID,
		ExpenseID: expense.ExpenseID,
		Amount:    expense.Amount,
		CreatedAt: now,
		CreatedBy: actor.UserID,
	}
	if err := s.cashExcessRepo.DebitCashierExcessInTx(ctx, tx, entry); err != nil {
		s.LogError(ctx, err, "Failed to debit cash excess", slog.String("cashier_id", entry.CashierID))
		return err
	}
	return nil
}

// notify emits the event after commit. Delivery failures are logged, never returned:
// the status change is already durable.
func (s *expenseService) notify(ctx context.Context, expense domain.Expense, previous domain.ExpenseStatus, stage domain.ValidationStage, reason string, actor domain.Actor, roles []domain.Role) {
	if s.notifier == nil {
		return
	}
	event := domain.ExpenseStatusEvent{
		ExpenseID:      expense.ExpenseID,
		Description:    expense.Description,
		Amount:         expense.Amount,
		PreviousStatus: previous,
		Status:         expense.Status,
		Stage:          stage,
		Reason:         reason,
		RequesterID:    expense.RequesterID,
		RequesterEmail: expense.RequesterMail,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
		NotifyRoles:    roles,
		OccurredAt:     s.CurrentTime(),
	}
	if err := s.notifier.NotifyExpenseStatusChanged(ctx, event); err != nil {
		s.LogError(ctx, err, "Failed to send expense notification", slog.String("expense_id", expense.ExpenseID))
	}
}
