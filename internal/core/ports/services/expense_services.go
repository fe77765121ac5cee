package services

import (
	"context"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
)

// ExpenseReaderSvc defines read operations for expenses
type ExpenseReaderSvc interface {
	GetExpense(ctx context.Context, expenseID string, actor domain.Actor) (*domain.Expense, error)
	ListExpenses(ctx context.Context, params dto.ListExpensesParams, actor domain.Actor) (*dto.ListExpensesResponse, error)

	// ListCashiersWithExcess lists cashiers that can fund an expense; a cashier only sees themself.
	ListCashiersWithExcess(ctx context.Context, actor domain.Actor) ([]domain.CashierExcess, error)
}

// ExpenseWriterSvc defines expense write operations
type ExpenseWriterSvc interface {
	CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, actor domain.Actor) (*domain.Expense, error)
	UpdateExpense(ctx context.Context, expenseID string, req dto.UpdateExpenseRequest, actor domain.Actor) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, expenseID string, actor domain.Actor) error
}

// ExpenseApprovalSvc defines the approval flow
type ExpenseApprovalSvc interface {
	// ValidateExpense applies one stage decision. A director approval commits the
	// cash-excess deduction in the same transaction as the status change.
	ValidateExpense(ctx context.Context, expenseID string, req dto.ValidateExpenseRequest, actor domain.Actor) (*domain.Expense, error)

	// BypassApprove approves a pending expense at director level, skipping accounting.
	BypassApprove(ctx context.Context, expenseID string, actor domain.Actor) (*domain.Expense, error)
}

// ExpenseSvcFacade combines all expense-related service interfaces
type ExpenseSvcFacade interface {
	ExpenseReaderSvc
	ExpenseWriterSvc
	ExpenseApprovalSvc
}

// ExpenseNotifier delivers committed status changes to the interested parties.
type ExpenseNotifier interface {
	NotifyExpenseStatusChanged(ctx context.Context, event domain.ExpenseStatusEvent) error
}
