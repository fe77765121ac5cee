package repositories

import (
	"context"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// ExpenseReader defines read operations for expenses
type ExpenseReader interface {
	FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error)

	// ListExpenses returns up to filter.Limit expenses, newest first, after the cursor if set.
	ListExpenses(ctx context.Context, filter domain.ExpenseFilter) ([]domain.Expense, error)
}

// ExpenseWriter defines write operations for expenses
type ExpenseWriter interface {
	SaveExpense(ctx context.Context, expense domain.Expense) error
}

// ExpenseTransactionSupport defines operations that run inside a caller's transaction
type ExpenseTransactionSupport interface {
	FindExpenseByIDForUpdate(ctx context.Context, tx pgx.Tx, expenseID string) (*domain.Expense, error)
	UpdateExpenseInTx(ctx context.Context, tx pgx.Tx, expense domain.Expense) error
	// UpdateExpenseDetailsInTx writes only the requester-editable fields; status and validation trail are untouched.
	UpdateExpenseDetailsInTx(ctx context.Context, tx pgx.Tx, expense domain.Expense) error
	DeleteExpenseInTx(ctx context.Context, tx pgx.Tx, expenseID string) error
}

// ExpenseRepositoryFacade combines all expense-related repository interfaces
type ExpenseRepositoryFacade interface {
	ExpenseReader
	ExpenseWriter
	ExpenseTransactionSupport
}

// ExpenseRepositoryWithTx extends ExpenseRepositoryFacade with transaction capabilities
type ExpenseRepositoryWithTx interface {
	ExpenseRepositoryFacade
	TransactionManager
}

// CashExcessRepository reads and debits cashier cash-excess balances.
type CashExcessRepository interface {
	// ListCashiersWithExcess returns cashiers holding a positive excess, for one agency or all when empty.
	ListCashiersWithExcess(ctx context.Context, agencyID string) ([]domain.CashierExcess, error)
	FindCashierExcess(ctx context.Context, cashierID string) (*domain.CashierExcess, error)
	FindCashierExcessForUpdate(ctx context.Context, tx pgx.Tx, cashierID string) (*domain.CashierExcess, error)

	// DebitCashierExcessInTx lowers the cashier's excess and records the ledger entry.
	DebitCashierExcessInTx(ctx context.Context, tx pgx.Tx, entry domain.CashExcessEntry) error
}
