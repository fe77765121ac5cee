package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portsrepo "github.com/SscSPs/transfer_backoffice/internal/core/ports/repositories"
	"github.com/SscSPs/transfer_backoffice/internal/models"
	"github.com/SscSPs/transfer_backoffice/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxExpenseRepository struct {
	BaseRepository
}

// newPgxExpenseRepository creates a new repository for expenses.
func newPgxExpenseRepository(pool *pgxpool.Pool) portsrepo.ExpenseRepositoryWithTx {
	return &PgxExpenseRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ExpenseRepositoryWithTx = (*PgxExpenseRepository)(nil)

const selectExpenseFields = `
	expense_id, description, amount, category, requester_id, requester_name, requester_email,
	agency_id, comment, status, deduct_from_excess, deducted_cashier_id,
	accounting_validated_by, accounting_validated_at, accounting_rejection_reason,
	director_validated_by, director_validated_at, director_rejection_reason,
	created_at, created_by, last_updated_at, last_updated_by
`

func scanExpense(row pgx.Row) (models.Expense, error) {
	var m models.Expense
	err := row.Scan(
		&m.ExpenseID,
		&m.Description,
		&m.Amount,
		&m.Category,
		&m.RequesterID,
		&m.RequesterName,
		&m.RequesterEmail,
		&m.AgencyID,
		&m.Comment,
		&m.Status,
		&m.DeductFromExcess,
		&m.DeductedCashierID,
		&m.AccountingValidatedBy,
		&m.AccountingValidatedAt,
		&m.AccountingRejectionReason,
		&m.DirectorValidatedBy,
		&m.DirectorValidatedAt,
		&m.DirectorRejectionReason,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

func (r *PgxExpenseRepository) findExpense(ctx context.Context, row pgx.Row, expenseID string) (*domain.Expense, error) {
	m, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: expense %s", apperrors.ErrNotFound, expenseID)
		}
		return nil, fmt.Errorf("failed to find expense %s: %w", expenseID, err)
	}
	e := mapping.ToDomainExpense(m)
	return &e, nil
}

// FindExpenseByID retrieves an expense by its ID.
func (r *PgxExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	query := `SELECT ` + selectExpenseFields + ` FROM expenses WHERE expense_id = $1;`
	return r.findExpense(ctx, r.Pool.QueryRow(ctx, query, expenseID), expenseID)
}

// FindExpenseByIDForUpdate retrieves and locks an expense within a transaction.
func (r *PgxExpenseRepository) FindExpenseByIDForUpdate(ctx context.Context, tx pgx.Tx, expenseID string) (*domain.Expense, error) {
	query := `SELECT ` + selectExpenseFields + ` FROM expenses WHERE expense_id = $1 FOR UPDATE;`
	return r.findExpense(ctx, tx.QueryRow(ctx, query, expenseID), expenseID)
}

// ListExpenses returns up to filter.Limit expenses, newest first, after the cursor if set.
// A status filter also matches the legacy statuses it stands for.
func (r *PgxExpenseRepository) ListExpenses(ctx context.Context, filter domain.ExpenseFilter) ([]domain.Expense, error) {
	conditions := []string{}
	args := []interface{}{}
	if filter.Status != "" {
		statuses := []string{}
		for _, s := range filter.Status.Equivalents() {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		conditions = append(conditions, "status = ANY($"+strconv.Itoa(len(args))+")")
	}
	if filter.AgencyID != "" {
		args = append(args, filter.AgencyID)
		conditions = append(conditions, "agency_id = $"+strconv.Itoa(len(args)))
	}
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, "requester_id = $"+strconv.Itoa(len(args)))
	}
	if filter.CursorCreatedAt != nil {
		args = append(args, *filter.CursorCreatedAt, filter.CursorID)
		conditions = append(conditions, "(created_at, expense_id) < ($"+strconv.Itoa(len(args)-1)+", $"+strconv.Itoa(len(args))+")")
	}

	query := `SELECT ` + selectExpenseFields + ` FROM expenses`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, expense_id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query expenses", err)
	}
	defer rows.Close()

	expenses := []domain.Expense{}
	for rows.Next() {
		m, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense row: %w", err)
		}
		expenses = append(expenses, mapping.ToDomainExpense(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense rows: %w", err)
	}
	return expenses, nil
}

// SaveExpense inserts a new expense.
func (r *PgxExpenseRepository) SaveExpense(ctx context.Context, expense domain.Expense) error {
	m := mapping.ToModelExpense(expense)
	query := `
		INSERT INTO expenses (` + selectExpenseFields + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.ExpenseID, m.Description, m.Amount, m.Category, m.RequesterID, m.RequesterName, m.RequesterEmail,
		m.AgencyID, m.Comment, m.Status, m.DeductFromExcess, m.DeductedCashierID,
		m.AccountingValidatedBy, m.AccountingValidatedAt, m.AccountingRejectionReason,
		m.DirectorValidatedBy, m.DirectorValidatedAt, m.DirectorRejectionReason,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("%w: expense %s already exists", apperrors.ErrDuplicate, m.ExpenseID)
		}
		return fmt.Errorf("failed to save expense %s: %w", m.ExpenseID, err)
	}
	return nil
}

const updateExpenseQuery = `
	UPDATE expenses
	SET description = $2, amount = $3, category = $4, agency_id = $5, comment = $6, status = $7,
	    accounting_validated_by = $8, accounting_validated_at = $9, accounting_rejection_reason = $10,
	    director_validated_by = $11, director_validated_at = $12, director_rejection_reason = $13,
	    last_updated_at = $14, last_updated_by = $15
	WHERE expense_id = $1;
`

func updateExpenseArgs(m models.Expense) []interface{} {
	return []interface{}{
		m.ExpenseID, m.Description, m.Amount, m.Category, m.AgencyID, m.Comment, m.Status,
		m.AccountingValidatedBy, m.AccountingValidatedAt, m.AccountingRejectionReason,
		m.DirectorValidatedBy, m.DirectorValidatedAt, m.DirectorRejectionReason,
		m.LastUpdatedAt, m.LastUpdatedBy,
	}
}

// UpdateExpenseInTx writes the status and validation trail of a locked expense.
func (r *PgxExpenseRepository) UpdateExpenseInTx(ctx context.Context, tx pgx.Tx, expense domain.Expense) error {
	m := mapping.ToModelExpense(expense)
	cmdTag, err := tx.Exec(ctx, updateExpenseQuery, updateExpenseArgs(m)...)
	if err != nil {
		return fmt.Errorf("failed to update expense %s: %w", m.ExpenseID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expense %s", apperrors.ErrNotFound, m.ExpenseID)
	}
	return nil
}

// modifiableGuard matches rows that have not reached a final approval.
const modifiableGuard = `status NOT IN ('director_approved', 'approved')`

// UpdateExpenseDetailsInTx writes the editable fields of a locked expense.
func (r *PgxExpenseRepository) UpdateExpenseDetailsInTx(ctx context.Context, tx pgx.Tx, expense domain.Expense) error {
	m := mapping.ToModelExpense(expense)
	cmdTag, err := tx.Exec(ctx, `
		UPDATE expenses
		SET description = $2, amount = $3, category = $4, agency_id = $5, comment = $6,
		    last_updated_at = $7, last_updated_by = $8
		WHERE expense_id = $1 AND `+modifiableGuard+`;
	`, m.ExpenseID, m.Description, m.Amount, m.Category, m.AgencyID, m.Comment, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		if pgErrorCode(err) == pgCheckViolation {
			return fmt.Errorf("%w: expense %s has an invalid amount", apperrors.ErrValidation, m.ExpenseID)
		}
		return fmt.Errorf("failed to update expense %s: %w", m.ExpenseID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expense %s is no longer modifiable", apperrors.ErrInvalidState, m.ExpenseID)
	}
	return nil
}

// DeleteExpenseInTx removes a locked expense that is still modifiable.
func (r *PgxExpenseRepository) DeleteExpenseInTx(ctx context.Context, tx pgx.Tx, expenseID string) error {
	cmdTag, err := tx.Exec(ctx, `DELETE FROM expenses WHERE expense_id = $1 AND `+modifiableGuard+`;`, expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense %s: %w", expenseID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: expense %s is no longer modifiable", apperrors.ErrInvalidState, expenseID)
	}
	return nil
}
