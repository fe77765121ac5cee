package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portsrepo "github.com/SscSPs/transfer_backoffice/internal/core/ports/repositories"
	"github.com/SscSPs/transfer_backoffice/internal/models"
	"github.com/SscSPs/transfer_backoffice/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxCashExcessRepository struct {
	pool *pgxpool.Pool
}

// newPgxCashExcessRepository creates a new repository for cashier cash excess.
func newPgxCashExcessRepository(pool *pgxpool.Pool) portsrepo.CashExcessRepository {
	return &PgxCashExcessRepository{pool: pool}
}

var _ portsrepo.CashExcessRepository = (*PgxCashExcessRepository)(nil)

const selectCashExcessFields = `cashier_id, cashier_name, agency_id, available, last_updated_at`

func scanCashExcess(row pgx.Row) (models.CashierExcess, error) {
	var m models.CashierExcess
	err := row.Scan(&m.CashierID, &m.CashierName, &m.AgencyID, &m.Available, &m.LastUpdatedAt)
	return m, err
}

func findCashExcess(row pgx.Row, cashierID string) (*domain.CashierExcess, error) {
	m, err := scanCashExcess(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: cash excess of cashier %s", apperrors.ErrNotFound, cashierID)
		}
		return nil, fmt.Errorf("failed to read cash excess of cashier %s: %w", cashierID, err)
	}
	d := mapping.ToDomainCashierExcess(m)
	return &d, nil
}

// ListCashiersWithExcess returns cashiers holding a positive excess, for one agency or all when empty.
func (r *PgxCashExcessRepository) ListCashiersWithExcess(ctx context.Context, agencyID string) ([]domain.CashierExcess, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectCashExcessFields+`
		FROM cash_excess
		WHERE available > 0 AND ($1 = '' OR agency_id = $1)
		ORDER BY cashier_name, cashier_id;
	`, agencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cashiers with excess: %w", err)
	}
	defer rows.Close()

	cashiers := []domain.CashierExcess{}
	for rows.Next() {
		m, err := scanCashExcess(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cash excess row: %w", err)
		}
		cashiers = append(cashiers, mapping.ToDomainCashierExcess(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cash excess rows: %w", err)
	}
	return cashiers, nil
}

func (r *PgxCashExcessRepository) FindCashierExcess(ctx context.Context, cashierID string) (*domain.CashierExcess, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectCashExcessFields+` FROM cash_excess WHERE cashier_id = $1;`, cashierID)
	return findCashExcess(row, cashierID)
}

func (r *PgxCashExcessRepository) FindCashierExcessForUpdate(ctx context.Context, tx pgx.Tx, cashierID string) (*domain.CashierExcess, error) {
	row := tx.QueryRow(ctx, `SELECT `+selectCashExcessFields+` FROM cash_excess WHERE cashier_id = $1 FOR UPDATE;`, cashierID)
	return findCashExcess(row, cashierID)
}

// DebitCashierExcessInTx lowers the cashier's excess and records the ledger entry.
// The guard in the UPDATE keeps the balance from going negative.
func (r *PgxCashExcessRepository) DebitCashierExcessInTx(ctx context.Context, tx pgx.Tx, entry domain.CashExcessEntry) error {
	cmdTag, err := tx.Exec(ctx, `
		UPDATE cash_excess
		SET available = available - $2, last_updated_at = $3
		WHERE cashier_id = $1 AND available >= $2;
	`, entry.CashierID, entry.Amount, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to debit cash excess of cashier %s: %w", entry.CashierID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: cash excess of cashier %s cannot cover %s", apperrors.ErrValidation, entry.CashierID, entry.Amount.String())
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cash_excess_entries (entry_id, cashier_id, expense_id, amount, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6);
	`, entry.EntryID, entry.CashierID, entry.ExpenseID, entry.Amount, entry.CreatedAt, entry.CreatedBy)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("%w: expense %s already deducted", apperrors.ErrDuplicate, entry.ExpenseID)
		}
		return fmt.Errorf("failed to record cash excess entry: %w", err)
	}
	return nil
}
