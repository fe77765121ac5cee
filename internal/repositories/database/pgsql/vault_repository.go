package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	portsrepo "github.com/SscSPs/transfer_backoffice/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// vaultID is the key of the single vault row seeded by the migrations.
const vaultID = 1

type PgxVaultRepository struct {
	pool *pgxpool.Pool
}

// newPgxVaultRepository creates a new repository for the vault balance.
func newPgxVaultRepository(pool *pgxpool.Pool) portsrepo.VaultRepository {
	return &PgxVaultRepository{pool: pool}
}

var _ portsrepo.VaultRepository = (*PgxVaultRepository)(nil)

// GetVaultBalance reads the vault balance; a missing row reads as zero.
func (r *PgxVaultRepository) GetVaultBalance(ctx context.Context) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT balance FROM vault WHERE vault_id = $1;`, vaultID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to read vault balance: %w", err)
	}
	return balance, nil
}

// GetVaultBalanceForUpdate locks the vault row within a transaction.
func (r *PgxVaultRepository) GetVaultBalanceForUpdate(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRow(ctx, `SELECT balance FROM vault WHERE vault_id = $1 FOR UPDATE;`, vaultID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: vault is not initialised", apperrors.ErrNotFound)
		}
		return decimal.Zero, fmt.Errorf("failed to lock vault: %w", err)
	}
	return balance, nil
}

// AdjustVaultBalanceInTx adds delta (negative for a debit) to the vault balance.
func (r *PgxVaultRepository) AdjustVaultBalanceInTx(ctx context.Context, tx pgx.Tx, delta decimal.Decimal, userID string, now time.Time) error {
	cmdTag, err := tx.Exec(ctx, `
		UPDATE vault
		SET balance = balance + $2, last_updated_at = $3, last_updated_by = $4
		WHERE vault_id = $1;
	`, vaultID, delta, now, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust vault balance: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: vault is not initialised", apperrors.ErrNotFound)
	}
	return nil
}
