package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TillReader defines read operations for tills and their operation log
type TillReader interface {
	// FindTill returns the till of an agency. A till without rows yet is returned empty.
	FindTill(ctx context.Context, agencyID string) (*domain.Till, error)

	// ListOperations returns log entries where the agency is the owner or a related party, newest first.
	ListOperations(ctx context.Context, filter domain.TillOperationFilter) ([]domain.TillOperation, error)

	// SumCommissions totals sale commissions per sold currency over [from, to).
	SumCommissions(ctx context.Context, agencyID string, from, to time.Time) (map[domain.Currency]decimal.Decimal, map[domain.Currency]int, error)
}

// TillTransactionSupport defines operations that run inside a caller's transaction
type TillTransactionSupport interface {
	// FindTillsForUpdate locks the balance rows of the given agencies.
	// Agencies without rows come back as empty tills.
	FindTillsForUpdate(ctx context.Context, tx pgx.Tx, agencyIDs []string) (map[string]domain.Till, error)

	// SaveTillInTx writes every currency row of the till.
	SaveTillInTx(ctx context.Context, tx pgx.Tx, till domain.Till) error

	// AppendOperationInTx inserts one immutable log entry.
	AppendOperationInTx(ctx context.Context, tx pgx.Tx, op domain.TillOperation) error
}

// TillRepositoryFacade combines all till-related repository interfaces
type TillRepositoryFacade interface {
	TillReader
	TillTransactionSupport
}

// TillRepositoryWithTx extends TillRepositoryFacade with transaction capabilities
type TillRepositoryWithTx interface {
	TillRepositoryFacade
	TransactionManager
}
