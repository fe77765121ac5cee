package pgsql

import (
	portsrepo "github.com/SscSPs/transfer_backoffice/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		CardRepo:       newPgxCardRepository(dbPool),
		VaultRepo:      newPgxVaultRepository(dbPool),
		ExpenseRepo:    newPgxExpenseRepository(dbPool),
		CashExcessRepo: newPgxCashExcessRepository(dbPool),
		TillRepo:       newPgxTillRepository(dbPool),
	}
}
