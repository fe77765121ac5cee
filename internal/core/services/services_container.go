package services

import (
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portsrepo "github.com/SscSPs/transfer_backoffice/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// notifier may be nil, in which case status changes are only logged.
func NewServiceContainer(repos portsrepo.RepositoryProvider, reference domain.ReferenceData, notifier portssvc.ExpenseNotifier) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Card = NewCardService(repos.CardRepo, repos.VaultRepo, reference)

	expenseOpts := []ExpenseServiceOption{}
	if notifier != nil {
		expenseOpts = append(expenseOpts, WithExpenseNotifier(notifier))
	}
	container.Expense = NewExpenseService(repos.ExpenseRepo, repos.CashExcessRepo, reference, expenseOpts...)

	container.Till = NewTillService(repos.TillRepo)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.CardSvcFacade    = (*cardService)(nil)
	_ portssvc.ExpenseSvcFacade = (*expenseService)(nil)
	_ portssvc.TillSvcFacade    = (*tillService)(nil)
)
