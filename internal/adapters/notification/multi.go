package notification

import (
	"context"
	"errors"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
)

// Multi fans one event out to every notifier; every notifier is tried.
type Multi []portssvc.ExpenseNotifier

var _ portssvc.ExpenseNotifier = Multi(nil)

func (m Multi) NotifyExpenseStatusChanged(ctx context.Context, event domain.ExpenseStatusEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyExpenseStatusChanged(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
