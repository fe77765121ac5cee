package services

import (
	"context"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
)

// TillReaderSvc defines read operations for tills
type TillReaderSvc interface {
	GetTill(ctx context.Context, agencyID string, actor domain.Actor) (*domain.Till, error)
	ListOperations(ctx context.Context, agencyID string, params dto.ListTillOperationsParams, actor domain.Actor) (*dto.ListTillOperationsResponse, error)
	CommissionReport(ctx context.Context, agencyID string, params dto.CommissionReportParams, actor domain.Actor) (*domain.CommissionReport, error)
}

// TillOperationSvc defines the logged till operations. Each one locks the tills it
// touches, applies the change and appends exactly one log entry in one transaction.
type TillOperationSvc interface {
	Purchase(ctx context.Context, agencyID string, req dto.PurchaseRequest, actor domain.Actor) (*dto.TillOperationResult, error)
	Sell(ctx context.Context, agencyID string, req dto.SaleRequest, actor domain.Actor) (*dto.TillOperationResult, error)
	Adjust(ctx context.Context, agencyID string, req dto.AdjustmentRequest, actor domain.Actor) (*dto.TillOperationResult, error)
	Resupply(ctx context.Context, req dto.ResupplyRequest, actor domain.Actor) (*dto.ResupplyResult, error)
}

// TillSvcFacade combines all till-related service interfaces
type TillSvcFacade interface {
	TillReaderSvc
	TillOperationSvc
}
