package services

import (
	"context"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/shopspring/decimal"
)

// CardReaderSvc defines read operations for cards
type CardReaderSvc interface {
	GetCard(ctx context.Context, cardID string) (*domain.Card, error)
	ListCards(ctx context.Context, filter domain.CardFilter) ([]domain.Card, error)
	GetDistribution(ctx context.Context, distributionID string) (*domain.Distribution, error)
	GetVaultBalance(ctx context.Context, actor domain.Actor) (decimal.Decimal, error)
}

// CardWriterSvc defines card management operations
type CardWriterSvc interface {
	CreateCard(ctx context.Context, req dto.CreateCardRequest, actor domain.Actor) (*domain.Card, error)
	UpdateCard(ctx context.Context, cardID string, req dto.UpdateCardRequest, actor domain.Actor) (*domain.Card, error)
	SetCardStatus(ctx context.Context, cardID string, status domain.CardStatus, actor domain.Actor) (*domain.Card, error)

	// DeleteCard removes a card that no distribution references.
	DeleteCard(ctx context.Context, cardID string, actor domain.Actor) error

	// ImportCards upserts parsed rows by CID; invalid rows are reported and skipped.
	ImportCards(ctx context.Context, rows []dto.CardImportRow, actor domain.Actor) (*dto.CardImportResult, error)

	// RechargeCard credits one card, up to its available capacity.
	RechargeCard(ctx context.Context, cardID string, amount decimal.Decimal, actor domain.Actor) (*domain.Card, error)

	// ResetUsage zeroes monthly usage for a country, or every card when country is empty.
	ResetUsage(ctx context.Context, country string, actor domain.Actor) (int64, error)
}

// DistributionSvc defines the bulk distribution operations
type DistributionSvc interface {
	// PreviewDistribution computes the plan against current card state without writing anything.
	PreviewDistribution(ctx context.Context, req dto.DistributionRequest, actor domain.Actor) (*domain.DistributionPlan, error)

	// Distribute commits the plan atomically: every card credit, the optional vault debit
	// and the distribution record, or nothing.
	Distribute(ctx context.Context, req dto.DistributionRequest, actor domain.Actor) (*domain.Distribution, error)
}

// CardSvcFacade combines all card-related service interfaces
type CardSvcFacade interface {
	CardReaderSvc
	CardWriterSvc
	DistributionSvc
}
