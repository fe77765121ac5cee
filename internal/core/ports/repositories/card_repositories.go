package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CardReader defines read operations for card data
type CardReader interface {
	// FindCardByID retrieves a specific card by its unique identifier.
	FindCardByID(ctx context.Context, cardID string) (*domain.Card, error)

	// FindCardsByIDs retrieves multiple cards by their IDs.
	FindCardsByIDs(ctx context.Context, cardIDs []string) (map[string]domain.Card, error)

	// ListCards retrieves cards matching the filter, ordered by country then CID.
	ListCards(ctx context.Context, filter domain.CardFilter) ([]domain.Card, error)

	// CountDistributionLines counts how many distribution lines reference the card.
	CountDistributionLines(ctx context.Context, cardID string) (int, error)

	// FindDistributionByID retrieves a committed distribution with its lines.
	FindDistributionByID(ctx context.Context, distributionID string) (*domain.Distribution, error)
}

// CardWriter defines write operations for card data
type CardWriter interface {
	// SaveCard persists a new card. A CID clash yields apperrors.ErrDuplicate.
	SaveCard(ctx context.Context, card domain.Card) error

	// UpdateCard updates the editable limits and dates of a card.
	UpdateCard(ctx context.Context, card domain.Card) error

	// SetCardStatus switches a card on or off.
	SetCardStatus(ctx context.Context, cardID string, status domain.CardStatus, userID string, now time.Time) error

	// DeleteCard removes a card permanently.
	DeleteCard(ctx context.Context, cardID string) error

	// ResetMonthlyUsage zeroes monthly usage, for one country or all when country is empty.
	ResetMonthlyUsage(ctx context.Context, country string, userID string, now time.Time) (int64, error)
}

// CardTransactionSupport defines operations that run inside a caller's transaction
type CardTransactionSupport interface {
	// FindCardsByIDsForUpdate selects cards and locks them for update within a transaction.
	FindCardsByIDsForUpdate(ctx context.Context, tx pgx.Tx, cardIDs []string) (map[string]domain.Card, error)

	// ApplyCardCreditsInTx adds each credit to the card's monthly usage and stamps the recharge date.
	ApplyCardCreditsInTx(ctx context.Context, tx pgx.Tx, credits map[string]decimal.Decimal, userID string, now time.Time) error

	// SaveDistributionInTx records a committed distribution and its lines.
	SaveDistributionInTx(ctx context.Context, tx pgx.Tx, distribution domain.Distribution) error

	// UpsertCardsByCIDInTx inserts or updates imported cards keyed by CID.
	UpsertCardsByCIDInTx(ctx context.Context, tx pgx.Tx, cards []domain.Card) error
}

// CardRepositoryFacade combines all card-related repository interfaces
type CardRepositoryFacade interface {
	CardReader
	CardWriter
	CardTransactionSupport
}

// CardRepositoryWithTx extends CardRepositoryFacade with transaction capabilities
type CardRepositoryWithTx interface {
	CardRepositoryFacade
	TransactionManager
}

// VaultRepository handles the single local-currency vault balance.
type VaultRepository interface {
	GetVaultBalance(ctx context.Context) (decimal.Decimal, error)
	GetVaultBalanceForUpdate(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error)
	AdjustVaultBalanceInTx(ctx context.Context, tx pgx.Tx, delta decimal.Decimal, userID string, now time.Time) error
}
