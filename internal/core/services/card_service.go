package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portsrepo "github.com/SscSPs/transfer_backoffice/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/SscSPs/transfer_backoffice/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// cardManagerRoles may change cards, distribute funds and see the vault.
var cardManagerRoles = []domain.Role{domain.RoleAdmin, domain.RoleDirector, domain.RoleAccounting}

// cardService implements the CardSvcFacade interface
type cardService struct {
	BaseService
	cardRepo  portsrepo.CardRepositoryWithTx
	vaultRepo portsrepo.VaultRepository
	reference domain.ReferenceData
}

// CardServiceOption is a functional option for configuring the card service
type CardServiceOption func(*cardService)

// WithCardClock overrides the clock used for audit stamps
func WithCardClock(now func() time.Time) CardServiceOption {
	return func(s *cardService) {
		s.Now = now
	}
}

// NewCardService creates a new card service with the provided options
func NewCardService(cardRepo portsrepo.CardRepositoryWithTx, vaultRepo portsrepo.VaultRepository, reference domain.ReferenceData, options ...CardServiceOption) portssvc.CardSvcFacade {
	svc := &cardService{
		cardRepo:  cardRepo,
		vaultRepo: vaultRepo,
		reference: reference,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.CardSvcFacade = (*cardService)(nil)

func (s *cardService) GetCard(ctx context.Context, cardID string) (*domain.Card, error) {
	card, err := s.cardRepo.FindCardByID(ctx, cardID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find card", slog.String("card_id", cardID))
		}
		return nil, err
	}
	return card, nil
}

func (s *cardService) ListCards(ctx context.Context, filter domain.CardFilter) ([]domain.Card, error) {
	filter.Country = strings.ToUpper(strings.TrimSpace(filter.Country))
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown card status %q", apperrors.ErrValidation, filter.Status)
	}
	cards, err := s.cardRepo.ListCards(ctx, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list cards", slog.String("country", filter.Country))
		return nil, err
	}
	return cards, nil
}

func (s *cardService) GetDistribution(ctx context.Context, distributionID string) (*domain.Distribution, error) {
	dist, err := s.cardRepo.FindDistributionByID(ctx, distributionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find distribution", slog.String("distribution_id", distributionID))
		}
		return nil, err
	}
	return dist, nil
}

func (s *cardService) GetVaultBalance(ctx context.Context, actor domain.Actor) (decimal.Decimal, error) {
	if err := s.AuthorizeActor(ctx, actor, "view the vault", cardManagerRoles...); err != nil {
		return decimal.Zero, err
	}
	balance, err := s.vaultRepo.GetVaultBalance(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to read vault balance")
		return decimal.Zero, err
	}
	return balance, nil
}

// lookupCountry resolves a country code against the reference data.
func (s *cardService) lookupCountry(code string) (domain.Country, error) {
	country, ok := s.reference.FindCountry(strings.TrimSpace(code))
	if !ok {
		return domain.Country{}, fmt.Errorf("%w: unknown country %q", apperrors.ErrValidation, code)
	}
	return country, nil
}

func (s *cardService) CreateCard(ctx context.Context, req dto.CreateCardRequest, actor domain.Actor) (*domain.Card, error) {
	if err := s.AuthorizeActor(ctx, actor, "create cards", cardManagerRoles...); err != nil {
		return nil, err
	}
	country, err := s.lookupCountry(req.Country)
	if err != nil {
		return nil, err
	}
	cid := strings.TrimSpace(req.CID)
	if cid == "" {
		return nil, fmt.Errorf("%w: cid is required", apperrors.ErrValidation)
	}
	if !req.MonthlyLimit.IsPositive() || !req.RechargeLimit.IsPositive() || req.MonthlyUsed.IsNegative() {
		return nil, fmt.Errorf("%w: limits must be positive and usage cannot be negative", apperrors.ErrValidation)
	}

	now := s.CurrentTime()
	card := domain.Card{
		CardID:         uuid.NewString(),
		CID:            cid,
		Country:        country.Code,
		Status:         domain.CardActive,
		MonthlyLimit:   req.MonthlyLimit,
		MonthlyUsed:    req.MonthlyUsed,
		RechargeLimit:  req.RechargeLimit,
		ExpirationDate: req.ExpirationDate,
		AuditFields:    domain.NewAuditFields(actor.UserID, now),
	}

	if err := s.cardRepo.SaveCard(ctx, card); err != nil {
		if !errors.Is(err, apperrors.ErrDuplicate) {
			s.LogError(ctx, err, "Failed to save card", slog.String("cid", cid))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Card created", slog.String("card_id", card.CardID), slog.String("cid", card.CID))
	return &card, nil
}

func (s *cardService) UpdateCard(ctx context.Context, cardID string, req dto.UpdateCardRequest, actor domain.Actor) (*domain.Card, error) {
	if err := s.AuthorizeActor(ctx, actor, "edit cards", cardManagerRoles...); err != nil {
		return nil, err
	}
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	if req.MonthlyLimit != nil {
		if !req.MonthlyLimit.IsPositive() {
			return nil, fmt.Errorf("%w: monthly limit must be positive", apperrors.ErrValidation)
		}
		card.MonthlyLimit = *req.MonthlyLimit
	}
	if req.MonthlyUsed != nil {
		if req.MonthlyUsed.IsNegative() {
			return nil, fmt.Errorf("%w: monthly usage cannot be negative", apperrors.ErrValidation)
		}
		card.MonthlyUsed = *req.MonthlyUsed
	}
	if req.RechargeLimit != nil {
		if !req.RechargeLimit.IsPositive() {
			return nil, fmt.Errorf("%w: recharge limit must be positive", apperrors.ErrValidation)
		}
		card.RechargeLimit = *req.RechargeLimit
	}
	if req.ExpirationDate != nil {
		card.ExpirationDate = req.ExpirationDate
	}
	card.LastUpdatedAt = s.CurrentTime()
	card.LastUpdatedBy = actor.UserID

	if err := s.cardRepo.UpdateCard(ctx, *card); err != nil {
		s.LogError(ctx, err, "Failed to update card", slog.String("card_id", cardID))
		return nil, err
	}
	return card, nil
}

func (s *cardService) SetCardStatus(ctx context.Context, cardID string, status domain.CardStatus, actor domain.Actor) (*domain.Card, error) {
	if err := s.AuthorizeActor(ctx, actor, "change card status", cardManagerRoles...); err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown card status %q", apperrors.ErrValidation, status)
	}
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	now := s.CurrentTime()
	if err := s.cardRepo.SetCardStatus(ctx, cardID, status, actor.UserID, now); err != nil {
		s.LogError(ctx, err, "Failed to set card status", slog.String("card_id", cardID))
		return nil, err
	}
	card.Status = status
	card.LastUpdatedAt = now
	card.LastUpdatedBy = actor.UserID

	s.LogInfo(ctx, "Card status changed", slog.String("card_id", cardID), slog.String("status", string(status)))
	return card, nil
}

func (s *cardService) DeleteCard(ctx context.Context, cardID string, actor domain.Actor) error {
	if err := s.AuthorizeActor(ctx, actor, "delete cards", cardManagerRoles...); err != nil {
		return err
	}
	card, err := s.GetCard(ctx, cardID)
	if err != nil {
		return err
	}

	refs, err := s.cardRepo.CountDistributionLines(ctx, cardID)
	if err != nil {
		s.LogError(ctx, err, "Failed to count card history", slog.String("card_id", cardID))
		return err
	}
	if refs > 0 {
		return fmt.Errorf("%w: card %s appears in %d distribution(s), deactivate it instead", apperrors.ErrInvalidState, card.CID, refs)
	}

	if err := s.cardRepo.DeleteCard(ctx, cardID); err != nil {
		s.LogError(ctx, err, "Failed to delete card", slog.String("card_id", cardID))
		return err
	}
	s.LogInfo(ctx, "Card deleted", slog.String("card_id", cardID), slog.String("cid", card.CID))
	return nil
}

func (s *cardService) RechargeCard(ctx context.Context, cardID string, amount decimal.Decimal, actor domain.Actor) (*domain.Card, error) {
	if err := s.AuthorizeActor(ctx, actor, "recharge cards", cardManagerRoles...); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: recharge amount must be positive", apperrors.ErrValidation)
	}

	tx, err := s.cardRepo.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin recharge")
		return nil, err
	}
	defer s.Rollback(ctx, s.cardRepo, tx)

	locked, err := s.cardRepo.FindCardsByIDsForUpdate(ctx, tx, []string{cardID})
	if err != nil {
		s.LogError(ctx, err, "Failed to lock card", slog.String("card_id", cardID))
		return nil, err
	}
	card, ok := locked[cardID]
	if !ok {
		return nil, fmt.Errorf("%w: card %s", apperrors.ErrNotFound, cardID)
	}
	if !card.IsActive() {
		return nil, fmt.Errorf("%w: card %s is inactive", apperrors.ErrValidation, card.CID)
	}
	capacity := card.AvailableCapacity()
	if amount.GreaterThan(capacity) {
		return nil, fmt.Errorf("%w: amount %s exceeds available capacity %s of card %s",
			apperrors.ErrValidation, amount.String(), capacity.String(), card.CID)
	}

	now := s.CurrentTime()
	if err := s.cardRepo.ApplyCardCreditsInTx(ctx, tx, map[string]decimal.Decimal{cardID: amount}, actor.UserID, now); err != nil {
		s.LogError(ctx, err, "Failed to credit card", slog.String("card_id", cardID))
		return nil, err
	}
	if err := s.cardRepo.Commit(ctx, tx); err != nil {
		s.LogError(ctx, err, "Failed to commit recharge", slog.String("card_id", cardID))
		return nil, err
	}

	card.MonthlyUsed = card.MonthlyUsed.Add(amount)
	card.LastRechargeDate = &now
	card.LastUpdatedAt = now
	card.LastUpdatedBy = actor.UserID

	s.LogInfo(ctx, "Card recharged", slog.String("card_id", cardID), slog.String("amount", amount.String()))
	return &card, nil
}

func (s *cardService) ResetUsage(ctx context.Context, country string, actor domain.Actor) (int64, error) {
	if err := s.AuthorizeActor(ctx, actor, "reset card usage", cardManagerRoles...); err != nil {
		return 0, err
	}
	code := ""
	if strings.TrimSpace(country) != "" {
		c, err := s.lookupCountry(country)
		if err != nil {
			return 0, err
		}
		code = c.Code
	}

	n, err := s.cardRepo.ResetMonthlyUsage(ctx, code, actor.UserID, s.CurrentTime())
	if err != nil {
		s.LogError(ctx, err, "Failed to reset monthly usage", slog.String("country", code))
		return 0, err
	}
	s.LogInfo(ctx, "Monthly usage reset", slog.String("country", code), slog.Int64("cards", n))
	return n, nil
}

// resolveDistribution validates the request header and returns the country and the
// selected ids, expanding SelectAll to every selectable active card of the country.
func (s *cardService) resolveDistribution(ctx context.Context, req dto.DistributionRequest) (domain.Country, []string, error) {
	if strings.TrimSpace(req.Country) == "" || !req.Amount.IsPositive() {
		return domain.Country{}, nil, fmt.Errorf("%w: amount and country required", apperrors.ErrValidation)
	}
	country, err := s.lookupCountry(req.Country)
	if err != nil {
		return domain.Country{}, nil, err
	}

	ids := req.CardIDs
	if req.SelectAll {
		cards, err := s.ListCards(ctx, domain.CardFilter{Country: country.Code, Status: domain.CardActive})
		if err != nil {
			return domain.Country{}, nil, err
		}
		ids = accounting.SelectAll(cards)
	}
	if err := accounting.ValidateDistributionRequest(req.Amount, country.Code, ids); err != nil {
		return domain.Country{}, nil, err
	}
	return country, ids, nil
}

func (s *cardService) PreviewDistribution(ctx context.Context, req dto.DistributionRequest, actor domain.Actor) (*domain.DistributionPlan, error) {
	if err := s.AuthorizeActor(ctx, actor, "preview distributions", cardManagerRoles...); err != nil {
		return nil, err
	}
	country, ids, err := s.resolveDistribution(ctx, req)
	if err != nil {
		return nil, err
	}
	cards, err := s.cardRepo.FindCardsByIDs(ctx, ids)
	if err != nil {
		s.LogError(ctx, err, "Failed to load cards for preview")
		return nil, err
	}
	return accounting.PlanDistribution(req.Amount, country.Code, cards, ids, country.CardFee)
}

func (s *cardService) Distribute(ctx context.Context, req dto.DistributionRequest, actor domain.Actor) (*domain.Distribution, error) {
	if err := s.AuthorizeActor(ctx, actor, "distribute funds", cardManagerRoles...); err != nil {
		return nil, err
	}
	country, ids, err := s.resolveDistribution(ctx, req)
	if err != nil {
		return nil, err
	}

	tx, err := s.cardRepo.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin distribution")
		return nil, err
	}
	defer s.Rollback(ctx, s.cardRepo, tx)

	locked, err := s.cardRepo.FindCardsByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		s.LogError(ctx, err, "Failed to lock cards for distribution")
		return nil, err
	}
	plan, err := accounting.PlanDistribution(req.Amount, country.Code, locked, ids, country.CardFee)
	if err != nil {
		return nil, err
	}

	now := s.CurrentTime()
	if req.DeductFromVault {
		balance, err := s.vaultRepo.GetVaultBalanceForUpdate(ctx, tx)
		if err != nil {
			s.LogError(ctx, err, "Failed to lock vault")
			return nil, err
		}
		if balance.LessThan(req.Amount) {
			return nil, fmt.Errorf("%w: vault balance %s cannot cover %s", apperrors.ErrValidation, balance.String(), req.Amount.String())
		}
		if err := s.vaultRepo.AdjustVaultBalanceInTx(ctx, tx, req.Amount.Neg(), actor.UserID, now); err != nil {
			s.LogError(ctx, err, "Failed to debit vault")
			return nil, err
		}
	}

	credits := make(map[string]decimal.Decimal, len(plan.Lines))
	for _, line := range plan.Lines {
		if line.Credited.IsPositive() {
			credits[line.CardID] = line.Credited
		}
	}
	if err := s.cardRepo.ApplyCardCreditsInTx(ctx, tx, credits, actor.UserID, now); err != nil {
		s.LogError(ctx, err, "Failed to credit cards")
		return nil, err
	}

	dist := domain.Distribution{
		DistributionID:   uuid.NewString(),
		DeductFromVault:  req.DeductFromVault,
		DistributionPlan: *plan,
		AuditFields:      domain.NewAuditFields(actor.UserID, now),
	}
	if err := s.cardRepo.SaveDistributionInTx(ctx, tx, dist); err != nil {
		s.LogError(ctx, err, "Failed to record distribution")
		return nil, err
	}
	if err := s.cardRepo.Commit(ctx, tx); err != nil {
		s.LogError(ctx, err, "Failed to commit distribution")
		return nil, err
	}

	s.LogInfo(ctx, "Distribution committed",
		slog.String("distribution_id", dist.DistributionID),
		slog.String("country", plan.Country),
		slog.String("distributed", plan.TotalDistributed.String()),
		slog.String("remainder", plan.Remainder.String()),
		slog.Int("cards_used", plan.CardsUsed))
	return &dist, nil
}
