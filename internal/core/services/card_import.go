package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var importDateLayouts = []string{"2006-01-02", "02/01/2006", "2006-01-02T15:04:05Z07:00"}

func (s *cardService) ImportCards(ctx context.Context, rows []dto.CardImportRow, actor domain.Actor) (*dto.CardImportResult, error) {
	if err := s.AuthorizeActor(ctx, actor, "import cards", cardManagerRoles...); err != nil {
		return nil, err
	}

	result := &dto.CardImportResult{Errors: []dto.CardImportError{}}
	now := s.CurrentTime()
	seen := make(map[string]int, len(rows))
	cards := make([]domain.Card, 0, len(rows))

	for _, row := range rows {
		card, err := s.parseImportRow(row, actor.UserID, now)
		if err == nil {
			if first, dup := seen[card.CID]; dup {
				err = fmt.Errorf("cid already present on line %d", first)
			}
		}
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, dto.CardImportError{Line: row.Line, CID: strings.TrimSpace(row.CID), Message: err.Error()})
			continue
		}
		seen[card.CID] = row.Line
		cards = append(cards, card)
	}

	if len(cards) == 0 {
		s.LogInfo(ctx, "Card import had no valid rows", slog.Int("skipped", result.Skipped))
		return result, nil
	}

	tx, err := s.cardRepo.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin card import")
		return nil, err
	}
	defer s.Rollback(ctx, s.cardRepo, tx)

	if err := s.cardRepo.UpsertCardsByCIDInTx(ctx, tx, cards); err != nil {
		s.LogError(ctx, err, "Failed to upsert imported cards", slog.Int("rows", len(cards)))
		return nil, err
	}
	if err := s.cardRepo.Commit(ctx, tx); err != nil {
		s.LogError(ctx, err, "Failed to commit card import")
		return nil, err
	}

	result.Imported = len(cards)
	s.LogInfo(ctx, "Cards imported", slog.Int("imported", result.Imported), slog.Int("skipped", result.Skipped))
	return result, nil
}

// parseImportRow turns a raw spreadsheet row into a card. The card id is only used
// when the CID is new; existing cards keep theirs.
func (s *cardService) parseImportRow(row dto.CardImportRow, userID string, now time.Time) (domain.Card, error) {
	cid := strings.TrimSpace(row.CID)
	if cid == "" {
		return domain.Card{}, errors.New("cid is required")
	}
	country, ok := s.reference.FindCountry(strings.TrimSpace(row.Country))
	if !ok {
		return domain.Card{}, fmt.Errorf("unknown country %q", row.Country)
	}

	limit, err := parseImportAmount("monthly_limit", row.MonthlyLimit, true)
	if err != nil {
		return domain.Card{}, err
	}
	used, err := parseImportAmount("monthly_used", row.MonthlyUsed, false)
	if err != nil {
		return domain.Card{}, err
	}
	recharge, err := parseImportAmount("recharge_limit", row.RechargeLimit, true)
	if err != nil {
		return domain.Card{}, err
	}
	if !limit.IsPositive() || !recharge.IsPositive() {
		return domain.Card{}, errors.New("monthly_limit and recharge_limit must be positive")
	}

	var expiration *time.Time
	if raw := strings.TrimSpace(row.ExpirationDate); raw != "" {
		t, err := parseImportDate(raw)
		if err != nil {
			return domain.Card{}, err
		}
		expiration = &t
	}

	status := domain.CardActive
	if raw := strings.TrimSpace(row.Status); raw != "" {
		status = domain.CardStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			return domain.Card{}, fmt.Errorf("unknown status %q", row.Status)
		}
	}

	return domain.Card{
		CardID:         uuid.NewString(),
		CID:            cid,
		Country:        country.Code,
		Status:         status,
		MonthlyLimit:   limit,
		MonthlyUsed:    used,
		RechargeLimit:  recharge,
		ExpirationDate: expiration,
		AuditFields:    domain.NewAuditFields(userID, now),
	}, nil
}

func parseImportAmount(column, raw string, required bool) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	if raw == "" {
		if required {
			return decimal.Zero, fmt.Errorf("%s is required", column)
		}
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number", column, raw)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s cannot be negative", column)
	}
	return v, nil
}

func parseImportDate(raw string) (time.Time, error) {
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("expiration_date: %q is not a date (use YYYY-MM-DD)", raw)
}
