package accounting

import (
	"fmt"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SelectAll returns the ids of every card that can still absorb funds, in input order.
func SelectAll(cards []domain.Card) []string {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		if c.IsSelectable() {
			ids = append(ids, c.CardID)
		}
	}
	return ids
}

// TotalCapacity sums the available capacity of the given cards.
func TotalCapacity(cards []domain.Card) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cards {
		total = total.Add(c.AvailableCapacity())
	}
	return total
}

// Remainder is the part of requested that the given total capacity cannot absorb.
func Remainder(requested, totalCapacity decimal.Decimal) decimal.Decimal {
	rem := requested.Sub(totalCapacity)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// ValidateDistributionRequest checks the inputs shared by preview and commit.
func ValidateDistributionRequest(amount decimal.Decimal, country string, selectedIDs []string) error {
	if country == "" || !amount.IsPositive() {
		return fmt.Errorf("%w: amount and country required", apperrors.ErrValidation)
	}
	if len(selectedIDs) == 0 {
		return fmt.Errorf("%w: select at least one card", apperrors.ErrValidation)
	}
	seen := make(map[string]struct{}, len(selectedIDs))
	for _, id := range selectedIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: card %s selected more than once", apperrors.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// PlanDistribution spreads amount over the selected cards.
//
// cards holds the candidate set (typically the active cards of the country, or the
// rows locked for update). Cards are debited in selectedIDs order, each up to its
// capacity, until the amount runs out. Every selected card must exist in cards,
// belong to country, be active and have capacity left.
func PlanDistribution(amount decimal.Decimal, country string, cards map[string]domain.Card, selectedIDs []string, feePerCard decimal.Decimal) (*domain.DistributionPlan, error) {
	if err := ValidateDistributionRequest(amount, country, selectedIDs); err != nil {
		return nil, err
	}

	selected := make([]domain.Card, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		card, ok := cards[id]
		if !ok {
			return nil, fmt.Errorf("%w: card %s", apperrors.ErrNotFound, id)
		}
		if card.Country != country {
			return nil, fmt.Errorf("%w: card %s belongs to %s, not %s", apperrors.ErrValidation, card.CID, card.Country, country)
		}
		if !card.IsActive() {
			return nil, fmt.Errorf("%w: card %s is inactive", apperrors.ErrValidation, card.CID)
		}
		if !card.IsSelectable() {
			return nil, fmt.Errorf("%w: card %s has no capacity left", apperrors.ErrValidation, card.CID)
		}
		selected = append(selected, card)
	}

	plan := &domain.DistributionPlan{
		Country:         country,
		RequestedAmount: amount,
		TotalCapacity:   TotalCapacity(selected),
		FeePerCard:      feePerCard,
		Lines:           make([]domain.DistributionLine, 0, len(selected)),
	}

	left := amount
	distributed := decimal.Zero
	for _, card := range selected {
		capacity := card.AvailableCapacity()
		credit := decimal.Min(capacity, left)
		plan.Lines = append(plan.Lines, domain.DistributionLine{
			CardID:            card.CardID,
			CID:               card.CID,
			CapacityBefore:    capacity,
			Credited:          credit,
			RemainingCapacity: capacity.Sub(credit),
		})
		if credit.IsPositive() {
			plan.CardsUsed++
		}
		left = left.Sub(credit)
		distributed = distributed.Add(credit)
	}

	plan.TotalDistributed = distributed
	plan.Remainder = Remainder(amount, plan.TotalCapacity)
	plan.TotalFee = feePerCard.Mul(decimal.NewFromInt(int64(plan.CardsUsed)))
	return plan, nil
}
