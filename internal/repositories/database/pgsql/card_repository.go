package pgsql

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portsrepo "github.com/SscSPs/transfer_backoffice/internal/core/ports/repositories"
	"github.com/SscSPs/transfer_backoffice/internal/models"
	"github.com/SscSPs/transfer_backoffice/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PgxCardRepository struct {
	BaseRepository
}

// newPgxCardRepository creates a new repository for cards and distributions.
func newPgxCardRepository(pool *pgxpool.Pool) portsrepo.CardRepositoryWithTx {
	return &PgxCardRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxCardRepository implements portsrepo.CardRepositoryWithTx
var _ portsrepo.CardRepositoryWithTx = (*PgxCardRepository)(nil)

const (
	selectCardFields = `
		card_id, cid, country, status, monthly_limit, monthly_used, recharge_limit,
		last_recharge_date, expiration_date, created_at, created_by, last_updated_at, last_updated_by
	`

	selectDistributionFields = `
		distribution_id, country, requested_amount, total_capacity, total_distributed, remainder,
		cards_used, fee_per_card, total_fee, deduct_from_vault, created_at, created_by, last_updated_at, last_updated_by
	`
)

func scanCard(row pgx.Row) (models.Card, error) {
	var m models.Card
	err := row.Scan(
		&m.CardID,
		&m.CID,
		&m.Country,
		&m.Status,
		&m.MonthlyLimit,
		&m.MonthlyUsed,
		&m.RechargeLimit,
		&m.LastRechargeDate,
		&m.ExpirationDate,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

func collectCards(rows pgx.Rows) (map[string]domain.Card, error) {
	defer rows.Close()
	cards := make(map[string]domain.Card)
	for rows.Next() {
		m, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards[m.CardID] = mapping.ToDomainCard(m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card rows: %w", err)
	}
	return cards, nil
}

// FindCardByID retrieves a card by its ID.
func (r *PgxCardRepository) FindCardByID(ctx context.Context, cardID string) (*domain.Card, error) {
	query := `SELECT ` + selectCardFields + ` FROM cards WHERE card_id = $1;`

	m, err := scanCard(r.Pool.QueryRow(ctx, query, cardID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: card %s", apperrors.ErrNotFound, cardID)
		}
		return nil, fmt.Errorf("failed to find card by ID %s: %w", cardID, err)
	}
	card := mapping.ToDomainCard(m)
	return &card, nil
}

// FindCardsByIDs retrieves multiple cards by their IDs. Unknown IDs are simply absent from the map.
func (r *PgxCardRepository) FindCardsByIDs(ctx context.Context, cardIDs []string) (map[string]domain.Card, error) {
	if len(cardIDs) == 0 {
		return map[string]domain.Card{}, nil
	}
	query := `SELECT ` + selectCardFields + ` FROM cards WHERE card_id = ANY($1);`

	rows, err := r.Pool.Query(ctx, query, cardIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards by IDs: %w", err)
	}
	return collectCards(rows)
}

// ListCards retrieves cards matching the filter, ordered by country then CID.
func (r *PgxCardRepository) ListCards(ctx context.Context, filter domain.CardFilter) ([]domain.Card, error) {
	conditions := []string{}
	args := []interface{}{}
	if filter.Country != "" {
		args = append(args, filter.Country)
		conditions = append(conditions, "country = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + selectCardFields + ` FROM cards`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY country, cid"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		m, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, mapping.ToDomainCard(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card rows: %w", err)
	}
	return cards, nil
}

// CountDistributionLines counts how many distribution lines reference the card.
func (r *PgxCardRepository) CountDistributionLines(ctx context.Context, cardID string) (int, error) {
	var count int
	err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM distribution_lines WHERE card_id = $1;`, cardID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count distribution lines of card %s: %w", cardID, err)
	}
	return count, nil
}

// FindDistributionByID retrieves a committed distribution with its lines.
func (r *PgxCardRepository) FindDistributionByID(ctx context.Context, distributionID string) (*domain.Distribution, error) {
	query := `SELECT ` + selectDistributionFields + ` FROM distributions WHERE distribution_id = $1;`

	var m models.Distribution
	err := r.Pool.QueryRow(ctx, query, distributionID).Scan(
		&m.DistributionID,
		&m.Country,
		&m.RequestedAmount,
		&m.TotalCapacity,
		&m.TotalDistributed,
		&m.Remainder,
		&m.CardsUsed,
		&m.FeePerCard,
		&m.TotalFee,
		&m.DeductFromVault,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: distribution %s", apperrors.ErrNotFound, distributionID)
		}
		return nil, fmt.Errorf("failed to find distribution %s: %w", distributionID, err)
	}

	rows, err := r.Pool.Query(ctx, `
		SELECT distribution_id, line_no, card_id, cid, capacity_before, credited, remaining_capacity
		FROM distribution_lines
		WHERE distribution_id = $1
		ORDER BY line_no;
	`, distributionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines of distribution %s: %w", distributionID, err)
	}
	defer rows.Close()

	lines := []models.DistributionLine{}
	for rows.Next() {
		var l models.DistributionLine
		if err := rows.Scan(&l.DistributionID, &l.LineNo, &l.CardID, &l.CID, &l.CapacityBefore, &l.Credited, &l.RemainingCapacity); err != nil {
			return nil, fmt.Errorf("failed to scan distribution line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating distribution lines: %w", err)
	}

	dist := mapping.ToDomainDistribution(m, lines)
	return &dist, nil
}

// SaveCard inserts a new card.
func (r *PgxCardRepository) SaveCard(ctx context.Context, card domain.Card) error {
	m := mapping.ToModelCard(card)
	query := `
		INSERT INTO cards (` + selectCardFields + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.CardID, m.CID, m.Country, m.Status, m.MonthlyLimit, m.MonthlyUsed, m.RechargeLimit,
		m.LastRechargeDate, m.ExpirationDate, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("%w: card with CID %s already exists", apperrors.ErrDuplicate, m.CID)
		}
		return fmt.Errorf("failed to save card %s: %w", m.CID, err)
	}
	return nil
}

// UpdateCard updates the editable limits and dates of a card.
func (r *PgxCardRepository) UpdateCard(ctx context.Context, card domain.Card) error {
	m := mapping.ToModelCard(card)
	query := `
		UPDATE cards
		SET monthly_limit = $2, monthly_used = $3, recharge_limit = $4, expiration_date = $5,
		    last_updated_at = $6, last_updated_by = $7
		WHERE card_id = $1;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, m.CardID, m.MonthlyLimit, m.MonthlyUsed, m.RechargeLimit, m.ExpirationDate, m.LastUpdatedAt, m.LastUpdatedBy)
	if err != nil {
		return fmt.Errorf("failed to update card %s: %w", m.CardID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: card %s", apperrors.ErrNotFound, m.CardID)
	}
	return nil
}

// SetCardStatus switches a card on or off.
func (r *PgxCardRepository) SetCardStatus(ctx context.Context, cardID string, status domain.CardStatus, userID string, now time.Time) error {
	cmdTag, err := r.Pool.Exec(ctx, `
		UPDATE cards SET status = $2, last_updated_at = $3, last_updated_by = $4 WHERE card_id = $1;
	`, cardID, string(status), now, userID)
	if err != nil {
		return fmt.Errorf("failed to set status of card %s: %w", cardID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: card %s", apperrors.ErrNotFound, cardID)
	}
	return nil
}

// DeleteCard removes a card permanently.
func (r *PgxCardRepository) DeleteCard(ctx context.Context, cardID string) error {
	cmdTag, err := r.Pool.Exec(ctx, `DELETE FROM cards WHERE card_id = $1;`, cardID)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return fmt.Errorf("%w: card %s is referenced by distribution history", apperrors.ErrInvalidState, cardID)
		}
		return fmt.Errorf("failed to delete card %s: %w", cardID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: card %s", apperrors.ErrNotFound, cardID)
	}
	return nil
}

// ResetMonthlyUsage zeroes monthly usage, for one country or all when country is empty.
func (r *PgxCardRepository) ResetMonthlyUsage(ctx context.Context, country string, userID string, now time.Time) (int64, error) {
	cmdTag, err := r.Pool.Exec(ctx, `
		UPDATE cards
		SET monthly_used = 0, last_updated_at = $2, last_updated_by = $3
		WHERE ($1 = '' OR country = $1) AND monthly_used <> 0;
	`, country, now, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset monthly usage: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// FindCardsByIDsForUpdate selects cards and locks them for update, in card_id order.
// Must be called within a transaction. Unknown IDs are absent from the map.
func (r *PgxCardRepository) FindCardsByIDsForUpdate(ctx context.Context, tx pgx.Tx, cardIDs []string) (map[string]domain.Card, error) {
	if len(cardIDs) == 0 {
		return map[string]domain.Card{}, nil
	}
	query := `SELECT ` + selectCardFields + ` FROM cards WHERE card_id = ANY($1) ORDER BY card_id FOR UPDATE;`

	rows, err := tx.Query(ctx, query, cardIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cards: %w", err)
	}
	return collectCards(rows)
}

// ApplyCardCreditsInTx adds each credit to the card's monthly usage and stamps the recharge date.
func (r *PgxCardRepository) ApplyCardCreditsInTx(ctx context.Context, tx pgx.Tx, credits map[string]decimal.Decimal, userID string, now time.Time) error {
	query := `
		UPDATE cards
		SET monthly_used = monthly_used + $2, last_recharge_date = $3, last_updated_at = $3, last_updated_by = $4
		WHERE card_id = $1;
	`

	cardIDs := make([]string, 0, len(credits))
	for id, amount := range credits {
		if amount.IsPositive() {
			cardIDs = append(cardIDs, id)
		}
	}
	if len(cardIDs) == 0 {
		return nil
	}
	sort.Strings(cardIDs)

	batch := &pgx.Batch{}
	for _, id := range cardIDs {
		batch.Queue(query, id, credits[id], now, userID)
	}

	br := tx.SendBatch(ctx, batch)
	var batchErr error
	for _, id := range cardIDs {
		ct, err := br.Exec()
		if err != nil {
			if batchErr == nil {
				batchErr = fmt.Errorf("failed to credit card %s: %w", id, err)
			}
		} else if ct.RowsAffected() == 0 && batchErr == nil {
			batchErr = fmt.Errorf("%w: card %s not found during credit", apperrors.ErrNotFound, id)
		}
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = fmt.Errorf("failed to close card credit batch: %w", err)
	}
	return batchErr
}

// SaveDistributionInTx records a committed distribution and its lines.
func (r *PgxCardRepository) SaveDistributionInTx(ctx context.Context, tx pgx.Tx, distribution domain.Distribution) error {
	m, lines := mapping.ToModelDistribution(distribution)

	_, err := tx.Exec(ctx, `
		INSERT INTO distributions (`+selectDistributionFields+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`,
		m.DistributionID, m.Country, m.RequestedAmount, m.TotalCapacity, m.TotalDistributed, m.Remainder,
		m.CardsUsed, m.FeePerCard, m.TotalFee, m.DeductFromVault, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert distribution %s: %w", m.DistributionID, err)
	}
	if len(lines) == 0 {
		return nil
	}

	lineQuery := `
		INSERT INTO distribution_lines (distribution_id, line_no, card_id, cid, capacity_before, credited, remaining_capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	batch := &pgx.Batch{}
	for _, l := range lines {
		batch.Queue(lineQuery, l.DistributionID, l.LineNo, l.CardID, l.CID, l.CapacityBefore, l.Credited, l.RemainingCapacity)
	}
	br := tx.SendBatch(ctx, batch)
	var batchErr error
	for _, l := range lines {
		if _, err := br.Exec(); err != nil && batchErr == nil {
			batchErr = fmt.Errorf("failed to insert distribution line %d: %w", l.LineNo, err)
		}
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = fmt.Errorf("failed to close distribution line batch: %w", err)
	}
	return batchErr
}

// UpsertCardsByCIDInTx inserts or updates imported cards keyed by CID.
// Existing cards keep their id, creation stamp and recharge date.
func (r *PgxCardRepository) UpsertCardsByCIDInTx(ctx context.Context, tx pgx.Tx, cards []domain.Card) error {
	if len(cards) == 0 {
		return nil
	}
	query := `
		INSERT INTO cards (` + selectCardFields + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (cid) DO UPDATE
		SET country = EXCLUDED.country,
		    status = EXCLUDED.status,
		    monthly_limit = EXCLUDED.monthly_limit,
		    monthly_used = EXCLUDED.monthly_used,
		    recharge_limit = EXCLUDED.recharge_limit,
		    expiration_date = EXCLUDED.expiration_date,
		    last_updated_at = EXCLUDED.last_updated_at,
		    last_updated_by = EXCLUDED.last_updated_by;
	`

	batch := &pgx.Batch{}
	for _, card := range cards {
		m := mapping.ToModelCard(card)
		batch.Queue(query,
			m.CardID, m.CID, m.Country, m.Status, m.MonthlyLimit, m.MonthlyUsed, m.RechargeLimit,
			m.LastRechargeDate, m.ExpirationDate, m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	var batchErr error
	for _, card := range cards {
		if _, err := br.Exec(); err != nil && batchErr == nil {
			batchErr = fmt.Errorf("failed to upsert card %s: %w", card.CID, err)
		}
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = fmt.Errorf("failed to close card import batch: %w", err)
	}
	return batchErr
}
