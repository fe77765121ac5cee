package pgsql

import (
	"context"
	"fmt"
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

type PgxTillRepository struct {
	BaseRepository
}

// newPgxTillRepository creates a new repository for tills and the till operation log.
func newPgxTillRepository(pool *pgxpool.Pool) portsrepo.TillRepositoryWithTx {
	return &PgxTillRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TillRepositoryWithTx = (*PgxTillRepository)(nil)

const (
	selectTillBalanceFields = `agency_id, currency, balance, last_effective_rate, commission, last_updated_at, last_updated_by`
	selectTillOpFields      = `operation_id, agency_id, related_agency_ids, type, payload, actor, created_at`
)

func collectTillBalances(rows pgx.Rows) (map[string][]models.TillBalance, error) {
	defer rows.Close()
	byAgency := make(map[string][]models.TillBalance)
	for rows.Next() {
		var m models.TillBalance
		if err := rows.Scan(&m.AgencyID, &m.Currency, &m.Balance, &m.LastEffectiveRate, &m.Commission, &m.LastUpdatedAt, &m.LastUpdatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan till balance row: %w", err)
		}
		byAgency[m.AgencyID] = append(byAgency[m.AgencyID], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating till balance rows: %w", err)
	}
	return byAgency, nil
}

func tillCurrencyCodes() []string {
	codes := make([]string, 0, len(domain.TillCurrencies))
	for _, c := range domain.TillCurrencies {
		codes = append(codes, string(c))
	}
	return codes
}

// FindTill returns the till of an agency. A till without rows yet is returned empty.
func (r *PgxTillRepository) FindTill(ctx context.Context, agencyID string) (*domain.Till, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+selectTillBalanceFields+`
		FROM till_balances
		WHERE agency_id = $1;
	`, agencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query till %s: %w", agencyID, err)
	}
	byAgency, err := collectTillBalances(rows)
	if err != nil {
		return nil, err
	}
	till := mapping.ToDomainTill(agencyID, byAgency[agencyID])
	return &till, nil
}

// FindTillsForUpdate locks the balance rows of the given agencies.
// Missing (agency, currency) rows are inserted first so that new tills are lockable too.
func (r *PgxTillRepository) FindTillsForUpdate(ctx context.Context, tx pgx.Tx, agencyIDs []string) (map[string]domain.Till, error) {
	tills := make(map[string]domain.Till, len(agencyIDs))
	if len(agencyIDs) == 0 {
		return tills, nil
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO till_balances (agency_id, currency, balance, last_effective_rate, commission, last_updated_by)
		SELECT a.agency_id, c.currency, 0, 0, 0, ''
		FROM unnest($1::text[]) AS a(agency_id)
		CROSS JOIN unnest($2::text[]) AS c(currency)
		ON CONFLICT (agency_id, currency) DO NOTHING;
	`, agencyIDs, tillCurrencyCodes())
	if err != nil {
		return nil, fmt.Errorf("failed to initialise till rows: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT `+selectTillBalanceFields+`
		FROM till_balances
		WHERE agency_id = ANY($1)
		ORDER BY agency_id, currency
		FOR UPDATE;
	`, agencyIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to lock tills: %w", err)
	}
	byAgency, err := collectTillBalances(rows)
	if err != nil {
		return nil, err
	}

	for _, id := range agencyIDs {
		tills[id] = mapping.ToDomainTill(id, byAgency[id])
	}
	return tills, nil
}

// SaveTillInTx writes every currency row of the till.
func (r *PgxTillRepository) SaveTillInTx(ctx context.Context, tx pgx.Tx, till domain.Till) error {
	query := `
		INSERT INTO till_balances (` + selectTillBalanceFields + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (agency_id, currency) DO UPDATE
		SET balance = EXCLUDED.balance,
		    last_effective_rate = EXCLUDED.last_effective_rate,
		    commission = EXCLUDED.commission,
		    last_updated_at = EXCLUDED.last_updated_at,
		    last_updated_by = EXCLUDED.last_updated_by;
	`

	rows := mapping.ToModelTillBalances(till)
	batch := &pgx.Batch{}
	for _, m := range rows {
		batch.Queue(query, m.AgencyID, m.Currency, m.Balance, m.LastEffectiveRate, m.Commission, m.LastUpdatedAt, m.LastUpdatedBy)
	}

	br := tx.SendBatch(ctx, batch)
	var batchErr error
	for _, m := range rows {
		if _, err := br.Exec(); err != nil && batchErr == nil {
			batchErr = fmt.Errorf("failed to save %s balance of till %s: %w", m.Currency, m.AgencyID, err)
		}
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = fmt.Errorf("failed to close till balance batch: %w", err)
	}
	return batchErr
}

// AppendOperationInTx inserts one immutable log entry.
func (r *PgxTillRepository) AppendOperationInTx(ctx context.Context, tx pgx.Tx, op domain.TillOperation) error {
	m := mapping.ToModelTillOperation(op)
	_, err := tx.Exec(ctx, `
		INSERT INTO till_operations (`+selectTillOpFields+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`, m.OperationID, m.AgencyID, m.RelatedAgencyIDs, m.Type, m.Payload, m.Actor, m.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return fmt.Errorf("%w: till operation %s already recorded", apperrors.ErrDuplicate, m.OperationID)
		}
		return fmt.Errorf("failed to append till operation: %w", err)
	}
	return nil
}

// ListOperations returns log entries where the agency is the owner or a related party, newest first.
func (r *PgxTillRepository) ListOperations(ctx context.Context, filter domain.TillOperationFilter) ([]domain.TillOperation, error) {
	conditions := []string{}
	args := []interface{}{}
	if filter.AgencyID != "" {
		args = append(args, filter.AgencyID)
		n := strconv.Itoa(len(args))
		conditions = append(conditions, "(agency_id = $"+n+" OR $"+n+" = ANY(related_agency_ids))")
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conditions = append(conditions, "type = $"+strconv.Itoa(len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, "created_at < $"+strconv.Itoa(len(args)))
	}
	if filter.CursorCreatedAt != nil {
		args = append(args, *filter.CursorCreatedAt, filter.CursorID)
		conditions = append(conditions, "(created_at, operation_id) < ($"+strconv.Itoa(len(args)-1)+", $"+strconv.Itoa(len(args))+")")
	}

	query := `SELECT ` + selectTillOpFields + ` FROM till_operations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, operation_id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query till operations", err)
	}
	defer rows.Close()

	ops := []domain.TillOperation{}
	for rows.Next() {
		var m models.TillOperation
		if err := rows.Scan(&m.OperationID, &m.AgencyID, &m.RelatedAgencyIDs, &m.Type, &m.Payload, &m.Actor, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan till operation row: %w", err)
		}
		ops = append(ops, mapping.ToDomainTillOperation(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating till operation rows: %w", err)
	}
	return ops, nil
}

// SumCommissions totals sale commissions per sold currency over [from, to).
func (r *PgxTillRepository) SumCommissions(ctx context.Context, agencyID string, from, to time.Time) (map[domain.Currency]decimal.Decimal, map[domain.Currency]int, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT payload->>'soldCurrency' AS currency,
		       COALESCE(SUM((payload->>'commission')::numeric), 0) AS commission,
		       COUNT(*) AS sales
		FROM till_operations
		WHERE agency_id = $1
		  AND type = ANY($2)
		  AND created_at >= $3 AND created_at < $4
		GROUP BY payload->>'soldCurrency';
	`, agencyID, []string{string(domain.TillOpSale), string(domain.TillOpCounterSale)}, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sum commissions of till %s: %w", agencyID, err)
	}
	defer rows.Close()

	sums := make(map[domain.Currency]decimal.Decimal)
	counts := make(map[domain.Currency]int)
	for rows.Next() {
		var (
			currency string
			total    decimal.Decimal
			sales    int
		)
		if err := rows.Scan(&currency, &total, &sales); err != nil {
			return nil, nil, fmt.Errorf("failed to scan commission row: %w", err)
		}
		sums[domain.Currency(currency)] = total
		counts[domain.Currency(currency)] = sales
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating commission rows: %w", err)
	}
	return sums, counts, nil
}
