package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portsrepo "github.com/SscSPs/transfer_backoffice/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/SscSPs/transfer_backoffice/internal/utils/accounting"
	"github.com/SscSPs/transfer_backoffice/internal/utils/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// tillSupervisorRoles may operate any till and resupply branches.
var tillSupervisorRoles = []domain.Role{domain.RoleAdmin, domain.RoleDirector}

// tillService implements the TillSvcFacade interface
type tillService struct {
	BaseService
	tillRepo portsrepo.TillRepositoryWithTx
}

// TillServiceOption is a functional option for configuring the till service
type TillServiceOption func(*tillService)

// WithTillClock overrides the clock used for log entries
func WithTillClock(now func() time.Time) TillServiceOption {
	return func(s *tillService) {
		s.Now = now
	}
}

// NewTillService creates a new till service with the provided options
func NewTillService(tillRepo portsrepo.TillRepositoryWithTx, options ...TillServiceOption) portssvc.TillSvcFacade {
	svc := &tillService{tillRepo: tillRepo}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.TillSvcFacade = (*tillService)(nil)

// authorizeTill lets supervisors act on any till and everyone else on their own agency's.
func (s *tillService) authorizeTill(ctx context.Context, actor domain.Actor, agencyID string) error {
	if strings.TrimSpace(agencyID) == "" {
		return fmt.Errorf("%w: agency is required", apperrors.ErrValidation)
	}
	if actor.HasRole(tillSupervisorRoles...) || actor.AgencyID == agencyID {
		return nil
	}
	return fmt.Errorf("%w: till %s belongs to another agency", apperrors.ErrForbidden, agencyID)
}

func (s *tillService) GetTill(ctx context.Context, agencyID string, actor domain.Actor) (*domain.Till, error) {
	if err := s.authorizeTill(ctx, actor, agencyID); err != nil {
		return nil, err
	}
	till, err := s.tillRepo.FindTill(ctx, agencyID)
	if err != nil {
		s.LogError(ctx, err, "Failed to read till", slog.String("agency_id", agencyID))
		return nil, err
	}
	return till, nil
}

// counterpart picks the log type: the central office trades, branches trade at the counter.
func counterpart(agencyID string, central, branch domain.TillOperationType) domain.TillOperationType {
	if agencyID == domain.CentralAgencyID {
		return central
	}
	return branch
}

// mutateTill runs one logged single-till operation inside a transaction.
func (s *tillService) mutateTill(ctx context.Context, agencyID string, actor domain.Actor, opType domain.TillOperationType, apply func(*domain.Till) (any, error)) (*dto.TillOperationResult, error) {
	tx, err := s.tillRepo.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin till operation")
		return nil, err
	}
	defer s.Rollback(ctx, s.tillRepo, tx)

	tills, err := s.tillRepo.FindTillsForUpdate(ctx, tx, []string{agencyID})
	if err != nil {
		s.LogError(ctx, err, "Failed to lock till", slog.String("agency_id", agencyID))
		return nil, err
	}
	till, ok := tills[agencyID]
	if !ok {
		till = domain.NewTill(agencyID)
	}

	payload, err := apply(&till)
	if err != nil {
		return nil, err
	}

	now := s.CurrentTime()
	till.Touch(actor.UserID, now)
	op, err := domain.NewTillOperation(uuid.NewString(), agencyID, opType, payload, actor.UserID, now)
	if err != nil {
		s.LogError(ctx, err, "Failed to encode till operation")
		return nil, err
	}

	if err := s.tillRepo.SaveTillInTx(ctx, tx, till); err != nil {
		s.LogError(ctx, err, "Failed to save till", slog.String("agency_id", agencyID))
		return nil, err
	}
	if err := s.tillRepo.AppendOperationInTx(ctx, tx, op); err != nil {
		s.LogError(ctx, err, "Failed to append till operation", slog.String("agency_id", agencyID))
		return nil, err
	}
	if err := s.tillRepo.Commit(ctx, tx); err != nil {
		s.LogError(ctx, err, "Failed to commit till operation", slog.String("agency_id", agencyID))
		return nil, err
	}

	s.LogInfo(ctx, "Till operation recorded",
		slog.String("agency_id", agencyID),
		slog.String("type", string(opType)),
		slog.String("operation_id", op.OperationID))
	return &dto.TillOperationResult{Operation: op, Till: till}, nil
}

func (s *tillService) Purchase(ctx context.Context, agencyID string, req dto.PurchaseRequest, actor domain.Actor) (*dto.TillOperationResult, error) {
	if err := s.authorizeTill(ctx, actor, agencyID); err != nil {
		return nil, err
	}
	in := accounting.PurchaseInput{
		PaidCurrency:   req.PaidCurrency,
		BoughtCurrency: req.BoughtCurrency,
		PaidAmount:     req.PaidAmount,
		PurchaseRate:   req.PurchaseRate,
		TransportFee:   req.TransportFee,
		HandlingFee:    req.HandlingFee,
		BanknoteFee:    req.BanknoteFee,
		DeductFrom:     req.DeductFrom,
		Supplier:       strings.TrimSpace(req.Supplier),
	}
	opType := counterpart(agencyID, domain.TillOpPurchase, domain.TillOpCounterPurchase)
	return s.mutateTill(ctx, agencyID, actor, opType, func(t *domain.Till) (any, error) {
		return accounting.ApplyPurchase(t, in)
	})
}

func (s *tillService) Sell(ctx context.Context, agencyID string, req dto.SaleRequest, actor domain.Actor) (*dto.TillOperationResult, error) {
	if err := s.authorizeTill(ctx, actor, agencyID); err != nil {
		return nil, err
	}
	in := accounting.SaleInput{
		SoldCurrency:     req.SoldCurrency,
		ReceivedCurrency: req.ReceivedCurrency,
		SoldAmount:       req.SoldAmount,
		DayRate:          req.DayRate,
		Customer:         strings.TrimSpace(req.Customer),
	}
	opType := counterpart(agencyID, domain.TillOpSale, domain.TillOpCounterSale)
	return s.mutateTill(ctx, agencyID, actor, opType, func(t *domain.Till) (any, error) {
		return accounting.ApplySale(t, in)
	})
}

func (s *tillService) Adjust(ctx context.Context, agencyID string, req dto.AdjustmentRequest, actor domain.Actor) (*dto.TillOperationResult, error) {
	if err := s.authorizeTill(ctx, actor, agencyID); err != nil {
		return nil, err
	}
	return s.mutateTill(ctx, agencyID, actor, domain.TillOpAdjustment, func(t *domain.Till) (any, error) {
		return accounting.ApplyAdjustment(t, req.Currency, req.NewBalance, req.Reason)
	})
}

func (s *tillService) Resupply(ctx context.Context, req dto.ResupplyRequest, actor domain.Actor) (*dto.ResupplyResult, error) {
	if err := s.AuthorizeActor(ctx, actor, "resupply branches", tillSupervisorRoles...); err != nil {
		return nil, err
	}
	if _, err := accounting.ResupplyTotals(req.Branches); err != nil {
		return nil, err
	}

	branchIDs := make([]string, 0, len(req.Branches))
	seen := make(map[string]bool, len(req.Branches))
	for _, line := range req.Branches {
		if !seen[line.AgencyID] {
			seen[line.AgencyID] = true
			branchIDs = append(branchIDs, line.AgencyID)
		}
	}
	sort.Strings(branchIDs)
	lockIDs := append([]string{domain.CentralAgencyID}, branchIDs...)

	tx, err := s.tillRepo.Begin(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to begin resupply")
		return nil, err
	}
	defer s.Rollback(ctx, s.tillRepo, tx)

	locked, err := s.tillRepo.FindTillsForUpdate(ctx, tx, lockIDs)
	if err != nil {
		s.LogError(ctx, err, "Failed to lock tills for resupply")
		return nil, err
	}
	tillFor := func(id string) *domain.Till {
		t, ok := locked[id]
		if !ok {
			t = domain.NewTill(id)
		}
		return &t
	}

	central := tillFor(domain.CentralAgencyID)
	branches := make(map[string]*domain.Till, len(branchIDs))
	for _, id := range branchIDs {
		branches[id] = tillFor(id)
	}

	payload, err := accounting.ApplyResupply(central, branches, req.Branches)
	if err != nil {
		return nil, err
	}

	now := s.CurrentTime()
	touched := make([]domain.Till, 0, len(lockIDs))
	central.Touch(actor.UserID, now)
	touched = append(touched, *central)
	for _, id := range branchIDs {
		branches[id].Touch(actor.UserID, now)
		touched = append(touched, *branches[id])
	}
	for _, t := range touched {
		if err := s.tillRepo.SaveTillInTx(ctx, tx, t); err != nil {
			s.LogError(ctx, err, "Failed to save till", slog.String("agency_id", t.AgencyID))
			return nil, err
		}
	}

	op, err := domain.NewTillOperation(uuid.NewString(), domain.CentralAgencyID, domain.TillOpResupply, payload, actor.UserID, now)
	if err != nil {
		s.LogError(ctx, err, "Failed to encode resupply")
		return nil, err
	}
	op.RelatedAgencyIDs = branchIDs
	if err := s.tillRepo.AppendOperationInTx(ctx, tx, op); err != nil {
		s.LogError(ctx, err, "Failed to append resupply operation")
		return nil, err
	}
	if err := s.tillRepo.Commit(ctx, tx); err != nil {
		s.LogError(ctx, err, "Failed to commit resupply")
		return nil, err
	}

	s.LogInfo(ctx, "Branches resupplied",
		slog.String("operation_id", op.OperationID),
		slog.Int("branches", len(branchIDs)))
	return &dto.ResupplyResult{Operation: op, Tills: touched}, nil
}

func (s *tillService) ListOperations(ctx context.Context, agencyID string, params dto.ListTillOperationsParams, actor domain.Actor) (*dto.ListTillOperationsResponse, error) {
	if err := s.authorizeTill(ctx, actor, agencyID); err != nil {
		return nil, err
	}
	if params.Type != "" && !params.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown operation type %q", apperrors.ErrValidation, params.Type)
	}

	limit := pagination.ClampLimit(params.Limit)
	filter := domain.TillOperationFilter{
		AgencyID: agencyID,
		Type:     params.Type,
		From:     params.From,
		Limit:    limit + 1,
	}
	if params.To != nil {
		end := params.To.AddDate(0, 0, 1)
		filter.To = &end
	}
	if params.NextToken != "" {
		createdAt, id, err := pagination.DecodeCursor(params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		filter.CursorCreatedAt = &createdAt
		filter.CursorID = id
	}

	ops, err := s.tillRepo.ListOperations(ctx, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list till operations", slog.String("agency_id", agencyID))
		return nil, err
	}

	resp := &dto.ListTillOperationsResponse{Operations: ops}
	if len(ops) > limit {
		resp.Operations = ops[:limit]
		last := resp.Operations[limit-1]
		token := pagination.EncodeCursor(last.CreatedAt, last.OperationID)
		resp.NextToken = &token
	}
	if resp.Operations == nil {
		resp.Operations = []domain.TillOperation{}
	}
	return resp, nil
}

func (s *tillService) CommissionReport(ctx context.Context, agencyID string, params dto.CommissionReportParams, actor domain.Actor) (*domain.CommissionReport, error) {
	if err := s.authorizeTill(ctx, actor, agencyID); err != nil {
		return nil, err
	}
	if params.From.IsZero() || params.To.IsZero() {
		return nil, fmt.Errorf("%w: from and to are required", apperrors.ErrValidation)
	}
	if params.To.Before(params.From) {
		return nil, fmt.Errorf("%w: period end is before its start", apperrors.ErrValidation)
	}
	end := params.To.AddDate(0, 0, 1)

	sums, counts, err := s.tillRepo.SumCommissions(ctx, agencyID, params.From, end)
	if err != nil {
		s.LogError(ctx, err, "Failed to sum commissions", slog.String("agency_id", agencyID))
		return nil, err
	}

	report := &domain.CommissionReport{
		AgencyID:    agencyID,
		From:        params.From,
		To:          params.To,
		Commissions: make(map[domain.Currency]decimal.Decimal),
		SalesCount:  make(map[domain.Currency]int),
	}
	for _, c := range domain.TillCurrencies {
		if !c.IsForeign() {
			continue
		}
		report.Commissions[c] = sums[c]
		report.SalesCount[c] = counts[c]
	}
	return report, nil
}
