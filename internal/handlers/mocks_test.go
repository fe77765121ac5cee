package handlers_test

import (
	"context"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock CardService ---
type MockCardService struct {
	mock.Mock
}

func (m *MockCardService) GetCard(ctx context.Context, cardID string) (*domain.Card, error) {
	args := m.Called(ctx, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}
func (m *MockCardService) ListCards(ctx context.Context, filter domain.CardFilter) ([]domain.Card, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Card), args.Error(1)
}
func (m *MockCardService) GetDistribution(ctx context.Context, distributionID string) (*domain.Distribution, error) {
	args := m.Called(ctx, distributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Distribution), args.Error(1)
}
func (m *MockCardService) GetVaultBalance(ctx context.Context, actor domain.Actor) (decimal.Decimal, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
func (m *MockCardService) CreateCard(ctx context.Context, req dto.CreateCardRequest, actor domain.Actor) (*domain.Card, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}
func (m *MockCardService) UpdateCard(ctx context.Context, cardID string, req dto.UpdateCardRequest, actor domain.Actor) (*domain.Card, error) {
	args := m.Called(ctx, cardID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}
func (m *MockCardService) SetCardStatus(ctx context.Context, cardID string, status domain.CardStatus, actor domain.Actor) (*domain.Card, error) {
	args := m.Called(ctx, cardID, status, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}
func (m *MockCardService) DeleteCard(ctx context.Context, cardID string, actor domain.Actor) error {
	args := m.Called(ctx, cardID, actor)
	return args.Error(0)
}
func (m *MockCardService) ImportCards(ctx context.Context, rows []dto.CardImportRow, actor domain.Actor) (*dto.CardImportResult, error) {
	args := m.Called(ctx, rows, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CardImportResult), args.Error(1)
}
func (m *MockCardService) RechargeCard(ctx context.Context, cardID string, amount decimal.Decimal, actor domain.Actor) (*domain.Card, error) {
	args := m.Called(ctx, cardID, amount, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}
func (m *MockCardService) ResetUsage(ctx context.Context, country string, actor domain.Actor) (int64, error) {
	args := m.Called(ctx, country, actor)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockCardService) PreviewDistribution(ctx context.Context, req dto.DistributionRequest, actor domain.Actor) (*domain.DistributionPlan, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DistributionPlan), args.Error(1)
}
func (m *MockCardService) Distribute(ctx context.Context, req dto.DistributionRequest, actor domain.Actor) (*domain.Distribution, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Distribution), args.Error(1)
}

var _ portssvc.CardSvcFacade = (*MockCardService)(nil)

// --- Mock ExpenseService ---
type MockExpenseService struct {
	mock.Mock
}

func (m *MockExpenseService) GetExpense(ctx context.Context, expenseID string, actor domain.Actor) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}
func (m *MockExpenseService) ListExpenses(ctx context.Context, params dto.ListExpensesParams, actor domain.Actor) (*dto.ListExpensesResponse, error) {
	args := m.Called(ctx, params, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListExpensesResponse), args.Error(1)
}
func (m *MockExpenseService) ListCashiersWithExcess(ctx context.Context, actor domain.Actor) ([]domain.CashierExcess, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CashierExcess), args.Error(1)
}
func (m *MockExpenseService) CreateExpense(ctx context.Context, req dto.CreateExpenseRequest, actor domain.Actor) (*domain.Expense, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}
func (m *MockExpenseService) UpdateExpense(ctx context.Context, expenseID string, req dto.UpdateExpenseRequest, actor domain.Actor) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}
func (m *MockExpenseService) DeleteExpense(ctx context.Context, expenseID string, actor domain.Actor) error {
	args := m.Called(ctx, expenseID, actor)
	return args.Error(0)
}
func (m *MockExpenseService) ValidateExpense(ctx context.Context, expenseID string, req dto.ValidateExpenseRequest, actor domain.Actor) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}
func (m *MockExpenseService) BypassApprove(ctx context.Context, expenseID string, actor domain.Actor) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

var _ portssvc.ExpenseSvcFacade = (*MockExpenseService)(nil)

// --- Mock TillService ---
type MockTillService struct {
	mock.Mock
}

func (m *MockTillService) GetTill(ctx context.Context, agencyID string, actor domain.Actor) (*domain.Till, error) {
	args := m.Called(ctx, agencyID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Till), args.Error(1)
}
func (m *MockTillService) ListOperations(ctx context.Context, agencyID string, params dto.ListTillOperationsParams, actor domain.Actor) (*dto.ListTillOperationsResponse, error) {
	args := m.Called(ctx, agencyID, params, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListTillOperationsResponse), args.Error(1)
}
func (m *MockTillService) CommissionReport(ctx context.Context, agencyID string, params dto.CommissionReportParams, actor domain.Actor) (*domain.CommissionReport, error) {
	args := m.Called(ctx, agencyID, params, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommissionReport), args.Error(1)
}
func (m *MockTillService) Purchase(ctx context.Context, agencyID string, req dto.PurchaseRequest, actor domain.Actor) (*dto.TillOperationResult, error) {
	args := m.Called(ctx, agencyID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TillOperationResult), args.Error(1)
}
func (m *MockTillService) Sell(ctx context.Context, agencyID string, req dto.SaleRequest, actor domain.Actor) (*dto.TillOperationResult, error) {
	args := m.Called(ctx, agencyID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TillOperationResult), args.Error(1)
}
func (m *MockTillService) Adjust(ctx context.Context, agencyID string, req dto.AdjustmentRequest, actor domain.Actor) (*dto.TillOperationResult, error) {
	args := m.Called(ctx, agencyID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TillOperationResult), args.Error(1)
}
func (m *MockTillService) Resupply(ctx context.Context, req dto.ResupplyRequest, actor domain.Actor) (*dto.ResupplyResult, error) {
	args := m.Called(ctx, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ResupplyResult), args.Error(1)
}

var _ portssvc.TillSvcFacade = (*MockTillService)(nil)
