package services_test

import (
	"context"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portsrepo "github.com/SscSPs/transfer_backoffice/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock TransactionManager ---
// Begin hands out a nil pgx.Tx; the mocks never touch it.
type mockTx struct {
	mock.Mock
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *mockTx) Commit(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *mockTx) Rollback(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// expectTx registers a transaction that is committed (or not) and always rolled back on defer.
func expectTx(m *mock.Mock, commit bool) {
	m.On("Begin", mock.Anything).Return(nil, nil).Once()
	if commit {
		m.On("Commit", mock.Anything, mock.Anything).Return(nil).Once()
	}
	m.On("Rollback", mock.Anything, mock.Anything).Return(nil).Once()
}

// --- Mock CardRepository ---
type MockCardRepository struct {
	mockTx
}

var _ portsrepo.CardRepositoryWithTx = (*MockCardRepository)(nil)

func (m *MockCardRepository) FindCardByID(ctx context.Context, cardID string) (*domain.Card, error) {
	args := m.Called(ctx, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Card), args.Error(1)
}

func (m *MockCardRepository) FindCardsByIDs(ctx context.Context, cardIDs []string) (map[string]domain.Card, error) {
	args := m.Called(ctx, cardIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Card), args.Error(1)
}

func (m *MockCardRepository) ListCards(ctx context.Context, filter domain.CardFilter) ([]domain.Card, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Card), args.Error(1)
}

func (m *MockCardRepository) CountDistributionLines(ctx context.Context, cardID string) (int, error) {
	args := m.Called(ctx, cardID)
	return args.Int(0), args.Error(1)
}

func (m *MockCardRepository) FindDistributionByID(ctx context.Context, distributionID string) (*domain.Distribution, error) {
	args := m.Called(ctx, distributionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Distribution), args.Error(1)
}

func (m *MockCardRepository) SaveCard(ctx context.Context, card domain.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardRepository) UpdateCard(ctx context.Context, card domain.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardRepository) SetCardStatus(ctx context.Context, cardID string, status domain.CardStatus, userID string, now time.Time) error {
	args := m.Called(ctx, cardID, status, userID, now)
	return args.Error(0)
}

func (m *MockCardRepository) DeleteCard(ctx context.Context, cardID string) error {
	args := m.Called(ctx, cardID)
	return args.Error(0)
}

func (m *MockCardRepository) ResetMonthlyUsage(ctx context.Context, country string, userID string, now time.Time) (int64, error) {
	args := m.Called(ctx, country, userID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCardRepository) FindCardsByIDsForUpdate(ctx context.Context, tx pgx.Tx, cardIDs []string) (map[string]domain.Card, error) {
	args := m.Called(ctx, tx, cardIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Card), args.Error(1)
}

func (m *MockCardRepository) ApplyCardCreditsInTx(ctx context.Context, tx pgx.Tx, credits map[string]decimal.Decimal, userID string, now time.Time) error {
	args := m.Called(ctx, tx, credits, userID, now)
	return args.Error(0)
}

func (m *MockCardRepository) SaveDistributionInTx(ctx context.Context, tx pgx.Tx, distribution domain.Distribution) error {
	args := m.Called(ctx, tx, distribution)
	return args.Error(0)
}

func (m *MockCardRepository) UpsertCardsByCIDInTx(ctx context.Context, tx pgx.Tx, cards []domain.Card) error {
	args := m.Called(ctx, tx, cards)
	return args.Error(0)
}

// --- Mock VaultRepository ---
type MockVaultRepository struct {
	mock.Mock
}

var _ portsrepo.VaultRepository = (*MockVaultRepository)(nil)

func (m *MockVaultRepository) GetVaultBalance(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockVaultRepository) GetVaultBalanceForUpdate(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockVaultRepository) AdjustVaultBalanceInTx(ctx context.Context, tx pgx.Tx, delta decimal.Decimal, userID string, now time.Time) error {
	args := m.Called(ctx, tx, delta, userID, now)
	return args.Error(0)
}

// --- Mock ExpenseRepository ---
type MockExpenseRepository struct {
	mockTx
}

var _ portsrepo.ExpenseRepositoryWithTx = (*MockExpenseRepository)(nil)

func (m *MockExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.Expense, error) {
	args := m.Called(ctx, expenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

func (m *MockExpenseRepository) ListExpenses(ctx context.Context, filter domain.ExpenseFilter) ([]domain.Expense, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Expense), args.Error(1)
}

func (m *MockExpenseRepository) SaveExpense(ctx context.Context, expense domain.Expense) error {
	args := m.Called(ctx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) FindExpenseByIDForUpdate(ctx context.Context, tx pgx.Tx, expenseID string) (*domain.Expense, error) {
	args := m.Called(ctx, tx, expenseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Expense), args.Error(1)
}

func (m *MockExpenseRepository) UpdateExpenseInTx(ctx context.Context, tx pgx.Tx, expense domain.Expense) error {
	args := m.Called(ctx, tx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) UpdateExpenseDetailsInTx(ctx context.Context, tx pgx.Tx, expense domain.Expense) error {
	args := m.Called(ctx, tx, expense)
	return args.Error(0)
}

func (m *MockExpenseRepository) DeleteExpenseInTx(ctx context.Context, tx pgx.Tx, expenseID string) error {
	args := m.Called(ctx, tx, expenseID)
	return args.Error(0)
}

// --- Mock CashExcessRepository ---
type MockCashExcessRepository struct {
	mock.Mock
}

var _ portsrepo.CashExcessRepository = (*MockCashExcessRepository)(nil)

func (m *MockCashExcessRepository) ListCashiersWithExcess(ctx context.Context, agencyID string) ([]domain.CashierExcess, error) {
	args := m.Called(ctx, agencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CashierExcess), args.Error(1)
}

func (m *MockCashExcessRepository) FindCashierExcess(ctx context.Context, cashierID string) (*domain.CashierExcess, error) {
	args := m.Called(ctx, cashierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CashierExcess), args.Error(1)
}

func (m *MockCashExcessRepository) FindCashierExcessForUpdate(ctx context.Context, tx pgx.Tx, cashierID string) (*domain.CashierExcess, error) {
	args := m.Called(ctx, tx, cashierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CashierExcess), args.Error(1)
}

func (m *MockCashExcessRepository) DebitCashierExcessInTx(ctx context.Context, tx pgx.Tx, entry domain.CashExcessEntry) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

// --- Mock TillRepository ---
type MockTillRepository struct {
	mockTx
}

var _ portsrepo.TillRepositoryWithTx = (*MockTillRepository)(nil)

func (m *MockTillRepository) FindTill(ctx context.Context, agencyID string) (*domain.Till, error) {
	args := m.Called(ctx, agencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Till), args.Error(1)
}

func (m *MockTillRepository) ListOperations(ctx context.Context, filter domain.TillOperationFilter) ([]domain.TillOperation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TillOperation), args.Error(1)
}

func (m *MockTillRepository) SumCommissions(ctx context.Context, agencyID string, from, to time.Time) (map[domain.Currency]decimal.Decimal, map[domain.Currency]int, error) {
	args := m.Called(ctx, agencyID, from, to)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(map[domain.Currency]decimal.Decimal), args.Get(1).(map[domain.Currency]int), args.Error(2)
}

func (m *MockTillRepository) FindTillsForUpdate(ctx context.Context, tx pgx.Tx, agencyIDs []string) (map[string]domain.Till, error) {
	args := m.Called(ctx, tx, agencyIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Till), args.Error(1)
}

func (m *MockTillRepository) SaveTillInTx(ctx context.Context, tx pgx.Tx, till domain.Till) error {
	args := m.Called(ctx, tx, till)
	return args.Error(0)
}

func (m *MockTillRepository) AppendOperationInTx(ctx context.Context, tx pgx.Tx, op domain.TillOperation) error {
	args := m.Called(ctx, tx, op)
	return args.Error(0)
}

// --- Mock ExpenseNotifier ---
type MockExpenseNotifier struct {
	mock.Mock
}

var _ portssvc.ExpenseNotifier = (*MockExpenseNotifier)(nil)

func (m *MockExpenseNotifier) NotifyExpenseStatusChanged(ctx context.Context, event domain.ExpenseStatusEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// fixedNow is the clock every service suite runs on.
var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var testReference = domain.ReferenceData{
	Countries: []domain.Country{
		{Code: "CI", Name: "Côte d'Ivoire", CardFee: dec("1000")},
		{Code: "ML", Name: "Mali", CardFee: decimal.Zero},
	},
	ExpenseCategories: []string{"supplies", "transport"},
}
