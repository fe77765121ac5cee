package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/core/services"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/SscSPs/transfer_backoffice/internal/utils/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

func boolPtr(b bool) *bool { return &b }

// --- Test Suite ---
type ExpenseServiceTestSuite struct {
	suite.Suite
	expenseRepo *MockExpenseRepository
	excessRepo  *MockCashExcessRepository
	notifier    *MockExpenseNotifier
	service     portssvc.ExpenseSvcFacade
	ctx         context.Context
}

func (suite *ExpenseServiceTestSuite) SetupTest() {
	suite.expenseRepo = new(MockExpenseRepository)
	suite.excessRepo = new(MockCashExcessRepository)
	suite.notifier = new(MockExpenseNotifier)
	suite.service = services.NewExpenseService(suite.expenseRepo, suite.excessRepo, testReference,
		services.WithExpenseNotifier(suite.notifier),
		services.WithExpenseClock(fixedClock))
	suite.ctx = context.Background()
}

func (suite *ExpenseServiceTestSuite) expense(status domain.ExpenseStatus, deduct bool) *domain.Expense {
	e := &domain.Expense{
		ExpenseID:     "exp-1",
		Description:   "Printer paper",
		Amount:        dec("20000"),
		Category:      "supplies",
		RequesterID:   cashier.UserID,
		RequesterName: cashier.Name,
		RequesterMail: cashier.Email,
		AgencyID:      cashier.AgencyID,
		Status:        status,
		AuditFields:   domain.NewAuditFields(cashier.UserID, fixedNow.Add(-time.Hour)),
	}
	if deduct {
		e.DeductFromExcess = true
		e.DeductedCashierID = cashier.UserID
	}
	return e
}

func (suite *ExpenseServiceTestSuite) excess(available string) *domain.CashierExcess {
	return &domain.CashierExcess{CashierID: cashier.UserID, CashierName: cashier.Name, AgencyID: cashier.AgencyID, Available: dec(available)}
}

// --- Test Cases ---

func (suite *ExpenseServiceTestSuite) TestCreateExpense_CashierDeductsOwnExcess() {
	req := dto.CreateExpenseRequest{Description: " Printer paper ", Amount: dec("20000"), Category: "supplies", DeductFromExcess: true}

	suite.excessRepo.On("FindCashierExcess", suite.ctx, cashier.UserID).Return(suite.excess("50000"), nil).Once()
	suite.expenseRepo.On("SaveExpense", suite.ctx, mock.MatchedBy(func(e domain.Expense) bool {
		return e.Description == "Printer paper" && e.Status == domain.ExpensePending &&
			e.DeductedCashierID == cashier.UserID && e.AgencyID == "AG1" && e.RequesterMail == cashier.Email
	})).Return(nil).Once()
	suite.notifier.On("NotifyExpenseStatusChanged", suite.ctx, mock.MatchedBy(func(ev domain.ExpenseStatusEvent) bool {
		return ev.Status == domain.ExpensePending && ev.PreviousStatus == "" &&
			assert.ObjectsAreEqual([]domain.Role{domain.RoleAccounting}, ev.NotifyRoles)
	})).Return(nil).Once()

	expense, err := suite.service.CreateExpense(suite.ctx, req, cashier)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpensePending, expense.Status)
	suite.expenseRepo.AssertExpectations(suite.T())
	suite.excessRepo.AssertExpectations(suite.T())
	suite.notifier.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_CashierCannotUseAnotherCashier() {
	req := dto.CreateExpenseRequest{Description: "Fuel", Amount: dec("100"), Category: "transport", DeductFromExcess: true, DeductedCashierID: "someone-else"}

	expense, err := suite.service.CreateExpense(suite.ctx, req, cashier)

	suite.Require().Error(err)
	suite.Nil(expense)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.expenseRepo.AssertNotCalled(suite.T(), "SaveExpense", mock.Anything, mock.Anything)
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_AmountAboveExcess() {
	req := dto.CreateExpenseRequest{Description: "Fuel", Amount: dec("60000"), Category: "transport", DeductFromExcess: true}
	suite.excessRepo.On("FindCashierExcess", suite.ctx, cashier.UserID).Return(suite.excess("50000"), nil).Once()

	_, err := suite.service.CreateExpense(suite.ctx, req, cashier)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "amount 60000 exceeds the available cash excess of 50000")
}

func (suite *ExpenseServiceTestSuite) TestCreateExpense_UnknownCategory() {
	req := dto.CreateExpenseRequest{Description: "Gift", Amount: dec("10"), Category: "gifts"}

	_, err := suite.service.CreateExpense(suite.ctx, req, accountant)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ExpenseServiceTestSuite) TestValidateExpense_AccountingApprovalNotifiesDirector() {
	expectTx(&suite.expenseRepo.Mock, true)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpensePending, true), nil).Once()
	suite.expenseRepo.On("UpdateExpenseInTx", suite.ctx, mock.Anything, mock.MatchedBy(func(e domain.Expense) bool {
		return e.Status == domain.ExpenseAccountingApproved && e.AccountingValidatedBy == accountant.UserID
	})).Return(nil).Once()
	suite.notifier.On("NotifyExpenseStatusChanged", suite.ctx, mock.MatchedBy(func(ev domain.ExpenseStatusEvent) bool {
		return ev.Stage == domain.StageAccounting && ev.PreviousStatus == domain.ExpensePending &&
			assert.ObjectsAreEqual([]domain.Role{domain.RoleDirector}, ev.NotifyRoles)
	})).Return(nil).Once()

	req := dto.ValidateExpenseRequest{Approved: boolPtr(true), Stage: domain.StageAccounting}
	expense, err := suite.service.ValidateExpense(suite.ctx, "exp-1", req, accountant)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseAccountingApproved, expense.Status)
	suite.excessRepo.AssertNotCalled(suite.T(), "DebitCashierExcessInTx", mock.Anything, mock.Anything, mock.Anything)
	suite.expenseRepo.AssertExpectations(suite.T())
	suite.notifier.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestValidateExpense_DirectorApprovalDebitsExcess() {
	expectTx(&suite.expenseRepo.Mock, true)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpenseAccountingApproved, true), nil).Once()
	suite.excessRepo.On("FindCashierExcessForUpdate", suite.ctx, mock.Anything, cashier.UserID).Return(suite.excess("20000"), nil).Once()
	suite.excessRepo.On("DebitCashierExcessInTx", suite.ctx, mock.Anything, mock.MatchedBy(func(entry domain.CashExcessEntry) bool {
		return entry.ExpenseID == "exp-1" && entry.CashierID == cashier.UserID && entry.Amount.Equal(dec("20000")) && entry.CreatedBy == director.UserID
	})).Return(nil).Once()
	suite.expenseRepo.On("UpdateExpenseInTx", suite.ctx, mock.Anything, mock.MatchedBy(func(e domain.Expense) bool {
		return e.Status == domain.ExpenseDirectorApproved && e.DirectorValidatedBy == director.UserID
	})).Return(nil).Once()
	suite.notifier.On("NotifyExpenseStatusChanged", suite.ctx, mock.MatchedBy(func(ev domain.ExpenseStatusEvent) bool {
		return ev.Status == domain.ExpenseDirectorApproved && assert.ObjectsAreEqual([]domain.Role{domain.RoleAccounting}, ev.NotifyRoles)
	})).Return(nil).Once()

	req := dto.ValidateExpenseRequest{Approved: boolPtr(true), Stage: domain.StageDirector}
	expense, err := suite.service.ValidateExpense(suite.ctx, "exp-1", req, director)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDirectorApproved, expense.Status)
	suite.expenseRepo.AssertExpectations(suite.T())
	suite.excessRepo.AssertExpectations(suite.T())
	suite.notifier.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestValidateExpense_ExcessShrankBeforeApproval() {
	expectTx(&suite.expenseRepo.Mock, false)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpenseAccountingApproved, true), nil).Once()
	suite.excessRepo.On("FindCashierExcessForUpdate", suite.ctx, mock.Anything, cashier.UserID).Return(suite.excess("5000"), nil).Once()

	req := dto.ValidateExpenseRequest{Approved: boolPtr(true), Stage: domain.StageDirector}
	expense, err := suite.service.ValidateExpense(suite.ctx, "exp-1", req, director)

	suite.Require().Error(err)
	suite.Nil(expense)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.expenseRepo.AssertNotCalled(suite.T(), "UpdateExpenseInTx", mock.Anything, mock.Anything, mock.Anything)
	suite.expenseRepo.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
	suite.notifier.AssertNotCalled(suite.T(), "NotifyExpenseStatusChanged", mock.Anything, mock.Anything)
}

func (suite *ExpenseServiceTestSuite) TestValidateExpense_WrongStageForStatus() {
	expectTx(&suite.expenseRepo.Mock, false)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpensePending, false), nil).Once()

	req := dto.ValidateExpenseRequest{Approved: boolPtr(true), Stage: domain.StageDirector}
	_, err := suite.service.ValidateExpense(suite.ctx, "exp-1", req, director)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidState)
}

func (suite *ExpenseServiceTestSuite) TestValidateExpense_AccountingCannotActAsDirector() {
	req := dto.ValidateExpenseRequest{Approved: boolPtr(true), Stage: domain.StageDirector}

	_, err := suite.service.ValidateExpense(suite.ctx, "exp-1", req, accountant)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.expenseRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

func (suite *ExpenseServiceTestSuite) TestValidateExpense_RejectionNeedsReason() {
	expectTx(&suite.expenseRepo.Mock, false)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpensePending, false), nil).Once()

	req := dto.ValidateExpenseRequest{Approved: boolPtr(false), Stage: domain.StageAccounting, RejectionReason: "   "}
	_, err := suite.service.ValidateExpense(suite.ctx, "exp-1", req, accountant)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "rejection reason")
}

func (suite *ExpenseServiceTestSuite) TestValidateExpense_NotifierFailureDoesNotFail() {
	expectTx(&suite.expenseRepo.Mock, true)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpensePending, false), nil).Once()
	suite.expenseRepo.On("UpdateExpenseInTx", suite.ctx, mock.Anything, mock.AnythingOfType("domain.Expense")).Return(nil).Once()
	suite.notifier.On("NotifyExpenseStatusChanged", suite.ctx, mock.MatchedBy(func(ev domain.ExpenseStatusEvent) bool {
		return ev.Status == domain.ExpenseAccountingRejected && ev.Reason == "missing receipt"
	})).Return(assert.AnError).Once()

	req := dto.ValidateExpenseRequest{Approved: boolPtr(false), Stage: domain.StageAccounting, RejectionReason: "missing receipt"}
	expense, err := suite.service.ValidateExpense(suite.ctx, "exp-1", req, accountant)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseAccountingRejected, expense.Status)
	suite.Equal("missing receipt", expense.AccountingRejectionReason)
	suite.notifier.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestBypassApprove_Director() {
	expectTx(&suite.expenseRepo.Mock, true)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpensePending, false), nil).Once()
	suite.expenseRepo.On("UpdateExpenseInTx", suite.ctx, mock.Anything, mock.MatchedBy(func(e domain.Expense) bool {
		return e.Status == domain.ExpenseDirectorApproved && e.AccountingValidatedBy == "" && e.DirectorValidatedAt != nil
	})).Return(nil).Once()
	suite.notifier.On("NotifyExpenseStatusChanged", suite.ctx, mock.Anything).Return(nil).Once()

	expense, err := suite.service.BypassApprove(suite.ctx, "exp-1", director)

	suite.Require().NoError(err)
	suite.Equal(domain.ExpenseDirectorApproved, expense.Status)
	suite.expenseRepo.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestBypassApprove_ForbiddenForAccounting() {
	_, err := suite.service.BypassApprove(suite.ctx, "exp-1", accountant)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *ExpenseServiceTestSuite) TestUpdateExpense_ApprovedIsLocked() {
	expectTx(&suite.expenseRepo.Mock, false)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpenseLegacyApproved, false), nil).Once()

	desc := "changed"
	_, err := suite.service.UpdateExpense(suite.ctx, "exp-1", dto.UpdateExpenseRequest{Description: &desc}, cashier)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidState)
	suite.expenseRepo.AssertNotCalled(suite.T(), "UpdateExpenseDetailsInTx", mock.Anything, mock.Anything, mock.Anything)
	suite.expenseRepo.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestUpdateExpense_WritesDetailsUnderLock() {
	locked := suite.expense(domain.ExpenseAccountingApproved, true)
	locked.AccountingValidatedBy = accountant.UserID

	expectTx(&suite.expenseRepo.Mock, true)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(locked, nil).Once()
	suite.expenseRepo.On("UpdateExpenseDetailsInTx", suite.ctx, mock.Anything, mock.MatchedBy(func(e domain.Expense) bool {
		return e.Comment == "receipt attached" && e.Status == domain.ExpenseAccountingApproved &&
			e.AccountingValidatedBy == accountant.UserID && e.LastUpdatedBy == cashier.UserID
	})).Return(nil).Once()

	comment := " receipt attached "
	expense, err := suite.service.UpdateExpense(suite.ctx, "exp-1", dto.UpdateExpenseRequest{Comment: &comment}, cashier)

	suite.Require().NoError(err)
	suite.Equal("receipt attached", expense.Comment)
	suite.expenseRepo.AssertNotCalled(suite.T(), "FindExpenseByID", mock.Anything, mock.Anything)
	suite.expenseRepo.AssertNotCalled(suite.T(), "UpdateExpenseInTx", mock.Anything, mock.Anything, mock.Anything)
	suite.expenseRepo.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestUpdateExpense_ApprovedConcurrentlyIsNotOverwritten() {
	expectTx(&suite.expenseRepo.Mock, false)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpenseAccountingApproved, false), nil).Once()
	suite.expenseRepo.On("UpdateExpenseDetailsInTx", suite.ctx, mock.Anything, mock.AnythingOfType("domain.Expense")).
		Return(fmt.Errorf("%w: expense exp-1 is no longer modifiable", apperrors.ErrInvalidState)).Once()

	comment := "late edit"
	_, err := suite.service.UpdateExpense(suite.ctx, "exp-1", dto.UpdateExpenseRequest{Comment: &comment}, cashier)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidState)
	suite.expenseRepo.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
	suite.expenseRepo.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestUpdateExpense_ZeroAmountAllowed() {
	expectTx(&suite.expenseRepo.Mock, true)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpensePending, true), nil).Once()
	suite.expenseRepo.On("UpdateExpenseDetailsInTx", suite.ctx, mock.Anything, mock.MatchedBy(func(e domain.Expense) bool {
		return e.Amount.IsZero()
	})).Return(nil).Once()

	zero := dec("0")
	expense, err := suite.service.UpdateExpense(suite.ctx, "exp-1", dto.UpdateExpenseRequest{Amount: &zero}, cashier)

	suite.Require().NoError(err)
	suite.True(expense.Amount.IsZero())
	suite.excessRepo.AssertNotCalled(suite.T(), "FindCashierExcess", mock.Anything, mock.Anything)
	suite.expenseRepo.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestDeleteExpense_FinalApprovalsAreKept() {
	for _, status := range []domain.ExpenseStatus{domain.ExpenseDirectorApproved, domain.ExpenseLegacyApproved} {
		suite.Run(string(status), func() {
			suite.SetupTest()
			expectTx(&suite.expenseRepo.Mock, false)
			suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(status, false), nil).Once()

			err := suite.service.DeleteExpense(suite.ctx, "exp-1", director)

			suite.Require().Error(err)
			suite.ErrorIs(err, apperrors.ErrInvalidState)
			suite.expenseRepo.AssertNotCalled(suite.T(), "DeleteExpenseInTx", mock.Anything, mock.Anything, mock.Anything)
			suite.expenseRepo.AssertExpectations(suite.T())
		})
	}
}

func (suite *ExpenseServiceTestSuite) TestDeleteExpense_RejectedByAccounting() {
	expectTx(&suite.expenseRepo.Mock, true)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpenseAccountingRejected, false), nil).Once()
	suite.expenseRepo.On("DeleteExpenseInTx", suite.ctx, mock.Anything, "exp-1").Return(nil).Once()

	err := suite.service.DeleteExpense(suite.ctx, "exp-1", cashier)

	suite.Require().NoError(err)
	suite.expenseRepo.AssertNotCalled(suite.T(), "FindExpenseByID", mock.Anything, mock.Anything)
	suite.expenseRepo.AssertExpectations(suite.T())
}

func (suite *ExpenseServiceTestSuite) TestDeleteExpense_OtherRequesterForbidden() {
	expectTx(&suite.expenseRepo.Mock, false)
	suite.expenseRepo.On("FindExpenseByIDForUpdate", suite.ctx, mock.Anything, "exp-1").Return(suite.expense(domain.ExpensePending, false), nil).Once()

	err := suite.service.DeleteExpense(suite.ctx, "exp-1", agent)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.expenseRepo.AssertNotCalled(suite.T(), "DeleteExpenseInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ExpenseServiceTestSuite) TestGetExpense_OtherRequesterForbidden() {
	suite.expenseRepo.On("FindExpenseByID", suite.ctx, "exp-1").Return(suite.expense(domain.ExpensePending, false), nil).Once()

	_, err := suite.service.GetExpense(suite.ctx, "exp-1", agent)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

func (suite *ExpenseServiceTestSuite) TestListExpenses_OwnRequestsWithNextToken() {
	rows := []domain.Expense{*suite.expense(domain.ExpensePending, false), *suite.expense(domain.ExpensePending, false), *suite.expense(domain.ExpensePending, false)}
	rows[1].ExpenseID = "exp-2"
	rows[2].ExpenseID = "exp-3"

	suite.expenseRepo.On("ListExpenses", suite.ctx, domain.ExpenseFilter{RequesterID: cashier.UserID, Limit: 3}).Return(rows, nil).Once()

	resp, err := suite.service.ListExpenses(suite.ctx, dto.ListExpensesParams{Limit: 2}, cashier)

	suite.Require().NoError(err)
	suite.Len(resp.Expenses, 2)
	suite.Require().NotNil(resp.NextToken)
	createdAt, id, err := pagination.DecodeCursor(*resp.NextToken)
	suite.Require().NoError(err)
	suite.Equal("exp-2", id)
	suite.True(createdAt.Equal(rows[1].CreatedAt))
}

func (suite *ExpenseServiceTestSuite) TestListExpenses_BadToken() {
	_, err := suite.service.ListExpenses(suite.ctx, dto.ListExpensesParams{NextToken: "!!"}, director)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ExpenseServiceTestSuite) TestListCashiersWithExcess_CashierWithoutExcessSeesNothing() {
	suite.excessRepo.On("FindCashierExcess", suite.ctx, cashier.UserID).Return(suite.excess("0"), nil).Once()

	cashiers, err := suite.service.ListCashiersWithExcess(suite.ctx, cashier)

	suite.Require().NoError(err)
	suite.NotNil(cashiers)
	suite.Empty(cashiers)
}

func (suite *ExpenseServiceTestSuite) TestListCashiersWithExcess_AgentSeesOwnAgency() {
	list := []domain.CashierExcess{*suite.excess("1000")}
	suite.excessRepo.On("ListCashiersWithExcess", suite.ctx, "AG1").Return(list, nil).Once()

	cashiers, err := suite.service.ListCashiersWithExcess(suite.ctx, agent)

	suite.Require().NoError(err)
	suite.Equal(list, cashiers)
	suite.excessRepo.AssertExpectations(suite.T())
}

// --- Run Suite ---
func TestExpenseService(t *testing.T) {
	suite.Run(t, new(ExpenseServiceTestSuite))
}
