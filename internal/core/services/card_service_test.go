package services_test

import (
	"context"
	"testing"

	"github.com/SscSPs/transfer_backoffice/internal/apperrors"
	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/core/services"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var (
	accountant = domain.Actor{UserID: "user-acc", Role: domain.RoleAccounting, AgencyID: "HQ", Name: "Awa", Email: "awa@example.com"}
	director   = domain.Actor{UserID: "user-dir", Role: domain.RoleDirector, AgencyID: "HQ", Name: "Moussa", Email: "moussa@example.com"}
	cashier    = domain.Actor{UserID: "user-cash", Role: domain.RoleCashier, AgencyID: "AG1", Name: "Fatou", Email: "fatou@example.com"}
	agent      = domain.Actor{UserID: "user-agent", Role: domain.RoleAgent, AgencyID: "AG1", Name: "Ibrahim"}
)

func testCard(id, cid, country, limit, used, recharge string) domain.Card {
	return domain.Card{
		CardID:        id,
		CID:           cid,
		Country:       country,
		Status:        domain.CardActive,
		MonthlyLimit:  dec(limit),
		MonthlyUsed:   dec(used),
		RechargeLimit: dec(recharge),
	}
}

// decEq matches a decimal by value rather than representation.
func decEq(want string) any {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec(want)) })
}

// --- Test Suite ---
type CardServiceTestSuite struct {
	suite.Suite
	cardRepo  *MockCardRepository
	vaultRepo *MockVaultRepository
	service   portssvc.CardSvcFacade
	ctx       context.Context
}

func (suite *CardServiceTestSuite) SetupTest() {
	suite.cardRepo = new(MockCardRepository)
	suite.vaultRepo = new(MockVaultRepository)
	suite.service = services.NewCardService(suite.cardRepo, suite.vaultRepo, testReference, services.WithCardClock(fixedClock))
	suite.ctx = context.Background()
}

func (suite *CardServiceTestSuite) lockedCards() map[string]domain.Card {
	return map[string]domain.Card{
		"c1": testCard("c1", "CI-001", "CI", "1000000", "500000", "500000"),
		"c2": testCard("c2", "CI-002", "CI", "300000", "0", "300000"),
	}
}

// --- Test Cases ---

func (suite *CardServiceTestSuite) TestDistribute_DebitsVaultAndCreditsCardsInOrder() {
	req := dto.DistributionRequest{Amount: dec("600000"), Country: "ci", CardIDs: []string{"c1", "c2"}, DeductFromVault: true}

	expectTx(&suite.cardRepo.Mock, true)
	suite.cardRepo.On("FindCardsByIDsForUpdate", suite.ctx, mock.Anything, []string{"c1", "c2"}).Return(suite.lockedCards(), nil).Once()
	suite.vaultRepo.On("GetVaultBalanceForUpdate", suite.ctx, mock.Anything).Return(dec("1000000"), nil).Once()
	suite.vaultRepo.On("AdjustVaultBalanceInTx", suite.ctx, mock.Anything, decEq("-600000"), director.UserID, fixedNow).Return(nil).Once()
	suite.cardRepo.On("ApplyCardCreditsInTx", suite.ctx, mock.Anything, mock.MatchedBy(func(credits map[string]decimal.Decimal) bool {
		return len(credits) == 2 && credits["c1"].Equal(dec("500000")) && credits["c2"].Equal(dec("100000"))
	}), director.UserID, fixedNow).Return(nil).Once()
	suite.cardRepo.On("SaveDistributionInTx", suite.ctx, mock.Anything, mock.MatchedBy(func(d domain.Distribution) bool {
		return d.DistributionID != "" && d.DeductFromVault && d.CardsUsed == 2 && d.CreatedBy == director.UserID
	})).Return(nil).Once()

	dist, err := suite.service.Distribute(suite.ctx, req, director)

	suite.Require().NoError(err)
	suite.Equal("CI", dist.Country)
	suite.True(dist.TotalDistributed.Equal(dec("600000")))
	suite.True(dist.TotalFee.Equal(dec("2000")))
	suite.True(dist.Remainder.IsZero())
	suite.cardRepo.AssertExpectations(suite.T())
	suite.vaultRepo.AssertExpectations(suite.T())
}

func (suite *CardServiceTestSuite) TestDistribute_VaultTooLowWritesNothing() {
	req := dto.DistributionRequest{Amount: dec("600000"), Country: "CI", CardIDs: []string{"c1", "c2"}, DeductFromVault: true}

	expectTx(&suite.cardRepo.Mock, false)
	suite.cardRepo.On("FindCardsByIDsForUpdate", suite.ctx, mock.Anything, []string{"c1", "c2"}).Return(suite.lockedCards(), nil).Once()
	suite.vaultRepo.On("GetVaultBalanceForUpdate", suite.ctx, mock.Anything).Return(dec("100"), nil).Once()

	dist, err := suite.service.Distribute(suite.ctx, req, accountant)

	suite.Require().Error(err)
	suite.Nil(dist)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "vault balance 100 cannot cover 600000")
	suite.cardRepo.AssertNotCalled(suite.T(), "ApplyCardCreditsInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.cardRepo.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
	suite.vaultRepo.AssertNotCalled(suite.T(), "AdjustVaultBalanceInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.cardRepo.AssertExpectations(suite.T())
}

func (suite *CardServiceTestSuite) TestDistribute_ForbiddenForCashier() {
	req := dto.DistributionRequest{Amount: dec("1000"), Country: "CI", CardIDs: []string{"c1"}}

	dist, err := suite.service.Distribute(suite.ctx, req, cashier)

	suite.Require().Error(err)
	suite.Nil(dist)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.cardRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

func (suite *CardServiceTestSuite) TestPreviewDistribution_SelectAllSkipsExhaustedCards() {
	exhausted := testCard("c3", "CI-003", "CI", "100000", "100000", "50000")
	active := []domain.Card{suite.lockedCards()["c1"], exhausted, suite.lockedCards()["c2"]}
	req := dto.DistributionRequest{Amount: dec("900000"), Country: "CI", SelectAll: true}

	suite.cardRepo.On("ListCards", suite.ctx, domain.CardFilter{Country: "CI", Status: domain.CardActive}).Return(active, nil).Once()
	suite.cardRepo.On("FindCardsByIDs", suite.ctx, []string{"c1", "c2"}).Return(suite.lockedCards(), nil).Once()

	plan, err := suite.service.PreviewDistribution(suite.ctx, req, accountant)

	suite.Require().NoError(err)
	suite.True(plan.TotalCapacity.Equal(dec("800000")))
	suite.True(plan.Remainder.Equal(dec("100000")))
	suite.Equal(2, plan.CardsUsed)
	suite.True(plan.TotalFee.Equal(dec("2000")))
	suite.cardRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
	suite.cardRepo.AssertExpectations(suite.T())
}

func (suite *CardServiceTestSuite) TestPreviewDistribution_MissingAmount() {
	plan, err := suite.service.PreviewDistribution(suite.ctx, dto.DistributionRequest{Country: "CI", CardIDs: []string{"c1"}}, accountant)

	suite.Require().Error(err)
	suite.Nil(plan)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "amount and country required")
}

func (suite *CardServiceTestSuite) TestPreviewDistribution_ForbiddenForCashier() {
	req := dto.DistributionRequest{Amount: dec("100000"), Country: "CI", SelectAll: true}

	plan, err := suite.service.PreviewDistribution(suite.ctx, req, cashier)

	suite.Require().Error(err)
	suite.Nil(plan)
	suite.ErrorIs(err, apperrors.ErrForbidden)
	suite.cardRepo.AssertNotCalled(suite.T(), "ListCards", mock.Anything, mock.Anything)
	suite.cardRepo.AssertNotCalled(suite.T(), "FindCardsByIDs", mock.Anything, mock.Anything)
}

func (suite *CardServiceTestSuite) TestRechargeCard_Success() {
	expectTx(&suite.cardRepo.Mock, true)
	suite.cardRepo.On("FindCardsByIDsForUpdate", suite.ctx, mock.Anything, []string{"c2"}).Return(suite.lockedCards(), nil).Once()
	suite.cardRepo.On("ApplyCardCreditsInTx", suite.ctx, mock.Anything, mock.MatchedBy(func(credits map[string]decimal.Decimal) bool {
		return len(credits) == 1 && credits["c2"].Equal(dec("250000"))
	}), accountant.UserID, fixedNow).Return(nil).Once()

	card, err := suite.service.RechargeCard(suite.ctx, "c2", dec("250000"), accountant)

	suite.Require().NoError(err)
	suite.True(card.MonthlyUsed.Equal(dec("250000")))
	suite.Require().NotNil(card.LastRechargeDate)
	suite.Equal(fixedNow, *card.LastRechargeDate)
	suite.cardRepo.AssertExpectations(suite.T())
}

func (suite *CardServiceTestSuite) TestRechargeCard_OverCapacity() {
	expectTx(&suite.cardRepo.Mock, false)
	suite.cardRepo.On("FindCardsByIDsForUpdate", suite.ctx, mock.Anything, []string{"c2"}).Return(suite.lockedCards(), nil).Once()

	card, err := suite.service.RechargeCard(suite.ctx, "c2", dec("300001"), accountant)

	suite.Require().Error(err)
	suite.Nil(card)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "exceeds available capacity 300000 of card CI-002")
	suite.cardRepo.AssertNotCalled(suite.T(), "ApplyCardCreditsInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.cardRepo.AssertExpectations(suite.T())
}

func (suite *CardServiceTestSuite) TestRechargeCard_InactiveCard() {
	cards := suite.lockedCards()
	c2 := cards["c2"]
	c2.Status = domain.CardInactive
	cards["c2"] = c2

	expectTx(&suite.cardRepo.Mock, false)
	suite.cardRepo.On("FindCardsByIDsForUpdate", suite.ctx, mock.Anything, []string{"c2"}).Return(cards, nil).Once()

	_, err := suite.service.RechargeCard(suite.ctx, "c2", dec("10"), accountant)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Contains(err.Error(), "inactive")
}

func (suite *CardServiceTestSuite) TestDeleteCard_RefusedWithHistory() {
	card := testCard("c1", "CI-001", "CI", "1000", "0", "1000")
	suite.cardRepo.On("FindCardByID", suite.ctx, "c1").Return(&card, nil).Once()
	suite.cardRepo.On("CountDistributionLines", suite.ctx, "c1").Return(3, nil).Once()

	err := suite.service.DeleteCard(suite.ctx, "c1", director)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidState)
	suite.Contains(err.Error(), "deactivate it instead")
	suite.cardRepo.AssertNotCalled(suite.T(), "DeleteCard", mock.Anything, mock.Anything)
}

func (suite *CardServiceTestSuite) TestDeleteCard_WithoutHistory() {
	card := testCard("c1", "CI-001", "CI", "1000", "0", "1000")
	suite.cardRepo.On("FindCardByID", suite.ctx, "c1").Return(&card, nil).Once()
	suite.cardRepo.On("CountDistributionLines", suite.ctx, "c1").Return(0, nil).Once()
	suite.cardRepo.On("DeleteCard", suite.ctx, "c1").Return(nil).Once()

	suite.Require().NoError(suite.service.DeleteCard(suite.ctx, "c1", director))
	suite.cardRepo.AssertExpectations(suite.T())
}

func (suite *CardServiceTestSuite) TestCreateCard_UnknownCountry() {
	req := dto.CreateCardRequest{CID: "XX-1", Country: "XX", MonthlyLimit: dec("10"), RechargeLimit: dec("10")}

	card, err := suite.service.CreateCard(suite.ctx, req, accountant)

	suite.Require().Error(err)
	suite.Nil(card)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.cardRepo.AssertNotCalled(suite.T(), "SaveCard", mock.Anything, mock.Anything)
}

func (suite *CardServiceTestSuite) TestCreateCard_Success() {
	req := dto.CreateCardRequest{CID: " ML-7 ", Country: "ml", MonthlyLimit: dec("500000"), RechargeLimit: dec("200000")}
	suite.cardRepo.On("SaveCard", suite.ctx, mock.MatchedBy(func(c domain.Card) bool {
		return c.CID == "ML-7" && c.Country == "ML" && c.Status == domain.CardActive && c.CreatedAt.Equal(fixedNow)
	})).Return(nil).Once()

	card, err := suite.service.CreateCard(suite.ctx, req, accountant)

	suite.Require().NoError(err)
	suite.NotEmpty(card.CardID)
	suite.cardRepo.AssertExpectations(suite.T())
}

func (suite *CardServiceTestSuite) TestImportCards_ReportsBadRowsAndUpsertsTheRest() {
	rows := []dto.CardImportRow{
		{Line: 2, CID: "CI-100", Country: "CI", MonthlyLimit: "1 000 000", RechargeLimit: "500000", ExpirationDate: "31/12/2026"},
		{Line: 3, CID: "XX-1", Country: "XX", MonthlyLimit: "1000", RechargeLimit: "1000"},
		{Line: 4, CID: "CI-100", Country: "CI", MonthlyLimit: "1000", RechargeLimit: "1000"},
		{Line: 5, CID: "CI-101", Country: "CI", MonthlyLimit: "abc", RechargeLimit: "1000"},
	}

	expectTx(&suite.cardRepo.Mock, true)
	suite.cardRepo.On("UpsertCardsByCIDInTx", suite.ctx, mock.Anything, mock.MatchedBy(func(cards []domain.Card) bool {
		return len(cards) == 1 && cards[0].CID == "CI-100" && cards[0].MonthlyLimit.Equal(dec("1000000")) &&
			cards[0].ExpirationDate != nil && cards[0].ExpirationDate.Year() == 2026
	})).Return(nil).Once()

	result, err := suite.service.ImportCards(suite.ctx, rows, accountant)

	suite.Require().NoError(err)
	suite.Equal(1, result.Imported)
	suite.Equal(3, result.Skipped)
	suite.Require().Len(result.Errors, 3)
	suite.Equal(3, result.Errors[0].Line)
	suite.Contains(result.Errors[0].Message, "unknown country")
	suite.Contains(result.Errors[1].Message, "already present on line 2")
	suite.Contains(result.Errors[2].Message, "not a number")
	suite.cardRepo.AssertExpectations(suite.T())
}

func (suite *CardServiceTestSuite) TestImportCards_NothingValidSkipsTransaction() {
	rows := []dto.CardImportRow{{Line: 2, CID: "", Country: "CI"}}

	result, err := suite.service.ImportCards(suite.ctx, rows, accountant)

	suite.Require().NoError(err)
	suite.Equal(0, result.Imported)
	suite.Equal(1, result.Skipped)
	suite.cardRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

func (suite *CardServiceTestSuite) TestResetUsage_AllCountries() {
	suite.cardRepo.On("ResetMonthlyUsage", suite.ctx, "", director.UserID, fixedNow).Return(int64(12), nil).Once()

	n, err := suite.service.ResetUsage(suite.ctx, "", director)

	suite.Require().NoError(err)
	suite.Equal(int64(12), n)
	suite.cardRepo.AssertExpectations(suite.T())
}

func (suite *CardServiceTestSuite) TestGetVaultBalance_ForbiddenForAgent() {
	_, err := suite.service.GetVaultBalance(suite.ctx, agent)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrForbidden)
}

// --- Run Suite ---
func TestCardService(t *testing.T) {
	suite.Run(t, new(CardServiceTestSuite))
}
