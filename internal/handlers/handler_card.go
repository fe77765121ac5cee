package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SscSPs/transfer_backoffice/internal/core/domain"
	portssvc "github.com/SscSPs/transfer_backoffice/internal/core/ports/services"
	"github.com/SscSPs/transfer_backoffice/internal/dto"
	"github.com/SscSPs/transfer_backoffice/internal/middleware"
	"github.com/SscSPs/transfer_backoffice/internal/utils/spreadsheet"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// maxImportSize caps uploaded card files.
const maxImportSize = 5 << 20

// cardHandler handles HTTP requests related to cards, distributions and the vault.
type cardHandler struct {
	cardService portssvc.CardSvcFacade
}

func newCardHandler(cs portssvc.CardSvcFacade) *cardHandler {
	return &cardHandler{cardService: cs}
}

// registerCardRoutes registers routes related to cards.
func registerCardRoutes(rg *gin.RouterGroup, cardService portssvc.CardSvcFacade) {
	h := newCardHandler(cardService)

	cards := rg.Group("/cards")
	{
		cards.GET("", h.listCards)
		cards.POST("", h.createCard)
		cards.POST("/import", h.importCards)
		cards.POST("/reset-usage", h.resetUsage)
		cards.POST("/distributions/preview", h.previewDistribution)
		cards.POST("/distributions", h.distribute)
		cards.GET("/distributions/:distributionID", h.getDistribution)
		cards.GET("/:cardID", h.getCard)
		cards.PUT("/:cardID", h.updateCard)
		cards.PATCH("/:cardID/status", h.setCardStatus)
		cards.DELETE("/:cardID", h.deleteCard)
		cards.POST("/:cardID/recharge", h.rechargeCard)
	}
	rg.GET("/vault", h.getVault)
}

// listCards godoc
// @Summary List cards
// @Description Lists cards with their available capacity and usage state
// @Tags cards
// @Produce json
// @Param country query string false "Country code"
// @Param status query string false "ACTIVE or INACTIVE"
// @Success 200 {object} dto.ListCardsResponse
// @Failure 400 {object} map[string]string "Invalid filter"
// @Security BearerAuth
// @Router /cards [get]
func (h *cardHandler) listCards(c *gin.Context) {
	filter := domain.CardFilter{
		Country: strings.ToUpper(strings.TrimSpace(c.Query("country"))),
		Status:  domain.CardStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be ACTIVE or INACTIVE"})
		return
	}

	cards, err := h.cardService.ListCards(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, "list cards")
		return
	}

	total := decimal.Zero
	for _, card := range cards {
		if card.IsActive() {
			total = total.Add(card.AvailableCapacity())
		}
	}
	c.JSON(http.StatusOK, dto.ListCardsResponse{Cards: dto.ToCardResponses(cards), TotalCapacity: total})
}

// createCard godoc
// @Summary Create a card
// @Tags cards
// @Accept json
// @Produce json
// @Param card body dto.CreateCardRequest true "Card details"
// @Success 201 {object} dto.CardResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 409 {object} map[string]string "CID already exists"
// @Security BearerAuth
// @Router /cards [post]
func (h *cardHandler) createCard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	card, err := h.cardService.CreateCard(c.Request.Context(), req, actor)
	if err != nil {
		writeServiceError(c, err, "create card")
		return
	}
	c.JSON(http.StatusCreated, dto.ToCardResponse(*card))
}

// importCards godoc
// @Summary Import cards from a spreadsheet
// @Description Upserts cards by CID from a .csv, .xlsx or .xls file; invalid lines are reported and skipped
// @Tags cards
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Card file"
// @Success 200 {object} dto.CardImportResult
// @Failure 400 {object} map[string]string "Unreadable file"
// @Security BearerAuth
// @Router /cards/import [post]
func (h *cardHandler) importCards(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		bindError(c, err, "upload")
		return
	}
	if fh.Size > maxImportSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		bindError(c, err, "upload")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImportSize))
	if err != nil {
		bindError(c, err, "upload")
		return
	}

	cells, err := spreadsheet.ReadRows(fh.Filename, data)
	if err != nil {
		logger.Warn("Unreadable card file", slog.String("file", fh.Filename), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows, err := spreadsheet.CardRows(cells)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.cardService.ImportCards(c.Request.Context(), rows, actor)
	if err != nil {
		writeServiceError(c, err, "import cards")
		return
	}
	c.JSON(http.StatusOK, result)
}

// getCard godoc
// @Summary Get a card
// @Tags cards
// @Produce json
// @Param cardID path string true "Card ID"
// @Success 200 {object} dto.CardResponse
// @Failure 404 {object} map[string]string "Card not found"
// @Security BearerAuth
// @Router /cards/{cardID} [get]
func (h *cardHandler) getCard(c *gin.Context) {
	card, err := h.cardService.GetCard(c.Request.Context(), c.Param("cardID"))
	if err != nil {
		writeServiceError(c, err, "get card")
		return
	}
	c.JSON(http.StatusOK, dto.ToCardResponse(*card))
}

// updateCard godoc
// @Summary Edit card limits and dates
// @Tags cards
// @Accept json
// @Produce json
// @Param cardID path string true "Card ID"
// @Param card body dto.UpdateCardRequest true "Fields to change"
// @Success 200 {object} dto.CardResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Card not found"
// @Security BearerAuth
// @Router /cards/{cardID} [put]
func (h *cardHandler) updateCard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	card, err := h.cardService.UpdateCard(c.Request.Context(), c.Param("cardID"), req, actor)
	if err != nil {
		writeServiceError(c, err, "update card")
		return
	}
	c.JSON(http.StatusOK, dto.ToCardResponse(*card))
}

// setCardStatus godoc
// @Summary Activate or deactivate a card
// @Tags cards
// @Accept json
// @Produce json
// @Param cardID path string true "Card ID"
// @Param status body dto.SetCardStatusRequest true "New status"
// @Success 200 {object} dto.CardResponse
// @Security BearerAuth
// @Router /cards/{cardID}/status [patch]
func (h *cardHandler) setCardStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.SetCardStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	card, err := h.cardService.SetCardStatus(c.Request.Context(), c.Param("cardID"), req.Status, actor)
	if err != nil {
		writeServiceError(c, err, "set card status")
		return
	}
	c.JSON(http.StatusOK, dto.ToCardResponse(*card))
}

// deleteCard godoc
// @Summary Delete a card
// @Description Refused with 409 while a distribution references the card
// @Tags cards
// @Param cardID path string true "Card ID"
// @Success 204 "No Content"
// @Failure 409 {object} map[string]string "Card has distribution history"
// @Security BearerAuth
// @Router /cards/{cardID} [delete]
func (h *cardHandler) deleteCard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.cardService.DeleteCard(c.Request.Context(), c.Param("cardID"), actor); err != nil {
		writeServiceError(c, err, "delete card")
		return
	}
	c.Status(http.StatusNoContent)
}

// rechargeCard godoc
// @Summary Recharge one card
// @Tags cards
// @Accept json
// @Produce json
// @Param cardID path string true "Card ID"
// @Param recharge body dto.RechargeCardRequest true "Amount"
// @Success 200 {object} dto.CardResponse
// @Failure 400 {object} map[string]string "Amount exceeds capacity"
// @Security BearerAuth
// @Router /cards/{cardID}/recharge [post]
func (h *cardHandler) rechargeCard(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.RechargeCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	card, err := h.cardService.RechargeCard(c.Request.Context(), c.Param("cardID"), req.Amount, actor)
	if err != nil {
		writeServiceError(c, err, "recharge card")
		return
	}
	c.JSON(http.StatusOK, dto.ToCardResponse(*card))
}

// resetUsage godoc
// @Summary Reset monthly usage
// @Tags cards
// @Accept json
// @Produce json
// @Param reset body dto.ResetUsageRequest false "Optional country"
// @Success 200 {object} dto.ResetUsageResponse
// @Security BearerAuth
// @Router /cards/reset-usage [post]
func (h *cardHandler) resetUsage(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.ResetUsageRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err, "request format")
			return
		}
	}

	n, err := h.cardService.ResetUsage(c.Request.Context(), req.Country, actor)
	if err != nil {
		writeServiceError(c, err, "reset card usage")
		return
	}
	c.JSON(http.StatusOK, dto.ResetUsageResponse{CardsReset: n})
}

// previewDistribution godoc
// @Summary Preview a distribution
// @Description Computes per-card credits, remainder and fee without writing anything
// @Tags distributions
// @Accept json
// @Produce json
// @Param distribution body dto.DistributionRequest true "Distribution"
// @Success 200 {object} domain.DistributionPlan
// @Failure 400 {object} map[string]string "amount and country required"
// @Failure 403 {object} map[string]string "Role not allowed"
// @Security BearerAuth
// @Router /cards/distributions/preview [post]
func (h *cardHandler) previewDistribution(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.DistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	plan, err := h.cardService.PreviewDistribution(c.Request.Context(), req, actor)
	if err != nil {
		writeServiceError(c, err, "preview distribution")
		return
	}
	c.JSON(http.StatusOK, plan)
}

// distribute godoc
// @Summary Commit a distribution
// @Description Credits every selected card, optionally debits the vault, and records the distribution atomically
// @Tags distributions
// @Accept json
// @Produce json
// @Param distribution body dto.DistributionRequest true "Distribution"
// @Success 201 {object} domain.Distribution
// @Failure 400 {object} map[string]string "Invalid distribution"
// @Failure 409 {object} map[string]string "Duplicate submission"
// @Security BearerAuth
// @Router /cards/distributions [post]
func (h *cardHandler) distribute(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req dto.DistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err, "request format")
		return
	}

	dist, err := h.cardService.Distribute(c.Request.Context(), req, actor)
	if err != nil {
		writeServiceError(c, err, "distribute")
		return
	}
	c.JSON(http.StatusCreated, dist)
}

// getDistribution godoc
// @Summary Get a distribution receipt
// @Tags distributions
// @Produce json
// @Param distributionID path string true "Distribution ID"
// @Success 200 {object} domain.Distribution
// @Failure 404 {object} map[string]string "Distribution not found"
// @Security BearerAuth
// @Router /cards/distributions/{distributionID} [get]
func (h *cardHandler) getDistribution(c *gin.Context) {
	dist, err := h.cardService.GetDistribution(c.Request.Context(), c.Param("distributionID"))
	if err != nil {
		writeServiceError(c, err, "get distribution")
		return
	}
	c.JSON(http.StatusOK, dist)
}

// getVault godoc
// @Summary Get the vault balance
// @Tags distributions
// @Produce json
// @Success 200 {object} dto.VaultResponse
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /vault [get]
func (h *cardHandler) getVault(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	balance, err := h.cardService.GetVaultBalance(c.Request.Context(), actor)
	if err != nil {
		writeServiceError(c, err, "get vault balance")
		return
	}
	c.JSON(http.StatusOK, dto.VaultResponse{Currency: domain.LocalCurrency, Balance: balance})
}
