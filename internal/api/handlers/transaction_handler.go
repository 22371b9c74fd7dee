package handlers

import (
	"errors"

	"koins/internal/dto"
	"koins/internal/models"
	"koins/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TransactionHandler struct {
	txService *service.TransactionService
	logger    *zap.Logger
}

func NewTransactionHandler(txService *service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		txService: txService,
		logger:    logger,
	}
}

// CreateTransaction godoc
// @Summary Submit a transaction draft
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body dto.SubmitTransactionRequest true "Draft"
// @Security Bearer
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.SubmitTransactionRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	source := models.SourceType(req.SourceType)
	if source == "" {
		source = models.SourceManual
	}
	draft := models.TransactionDraft{
		Kind:        models.TransactionKind(req.Kind),
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		SourceType:  source,
		ExpenseType: models.ExpenseType(req.ExpenseType),
	}

	tx, err := h.txService.Submit(c.Context(), userID, draft)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDraft) {
			return badRequest(c, err.Error())
		}
		h.logger.Error("Failed to create transaction", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create transaction",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(toTransactionResponse(tx))
}

// ListTransactions godoc
// @Summary List transactions, newest first
// @Tags transactions
// @Produce json
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Param from query string false "From date (YYYY-MM-DD or RFC3339)"
// @Param to query string false "To date, inclusive"
// @Param category query string false "Category"
// @Param kind query string false "income or expense"
// @Security Bearer
// @Success 200 {object} dto.TransactionListResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) ListTransactions(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	filter := models.TransactionFilter{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", service.DefaultPageSize),
		From:     from,
		To:       to,
		Category: c.Query("category"),
	}
	if raw := c.Query("kind"); raw != "" {
		kind, err := models.ParseKind(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		filter.Kind = kind
	}

	page, err := h.txService.List(c.Context(), userID, filter)
	if err != nil {
		if errors.Is(err, service.ErrPageOutOfRange) {
			return badRequest(c, err.Error())
		}
		h.logger.Error("Failed to list transactions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list transactions",
		})
	}

	resp := dto.TransactionListResponse{
		Items:    make([]dto.TransactionResponse, 0, len(page.Items)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		HasMore:  page.Page*page.PageSize < page.Total,
	}
	for _, tx := range page.Items {
		resp.Items = append(resp.Items, toTransactionResponse(tx))
	}
	return c.JSON(resp)
}

// DeleteTransaction godoc
// @Summary Delete a transaction
// @Tags transactions
// @Param id path string true "Transaction ID"
// @Security Bearer
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid transaction ID")
	}

	if err := h.txService.Delete(c.Context(), userID, id); err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Transaction not found",
			})
		}
		h.logger.Error("Failed to delete transaction", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete transaction",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetStats godoc
// @Summary Income, expense and balance
// @Tags stats
// @Produce json
// @Param from query string false "From date"
// @Param to query string false "To date, inclusive"
// @Security Bearer
// @Success 200 {object} dto.StatsResponse
// @Router /api/v1/stats [get]
func (h *TransactionHandler) GetStats(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	stats, err := h.txService.Stats(c.Context(), userID, from, to)
	if err != nil {
		h.logger.Error("Failed to compute stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute stats",
		})
	}

	return c.JSON(dto.StatsResponse{
		Income:  stats.Income,
		Expense: stats.Expense,
		Balance: stats.Balance,
	})
}

// GetCategoryTotals godoc
// @Summary Totals per category
// @Tags stats
// @Produce json
// @Param kind query string false "income or expense" default(expense)
// @Param from query string false "From date"
// @Param to query string false "To date, inclusive"
// @Security Bearer
// @Success 200 {array} dto.CategoryTotalResponse
// @Router /api/v1/stats/categories [get]
func (h *TransactionHandler) GetCategoryTotals(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	kind, err := models.ParseKind(c.Query("kind", string(models.KindExpense)))
	if err != nil {
		return badRequest(c, err.Error())
	}
	from, to, err := parseDateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	totals, err := h.txService.CategoryTotals(c.Context(), userID, kind, from, to)
	if err != nil {
		h.logger.Error("Failed to compute category totals", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute category totals",
		})
	}

	resp := make([]dto.CategoryTotalResponse, 0, len(totals))
	for _, t := range totals {
		resp = append(resp, dto.CategoryTotalResponse{
			Category: t.Category,
			Kind:     string(t.Kind),
			Total:    t.Total,
			Count:    t.Count,
		})
	}
	return c.JSON(resp)
}

// ListCategories godoc
// @Summary Allowed categories for a kind
// @Tags categories
// @Produce json
// @Param kind query string false "income or expense" default(expense)
// @Security Bearer
// @Success 200 {object} dto.CategoriesResponse
// @Router /api/v1/categories [get]
func (h *TransactionHandler) ListCategories(c *fiber.Ctx) error {
	kind, err := models.ParseKind(c.Query("kind", string(models.KindExpense)))
	if err != nil {
		return badRequest(c, err.Error())
	}

	set, _ := models.CategoriesFor(kind)
	return c.JSON(dto.CategoriesResponse{
		Kind:       string(set.Kind),
		Categories: set.Members,
		Default:    set.Default,
	})
}
