package handlers

import (
	"errors"
	"mime/multipart"

	"koins/internal/dto"
	"koins/internal/models"
	"koins/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ScanHandler struct {
	scanService *service.ScanService
	uploadDir   string
	logger      *zap.Logger
}

func NewScanHandler(scanService *service.ScanService, uploadDir string, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		scanService: scanService,
		uploadDir:   uploadDir,
		logger:      logger,
	}
}

// ScanImage godoc
// @Summary Scan an invoice photo into a transaction draft
// @Description Runs OCR and AI coercion on the uploaded image. No image means the scan was cancelled.
// @Tags scans
// @Accept multipart/form-data
// @Produce json
// @Param image formData file false "Invoice photo or PDF"
// @Param kind formData string false "income or expense" default(expense)
// @Security Bearer
// @Success 200 {object} dto.ScanResponse
// @Success 204 "Scan cancelled"
// @Failure 403 {object} dto.ScanResponse
// @Failure 409 {object} map[string]string
// @Failure 422 {object} dto.ScanResponse
// @Router /api/v1/scans [post]
func (h *ScanHandler) ScanImage(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	kind, err := models.ParseKind(c.FormValue("kind", string(models.KindExpense)))
	if err != nil {
		return badRequest(c, err.Error())
	}

	var header *multipart.FileHeader
	if fh, err := c.FormFile("image"); err == nil {
		header = fh
	} else {
		h.logger.Debug("No image in scan request", zap.Error(err))
	}

	capturer := service.NewUploadCapturer(header, h.uploadDir, h.logger)
	result, err := h.scanService.Scan(c.Context(), userID, kind, capturer)
	if err != nil {
		return h.scanError(c, err)
	}

	return h.respond(c, result)
}

// ScanText godoc
// @Summary Turn already recognized receipt text into a transaction draft
// @Tags scans
// @Accept json
// @Produce json
// @Param request body dto.ScanTextRequest true "Recognized lines"
// @Security Bearer
// @Success 200 {object} dto.ScanResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/scans/text [post]
func (h *ScanHandler) ScanText(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ScanTextRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.scanService.ScanText(c.Context(), userID, models.TransactionKind(req.Kind), req.Lines)
	if err != nil {
		return h.scanError(c, err)
	}

	return h.respond(c, result)
}

// ManualDraft godoc
// @Summary Empty draft for manual entry
// @Tags scans
// @Produce json
// @Param kind query string false "income or expense" default(expense)
// @Security Bearer
// @Success 200 {object} dto.DraftResponse
// @Router /api/v1/drafts/manual [get]
func (h *ScanHandler) ManualDraft(c *fiber.Ctx) error {
	kind, err := models.ParseKind(c.Query("kind", string(models.KindExpense)))
	if err != nil {
		return badRequest(c, err.Error())
	}

	draft := service.NewManualDraft(kind)
	return c.JSON(toDraftResponse(&draft))
}

func (h *ScanHandler) respond(c *fiber.Ctx, result *models.ScanResult) error {
	resp := dto.ScanResponse{
		State:  string(result.State),
		Reason: string(result.Reason),
		Draft:  toDraftResponse(result.Draft),
	}
	for _, state := range result.Trace {
		resp.Trace = append(resp.Trace, string(state))
	}

	if result.State == models.ScanReady {
		return c.JSON(resp)
	}

	switch result.Reason {
	case models.AbortCancelled:
		return c.SendStatus(fiber.StatusNoContent)
	case models.AbortPermissionDenied:
		return c.Status(fiber.StatusForbidden).JSON(resp)
	default:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	}
}

func (h *ScanHandler) scanError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrScanInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A scan is already in progress",
		})
	}
	h.logger.Error("Scan failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Scan failed",
	})
}
