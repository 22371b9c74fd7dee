package handlers

import (
	"koins/internal/dto"
	"koins/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type PredictionHandler struct {
	predictionService *service.PredictionService
	logger            *zap.Logger
}

func NewPredictionHandler(predictionService *service.PredictionService, logger *zap.Logger) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
		logger:            logger,
	}
}

// ListPredictions godoc
// @Summary AI insights for this month's transactions
// @Description Always succeeds; an empty list means no insights could be produced.
// @Tags predictions
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.PredictionResponse
// @Router /api/v1/predictions [get]
func (h *PredictionHandler) ListPredictions(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	predictions := h.predictionService.CurrentMonth(c.Context(), userID)

	resp := make([]dto.PredictionResponse, 0, len(predictions))
	for _, p := range predictions {
		resp = append(resp, dto.PredictionResponse{
			TransactionID: p.TransactionID,
			Prediction:    p.Prediction,
		})
	}
	return c.JSON(resp)
}
