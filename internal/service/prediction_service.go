package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"koins/internal/models"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"
)

type PredictionService struct {
	store  TransactionStore
	llm    LLMClient
	now    func() time.Time
	logger *zap.Logger
}

func NewPredictionService(store TransactionStore, llm LLMClient, logger *zap.Logger) *PredictionService {
	return &PredictionService{
		store:  store,
		llm:    llm,
		now:    time.Now,
		logger: logger,
	}
}

var predictionSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"predictions": {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"transactionId": {Type: jsonschema.String},
					"prediction":    {Type: jsonschema.String},
				},
				Required:             []string{"transactionId", "prediction"},
				AdditionalProperties: false,
			},
		},
	},
	Required:             []string{"predictions"},
	AdditionalProperties: false,
}

// CurrentMonth returns one short spending insight per transaction made this
// month. Any failure degrades to an empty list.
func (s *PredictionService) CurrentMonth(ctx context.Context, userID uuid.UUID) []models.Prediction {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	transactions, err := s.store.ListSince(ctx, userID, monthStart)
	if err != nil {
		s.logger.Warn("Failed to load transactions for predictions", zap.Error(err))
		return []models.Prediction{}
	}
	if len(transactions) == 0 {
		return []models.Prediction{}
	}

	content, err := s.llm.GenerateJSON(ctx, JSONRequest{
		Name:   "predictions",
		System: "Eres un asesor financiero personal que escribe en español de forma breve.",
		Prompt: buildPredictionPrompt(transactions),
		Schema: predictionSchema,
	})
	if err != nil {
		s.logger.Warn("Prediction generation failed", zap.Error(err))
		return []models.Prediction{}
	}

	predictions, err := parsePredictions(content, transactions)
	if err != nil {
		s.logger.Warn("Failed to parse predictions", zap.Error(err))
		return []models.Prediction{}
	}

	s.logger.Info("Predictions generated",
		zap.String("user_id", userID.String()),
		zap.Int("count", len(predictions)),
	)
	return predictions
}

func buildPredictionPrompt(transactions []*models.Transaction) string {
	var lines strings.Builder
	for _, tx := range transactions {
		category := "Sin categoría"
		if tx.Category != nil {
			category = *tx.Category
		}
		fmt.Fprintf(&lines, "- id: %s | tipo: %s | categoría: %s | valor: %.2f | descripción: %s | fecha: %s\n",
			tx.ID, tx.Type, category, tx.Value, tx.Description, tx.CreatedAt.Format("2006-01-02"))
	}

	return fmt.Sprintf(`Estas son las transacciones del mes actual de un usuario:
%s
Para cada transacción escribe una predicción breve (una o dos frases) sobre cómo afectará sus finanzas
o qué hábito sugiere. Usa el id exacto de cada transacción en "transactionId".`, lines.String())
}

type predictionPayload struct {
	TransactionID string `json:"transactionId"`
	Prediction    string `json:"prediction"`
}

// parsePredictions accepts either {"predictions": [...]} or a bare array and
// drops entries whose id is not one of transactions.
func parsePredictions(content string, transactions []*models.Transaction) ([]models.Prediction, error) {
	var items []predictionPayload
	if raw, ok := extractJSON(content, '{', '}'); ok {
		var wrapped struct {
			Predictions []predictionPayload `json:"predictions"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err == nil {
			items = wrapped.Predictions
		}
	}
	if items == nil {
		raw, ok := extractJSON(content, '[', ']')
		if !ok {
			return nil, fmt.Errorf("no JSON in response")
		}
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			return nil, fmt.Errorf("failed to parse JSON response: %w", err)
		}
	}

	known := make(map[string]struct{}, len(transactions))
	for _, tx := range transactions {
		known[tx.ID.String()] = struct{}{}
	}

	predictions := make([]models.Prediction, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.Prediction)
		if _, ok := known[item.TransactionID]; !ok || text == "" {
			continue
		}
		predictions = append(predictions, models.Prediction{
			TransactionID: item.TransactionID,
			Prediction:    text,
		})
	}
	return predictions, nil
}
