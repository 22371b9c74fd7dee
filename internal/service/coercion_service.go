package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"koins/internal/models"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxDescriptionRunes = 100

// CoercedTransaction is the model's best reading of a receipt. The zero
// value is the documented fallback for empty input and remote failures.
type CoercedTransaction struct {
	Description string
	Value       float64
	Category    string
}

type CoercionService struct {
	llm     LLMClient
	timeout time.Duration
	logger  *zap.Logger
}

func NewCoercionService(llm LLMClient, timeout time.Duration, logger *zap.Logger) *CoercionService {
	return &CoercionService{
		llm:     llm,
		timeout: timeout,
		logger:  logger,
	}
}

var coercionSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"description": {Type: jsonschema.String, Description: "Nombre del comercio o concepto principal"},
		"value":       {Type: jsonschema.Number, Description: "Total pagado, sin símbolos ni separadores de miles"},
		"category":    {Type: jsonschema.String, Description: "Una de las categorías permitidas"},
	},
	Required:             []string{"description", "value", "category"},
	AdditionalProperties: false,
}

// Coerce asks the remote model to turn raw receipt text into a transaction.
// It never fails: blank input and every remote or parsing error yield the
// zero CoercedTransaction. The returned category is not validated.
func (s *CoercionService) Coerce(ctx context.Context, kind models.TransactionKind, text string) CoercedTransaction {
	text = normalizeReceiptText(text)
	if text == "" {
		return CoercedTransaction{}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	content, err := s.llm.GenerateJSON(ctx, JSONRequest{
		Name:   "transaction",
		System: "Eres un asistente que extrae transacciones de facturas y recibos colombianos.",
		Prompt: buildCoercionPrompt(kind, text),
		Schema: coercionSchema,
	})
	if err != nil {
		s.logger.Warn("Transaction coercion failed, using empty result", zap.Error(err))
		return CoercedTransaction{}
	}

	result, err := parseCoercion(content)
	if err != nil {
		s.logger.Warn("Failed to parse coercion response",
			zap.Error(err),
			zap.String("content", truncateRunes(content, 500)),
		)
		return CoercedTransaction{}
	}

	s.logger.Debug("Transaction coerced",
		zap.String("description", result.Description),
		zap.Float64("value", result.Value),
		zap.String("category", result.Category),
	)
	return result
}

func buildCoercionPrompt(kind models.TransactionKind, text string) string {
	set, _ := models.CategoriesFor(kind)

	var hints string
	if amounts := findAmountHints(text); len(amounts) > 0 {
		parts := make([]string, len(amounts))
		for i, a := range amounts {
			parts[i] = a.String()
		}
		hints = fmt.Sprintf("\nMontos detectados en el texto (ya normalizados): %s\n", strings.Join(parts, ", "))
	}

	return fmt.Sprintf(`Analiza el siguiente texto obtenido por OCR de una factura y extrae una única transacción.

Texto de la factura:
%s
%s
Devuelve un objeto JSON con exactamente estos campos:
- "description": nombre del comercio o concepto principal (máximo %d caracteres).
- "value": el total pagado como número, sin símbolo de moneda ni separadores de miles.
- "category": EXACTAMENTE una de estas categorías: %s.

REGLAS:
- No inventes categorías nuevas; si ninguna aplica usa "%s".
- Si no encuentras un total, usa 0.
- Responde solo con el JSON.`,
		text, hints, maxDescriptionRunes, strings.Join(set.Members, ", "), set.Default)
}

type coercionPayload struct {
	Description string          `json:"description"`
	Value       json.RawMessage `json:"value"`
	Category    string          `json:"category"`
}

func parseCoercion(content string) (CoercedTransaction, error) {
	raw, ok := extractJSON(content, '{', '}')
	if !ok {
		return CoercedTransaction{}, fmt.Errorf("no JSON object in response")
	}

	var payload coercionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return CoercedTransaction{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return CoercedTransaction{
		Description: truncateRunes(strings.TrimSpace(sanitizeUTF8(payload.Description)), maxDescriptionRunes),
		Value:       coerceValue(payload.Value),
		Category:    strings.TrimSpace(payload.Category),
	}, nil
}

// coerceValue accepts a JSON number or a formatted amount string and
// returns a non-negative float rounded to cents. Anything else becomes 0.
func coerceValue(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}

	var amount decimal.Decimal
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		parsed, ok := parseAmount(s)
		if !ok {
			return 0
		}
		amount = parsed
	} else {
		parsed, err := decimal.NewFromString(string(raw))
		if err != nil {
			return 0
		}
		amount = parsed
	}

	if amount.IsNegative() {
		return 0
	}
	f, _ := amount.Round(2).Float64()
	return f
}

var (
	currencyNoise   = regexp.MustCompile(`(?i)(cop|usd|\$|\s)`)
	dotThousands    = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	commaThousands  = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
	amountCandidate = regexp.MustCompile(`\$\s?\d[\d.,]*\d|\$\s?\d`)
)

// parseAmount reads amounts written with either "." or "," as the thousands
// separator, e.g. "$8.000", "8,000.50", "12,5".
func parseAmount(s string) (decimal.Decimal, bool) {
	s = currencyNoise.ReplaceAllString(s, "")
	if s == "" {
		return decimal.Zero, false
	}

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		if dotThousands.MatchString(s) {
			s = strings.ReplaceAll(s, ".", "")
		}
	case lastComma >= 0:
		if commaThousands.MatchString(s) {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// findAmountHints returns every "$"-prefixed amount in text, in order.
func findAmountHints(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, match := range amountCandidate.FindAllString(text, -1) {
		if d, ok := parseAmount(match); ok && d.IsPositive() {
			out = append(out, d)
		}
	}
	return out
}
