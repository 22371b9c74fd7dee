package handlers

import (
	"fmt"
	"time"

	"koins/internal/dto"
	"koins/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := c.Locals("userID").(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}

// parseBody decodes the request body into out and runs struct validation.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fmt.Errorf("invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return err
	}
	return nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized",
	})
}

// parseDateRange reads the optional from/to query parameters. Plain dates
// cover the whole day; "to" is inclusive.
func parseDateRange(c *fiber.Ctx) (from, to *time.Time, err error) {
	if raw := c.Query("from"); raw != "" {
		t, err := parseDate(raw, false)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid from date %q", raw)
		}
		from = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseDate(raw, true)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid to date %q", raw)
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("to date is before from date")
	}
	return from, to, nil
}

func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func toDraftResponse(d *models.TransactionDraft) *dto.DraftResponse {
	if d == nil {
		return nil
	}
	return &dto.DraftResponse{
		Kind:        string(d.Kind),
		Description: d.Description,
		Amount:      d.Amount,
		Category:    d.Category,
		SourceType:  string(d.SourceType),
		ExpenseType: string(d.ExpenseType),
	}
}

func toTransactionResponse(tx *models.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:          tx.ID.String(),
		Type:        string(tx.Type),
		Description: tx.Description,
		Value:       tx.Value,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
	if tx.Category != nil {
		resp.Category = *tx.Category
	}
	if tx.ExpenseType != nil {
		resp.ExpenseType = string(*tx.ExpenseType)
	}
	return resp
}
