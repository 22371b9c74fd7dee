package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"koins/internal/models"
	"koins/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps the row offset well inside an int32.
	MaxPage = 1_000_000
)

// maxAmount is the first value the NUMERIC(14, 2) value column cannot hold.
var maxAmount = decimal.New(1, 12)

var (
	ErrInvalidDraft        = errors.New("invalid transaction draft")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrPageOutOfRange      = errors.New("page out of range")
)

type TransactionStore interface {
	Create(ctx context.Context, tx *models.Transaction) error
	List(ctx context.Context, userID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, int, error)
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Transaction, error)
	Stats(ctx context.Context, userID uuid.UUID, from, to *time.Time) (*models.UserStats, error)
	CategoryTotals(ctx context.Context, userID uuid.UUID, kind models.TransactionKind, from, to *time.Time) ([]*models.CategoryTotal, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type TransactionService struct {
	store  TransactionStore
	now    func() time.Time
	logger *zap.Logger
}

func NewTransactionService(store TransactionStore, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// ValidateDraft checks the invariants a draft must hold before it can be
// stored.
func ValidateDraft(draft models.TransactionDraft) error {
	if !draft.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidDraft, draft.Kind)
	}
	if math.IsNaN(draft.Amount) || math.IsInf(draft.Amount, 0) || draft.Amount < 0 {
		return fmt.Errorf("%w: amount must be a non-negative number", ErrInvalidDraft)
	}
	amount := decimal.NewFromFloat(draft.Amount)
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: amount must be below %s", ErrInvalidDraft, maxAmount)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount has more than two decimals", ErrInvalidDraft)
	}
	if draft.Category != "" && !models.IsCategoryOf(draft.Category, draft.Kind) {
		return fmt.Errorf("%w: category %q is not a %s category", ErrInvalidDraft, draft.Category, draft.Kind)
	}
	if draft.ExpenseType != "" {
		if !draft.ExpenseType.Valid() {
			return fmt.Errorf("%w: unknown expense type %q", ErrInvalidDraft, draft.ExpenseType)
		}
		if draft.Kind != models.KindExpense {
			return fmt.Errorf("%w: expense type set on %s", ErrInvalidDraft, draft.Kind)
		}
	}
	return nil
}

// Submit persists a draft. Description, amount and category are stored as
// given.
func (s *TransactionService) Submit(ctx context.Context, userID uuid.UUID, draft models.TransactionDraft) (*models.Transaction, error) {
	if err := ValidateDraft(draft); err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        draft.Kind,
		Description: sanitizeUTF8(draft.Description),
		Value:       draft.Amount,
		CreatedAt:   s.now().UTC(),
	}
	if draft.Category != "" {
		category := draft.Category
		tx.Category = &category
	}
	if draft.ExpenseType != "" {
		expenseType := draft.ExpenseType
		tx.ExpenseType = &expenseType
	}

	if err := s.store.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	s.logger.Info("Transaction created",
		zap.String("id", tx.ID.String()),
		zap.String("type", string(tx.Type)),
		zap.String("source", string(draft.SourceType)),
	)
	return tx, nil
}

func (s *TransactionService) List(ctx context.Context, userID uuid.UUID, filter models.TransactionFilter) (*models.TransactionPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Page > MaxPage {
		return nil, fmt.Errorf("%w: page must be at most %d", ErrPageOutOfRange, MaxPage)
	}
	if filter.PageSize < 1 {
		filter.PageSize = DefaultPageSize
	}
	if filter.PageSize > MaxPageSize {
		filter.PageSize = MaxPageSize
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", filter.Kind)
	}

	items, total, err := s.store.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &models.TransactionPage{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func (s *TransactionService) Stats(ctx context.Context, userID uuid.UUID, from, to *time.Time) (*models.UserStats, error) {
	stats, err := s.store.Stats(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

func (s *TransactionService) CategoryTotals(ctx context.Context, userID uuid.UUID, kind models.TransactionKind, from, to *time.Time) ([]*models.CategoryTotal, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	totals, err := s.store.CategoryTotals(ctx, userID, kind, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to compute category totals: %w", err)
	}
	return totals, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.Delete(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTransactionNotFound
	}
	return err
}
