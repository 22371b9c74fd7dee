package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"koins/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTransactionService(store TransactionStore, now time.Time) *TransactionService {
	svc := NewTransactionService(store, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestSubmit_StoresDraftAsGiven(t *testing.T) {
	store := &memTransactionStore{}
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	svc := newTestTransactionService(store, now)
	userID := uuid.New()

	tx, err := svc.Submit(context.Background(), userID, models.TransactionDraft{
		Kind:        models.KindExpense,
		Description: "Café Juan Valdez",
		Amount:      8000,
		Category:    "Alimentos",
		SourceType:  models.SourceScanned,
		ExpenseType: models.ExpenseTypeInvoice,
	})
	require.NoError(t, err)

	require.Len(t, store.items, 1)
	stored := store.items[0]
	assert.Equal(t, tx.ID, stored.ID)
	assert.Equal(t, userID, stored.UserID)
	assert.Equal(t, models.KindExpense, stored.Type)
	assert.Equal(t, "Café Juan Valdez", stored.Description)
	assert.Equal(t, 8000.0, stored.Value)
	require.NotNil(t, stored.Category)
	assert.Equal(t, "Alimentos", *stored.Category)
	require.NotNil(t, stored.ExpenseType)
	assert.Equal(t, models.ExpenseTypeInvoice, *stored.ExpenseType)
	assert.Equal(t, now, stored.CreatedAt)
}

func TestSubmit_ManualIncomeWithoutCategory(t *testing.T) {
	store := &memTransactionStore{}
	svc := newTestTransactionService(store, time.Now())

	tx, err := svc.Submit(context.Background(), uuid.New(), NewManualDraft(models.KindIncome))
	require.NoError(t, err)
	assert.Nil(t, tx.Category)
	assert.Nil(t, tx.ExpenseType)
	assert.Equal(t, 0.0, tx.Value)
}

func TestSubmit_RejectsInvalidDrafts(t *testing.T) {
	tests := []struct {
		name  string
		draft models.TransactionDraft
	}{
		{"unknown kind", models.TransactionDraft{Kind: "transfer"}},
		{"negative amount", models.TransactionDraft{Kind: models.KindExpense, Amount: -1}},
		{"NaN amount", models.TransactionDraft{Kind: models.KindExpense, Amount: math.NaN()}},
		{"sub-cent amount", models.TransactionDraft{Kind: models.KindExpense, Amount: 8000.555}},
		{"amount beyond the value column", models.TransactionDraft{Kind: models.KindExpense, Amount: 1e13}},
		{"amount at the column limit", models.TransactionDraft{Kind: models.KindIncome, Amount: 1e12}},
		{"category of the other kind", models.TransactionDraft{Kind: models.KindIncome, Category: "Alimentos"}},
		{"unknown category", models.TransactionDraft{Kind: models.KindExpense, Category: "Mascotas"}},
		{"expense type on income", models.TransactionDraft{Kind: models.KindIncome, ExpenseType: models.ExpenseTypeInvoice}},
		{"unknown expense type", models.TransactionDraft{Kind: models.KindExpense, ExpenseType: "Recibo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memTransactionStore{}
			_, err := newTestTransactionService(store, time.Now()).Submit(context.Background(), uuid.New(), tt.draft)
			assert.ErrorIs(t, err, ErrInvalidDraft)
			assert.Empty(t, store.items)
		})
	}
}

func TestValidateDraft_CentAmounts(t *testing.T) {
	for _, amount := range []float64{0, 19.99, 8000.5, 45900, 999999999999.99} {
		assert.NoError(t, ValidateDraft(models.TransactionDraft{Kind: models.KindExpense, Amount: amount}), "amount=%v", amount)
	}
}

func TestSubmit_StoreFailure(t *testing.T) {
	store := &memTransactionStore{failErr: errors.New("connection refused")}
	_, err := newTestTransactionService(store, time.Now()).Submit(context.Background(), uuid.New(), NewManualDraft(models.KindExpense))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidDraft)
}

func seedTransactions(t *testing.T, svc *TransactionService, userID uuid.UUID, base time.Time, drafts ...models.TransactionDraft) {
	t.Helper()
	for i, d := range drafts {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		_, err := svc.Submit(context.Background(), userID, d)
		require.NoError(t, err)
	}
}

func TestList_PagingIsClamped(t *testing.T) {
	store := &memTransactionStore{}
	svc := NewTransactionService(store, zap.NewNop())
	userID := uuid.New()

	drafts := make([]models.TransactionDraft, 25)
	for i := range drafts {
		drafts[i] = models.TransactionDraft{Kind: models.KindExpense, Amount: float64(i + 1)}
	}
	seedTransactions(t, svc, userID, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), drafts...)

	page, err := svc.List(context.Background(), userID, models.TransactionFilter{Page: 0, PageSize: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Equal(t, 25, page.Total)
	assert.Len(t, page.Items, DefaultPageSize)
	assert.Equal(t, 25.0, page.Items[0].Value, "newest first")

	page, err = svc.List(context.Background(), userID, models.TransactionFilter{Page: 2, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.PageSize)
	assert.Empty(t, page.Items)

	other, err := svc.List(context.Background(), uuid.New(), models.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, other.Total)

	_, err = svc.List(context.Background(), userID, models.TransactionFilter{Kind: "transfer"})
	assert.Error(t, err)

	page, err = svc.List(context.Background(), userID, models.TransactionFilter{Page: MaxPage, PageSize: MaxPageSize})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = svc.List(context.Background(), userID, models.TransactionFilter{Page: 1 << 62})
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestStatsAndCategoryTotals(t *testing.T) {
	store := &memTransactionStore{}
	svc := NewTransactionService(store, zap.NewNop())
	userID := uuid.New()

	seedTransactions(t, svc, userID, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		models.TransactionDraft{Kind: models.KindIncome, Amount: 2500000, Category: "Salario"},
		models.TransactionDraft{Kind: models.KindExpense, Amount: 8000, Category: "Alimentos"},
		models.TransactionDraft{Kind: models.KindExpense, Amount: 12000, Category: "Alimentos"},
		models.TransactionDraft{Kind: models.KindExpense, Amount: 90000, Category: "Servicios públicos"},
	)

	stats, err := svc.Stats(context.Background(), userID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, &models.UserStats{Income: 2500000, Expense: 110000, Balance: 2390000}, stats)

	totals, err := svc.CategoryTotals(context.Background(), userID, models.KindExpense, nil, nil)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	byCategory := map[string]*models.CategoryTotal{}
	for _, total := range totals {
		byCategory[total.Category] = total
	}
	assert.Equal(t, 20000.0, byCategory["Alimentos"].Total)
	assert.Equal(t, 2, byCategory["Alimentos"].Count)
	assert.Equal(t, 90000.0, byCategory["Servicios públicos"].Total)

	_, err = svc.CategoryTotals(context.Background(), userID, "", nil, nil)
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	store := &memTransactionStore{}
	svc := NewTransactionService(store, zap.NewNop())
	userID := uuid.New()

	tx, err := svc.Submit(context.Background(), userID, NewManualDraft(models.KindExpense))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(context.Background(), uuid.New(), tx.ID), ErrTransactionNotFound, "other users cannot delete it")
	require.NoError(t, svc.Delete(context.Background(), userID, tx.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), userID, tx.ID), ErrTransactionNotFound)
}
