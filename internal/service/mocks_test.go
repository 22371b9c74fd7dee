package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"koins/internal/models"
	"koins/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) GenerateJSON(ctx context.Context, req JSONRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockLLM) Close() error {
	return nil
}

// memTransactionStore keeps transactions in memory.
type memTransactionStore struct {
	mu      sync.Mutex
	items   []*models.Transaction
	failErr error
}

func (s *memTransactionStore) Create(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	copied := *tx
	s.items = append(s.items, &copied)
	return nil
}

func (s *memTransactionStore) matching(userID uuid.UUID, filter models.TransactionFilter) []*models.Transaction {
	var out []*models.Transaction
	for _, tx := range s.items {
		if tx.UserID != userID {
			continue
		}
		if filter.From != nil && tx.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.CreatedAt.After(*filter.To) {
			continue
		}
		if filter.Category != "" && (tx.Category == nil || *tx.Category != filter.Category) {
			continue
		}
		if filter.Kind != "" && tx.Type != filter.Kind {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memTransactionStore) List(ctx context.Context, userID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, 0, s.failErr
	}
	all := s.matching(userID, filter)
	start := (filter.Page - 1) * filter.PageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (s *memTransactionStore) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	return s.matching(userID, models.TransactionFilter{From: &since}), nil
}

func (s *memTransactionStore) Stats(ctx context.Context, userID uuid.UUID, from, to *time.Time) (*models.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats models.UserStats
	for _, tx := range s.matching(userID, models.TransactionFilter{From: from, To: to}) {
		if tx.Type == models.KindIncome {
			stats.Income += tx.Value
		} else {
			stats.Expense += tx.Value
		}
	}
	stats.Balance = stats.Income - stats.Expense
	return &stats, nil
}

func (s *memTransactionStore) CategoryTotals(ctx context.Context, userID uuid.UUID, kind models.TransactionKind, from, to *time.Time) ([]*models.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCategory := map[string]*models.CategoryTotal{}
	var order []string
	for _, tx := range s.matching(userID, models.TransactionFilter{From: from, To: to, Kind: kind}) {
		category := ""
		if tx.Category != nil {
			category = *tx.Category
		}
		total, ok := byCategory[category]
		if !ok {
			total = &models.CategoryTotal{Category: category, Kind: tx.Type}
			byCategory[category] = total
			order = append(order, category)
		}
		total.Total += tx.Value
		total.Count++
	}
	out := make([]*models.CategoryTotal, 0, len(order))
	for _, c := range order {
		out = append(out, byCategory[c])
	}
	return out, nil
}

func (s *memTransactionStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.items {
		if tx.ID == id && tx.UserID == userID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[uuid.UUID]*models.User{}}
}

func (s *memUserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *memUserStore) UpdateProfile(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

type stubCapturer struct {
	handle *ImageHandle
	err    error
}

func (c stubCapturer) Capture(ctx context.Context) (*ImageHandle, error) {
	return c.handle, c.err
}

type stubExtractor struct {
	blocks []models.TextBlock
	err    error
	calls  int
}

func (e *stubExtractor) ExtractText(ctx context.Context, h *ImageHandle) ([]models.TextBlock, error) {
	e.calls++
	return e.blocks, e.err
}
