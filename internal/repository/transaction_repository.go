package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"koins/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var transactionColumns = []string{"id", "user_id", "type", "expense_type", "description", "category", "value", "created_at"}

type TransactionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTransactionRepository(db *pgxpool.Pool, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	var expenseType *string
	if tx.ExpenseType != nil {
		s := string(*tx.ExpenseType)
		expenseType = &s
	}

	query := squirrel.Insert("transactions").
		Columns(transactionColumns...).
		Values(tx.ID, tx.UserID, string(tx.Type), expenseType, tx.Description, tx.Category, tx.Value, tx.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// List returns one page of the user's transactions, newest first, along
// with the total number of rows matching the filter.
func (r *TransactionRepository) List(ctx context.Context, userID uuid.UUID, filter models.TransactionFilter) ([]*models.Transaction, int, error) {
	where := filterConditions(userID, filter)

	countSQL, countArgs, err := squirrel.Select("COUNT(*)").
		From("transactions").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	sql, args, err := listQuery(userID, filter).ToSql()
	if err != nil {
		return nil, 0, err
	}

	items, err := r.query(ctx, sql, args)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListSince returns every transaction created at or after since.
func (r *TransactionRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Transaction, error) {
	sql, args, err := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.GtOrEq{"created_at": since}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.query(ctx, sql, args)
}

func (r *TransactionRepository) Stats(ctx context.Context, userID uuid.UUID, from, to *time.Time) (*models.UserStats, error) {
	sql, args, err := statsQuery(userID, from, to).ToSql()
	if err != nil {
		return nil, err
	}

	var stats models.UserStats
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&stats.Income, &stats.Expense); err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	stats.Balance = stats.Income - stats.Expense
	return &stats, nil
}

func (r *TransactionRepository) CategoryTotals(ctx context.Context, userID uuid.UUID, kind models.TransactionKind, from, to *time.Time) ([]*models.CategoryTotal, error) {
	sql, args, err := categoryTotalsQuery(userID, kind, from, to).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []*models.CategoryTotal
	for rows.Next() {
		var (
			total models.CategoryTotal
			kind  string
		)
		if err := rows.Scan(&total.Category, &kind, &total.Total, &total.Count); err != nil {
			return nil, err
		}
		total.Kind = models.TransactionKind(kind)
		totals = append(totals, &total)
	}
	return totals, rows.Err()
}

func (r *TransactionRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	sql, args, err := squirrel.Delete("transactions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) query(ctx context.Context, sql string, args []interface{}) ([]*models.Transaction, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		tx          models.Transaction
		kind        string
		expenseType *string
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &kind, &expenseType, &tx.Description, &tx.Category, &tx.Value, &tx.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	tx.Type = models.TransactionKind(kind)
	if expenseType != nil {
		et := models.ExpenseType(*expenseType)
		tx.ExpenseType = &et
	}
	return &tx, nil
}

func filterConditions(userID uuid.UUID, filter models.TransactionFilter) squirrel.And {
	where := squirrel.And{squirrel.Eq{"user_id": userID}}
	if filter.From != nil {
		where = append(where, squirrel.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		where = append(where, squirrel.LtOrEq{"created_at": *filter.To})
	}
	if filter.Category != "" {
		where = append(where, squirrel.Eq{"category": filter.Category})
	}
	if filter.Kind != "" {
		where = append(where, squirrel.Eq{"type": string(filter.Kind)})
	}
	return where
}

func listQuery(userID uuid.UUID, filter models.TransactionFilter) squirrel.SelectBuilder {
	offset := uint64((filter.Page - 1) * filter.PageSize)
	return squirrel.Select(transactionColumns...).
		From("transactions").
		Where(filterConditions(userID, filter)).
		OrderBy("created_at DESC", "id").
		Limit(uint64(filter.PageSize)).
		Offset(offset).
		PlaceholderFormat(squirrel.Dollar)
}

func statsQuery(userID uuid.UUID, from, to *time.Time) squirrel.SelectBuilder {
	return squirrel.Select(
		"COALESCE(SUM(value) FILTER (WHERE type = 'income'), 0)::float8",
		"COALESCE(SUM(value) FILTER (WHERE type = 'expense'), 0)::float8",
	).
		From("transactions").
		Where(filterConditions(userID, models.TransactionFilter{From: from, To: to})).
		PlaceholderFormat(squirrel.Dollar)
}

func categoryTotalsQuery(userID uuid.UUID, kind models.TransactionKind, from, to *time.Time) squirrel.SelectBuilder {
	return squirrel.Select("COALESCE(category, '')", "type", "SUM(value)::float8", "COUNT(*)").
		From("transactions").
		Where(filterConditions(userID, models.TransactionFilter{From: from, To: to, Kind: kind})).
		GroupBy("category", "type").
		OrderBy("SUM(value) DESC").
		PlaceholderFormat(squirrel.Dollar)
}
