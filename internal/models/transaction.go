package models

import (
	"time"

	"github.com/google/uuid"
)

// ExpenseType tags where an expense came from.
type ExpenseType string

const (
	ExpenseTypeInvoice ExpenseType = "Factura"
	ExpenseTypeManual  ExpenseType = "Manual"
)

func (t ExpenseType) Valid() bool {
	return t == ExpenseTypeInvoice || t == ExpenseTypeManual
}

type SourceType string

const (
	SourceManual  SourceType = "manual"
	SourceScanned SourceType = "scanned"
)

type Transaction struct {
	ID          uuid.UUID       `db:"id"`
	UserID      uuid.UUID       `db:"user_id"`
	Type        TransactionKind `db:"type"`
	ExpenseType *ExpenseType    `db:"expense_type"`
	Description string          `db:"description"`
	Category    *string         `db:"category"`
	Value       float64         `db:"value"`
	CreatedAt   time.Time       `db:"created_at"`
}

// TransactionDraft is the editable, not yet persisted form of a transaction.
type TransactionDraft struct {
	Kind        TransactionKind `json:"kind"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Category    string          `json:"category,omitempty"`
	SourceType  SourceType      `json:"source_type"`
	ExpenseType ExpenseType     `json:"expense_type,omitempty"`
}

type TransactionFilter struct {
	Page     int
	PageSize int
	From     *time.Time
	To       *time.Time
	Category string
	Kind     TransactionKind
}

type TransactionPage struct {
	Items    []*Transaction
	Total    int
	Page     int
	PageSize int
}

type UserStats struct {
	Income  float64
	Expense float64
	Balance float64
}

type CategoryTotal struct {
	Category string
	Kind     TransactionKind
	Total    float64
	Count    int
}

type Prediction struct {
	TransactionID string
	Prediction    string
}
