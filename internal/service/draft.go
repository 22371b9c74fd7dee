package service

import "koins/internal/models"

// AssembleDraft merges coerced fields and an already validated category into
// a scanned draft. Expense drafts are tagged as invoices.
func AssembleDraft(kind models.TransactionKind, coerced CoercedTransaction, category string) models.TransactionDraft {
	draft := models.TransactionDraft{
		Kind:        kind,
		Description: coerced.Description,
		Amount:      coerced.Value,
		Category:    category,
		SourceType:  models.SourceScanned,
	}
	if kind == models.KindExpense {
		draft.ExpenseType = models.ExpenseTypeInvoice
	}
	return draft
}

// NewManualDraft returns the empty draft shown for hand-typed entries.
func NewManualDraft(kind models.TransactionKind) models.TransactionDraft {
	draft := models.TransactionDraft{
		Kind:       kind,
		SourceType: models.SourceManual,
	}
	if kind == models.KindExpense {
		draft.ExpenseType = models.ExpenseTypeManual
	}
	return draft
}
