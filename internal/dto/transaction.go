package dto

type SubmitTransactionRequest struct {
	Kind        string  `json:"kind" validate:"required,oneof=income expense"`
	Description string  `json:"description" validate:"max=255"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	Category    string  `json:"category"`
	SourceType  string  `json:"source_type" validate:"omitempty,oneof=manual scanned"`
	ExpenseType string  `json:"expense_type" validate:"omitempty,oneof=Factura Manual"`
}

type TransactionResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	ExpenseType string  `json:"expense_type,omitempty"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Value       float64 `json:"value"`
	CreatedAt   string  `json:"created_at"`
}

type TransactionListResponse struct {
	Items    []TransactionResponse `json:"items"`
	Total    int                   `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	HasMore  bool                  `json:"has_more"`
}

type StatsResponse struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Balance float64 `json:"balance"`
}

type CategoryTotalResponse struct {
	Category string  `json:"category"`
	Kind     string  `json:"kind"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

type PredictionResponse struct {
	TransactionID string `json:"transactionId"`
	Prediction    string `json:"prediction"`
}
