package dto

type ScanTextRequest struct {
	Kind  string   `json:"kind" validate:"required,oneof=income expense"`
	Lines []string `json:"lines" validate:"required,min=1,dive,max=2000"`
}

type DraftResponse struct {
	Kind        string  `json:"kind"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category,omitempty"`
	SourceType  string  `json:"source_type"`
	ExpenseType string  `json:"expense_type,omitempty"`
}

type ScanResponse struct {
	State  string         `json:"state"`
	Reason string         `json:"reason,omitempty"`
	Draft  *DraftResponse `json:"draft,omitempty"`
	Trace  []string       `json:"trace"`
}

type CategoriesResponse struct {
	Kind       string   `json:"kind"`
	Categories []string `json:"categories"`
	Default    string   `json:"default"`
}
