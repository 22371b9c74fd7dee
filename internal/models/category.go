package models

import "fmt"

type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

func (k TransactionKind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// ParseKind converts a raw value into a TransactionKind.
func ParseKind(raw string) (TransactionKind, error) {
	kind := TransactionKind(raw)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown transaction kind %q", raw)
	}
	return kind, nil
}

// CategorySet is the fixed list of categories allowed for one kind.
// Default is always a member of Members.
type CategorySet struct {
	Kind    TransactionKind
	Members []string
	Default string
}

var incomeCategories = CategorySet{
	Kind: KindIncome,
	Members: []string{
		"Salario",
		"Freelance",
		"Venta de productos",
		"Intereses bancarios",
		"Bonificaciones",
		"Reembolsos",
		"Dividendos",
		"Alquiler recibido",
		"Regalos",
		"Otros ingresos",
	},
	Default: "Otros ingresos",
}

var expenseCategories = CategorySet{
	Kind: KindExpense,
	Members: []string{
		"Alimentos",
		"Transporte",
		"Servicios públicos",
		"Entretenimiento",
		"Salud",
		"Educación",
		"Suscripciones",
		"Compras personales",
		"Hogar",
		"Otros gastos",
	},
	Default: "Otros gastos",
}

// CategoriesFor returns the category set of a kind. The returned Members
// slice is a copy and may be modified by the caller.
func CategoriesFor(kind TransactionKind) (CategorySet, bool) {
	var set CategorySet
	switch kind {
	case KindIncome:
		set = incomeCategories
	case KindExpense:
		set = expenseCategories
	default:
		return CategorySet{}, false
	}
	set.Members = append([]string(nil), set.Members...)
	return set, true
}

// Contains reports exact, case-sensitive membership.
func (s CategorySet) Contains(category string) bool {
	for _, member := range s.Members {
		if member == category {
			return true
		}
	}
	return false
}

// Validate returns candidate when it is a member and the default otherwise.
func (s CategorySet) Validate(candidate string) string {
	if s.Contains(candidate) {
		return candidate
	}
	return s.Default
}

// ValidateCategory maps a model-suggested category onto the set of kind.
// Unknown kinds have no set and yield an empty category.
func ValidateCategory(candidate string, kind TransactionKind) string {
	set, ok := CategoriesFor(kind)
	if !ok {
		return ""
	}
	return set.Validate(candidate)
}

// IsCategoryOf reports whether category belongs to the set of kind.
func IsCategoryOf(category string, kind TransactionKind) bool {
	set, ok := CategoriesFor(kind)
	return ok && set.Contains(category)
}
