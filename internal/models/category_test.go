package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCategory_Member(t *testing.T) {
	assert.Equal(t, "Alimentos", ValidateCategory("Alimentos", KindExpense))
	assert.Equal(t, "Salario", ValidateCategory("Salario", KindIncome))
}

func TestValidateCategory_FallsBackToDefault(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		kind      TransactionKind
		want      string
	}{
		{"unknown expense", "Mascotas", KindExpense, "Otros gastos"},
		{"empty expense", "", KindExpense, "Otros gastos"},
		{"income category on expense", "Salario", KindExpense, "Otros gastos"},
		{"case mismatch", "alimentos", KindExpense, "Otros gastos"},
		{"trailing space", "Alimentos ", KindExpense, "Otros gastos"},
		{"unknown income", "Lotería", KindIncome, "Otros ingresos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateCategory(tt.candidate, tt.kind))
		})
	}
}

func TestValidateCategory_AlwaysReturnsMember(t *testing.T) {
	candidates := []string{"", "Mascotas", "Salud", "Dividendos", "Otros gastos", "💸", "SALUD"}
	for _, kind := range []TransactionKind{KindIncome, KindExpense} {
		set, ok := CategoriesFor(kind)
		require.True(t, ok)
		for _, c := range candidates {
			assert.True(t, set.Contains(ValidateCategory(c, kind)), "kind=%s candidate=%q", kind, c)
		}
	}
}

func TestValidateCategory_UnknownKind(t *testing.T) {
	assert.Equal(t, "", ValidateCategory("Alimentos", TransactionKind("transfer")))
}

func TestCategoriesFor_ReturnsCopy(t *testing.T) {
	set, ok := CategoriesFor(KindExpense)
	require.True(t, ok)
	set.Members[0] = "changed"

	again, _ := CategoriesFor(KindExpense)
	assert.Equal(t, "Alimentos", again.Members[0])
	assert.True(t, again.Contains(again.Default))
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("income")
	require.NoError(t, err)
	assert.Equal(t, KindIncome, kind)

	_, err = ParseKind("Expense")
	assert.Error(t, err)
}

func TestIsCategoryOf(t *testing.T) {
	assert.True(t, IsCategoryOf("Hogar", KindExpense))
	assert.False(t, IsCategoryOf("Hogar", KindIncome))
	assert.False(t, IsCategoryOf("Hogar", TransactionKind("")))
}
