package dashboard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lekka-app/lekka/internal/inventory"
	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/shared"
	"github.com/lekka-app/lekka/internal/workforce"
)

func tx(typ ledger.Type, category, amount, date string) ledger.Transaction {
	return ledger.Transaction{Type: typ, Category: category, Amount: decimal.RequireFromString(amount), Date: date}
}

func TestBuildSummary(t *testing.T) {
	ravi, anil := "w-ravi", "w-anil"
	salary := func(id, amount string) ledger.Transaction {
		t := tx(ledger.TypeExpense, ledger.CategorySalary, amount, "2024-06-02")
		t.WorkerID = &id
		return t
	}
	txs := []ledger.Transaction{
		tx(ledger.TypeIncome, ledger.CategorySales, "100.50", "2024-06-01"),
		tx(ledger.TypeIncome, ledger.CategoryService, "49.50", "2024-06-01"),
		tx(ledger.TypeIncome, ledger.CategorySales, "300", "2024-06-03"),
		tx(ledger.TypeExpense, ledger.CategoryRent, "200", "2024-06-02"),
		salary(ravi, "150"),
		salary(anil, "90"),
	}
	products := make([]inventory.Product, 7)
	for i := range products {
		products[i] = inventory.Product{ID: string(rune('a' + i)), Name: "P", Stock: i - 1, MinStockLevel: 2}
	}
	workers := []workforce.Worker{{ID: anil, Name: "Anil"}, {ID: ravi, Name: "Ravi"}, {ID: "w-idle", Name: "Idle"}}

	s := BuildSummary(Range{From: "2024-06-01", To: "2024-06-03"}, txs, products, workers)

	require.Equal(t, "450", s.TotalIncome.String())
	require.Equal(t, "440", s.TotalExpenses.String())
	require.Equal(t, "10", s.NetProfit.String())

	require.Len(t, s.IncomeTrend, 3)
	require.Equal(t, "150", s.IncomeTrend[0].Income.String())
	require.Equal(t, "01 Jun", s.IncomeTrend[0].Label)
	require.True(t, s.IncomeTrend[1].Income.IsZero())
	require.Equal(t, "300", s.IncomeTrend[2].Income.String())

	require.Equal(t, []string{ledger.CategorySalary, ledger.CategoryRent}, categories(s.ExpenseBreakdown))
	require.Equal(t, "240", s.ExpenseBreakdown[0].Total.String())

	require.Len(t, s.LowestStock, 5)
	require.Equal(t, inventory.StatusOutOfStock, s.LowestStock[0].Status)
	require.Equal(t, inventory.StatusLowStock, s.LowestStock[2].Status)
	require.Equal(t, inventory.StatusInStock, s.LowestStock[4].Status)

	require.Len(t, s.TopWorkers, 2)
	require.Equal(t, "Ravi", s.TopWorkers[0].Name)
	require.Equal(t, "Anil", s.TopWorkers[1].Name)

	require.Equal(t, 6, s.TransactionCount)
	require.Equal(t, 7, s.ProductCount)
	require.Equal(t, 3, s.WorkerCount)
}

func TestBuildSummaryEmpty(t *testing.T) {
	s := BuildSummary(Range{From: "2024-06-01", To: "2024-06-01"}, nil, nil, nil)
	require.True(t, s.NetProfit.IsZero())
	require.Len(t, s.IncomeTrend, 1)
	require.Empty(t, s.ExpenseBreakdown)
	require.NotNil(t, s.TopWorkers)
}

func TestResolveRange(t *testing.T) {
	today := time.Date(2024, 6, 30, 15, 0, 0, 0, time.UTC)

	r, err := ResolveRange(Range{}, today)
	require.NoError(t, err)
	require.Equal(t, Range{From: "2024-06-01", To: "2024-06-30"}, r)

	r, err = ResolveRange(Range{To: "2024-03-10"}, today)
	require.NoError(t, err)
	require.Equal(t, "2024-02-10", r.From)

	for _, bad := range []Range{
		{From: "2024-07-01", To: "2024-06-01"},
		{From: "yesterday"},
		{From: "2022-01-01", To: "2024-01-01"},
	} {
		_, err := ResolveRange(bad, today)
		require.True(t, shared.IsValidation(err), "%+v", bad)
	}
}

func categories(list []CategoryTotal) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Category
	}
	return out
}
