// Package dashboard aggregates an owner's transactions, products and workers
// into the figures shown on the dashboard and in statements.
package dashboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lekka-app/lekka/internal/inventory"
	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/shared"
	"github.com/lekka-app/lekka/internal/workforce"
)

const (
	topN = 5
	// DefaultRangeDays is used when no range is requested.
	DefaultRangeDays = 30
	// MaxRangeDays bounds the daily trend.
	MaxRangeDays = 366
)

// Range is an inclusive date range in YYYY-MM-DD form.
type Range struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DayPoint is one day of the income trend.
type DayPoint struct {
	Date   string          `json:"date"`
	Label  string          `json:"label"`
	Income decimal.Decimal `json:"income"`
}

// CategoryTotal is one slice of the expense breakdown.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// ProductStock is a product on the low-stock chart.
type ProductStock struct {
	ID     string                `json:"id"`
	Name   string                `json:"name"`
	Stock  int                   `json:"stock"`
	Status inventory.StockStatus `json:"status"`
}

// WorkerPaid is a worker on the top-paid chart.
type WorkerPaid struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Paid decimal.Decimal `json:"paid"`
}

// Summary is the dashboard payload.
type Summary struct {
	Range            Range           `json:"range"`
	TotalIncome      decimal.Decimal `json:"total_income"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	NetProfit        decimal.Decimal `json:"net_profit"`
	IncomeTrend      []DayPoint      `json:"income_trend"`
	ExpenseBreakdown []CategoryTotal `json:"expense_breakdown"`
	LowestStock      []ProductStock  `json:"lowest_stock"`
	TopWorkers       []WorkerPaid    `json:"top_workers"`
	TransactionCount int             `json:"transaction_count"`
	ProductCount     int             `json:"product_count"`
	WorkerCount      int             `json:"worker_count"`
}

// ResolveRange fills defaults and validates a requested range. An empty range
// covers the last DefaultRangeDays days ending today.
func ResolveRange(r Range, today time.Time) (Range, error) {
	if r.To == "" {
		r.To = today.Format(shared.DateLayout)
	}
	to, err := time.Parse(shared.DateLayout, r.To)
	if err != nil {
		return Range{}, shared.NewValidationError("to", "must be a date in YYYY-MM-DD format")
	}
	if r.From == "" {
		r.From = to.AddDate(0, 0, -(DefaultRangeDays - 1)).Format(shared.DateLayout)
	}
	from, err := time.Parse(shared.DateLayout, r.From)
	if err != nil {
		return Range{}, shared.NewValidationError("from", "must be a date in YYYY-MM-DD format")
	}
	if from.After(to) {
		return Range{}, shared.NewValidationError("from", "must not be after to")
	}
	if to.Sub(from) >= MaxRangeDays*24*time.Hour {
		return Range{}, shared.NewValidationError("from", "range must not exceed 366 days")
	}
	return r, nil
}

// BuildSummary computes the dashboard from already scoped data. txs must be
// within r; products are expected in ascending stock order.
func BuildSummary(r Range, txs []ledger.Transaction, products []inventory.Product, workers []workforce.Worker) Summary {
	s := Summary{
		Range:            r,
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		IncomeTrend:      []DayPoint{},
		ExpenseBreakdown: []CategoryTotal{},
		LowestStock:      []ProductStock{},
		TopWorkers:       []WorkerPaid{},
		TransactionCount: len(txs),
		ProductCount:     len(products),
		WorkerCount:      len(workers),
	}

	dailyIncome := map[string]decimal.Decimal{}
	byCategory := map[string]decimal.Decimal{}
	paid := map[string]decimal.Decimal{}
	for _, t := range txs {
		switch t.Type {
		case ledger.TypeIncome:
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
			dailyIncome[t.Date] = dailyIncome[t.Date].Add(t.Amount)
		case ledger.TypeExpense:
			s.TotalExpenses = s.TotalExpenses.Add(t.Amount)
			category := t.Category
			if category == "" {
				category = ledger.CategoryOther
			}
			byCategory[category] = byCategory[category].Add(t.Amount)
			if t.WorkerID != nil {
				paid[*t.WorkerID] = paid[*t.WorkerID].Add(t.Amount)
			}
		}
	}
	s.NetProfit = s.TotalIncome.Sub(s.TotalExpenses)

	from, errFrom := time.Parse(shared.DateLayout, r.From)
	to, errTo := time.Parse(shared.DateLayout, r.To)
	if errFrom == nil && errTo == nil {
		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			key := day.Format(shared.DateLayout)
			income, ok := dailyIncome[key]
			if !ok {
				income = decimal.Zero
			}
			s.IncomeTrend = append(s.IncomeTrend, DayPoint{Date: key, Label: day.Format("02 Jan"), Income: income})
		}
	}

	for category, total := range byCategory {
		if total.IsPositive() {
			s.ExpenseBreakdown = append(s.ExpenseBreakdown, CategoryTotal{Category: category, Total: total})
		}
	}
	sort.Slice(s.ExpenseBreakdown, func(i, j int) bool {
		if c := s.ExpenseBreakdown[i].Total.Cmp(s.ExpenseBreakdown[j].Total); c != 0 {
			return c > 0
		}
		return s.ExpenseBreakdown[i].Category < s.ExpenseBreakdown[j].Category
	})

	for i, p := range products {
		if i == topN {
			break
		}
		s.LowestStock = append(s.LowestStock, ProductStock{ID: p.ID, Name: p.Name, Stock: p.Stock, Status: inventory.StatusFor(p.Stock, p.MinStockLevel)})
	}

	for _, w := range workers {
		if total := paid[w.ID]; total.IsPositive() {
			s.TopWorkers = append(s.TopWorkers, WorkerPaid{ID: w.ID, Name: w.Name, Paid: total})
		}
	}
	sort.SliceStable(s.TopWorkers, func(i, j int) bool {
		return s.TopWorkers[i].Paid.GreaterThan(s.TopWorkers[j].Paid)
	})
	if len(s.TopWorkers) > topN {
		s.TopWorkers = s.TopWorkers[:topN]
	}
	return s
}
