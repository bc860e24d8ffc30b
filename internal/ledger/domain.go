// Package ledger records income and expense transactions and keeps product
// stock in step with them.
package ledger

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lekka-app/lekka/internal/shared"
)

// Type is the direction of money.
type Type string

const (
	// TypeIncome is money received.
	TypeIncome Type = "income"
	// TypeExpense is money paid out.
	TypeExpense Type = "expense"
)

// Categories.
const (
	CategorySales     = "Sales"
	CategoryService   = "Service"
	CategoryInventory = "Inventory"
	CategorySalary    = "Salary"
	CategoryRent      = "Rent"
	CategoryUtilities = "Utilities"
	CategoryMarketing = "Marketing"
	CategoryOther     = "Other"
)

var (
	incomeCategories  = []string{CategorySales, CategoryService, CategoryOther}
	expenseCategories = []string{CategoryInventory, CategorySalary, CategoryRent, CategoryUtilities, CategoryMarketing, CategoryOther}
)

// CategoriesFor returns the allowed categories for t.
func CategoriesFor(t Type) []string {
	switch t {
	case TypeIncome:
		return slices.Clone(incomeCategories)
	case TypeExpense:
		return slices.Clone(expenseCategories)
	default:
		return nil
	}
}

// IsStockTracked reports whether a category may carry a product and quantity.
func IsStockTracked(category string) bool {
	return category == CategoryInventory || category == CategorySales
}

// StockDelta is the signed change a transaction applies to its product:
// buying goods adds stock, selling removes it.
func StockDelta(t Type, quantity int) int {
	if t == TypeExpense {
		return quantity
	}
	return -quantity
}

// Payment methods and statuses.
const (
	PaymentCash  = "Cash"
	PaymentUPI   = "UPI"
	PaymentOther = "Other"

	StatusPaid    = "Paid"
	StatusPending = "Pending"
)

// Transaction is one ledger entry.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Type          Type            `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Date          string          `json:"date"`
	ProductID     *string         `json:"product_id"`
	WorkerID      *string         `json:"worker_id"`
	Quantity      *int            `json:"quantity"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
	ProductName   string          `json:"product_name,omitempty"`
	WorkerName    string          `json:"worker_name,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockEffect returns the product and signed delta this transaction applies
// when recorded. ok is false when it carries no stock movement.
func (t Transaction) StockEffect() (productID string, delta int, ok bool) {
	if t.ProductID == nil || t.Quantity == nil {
		return "", 0, false
	}
	return *t.ProductID, StockDelta(t.Type, *t.Quantity), true
}

// Input is the create/update payload.
type Input struct {
	Type          Type             `json:"type" validate:"required,oneof=income expense"`
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
	Category      string           `json:"category" validate:"required,max=50"`
	Description   string           `json:"description" validate:"max=500"`
	Date          string           `json:"date" validate:"required,date"`
	ProductID     *string          `json:"product_id" validate:"omitempty,uuid"`
	WorkerID      *string          `json:"worker_id" validate:"omitempty,uuid"`
	Quantity      *int             `json:"quantity" validate:"omitempty,gt=0"`
	PaymentMethod string           `json:"payment_method" validate:"omitempty,oneof=Cash UPI Other"`
	PaymentStatus string           `json:"payment_status" validate:"omitempty,oneof=Paid Pending"`

	// IdempotencyKey comes from the Idempotency-Key header, never the body.
	IdempotencyKey string `json:"-"`
}

// Order values for Filter.
const (
	OrderDateDesc = "desc"
	OrderDateAsc  = "asc"

	defaultListLimit = 100
	MaxListLimit     = 5000
)

// Filter narrows transaction listings.
type Filter struct {
	Type          Type
	Category      string
	PaymentStatus string
	PaymentMethod string
	Search        string
	From          string
	To            string
	ProductID     string
	WorkerID      string
	WorkerOnly    bool
	Order         string
	Limit         int
}

// Validate normalises the filter in place.
func (f *Filter) Validate() error {
	switch f.Type {
	case "", TypeIncome, TypeExpense:
	default:
		return shared.NewValidationError("type", "must be one of: income, expense")
	}
	switch f.PaymentStatus {
	case "", StatusPaid, StatusPending:
	default:
		return shared.NewValidationError("payment_status", "must be one of: Paid, Pending")
	}
	switch f.PaymentMethod {
	case "", PaymentCash, PaymentUPI, PaymentOther:
	default:
		return shared.NewValidationError("payment_method", "must be one of: Cash, UPI, Other")
	}
	for _, d := range [][2]string{{"from", f.From}, {"to", f.To}} {
		if d[1] == "" {
			continue
		}
		if _, err := time.Parse(shared.DateLayout, d[1]); err != nil {
			return shared.NewValidationError(d[0], "must be a date in YYYY-MM-DD format")
		}
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return shared.NewValidationError("from", "must not be after to")
	}
	for _, ref := range [][2]string{{"product_id", f.ProductID}, {"worker_id", f.WorkerID}} {
		if ref[1] != "" && shared.ValidateID(ref[1]) != nil {
			return shared.NewValidationError(ref[0], "must be a valid id")
		}
	}
	switch f.Order {
	case "":
		f.Order = OrderDateDesc
	case OrderDateAsc, OrderDateDesc:
	default:
		return shared.NewValidationError("order", "must be one of: asc, desc")
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return nil
}

// Messages surfaced to the owner.
const (
	deleteReferencedMessage = "cannot delete transaction: other records depend on it"
)

// ErrTransactionNotFound indicates the transaction does not exist for the acting user.
var ErrTransactionNotFound = fmt.Errorf("transaction %w", shared.ErrNotFound)
