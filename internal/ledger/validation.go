package ledger

import (
	"slices"
	"strings"

	"github.com/lekka-app/lekka/internal/shared"
)

// normalise trims input and drops references the category cannot carry:
// product and quantity only for Inventory/Sales, worker only for Salary.
func normalise(in Input) Input {
	in.Type = Type(strings.ToLower(strings.TrimSpace(string(in.Type))))
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.Date = strings.TrimSpace(in.Date)
	in.ProductID = trimRef(in.ProductID)
	in.WorkerID = trimRef(in.WorkerID)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)

	if !IsStockTracked(in.Category) {
		in.ProductID = nil
		in.Quantity = nil
	}
	if in.Category != CategorySalary {
		in.WorkerID = nil
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = PaymentCash
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = StatusPaid
	}
	return in
}

// validate applies struct rules then the category rules.
func validate(in Input) error {
	if err := shared.ValidateStruct(in); err != nil {
		return err
	}
	if !in.Amount.IsPositive() {
		return shared.NewValidationError("amount", "must be greater than 0")
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return shared.NewValidationError("amount", "must have at most two decimal places")
	}
	if !slices.Contains(CategoriesFor(in.Type), in.Category) {
		return shared.NewValidationError("category", "must be one of: "+strings.Join(CategoriesFor(in.Type), ", "))
	}
	if in.Category == CategorySalary && in.WorkerID == nil {
		return shared.NewValidationError("worker_id", "is required for Salary transactions")
	}
	if (in.ProductID == nil) != (in.Quantity == nil) {
		if in.ProductID == nil {
			return shared.NewValidationError("product_id", "is required when quantity is given")
		}
		return shared.NewValidationError("quantity", "is required when a product is given")
	}
	return nil
}

func trimRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	v := strings.TrimSpace(*ref)
	if v == "" {
		return nil
	}
	return &v
}
