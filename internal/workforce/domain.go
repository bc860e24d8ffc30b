// Package workforce manages an owner's workers and their salary payments.
package workforce

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lekka-app/lekka/internal/shared"
)

// Worker is a member of staff. Salary is the agreed monthly amount, zero when
// not set.
type Worker struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Role      string          `json:"role,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Salary    decimal.Decimal `json:"salary"`
	ImageURL  string          `json:"image_url,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// WorkerInput is the create/update payload.
type WorkerInput struct {
	Name     string           `json:"name" validate:"required,max=120"`
	Role     string           `json:"role" validate:"max=80"`
	Phone    string           `json:"phone" validate:"max=20"`
	Salary   *decimal.Decimal `json:"salary"`
	ImageURL string           `json:"image_url" validate:"omitempty,url,max=2048"`
}

// PayInput records a salary payment.
type PayInput struct {
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
	Date          string           `json:"date" validate:"required,date"`
	PaymentMethod string           `json:"payment_method" validate:"omitempty,oneof=Cash UPI Other"`
	PaymentStatus string           `json:"payment_status" validate:"omitempty,oneof=Paid Pending"`
}

// Stats summarises what a worker was paid in a period.
type Stats struct {
	WorkerID  string          `json:"worker_id"`
	Name      string          `json:"name"`
	Role      string          `json:"role,omitempty"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	Payments  int             `json:"payments"`
	LastPaid  string          `json:"last_paid,omitempty"`
}

// DeleteReferencedMessage is shown when transactions still reference a worker.
const DeleteReferencedMessage = "cannot delete worker: worker has associated transactions"

// ErrWorkerNotFound indicates the worker does not exist for the acting user.
var ErrWorkerNotFound = fmt.Errorf("worker %w", shared.ErrNotFound)

// PaymentDescription is the ledger description of a salary payment.
func PaymentDescription(name string) string {
	return "Salary Payment to " + name
}
