package workforce

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/platform/db"
	"github.com/lekka-app/lekka/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Create(ctx context.Context, w Worker) (Worker, error)
	Update(ctx context.Context, w Worker) (Worker, error)
	Get(ctx context.Context, userID, id string) (Worker, error)
	List(ctx context.Context, userID, search string) ([]Worker, error)
	Delete(ctx context.Context, userID, id string) error
}

// LedgerPort is the slice of the ledger service used for payments and history.
type LedgerPort interface {
	Record(ctx context.Context, in ledger.Input) (ledger.Transaction, error)
	List(ctx context.Context, filter ledger.Filter) ([]ledger.Transaction, error)
}

// ChangeNotifier is told when an owner's data changed.
type ChangeNotifier interface {
	Invalidate(ctx context.Context, userID string) error
}

// Service coordinates worker operations.
type Service struct {
	repo     RepositoryPort
	ledger   LedgerPort
	notifier ChangeNotifier
}

// NewService builds Service. notifier may be nil.
func NewService(repo RepositoryPort, ledger LedgerPort, notifier ChangeNotifier) *Service {
	return &Service{repo: repo, ledger: ledger, notifier: notifier}
}

// Create stores a new worker.
func (s *Service) Create(ctx context.Context, in WorkerInput) (Worker, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Worker{}, err
	}
	w, err := buildWorker(userID, in)
	if err != nil {
		return Worker{}, err
	}
	created, err := s.repo.Create(ctx, w)
	if err != nil {
		return Worker{}, persistence("insert worker", err)
	}
	s.changed(ctx, userID)
	return created, nil
}

// Update edits a worker.
func (s *Service) Update(ctx context.Context, id string, in WorkerInput) (Worker, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Worker{}, err
	}
	if err := validateID(id); err != nil {
		return Worker{}, err
	}
	w, err := buildWorker(userID, in)
	if err != nil {
		return Worker{}, err
	}
	w.ID = id
	updated, err := s.repo.Update(ctx, w)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Worker{}, ErrWorkerNotFound
		}
		return Worker{}, persistence("update worker", err)
	}
	s.changed(ctx, userID)
	return updated, nil
}

// Get returns one worker.
func (s *Service) Get(ctx context.Context, id string) (Worker, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Worker{}, err
	}
	if err := validateID(id); err != nil {
		return Worker{}, err
	}
	w, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Worker{}, ErrWorkerNotFound
		}
		return Worker{}, persistence("get worker", err)
	}
	return w, nil
}

// List returns workers whose name or role matches search.
func (s *Service) List(ctx context.Context, search string) ([]Worker, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return nil, err
	}
	workers, err := s.repo.List(ctx, userID, strings.TrimSpace(search))
	if err != nil {
		return nil, persistence("list workers", err)
	}
	return workers, nil
}

// Delete removes a worker. Salary transactions referencing the worker block
// removal through the store's foreign key.
func (s *Service) Delete(ctx context.Context, id string) error {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		switch {
		case db.IsForeignKeyViolation(err):
			return &shared.ReferentialError{Entity: "worker", Message: DeleteReferencedMessage, Err: err}
		case errors.Is(err, shared.ErrNotFound):
			return ErrWorkerNotFound
		default:
			return persistence("delete worker", err)
		}
	}
	s.changed(ctx, userID)
	return nil
}

// Pay records an expense/Salary transaction for the worker through the ledger.
func (s *Service) Pay(ctx context.Context, id string, in PayInput) (ledger.Transaction, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := shared.ValidateStruct(in); err != nil {
		return ledger.Transaction{}, err
	}
	workerID := w.ID
	return s.ledger.Record(ctx, ledger.Input{
		Type:          ledger.TypeExpense,
		Amount:        in.Amount,
		Category:      ledger.CategorySalary,
		Description:   PaymentDescription(w.Name),
		Date:          in.Date,
		WorkerID:      &workerID,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: in.PaymentStatus,
	})
}

// History returns the worker's transactions, newest first.
func (s *Service) History(ctx context.Context, id string) ([]ledger.Transaction, error) {
	w, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ledger.List(ctx, ledger.Filter{WorkerID: w.ID, Limit: ledger.MaxListLimit})
}

// Stats totals expense payments per worker between from and to (inclusive,
// either may be empty). Every worker is listed, highest paid first.
func (s *Service) Stats(ctx context.Context, from, to string) ([]Stats, error) {
	workers, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	payments, err := s.ledger.List(ctx, ledger.Filter{
		Type:       ledger.TypeExpense,
		WorkerOnly: true,
		From:       from,
		To:         to,
		Limit:      ledger.MaxListLimit,
	})
	if err != nil {
		return nil, err
	}
	return aggregate(workers, payments), nil
}

func aggregate(workers []Worker, payments []ledger.Transaction) []Stats {
	byID := make(map[string]*Stats, len(workers))
	out := make([]Stats, len(workers))
	for i, w := range workers {
		out[i] = Stats{WorkerID: w.ID, Name: w.Name, Role: w.Role, TotalPaid: decimal.Zero}
		byID[w.ID] = &out[i]
	}
	for _, t := range payments {
		if t.WorkerID == nil || t.Type != ledger.TypeExpense {
			continue
		}
		st, ok := byID[*t.WorkerID]
		if !ok {
			continue
		}
		st.TotalPaid = st.TotalPaid.Add(t.Amount)
		st.Payments++
		if t.Date > st.LastPaid {
			st.LastPaid = t.Date
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].TotalPaid.Cmp(out[j].TotalPaid); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func buildWorker(userID string, in WorkerInput) (Worker, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	in.Phone = strings.TrimSpace(in.Phone)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := shared.ValidateStruct(in); err != nil {
		return Worker{}, err
	}
	salary := decimal.Zero
	if in.Salary != nil {
		if in.Salary.IsNegative() {
			return Worker{}, shared.NewValidationError("salary", "must not be negative")
		}
		salary = in.Salary.Round(2)
	}
	return Worker{
		UserID:   userID,
		Name:     in.Name,
		Role:     in.Role,
		Phone:    in.Phone,
		Salary:   salary,
		ImageURL: in.ImageURL,
	}, nil
}

func (s *Service) changed(ctx context.Context, userID string) {
	if s.notifier != nil {
		_ = s.notifier.Invalidate(ctx, userID)
	}
}

func validateID(id string) error {
	if err := shared.ValidateID(id); err != nil {
		return shared.NewValidationError("id", "must be a valid id")
	}
	return nil
}

func persistence(op string, err error) error {
	return &shared.PersistenceError{Op: op, Message: db.Message(err), Err: err}
}
