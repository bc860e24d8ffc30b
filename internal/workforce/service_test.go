package workforce

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/shared"
)

const ownerID = "5d2c8a0e-1f3b-4c6d-8e9f-0a1b2c3d4e5f"

type memoryRepo struct {
	mu         sync.Mutex
	workers    map[string]Worker
	referenced map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{workers: make(map[string]Worker), referenced: make(map[string]bool)}
}

func (r *memoryRepo) Create(ctx context.Context, w Worker) (Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w.ID = uuid.NewString()
	w.CreatedAt = time.Now()
	r.workers[w.ID] = w
	return w, nil
}

func (r *memoryRepo) Update(ctx context.Context, w Worker) (Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.workers[w.ID]
	if !ok || prev.UserID != w.UserID {
		return Worker{}, shared.ErrNotFound
	}
	w.CreatedAt = prev.CreatedAt
	r.workers[w.ID] = w
	return w, nil
}

func (r *memoryRepo) Get(ctx context.Context, userID, id string) (Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[id]
	if !ok || w.UserID != userID {
		return Worker{}, shared.ErrNotFound
	}
	return w, nil
}

func (r *memoryRepo) List(ctx context.Context, userID, search string) ([]Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Worker
	for _, w := range r.workers {
		if w.UserID != userID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(w.Name+" "+w.Role), strings.ToLower(search)) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepo) Delete(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[id]
	if !ok || w.UserID != userID {
		return shared.ErrNotFound
	}
	if r.referenced[id] {
		return &pgconn.PgError{Code: "23503", ConstraintName: "transactions_worker_id_fkey"}
	}
	delete(r.workers, id)
	return nil
}

type fakeLedger struct {
	recorded []ledger.Input
	list     []ledger.Transaction
	filters  []ledger.Filter
}

func (f *fakeLedger) Record(ctx context.Context, in ledger.Input) (ledger.Transaction, error) {
	f.recorded = append(f.recorded, in)
	return ledger.Transaction{
		ID:          uuid.NewString(),
		Type:        in.Type,
		Amount:      *in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
		WorkerID:    in.WorkerID,
	}, nil
}

func (f *fakeLedger) List(ctx context.Context, filter ledger.Filter) ([]ledger.Transaction, error) {
	f.filters = append(f.filters, filter)
	var out []ledger.Transaction
	for _, t := range f.list {
		if filter.WorkerID != "" && (t.WorkerID == nil || *t.WorkerID != filter.WorkerID) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func ownerCtx() context.Context {
	return shared.ContextWithActingUser(context.Background(), ownerID)
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func TestCreateAndUpdateWorker(t *testing.T) {
	svc := NewService(newMemoryRepo(), &fakeLedger{}, nil)

	w, err := svc.Create(ownerCtx(), WorkerInput{Name: "  Ravi ", Role: "Helper", Salary: dec("12000")})
	require.NoError(t, err)
	require.Equal(t, "Ravi", w.Name)
	require.Equal(t, ownerID, w.UserID)
	require.True(t, decimal.NewFromInt(12000).Equal(w.Salary))

	w, err = svc.Update(ownerCtx(), w.ID, WorkerInput{Name: "Ravi Kumar", Phone: "9876543210"})
	require.NoError(t, err)
	require.Equal(t, "Ravi Kumar", w.Name)
	require.True(t, w.Salary.IsZero())

	_, err = svc.Create(ownerCtx(), WorkerInput{Name: "Anil", Salary: dec("-1")})
	var vErr *shared.ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "salary", vErr.Field)

	_, err = svc.Create(ownerCtx(), WorkerInput{Name: " "})
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "name", vErr.Field)

	_, err = svc.Update(ownerCtx(), uuid.NewString(), WorkerInput{Name: "Ghost"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestWorkersAreScopedToOwner(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &fakeLedger{}, nil)
	w, err := svc.Create(ownerCtx(), WorkerInput{Name: "Ravi"})
	require.NoError(t, err)

	other := shared.ContextWithActingUser(context.Background(), uuid.NewString())
	_, err = svc.Get(other, w.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	list, err := svc.List(other, "")
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = svc.List(context.Background(), "")
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestDeleteWorkerWithTransactions(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &fakeLedger{}, nil)
	w, err := svc.Create(ownerCtx(), WorkerInput{Name: "Ravi"})
	require.NoError(t, err)

	repo.referenced[w.ID] = true
	err = svc.Delete(ownerCtx(), w.ID)
	require.True(t, shared.IsReferential(err))
	require.Equal(t, DeleteReferencedMessage, shared.UserSafeMessage(err))
	_, err = svc.Get(ownerCtx(), w.ID)
	require.NoError(t, err)

	repo.referenced[w.ID] = false
	require.NoError(t, svc.Delete(ownerCtx(), w.ID))
	require.ErrorIs(t, svc.Delete(ownerCtx(), w.ID), shared.ErrNotFound)
}

func TestPayRecordsSalaryExpense(t *testing.T) {
	led := &fakeLedger{}
	svc := NewService(newMemoryRepo(), led, nil)
	w, err := svc.Create(ownerCtx(), WorkerInput{Name: "Ravi"})
	require.NoError(t, err)

	tr, err := svc.Pay(ownerCtx(), w.ID, PayInput{Amount: dec("5000"), Date: "2024-06-30"})
	require.NoError(t, err)
	require.Equal(t, "Salary Payment to Ravi", tr.Description)
	require.Len(t, led.recorded, 1)
	in := led.recorded[0]
	require.Equal(t, ledger.TypeExpense, in.Type)
	require.Equal(t, ledger.CategorySalary, in.Category)
	require.Equal(t, w.ID, *in.WorkerID)

	_, err = svc.Pay(ownerCtx(), w.ID, PayInput{Amount: dec("5000")})
	require.True(t, shared.IsValidation(err))
	_, err = svc.Pay(ownerCtx(), uuid.NewString(), PayInput{Amount: dec("5000"), Date: "2024-06-30"})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Len(t, led.recorded, 1)
}

func TestStatsAndHistory(t *testing.T) {
	repo := newMemoryRepo()
	led := &fakeLedger{}
	svc := NewService(repo, led, nil)
	ravi, err := svc.Create(ownerCtx(), WorkerInput{Name: "Ravi"})
	require.NoError(t, err)
	anil, err := svc.Create(ownerCtx(), WorkerInput{Name: "Anil"})
	require.NoError(t, err)

	pay := func(id, amount, date string) ledger.Transaction {
		return ledger.Transaction{ID: uuid.NewString(), Type: ledger.TypeExpense, Category: ledger.CategorySalary,
			Amount: *dec(amount), Date: date, WorkerID: &id}
	}
	led.list = []ledger.Transaction{
		pay(ravi.ID, "3000", "2024-06-01"),
		pay(ravi.ID, "2500.50", "2024-06-15"),
		pay(uuid.NewString(), "999", "2024-06-02"),
	}

	stats, err := svc.Stats(ownerCtx(), "2024-06-01", "2024-06-30")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	require.Equal(t, ravi.ID, stats[0].WorkerID)
	require.Equal(t, "5500.5", stats[0].TotalPaid.String())
	require.Equal(t, 2, stats[0].Payments)
	require.Equal(t, "2024-06-15", stats[0].LastPaid)
	require.Equal(t, anil.ID, stats[1].WorkerID)
	require.True(t, stats[1].TotalPaid.IsZero())

	filter := led.filters[0]
	require.Equal(t, ledger.TypeExpense, filter.Type)
	require.True(t, filter.WorkerOnly)
	require.Equal(t, "2024-06-01", filter.From)

	history, err := svc.History(ownerCtx(), ravi.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
}
