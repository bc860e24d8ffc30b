package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lekka-app/lekka/internal/shared"
)

type memoryProduct struct {
	owner string
	name  string
	stock int
}

type memoryRepo struct {
	mu         sync.Mutex
	txs        map[string]Transaction
	products   map[string]memoryProduct
	workers    map[string]string
	dependents map[string]bool

	failSetStock error
	withTxCalls  int
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		txs:        make(map[string]Transaction),
		products:   make(map[string]memoryProduct),
		workers:    make(map[string]string),
		dependents: make(map[string]bool),
	}
}

func (r *memoryRepo) addProduct(owner, name string, stock int) string {
	id := uuid.NewString()
	r.products[id] = memoryProduct{owner: owner, name: name, stock: stock}
	return id
}

func (r *memoryRepo) addWorker(owner string) string {
	id := uuid.NewString()
	r.workers[id] = owner
	return id
}

func (r *memoryRepo) stock(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id].stock
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs)
}

// WithTx serialises callers, which stands in for the row lock taken by the
// PostgreSQL repository, and restores state when fn fails.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withTxCalls++
	txs := make(map[string]Transaction, len(r.txs))
	for k, v := range r.txs {
		txs[k] = v
	}
	products := make(map[string]memoryProduct, len(r.products))
	for k, v := range r.products {
		products[k] = v
	}
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.txs = txs
		r.products = products
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, userID, id string) (Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.txs[id]
	if !ok || t.UserID != userID {
		return Transaction{}, shared.ErrNotFound
	}
	return t, nil
}

func (r *memoryRepo) List(ctx context.Context, userID string, filter Filter) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Transaction
	for _, t := range r.txs {
		if t.UserID != userID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.From != "" && t.Date < filter.From {
			continue
		}
		if filter.To != "" && t.Date > filter.To {
			continue
		}
		if filter.WorkerOnly && t.WorkerID == nil {
			continue
		}
		if filter.WorkerID != "" && (t.WorkerID == nil || *t.WorkerID != filter.WorkerID) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.Description+" "+t.Category), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Order == OrderDateAsc {
			return out[i].Date < out[j].Date
		}
		return out[i].Date > out[j].Date
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (tx *memoryTx) Insert(ctx context.Context, t Transaction) (Transaction, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	if t.ProductID != nil {
		t.ProductName = tx.repo.products[*t.ProductID].name
	}
	tx.repo.txs[t.ID] = t
	return t, nil
}

func (tx *memoryTx) Update(ctx context.Context, t Transaction) (Transaction, error) {
	prev, ok := tx.repo.txs[t.ID]
	if !ok || prev.UserID != t.UserID {
		return Transaction{}, shared.ErrNotFound
	}
	t.CreatedAt = prev.CreatedAt
	tx.repo.txs[t.ID] = t
	return t, nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, userID, id string) (Transaction, error) {
	t, ok := tx.repo.txs[id]
	if !ok || t.UserID != userID {
		return Transaction{}, shared.ErrNotFound
	}
	return t, nil
}

func (tx *memoryTx) Delete(ctx context.Context, userID, id string) error {
	t, ok := tx.repo.txs[id]
	if !ok || t.UserID != userID {
		return shared.ErrNotFound
	}
	if tx.repo.dependents[id] {
		return &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
	}
	delete(tx.repo.txs, id)
	return nil
}

func (tx *memoryTx) LockProductStock(ctx context.Context, userID, productID string) (int, error) {
	p, ok := tx.repo.products[productID]
	if !ok || p.owner != userID {
		return 0, shared.ErrNotFound
	}
	return p.stock, nil
}

func (tx *memoryTx) SetProductStock(ctx context.Context, userID, productID string, stock int) error {
	if tx.repo.failSetStock != nil {
		return tx.repo.failSetStock
	}
	p, ok := tx.repo.products[productID]
	if !ok || p.owner != userID {
		return shared.ErrNotFound
	}
	p.stock = stock
	tx.repo.products[productID] = p
	return nil
}

func (tx *memoryTx) ProductExists(ctx context.Context, userID, productID string) (bool, error) {
	p, ok := tx.repo.products[productID]
	return ok && p.owner == userID, nil
}

func (tx *memoryTx) WorkerExists(ctx context.Context, userID, workerID string) (bool, error) {
	owner, ok := tx.repo.workers[workerID]
	return ok && owner == userID, nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]bool)}
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key == "" || module == "" {
		return errors.New("key and module required")
	}
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

type recordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

type recordingObserver struct {
	mu     sync.Mutex
	deltas []int
}

func (o *recordingObserver) ObserveStockAdjustment(source string, delta int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deltas = append(o.deltas, delta)
}

type countingNotifier struct {
	mu    sync.Mutex
	users []string
}

func (n *countingNotifier) Invalidate(ctx context.Context, userID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
	return nil
}
