package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lekka-app/lekka/internal/platform/db"
	"github.com/lekka-app/lekka/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, userID, id string) (Transaction, error)
	List(ctx context.Context, userID string, filter Filter) ([]Transaction, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against a form being submitted twice.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// ChangeNotifier is told when an owner's data changed.
type ChangeNotifier interface {
	Invalidate(ctx context.Context, userID string) error
}

// StockObserver receives signed stock deltas for metrics.
type StockObserver interface {
	ObserveStockAdjustment(source string, delta int)
}

// Config selects the consistency behaviour of stock adjustments.
type Config struct {
	// AtomicStock writes the transaction and the stock change in one store
	// transaction. When false they are two writes and a failure in the second
	// leaves the transaction persisted.
	AtomicStock bool
	// ReadjustOnEdit reverses the old stock effect and applies the new one when
	// a transaction is edited. Off by default: edits never touch stock.
	ReadjustOnEdit bool
}

// Deps groups optional collaborators.
type Deps struct {
	Audit       AuditPort
	Idempotency IdempotencyPort
	Notifier    ChangeNotifier
	Observer    StockObserver
	Logger      *slog.Logger
}

// Service records, edits and deletes transactions.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	notifier    ChangeNotifier
	observer    StockObserver
	logger      *slog.Logger
	cfg         Config
}

// NewService builds Service.
func NewService(repo RepositoryPort, cfg Config, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		audit:       deps.Audit,
		idempotency: deps.Idempotency,
		notifier:    deps.Notifier,
		observer:    deps.Observer,
		logger:      logger,
		cfg:         cfg,
	}
}

const idempotencyModule = "ledger"

// Record persists a new transaction and, when it carries a product and a
// quantity, adjusts that product's stock: expense adds, income subtracts. The
// stock change is a locked read-modify-write on the product row; no floor is
// applied so stock may go negative.
func (s *Service) Record(ctx context.Context, in Input) (Transaction, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Transaction{}, err
	}
	in = normalise(in)
	if err := validate(in); err != nil {
		return Transaction{}, err
	}

	key := ""
	if in.IdempotencyKey != "" && s.idempotency != nil {
		key = userID + ":" + in.IdempotencyKey
		if err := s.idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Transaction{}, err
			}
			return Transaction{}, persistence("claim idempotency key", err)
		}
	}
	release := func() {
		if key != "" {
			_ = s.idempotency.Delete(ctx, key)
		}
	}

	draft := fromInput(userID, in)
	productID, delta, adjusts := draft.StockEffect()

	var created Transaction
	if s.cfg.AtomicStock || !adjusts {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := checkWorker(ctx, tx, userID, draft.WorkerID); err != nil {
				return err
			}
			var stock int
			if adjusts {
				if stock, err = lockProduct(ctx, tx, userID, productID); err != nil {
					return err
				}
			}
			if created, err = tx.Insert(ctx, draft); err != nil {
				return classifyWrite("insert transaction", err)
			}
			if adjusts {
				if err := tx.SetProductStock(ctx, userID, productID, stock+delta); err != nil {
					return persistence("adjust stock", err)
				}
			}
			return nil
		})
		if err != nil {
			release()
			return Transaction{}, settle("record transaction", err)
		}
	} else {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := checkWorker(ctx, tx, userID, draft.WorkerID); err != nil {
				return err
			}
			if _, err := lockProduct(ctx, tx, userID, productID); err != nil {
				return err
			}
			created, err = tx.Insert(ctx, draft)
			if err != nil {
				return classifyWrite("insert transaction", err)
			}
			return nil
		})
		if err != nil {
			release()
			return Transaction{}, settle("record transaction", err)
		}
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			stock, err := tx.LockProductStock(ctx, userID, productID)
			if err != nil {
				return err
			}
			return tx.SetProductStock(ctx, userID, productID, stock+delta)
		})
		if err != nil {
			s.logger.Error("stock adjustment failed after transaction was saved",
				slog.String("transaction_id", created.ID),
				slog.String("product_id", productID),
				slog.Int("delta", delta),
				slog.Any("error", err))
			s.changed(ctx, userID)
			return Transaction{}, &shared.PersistenceError{
				Op:      "adjust stock",
				Message: fmt.Sprintf("transaction %s was saved but stock was not updated: %s", created.ID, db.Message(err)),
				Err:     err,
			}
		}
	}

	if adjusts && s.observer != nil {
		s.observer.ObserveStockAdjustment("record", delta)
	}
	s.recordAudit(ctx, userID, "ledger:create", created.ID, map[string]any{
		"type":       created.Type,
		"amount":     created.Amount.String(),
		"category":   created.Category,
		"product_id": productID,
		"delta":      delta,
	})
	s.changed(ctx, userID)
	return created, nil
}

// Update edits an existing transaction. Stock is left alone unless
// ReadjustOnEdit is configured.
func (s *Service) Update(ctx context.Context, id string, in Input) (Transaction, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Transaction{}, err
	}
	if shared.ValidateID(id) != nil {
		return Transaction{}, shared.NewValidationError("id", "must be a valid id")
	}
	in = normalise(in)
	if err := validate(in); err != nil {
		return Transaction{}, err
	}

	draft := fromInput(userID, in)
	draft.ID = id
	var (
		updated Transaction
		deltas  map[string]int
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		previous, err := tx.GetForUpdate(ctx, userID, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ErrTransactionNotFound
			}
			return persistence("load transaction", err)
		}
		if err := checkWorker(ctx, tx, userID, draft.WorkerID); err != nil {
			return err
		}

		stocks := map[string]int{}
		if s.cfg.ReadjustOnEdit {
			deltas = netDeltas(previous, draft)
			for _, pid := range sortedKeys(deltas) {
				stock, err := lockProduct(ctx, tx, userID, pid)
				if err != nil {
					if pid != ptrValue(draft.ProductID) && shared.IsValidation(err) {
						// The old product is gone; nothing left to reverse.
						delete(deltas, pid)
						continue
					}
					return err
				}
				stocks[pid] = stock
			}
		} else if draft.ProductID != nil {
			if err := productExists(ctx, tx, userID, *draft.ProductID); err != nil {
				return err
			}
		}

		if updated, err = tx.Update(ctx, draft); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return ErrTransactionNotFound
			}
			return classifyWrite("update transaction", err)
		}
		for pid, delta := range deltas {
			if err := tx.SetProductStock(ctx, userID, pid, stocks[pid]+delta); err != nil {
				return persistence("adjust stock", err)
			}
		}
		return nil
	})
	if err != nil {
		return Transaction{}, settle("update transaction", err)
	}
	if s.observer != nil {
		for _, delta := range deltas {
			s.observer.ObserveStockAdjustment("edit", delta)
		}
	}
	s.recordAudit(ctx, userID, "ledger:update", id, map[string]any{
		"amount":   updated.Amount.String(),
		"category": updated.Category,
		"readjust": s.cfg.ReadjustOnEdit,
	})
	s.changed(ctx, userID)
	return updated, nil
}

// Delete removes a transaction. Stock is never reversed.
func (s *Service) Delete(ctx context.Context, id string) error {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return err
	}
	if shared.ValidateID(id) != nil {
		return shared.NewValidationError("id", "must be a valid id")
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Delete(ctx, userID, id)
	})
	if err != nil {
		switch {
		case db.IsForeignKeyViolation(err):
			return &shared.ReferentialError{Entity: "transaction", Message: deleteReferencedMessage, Err: err}
		case errors.Is(err, shared.ErrNotFound):
			return ErrTransactionNotFound
		default:
			return persistence("delete transaction", err)
		}
	}
	s.recordAudit(ctx, userID, "ledger:delete", id, nil)
	s.changed(ctx, userID)
	return nil
}

// Get returns one transaction.
func (s *Service) Get(ctx context.Context, id string) (Transaction, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Transaction{}, err
	}
	if shared.ValidateID(id) != nil {
		return Transaction{}, shared.NewValidationError("id", "must be a valid id")
	}
	t, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, persistence("get transaction", err)
	}
	return t, nil
}

// List returns the acting user's transactions matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Transaction, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return nil, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	list, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, persistence("list transactions", err)
	}
	return list, nil
}

func (s *Service) recordAudit(ctx context.Context, userID, action, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  userID,
		Action:   action,
		Entity:   "transaction",
		EntityID: id,
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) changed(ctx context.Context, userID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("cache invalidation failed", slog.Any("error", err))
	}
}

func fromInput(userID string, in Input) Transaction {
	return Transaction{
		UserID:        userID,
		Type:          in.Type,
		Amount:        in.Amount.Round(2),
		Category:      in.Category,
		Description:   in.Description,
		Date:          in.Date,
		ProductID:     in.ProductID,
		WorkerID:      in.WorkerID,
		Quantity:      in.Quantity,
		PaymentMethod: in.PaymentMethod,
		PaymentStatus: in.PaymentStatus,
	}
}

// lockProduct locks the product row and returns its stock. A product that does
// not exist for the owner is a validation failure on product_id.
func lockProduct(ctx context.Context, tx TxRepository, userID, productID string) (int, error) {
	stock, err := tx.LockProductStock(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, shared.NewValidationError("product_id", "unknown product")
		}
		return 0, persistence("lock product", err)
	}
	return stock, nil
}

func productExists(ctx context.Context, tx TxRepository, userID, productID string) error {
	ok, err := tx.ProductExists(ctx, userID, productID)
	if err != nil {
		return persistence("check product", err)
	}
	if !ok {
		return shared.NewValidationError("product_id", "unknown product")
	}
	return nil
}

func checkWorker(ctx context.Context, tx TxRepository, userID string, workerID *string) error {
	if workerID == nil {
		return nil
	}
	ok, err := tx.WorkerExists(ctx, userID, *workerID)
	if err != nil {
		return persistence("check worker", err)
	}
	if !ok {
		return shared.NewValidationError("worker_id", "unknown worker")
	}
	return nil
}

// netDeltas combines reversing the previous stock effect with applying the
// new one, per product. Zero entries are dropped.
func netDeltas(previous, next Transaction) map[string]int {
	deltas := map[string]int{}
	if pid, delta, ok := previous.StockEffect(); ok {
		deltas[pid] -= delta
	}
	if pid, delta, ok := next.StockEffect(); ok {
		deltas[pid] += delta
	}
	for pid, delta := range deltas {
		if delta == 0 {
			delete(deltas, pid)
		}
	}
	return deltas
}

// sortedKeys gives a stable lock order so concurrent edits cannot deadlock.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ptrValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// classifyWrite maps store failures on insert/update. A foreign key violation
// here means a referenced product or worker vanished.
func classifyWrite(op string, err error) error {
	if shared.IsValidation(err) {
		return err
	}
	if db.IsForeignKeyViolation(err) {
		field := "product_id"
		if strings.Contains(db.ConstraintName(err), "worker") {
			field = "worker_id"
		}
		return shared.NewValidationError(field, "references a record that no longer exists")
	}
	return persistence(op, err)
}

// settle passes classified errors through and wraps anything else, such as a
// failed commit, as a PersistenceError.
func settle(op string, err error) error {
	if shared.IsValidation(err) || shared.IsReferential(err) || errors.Is(err, shared.ErrNotFound) {
		return err
	}
	return persistence(op, err)
}

func persistence(op string, err error) error {
	var pErr *shared.PersistenceError
	if errors.As(err, &pErr) {
		return err
	}
	return &shared.PersistenceError{Op: op, Message: db.Message(err), Err: err}
}
