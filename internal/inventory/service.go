package inventory

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lekka-app/lekka/internal/platform/db"
	"github.com/lekka-app/lekka/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, userID, id string, in ProductInput) (Product, error)
	Get(ctx context.Context, userID, id string) (Product, error)
	List(ctx context.Context, userID string, filter ListFilter) ([]Product, error)
	Delete(ctx context.Context, userID, id string) error
	LowStock(ctx context.Context, userID string) ([]Product, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ChangeNotifier is told when an owner's data changed so derived views can be
// rebuilt.
type ChangeNotifier interface {
	Invalidate(ctx context.Context, userID string) error
}

// StockObserver receives signed stock deltas for metrics.
type StockObserver interface {
	ObserveStockAdjustment(source string, delta int)
}

// Service coordinates product operations.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	notifier ChangeNotifier
	observer StockObserver
	logger   *slog.Logger
}

// NewService builds Service. audit, notifier, observer and logger may be nil.
func NewService(repo RepositoryPort, audit AuditPort, notifier ChangeNotifier, observer StockObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, notifier: notifier, observer: observer, logger: logger}
}

// Create stores a new product. Initial stock is recorded alongside the live
// stock counter.
func (s *Service) Create(ctx context.Context, in ProductInput) (Product, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Product{}, err
	}
	in = normalise(in)
	if err := shared.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	p := Product{
		UserID:        userID,
		Name:          in.Name,
		SKU:           in.SKU,
		MinStockLevel: DefaultMinStockLevel,
		ImageURL:      in.ImageURL,
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
		p.InitialStock = *in.Stock
	}
	if in.MinStockLevel != nil {
		p.MinStockLevel = *in.MinStockLevel
	}
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return Product{}, persistence("insert product", err)
	}
	s.changed(ctx, userID)
	return created.withStatus(), nil
}

// Update edits descriptive fields. Stock is never written here.
func (s *Service) Update(ctx context.Context, id string, in ProductInput) (Product, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Product{}, err
	}
	if err := validateID(id); err != nil {
		return Product{}, err
	}
	in = normalise(in)
	if err := shared.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	updated, err := s.repo.Update(ctx, userID, id, in)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, persistence("update product", err)
	}
	s.changed(ctx, userID)
	return updated.withStatus(), nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Product{}, err
	}
	if err := validateID(id); err != nil {
		return Product{}, err
	}
	p, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, persistence("get product", err)
	}
	return p.withStatus(), nil
}

// List returns the acting user's products.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return nil, err
	}
	switch filter.Status {
	case "", StatusOutOfStock, StatusLowStock, StatusInStock:
	default:
		return nil, shared.NewValidationError("status", "must be one of: out_of_stock, low_stock, in_stock")
	}
	switch filter.OrderBy {
	case "":
		filter.OrderBy = OrderNewest
	case OrderNewest, OrderStockAsc, OrderNameAsc:
	default:
		return nil, shared.NewValidationError("order", "must be one of: newest, stock, name")
	}
	if filter.Limit <= 0 || filter.Limit > defaultPageSize {
		filter.Limit = defaultPageSize
	}
	filter.Search = strings.TrimSpace(filter.Search)
	products, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, persistence("list products", err)
	}
	return decorate(products), nil
}

// LowStock lists products at or below their threshold, lowest first.
func (s *Service) LowStock(ctx context.Context) ([]Product, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.LowStock(ctx, userID)
	if err != nil {
		return nil, persistence("list low stock", err)
	}
	return decorate(products), nil
}

// Delete removes a product. The store's foreign key from transactions decides
// whether removal is allowed; a violation leaves the product in place and is
// reported as a ReferentialError.
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
			return &shared.ReferentialError{Entity: "product", Message: DeleteReferencedMessage, Err: err}
		case errors.Is(err, shared.ErrNotFound):
			return ErrProductNotFound
		default:
			return persistence("delete product", err)
		}
	}
	s.changed(ctx, userID)
	return nil
}

// CorrectStock overwrites stock with a counted value under a row lock and
// writes an audit entry with the delta.
func (s *Service) CorrectStock(ctx context.Context, id string, in StockCorrection) (Product, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Product{}, err
	}
	if err := validateID(id); err != nil {
		return Product{}, err
	}
	if err := shared.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	var (
		result Product
		delta  int
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, userID, id)
		if err != nil {
			return err
		}
		delta = *in.Stock - p.Stock
		if err := tx.SetStock(ctx, userID, id, *in.Stock); err != nil {
			return err
		}
		p.Stock = *in.Stock
		result = p
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, persistence("correct stock", err)
	}
	if s.observer != nil {
		s.observer.ObserveStockAdjustment("manual", delta)
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  userID,
			Action:   "inventory:stock_correction",
			Entity:   "product",
			EntityID: id,
			Meta: map[string]any{
				"delta": delta,
				"stock": result.Stock,
				"note":  in.Note,
			},
		}); err != nil {
			s.logger.Warn("audit record failed", slog.String("action", "inventory:stock_correction"), slog.Any("error", err))
		}
	}
	s.changed(ctx, userID)
	return result.withStatus(), nil
}

func (s *Service) changed(ctx context.Context, userID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("cache invalidation failed", slog.Any("error", err))
	}
}

func normalise(in ProductInput) ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	return in
}

func decorate(products []Product) []Product {
	out := make([]Product, len(products))
	for i, p := range products {
		out[i] = p.withStatus()
	}
	return out
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
