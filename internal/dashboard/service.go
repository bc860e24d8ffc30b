package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lekka-app/lekka/internal/inventory"
	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/shared"
	"github.com/lekka-app/lekka/internal/workforce"
)

// TransactionSource lists the acting user's transactions.
type TransactionSource interface {
	List(ctx context.Context, filter ledger.Filter) ([]ledger.Transaction, error)
}

// ProductSource lists the acting user's products.
type ProductSource interface {
	List(ctx context.Context, filter inventory.ListFilter) ([]inventory.Product, error)
}

// WorkerSource lists the acting user's workers.
type WorkerSource interface {
	List(ctx context.Context, search string) ([]workforce.Worker, error)
}

// Service builds dashboard summaries.
type Service struct {
	transactions TransactionSource
	products     ProductSource
	workers      WorkerSource
	cache        *Cache
	group        singleflight.Group
	now          func() time.Time
}

// NewService wires the data sources with a Cache helper. cache may be nil.
func NewService(transactions TransactionSource, products ProductSource, workers WorkerSource, cache *Cache) *Service {
	return &Service{
		transactions: transactions,
		products:     products,
		workers:      workers,
		cache:        cache,
		now:          time.Now,
	}
}

// Summary returns the dashboard for the requested range, served from cache
// when the owner's data has not changed since it was built.
func (s *Service) Summary(ctx context.Context, r Range) (Summary, error) {
	userID, err := shared.ActingUser(ctx)
	if err != nil {
		return Summary{}, err
	}
	r, err = ResolveRange(r, s.now())
	if err != nil {
		return Summary{}, err
	}
	key, err := s.cache.BuildKey(ctx, userID, "summary", r.From, r.To)
	if err != nil {
		// Redis being down must not take the dashboard with it.
		return s.build(ctx, r)
	}

	// The flight is shared, so one caller going away must not cancel it.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		var summary Summary
		err := s.cache.FetchJSON(flightCtx, key, &summary, func(ctx context.Context) (any, error) {
			return s.build(ctx, r)
		})
		return summary, err
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

// Transactions returns the range's transactions oldest first, for statements.
func (s *Service) Transactions(ctx context.Context, r Range) (Range, []ledger.Transaction, error) {
	r, err := ResolveRange(r, s.now())
	if err != nil {
		return Range{}, nil, err
	}
	list, err := s.transactions.List(ctx, ledger.Filter{From: r.From, To: r.To, Order: ledger.OrderDateAsc, Limit: ledger.MaxListLimit})
	return r, list, err
}

// Invalidate drops cached summaries for an owner.
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	return s.cache.Invalidate(ctx, userID)
}

func (s *Service) build(ctx context.Context, r Range) (Summary, error) {
	var (
		txs      []ledger.Transaction
		products []inventory.Product
		workers  []workforce.Worker
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.transactions.List(ctx, ledger.Filter{From: r.From, To: r.To, Order: ledger.OrderDateAsc, Limit: ledger.MaxListLimit})
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.products.List(ctx, inventory.ListFilter{OrderBy: inventory.OrderStockAsc})
		return err
	})
	g.Go(func() error {
		var err error
		workers, err = s.workers.List(ctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return BuildSummary(r, txs, products, workers), nil
}
