// Package console exposes the normalized operations data over HTTP: list
// views with payment tiers, the payment and transfer write paths, and the
// reconciliation export. It owns the response cache; every mutation
// invalidates the affected resource and re-fetches before the response is
// considered settled.
package console

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-ops/meridian/internal/canonical"
	"github.com/meridian-ops/meridian/internal/payment"
	"github.com/meridian-ops/meridian/internal/platform/cache"
	"github.com/meridian-ops/meridian/internal/reconcile"
	"github.com/meridian-ops/meridian/internal/transfer"
	"github.com/meridian-ops/meridian/internal/upstream"
)

// Cache resource names. Invalidation is by resource, regardless of query.
const (
	resourceOrders    = "purchase-orders"
	resourceInvoices  = "purchase-invoices"
	resourcePayrolls  = "payrolls"
	resourceSuppliers = "suppliers"
)

// Upstream is the slice of the backend client the service consumes.
type Upstream interface {
	ListPurchaseOrders(ctx context.Context, query url.Values) ([]canonical.PurchaseOrder, error)
	ListPurchaseInvoices(ctx context.Context, query url.Values) ([]canonical.PurchaseInvoice, error)
	GetPurchaseInvoice(ctx context.Context, id string) (canonical.PurchaseInvoice, error)
	ListPayrolls(ctx context.Context) ([]canonical.Payroll, error)
	ListSuppliers(ctx context.Context) ([]canonical.Supplier, error)
	StockAvailability(ctx context.Context, inventoryID string) (map[string]int64, error)
	SubmitStockTransfer(ctx context.Context, req upstream.StockTransferRequest) error
}

// Payer executes payments.
type Payer interface {
	PayInvoice(ctx context.Context, id string, amount decimal.Decimal) (payment.Receipt, error)
	PayPayroll(ctx context.Context, id string, amount decimal.Decimal) (payment.Receipt, error)
}

// Service orchestrates fetching, normalization, caching and mutations.
type Service struct {
	backend Upstream
	payer   Payer
	store   cache.Store
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(backend Upstream, payer Payer, store cache.Store, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, payer: payer, store: store, ttl: ttl, logger: logger}
}

// PurchaseOrders lists normalized purchase orders, served from cache when
// fresh. Concurrent identical fetches are collapsed.
func (s *Service) PurchaseOrders(ctx context.Context, query url.Values) ([]canonical.PurchaseOrder, error) {
	key := query.Encode()
	var cached []canonical.PurchaseOrder
	if hit, err := s.store.Get(ctx, resourceOrders, key, &cached); err == nil && hit {
		return cached, nil
	}
	v, err, _ := s.group.Do(resourceOrders+":"+key, func() (any, error) {
		orders, err := s.backend.ListPurchaseOrders(ctx, query)
		if err != nil {
			return nil, err
		}
		s.cacheSet(ctx, resourceOrders, key, orders)
		return orders, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]canonical.PurchaseOrder), nil
}

// InvoiceViews lists all invoices with derived tier and remaining balance.
func (s *Service) InvoiceViews(ctx context.Context) ([]reconcile.InvoiceView, error) {
	var cached []reconcile.InvoiceView
	if hit, err := s.store.Get(ctx, resourceInvoices, "", &cached); err == nil && hit {
		return cached, nil
	}
	v, err, _ := s.group.Do(resourceInvoices, func() (any, error) {
		return s.fetchInvoiceViews(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]reconcile.InvoiceView), nil
}

// InvoicesByTier filters the invoice views into one tab bucket. An empty
// tier returns everything.
func (s *Service) InvoicesByTier(ctx context.Context, tier reconcile.Tier) ([]reconcile.InvoiceView, error) {
	views, err := s.InvoiceViews(ctx)
	if err != nil {
		return nil, err
	}
	if tier == "" {
		return views, nil
	}
	return reconcile.FilterByTier(views, tier), nil
}

// Invoice fetches one invoice fresh from the backend.
func (s *Service) Invoice(ctx context.Context, id string) (reconcile.InvoiceView, error) {
	inv, err := s.backend.GetPurchaseInvoice(ctx, id)
	if err != nil {
		return reconcile.InvoiceView{}, err
	}
	return reconcile.BuildView(inv), nil
}

// Payrolls lists payroll records with derived tiers.
func (s *Service) Payrolls(ctx context.Context) ([]reconcile.PayrollView, error) {
	var cached []reconcile.PayrollView
	if hit, err := s.store.Get(ctx, resourcePayrolls, "", &cached); err == nil && hit {
		return cached, nil
	}
	v, err, _ := s.group.Do(resourcePayrolls, func() (any, error) {
		payrolls, err := s.backend.ListPayrolls(ctx)
		if err != nil {
			return nil, err
		}
		views := reconcile.BuildPayrollViews(payrolls)
		s.cacheSet(ctx, resourcePayrolls, "", views)
		return views, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]reconcile.PayrollView), nil
}

// Suppliers lists supplier reference records.
func (s *Service) Suppliers(ctx context.Context) ([]canonical.Supplier, error) {
	var cached []canonical.Supplier
	if hit, err := s.store.Get(ctx, resourceSuppliers, "", &cached); err == nil && hit {
		return cached, nil
	}
	v, err, _ := s.group.Do(resourceSuppliers, func() (any, error) {
		suppliers, err := s.backend.ListSuppliers(ctx)
		if err != nil {
			return nil, err
		}
		s.cacheSet(ctx, resourceSuppliers, "", suppliers)
		return suppliers, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]canonical.Supplier), nil
}

// PayInvoice applies a payment, invalidates the invoice cache and
// re-fetches the invoice so the caller sees settled state. A refresh
// failure after a successful payment is logged, not surfaced: the payment
// itself went through.
func (s *Service) PayInvoice(ctx context.Context, id string, amount decimal.Decimal) (payment.Receipt, reconcile.InvoiceView, error) {
	receipt, err := s.payer.PayInvoice(ctx, id, amount)
	if err != nil {
		return nil, reconcile.InvoiceView{}, err
	}
	s.invalidate(ctx, resourceInvoices)

	view, err := s.Invoice(ctx, id)
	if err != nil {
		s.logger.Warn("post-payment refresh failed", slog.String("invoice", id), slog.Any("error", err))
		return receipt, reconcile.InvoiceView{}, nil
	}
	return receipt, view, nil
}

// PayPayroll applies a payroll payment and invalidates the payroll cache.
func (s *Service) PayPayroll(ctx context.Context, id string, amount decimal.Decimal) (payment.Receipt, error) {
	receipt, err := s.payer.PayPayroll(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, resourcePayrolls)
	return receipt, nil
}

// TransferSubmission is a validated transfer request.
type TransferSubmission struct {
	SourceID      string
	DestinationID string
	Rows          []transfer.Row
}

// SubmitTransfer merges the rows, checks them against available stock at
// the source location and submits the transfer. Validation failures never
// reach the backend.
func (s *Service) SubmitTransfer(ctx context.Context, sub TransferSubmission) ([]transfer.MergedLine, error) {
	available, err := s.backend.StockAvailability(ctx, sub.SourceID)
	if err != nil {
		return nil, err
	}
	lines, err := transfer.MergeAndValidate(sub.Rows, available)
	if err != nil {
		return nil, err
	}
	if err := s.backend.SubmitStockTransfer(ctx, upstream.StockTransferRequest{
		SourceID:      sub.SourceID,
		DestinationID: sub.DestinationID,
		Products:      lines,
	}); err != nil {
		return nil, err
	}
	return lines, nil
}

// Summary aggregates tier counts and totals across resources for the
// dashboard. The three list fetches run concurrently.
type Summary struct {
	Orders       int             `json:"orders"`
	Invoices     int             `json:"invoices"`
	Payrolls     int             `json:"payrolls"`
	TierCounts   map[string]int  `json:"tierCounts"`
	TotalDue     decimal.Decimal `json:"totalDue"`
	TotalInvoice decimal.Decimal `json:"totalInvoiced"`
}

// BuildSummary computes the dashboard summary.
func (s *Service) BuildSummary(ctx context.Context) (Summary, error) {
	var (
		orders   []canonical.PurchaseOrder
		invoices []reconcile.InvoiceView
		payrolls []reconcile.PayrollView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.PurchaseOrders(gctx, url.Values{})
		return err
	})
	g.Go(func() error {
		var err error
		invoices, err = s.InvoiceViews(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		payrolls, err = s.Payrolls(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Orders:     len(orders),
		Invoices:   len(invoices),
		Payrolls:   len(payrolls),
		TierCounts: map[string]int{},
		TotalDue:   decimal.Zero,
	}
	for _, v := range invoices {
		sum.TierCounts[string(v.Tier)]++
		sum.TotalDue = sum.TotalDue.Add(v.Remaining)
		sum.TotalInvoice = sum.TotalInvoice.Add(v.TotalPayment)
	}
	return sum, nil
}

// RefreshInvoices re-fetches invoices past the cache and re-primes it.
// Used by the background re-sync worker.
func (s *Service) RefreshInvoices(ctx context.Context) error {
	_, err := s.fetchInvoiceViews(ctx)
	return err
}

func (s *Service) fetchInvoiceViews(ctx context.Context) ([]reconcile.InvoiceView, error) {
	invoices, err := s.backend.ListPurchaseInvoices(ctx, url.Values{})
	if err != nil {
		return nil, err
	}
	views := reconcile.BuildViews(invoices)
	s.cacheSet(ctx, resourceInvoices, "", views)
	return views, nil
}

func (s *Service) cacheSet(ctx context.Context, resource, key string, value any) {
	if err := s.store.Set(ctx, resource, key, value, s.ttl); err != nil {
		s.logger.Warn("cache set failed", slog.String("resource", resource), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context, resource string) {
	if err := s.store.Invalidate(ctx, resource); err != nil {
		s.logger.Warn("cache invalidate failed", slog.String("resource", resource), slog.Any("error", err))
	}
}

// IsNotFound reports whether err means the backend had no such resource.
func IsNotFound(err error) bool {
	return errors.Is(err, upstream.ErrNotFound)
}
