package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/healthhub/api/internal/domain/product"
	"github.com/healthhub/api/internal/platform/apperr"
	"github.com/healthhub/api/internal/platform/auth"
	"github.com/healthhub/api/internal/platform/events"
	"github.com/healthhub/api/internal/platform/metrics"
	"github.com/healthhub/api/internal/platform/store"
	"github.com/healthhub/api/internal/platform/validation"
)

// ErrOrderUnconfirmed marks a failure after the order was written: the order
// most likely exists and re-reading it is safe.
var ErrOrderUnconfirmed = errors.New("order written but could not be read back")

const defaultCompensationTimeout = 10 * time.Second

// Catalog resolves authoritative prices. *product.Service implements it.
type Catalog interface {
	LookupForOrder(ctx context.Context, ids []string) ([]product.CatalogEntry, error)
}

// Recorder receives order outcomes. *metrics.Metrics implements it.
type Recorder interface {
	OrderPlaced()
	OrderFailed(reason string)
	Compensation(result string)
	PublishFailed()
}

type nopRecorder struct{}

func (nopRecorder) OrderPlaced()        {}
func (nopRecorder) OrderFailed(string)  {}
func (nopRecorder) Compensation(string) {}
func (nopRecorder) PublishFailed()      {}

type Service struct {
	db      store.Client
	catalog Catalog
	roles   auth.RoleResolver

	publisher           events.Publisher
	recorder            Recorder
	compensationTimeout time.Duration
	now                 func() time.Time
}

func NewService(db store.Client, catalog Catalog, roles auth.RoleResolver) *Service {
	return &Service{
		db:                  db,
		catalog:             catalog,
		roles:               roles,
		publisher:           events.Noop{},
		recorder:            nopRecorder{},
		compensationTimeout: defaultCompensationTimeout,
		now:                 time.Now,
	}
}

// SetPublisher attaches the broker that receives order.placed events.
func (s *Service) SetPublisher(p events.Publisher) {
	if p != nil {
		s.publisher = p
	}
}

func (s *Service) SetRecorder(r Recorder) {
	if r != nil {
		s.recorder = r
	}
}

// SetCompensationTimeout bounds the compensating delete, which runs even
// after the request context is cancelled.
func (s *Service) SetCompensationTimeout(d time.Duration) {
	if d > 0 {
		s.compensationTimeout = d
	}
}

// PlaceOrder prices the requested lines from the catalog, writes the order
// header and its items, and returns the order as stored. Validation and
// catalog failures happen before any write. When the store cannot run the
// two inserts in a transaction, a failed item insert deletes the header
// again before the error is returned.
func (s *Service) PlaceOrder(ctx context.Context, p auth.Principal, req PlaceOrderRequest) (*Order, error) {
	o, err := s.placeOrder(ctx, p, req)
	if err != nil {
		s.recorder.OrderFailed(apperr.KindOf(err).String())
		return nil, err
	}
	s.recorder.OrderPlaced()
	s.publishPlaced(ctx, o)
	return o, nil
}

func (s *Service) placeOrder(ctx context.Context, p auth.Principal, req PlaceOrderRequest) (*Order, error) {
	if p.ID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ids := distinctProductIDs(req.Products)
	entries, err := s.catalog.LookupForOrder(ctx, ids)
	if err != nil {
		return nil, apperr.Persistence("failed to fetch product details", err)
	}

	prices := make(map[string]decimal.Decimal, len(entries))
	unavailable := false
	for _, e := range entries {
		prices[e.ID] = e.Price
		if !e.Available {
			unavailable = true
		}
	}
	for _, id := range ids {
		if _, ok := prices[id]; !ok {
			return nil, apperr.NotFound("one or more products not found")
		}
	}
	if unavailable {
		return nil, apperr.InvalidState("one or more products unavailable")
	}

	items := make([]newItem, len(req.Products))
	total := decimal.Zero
	for i, line := range req.Products {
		price := prices[line.ProductID]
		items[i] = newItem{ProductID: line.ProductID, Quantity: line.Quantity, Price: price}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	h := header{UserID: p.ID, Total: total, Status: StatusPending}

	var orderID string
	if tx, ok := s.db.(store.Transactor); ok {
		orderID, err = s.persistTx(ctx, tx, h, items)
	} else {
		orderID, err = s.persistSaga(ctx, h, items)
	}
	if err != nil {
		return nil, err
	}

	return s.readBack(ctx, orderID)
}

func validateRequest(req PlaceOrderRequest) error {
	err := validation.Struct(req)
	if err == nil {
		return nil
	}
	for _, f := range validation.Fields(err) {
		if f.Field == "products" {
			return apperr.InvalidInput("products array required")
		}
	}
	return apperr.InvalidInput("invalid product_id/quantity")
}

// distinctProductIDs keeps first-seen order.
func distinctProductIDs(lines []LineItem) []string {
	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	return ids
}

func insertHeader(ctx context.Context, db store.Client, h header) (string, error) {
	var created []Order
	if err := db.Insert(ctx, OrdersTable, h, &created); err != nil {
		return "", err
	}
	if len(created) != 1 || created[0].ID == "" {
		return "", fmt.Errorf("insert returned %d order rows", len(created))
	}
	return created[0].ID, nil
}

func attach(items []newItem, orderID string) {
	for i := range items {
		items[i].OrderID = orderID
	}
}

func (s *Service) persistSaga(ctx context.Context, h header, items []newItem) (string, error) {
	orderID, err := insertHeader(ctx, s.db, h)
	if err != nil {
		return "", apperr.Persistence("failed to create order", err)
	}

	attach(items, orderID)
	if err := s.db.Insert(ctx, ItemsTable, items, nil); err != nil {
		s.compensate(ctx, orderID)
		return "", apperr.Persistence("failed to create order items", err)
	}
	return orderID, nil
}

// compensate deletes an order header whose items could not be written. It
// runs on a context detached from the request so a client disconnect does
// not leave the header behind. Its own failure is logged, not returned.
func (s *Service) compensate(ctx context.Context, orderID string) {
	logger := zerolog.Ctx(ctx)
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout)
	defer cancel()

	if err := s.db.Delete(cctx, OrdersTable, []store.Filter{store.Eq("id", orderID)}); err != nil {
		s.recorder.Compensation(metrics.CompensationFailed)
		logger.Error().Err(err).Str("order_id", orderID).Msg("compensating delete failed, order header may be orphaned")
		return
	}
	s.recorder.Compensation(metrics.CompensationSucceeded)
	logger.Warn().Str("order_id", orderID).Msg("order header deleted after item insert failure")
}

func (s *Service) persistTx(ctx context.Context, tx store.Transactor, h header, items []newItem) (string, error) {
	var orderID string
	err := tx.WithinTx(ctx, func(db store.Client) error {
		id, err := insertHeader(ctx, db, h)
		if err != nil {
			return apperr.Persistence("failed to create order", err)
		}
		attach(items, id)
		if err := db.Insert(ctx, ItemsTable, items, nil); err != nil {
			return apperr.Persistence("failed to create order items", err)
		}
		orderID = id
		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return "", err
		}
		// Begin or commit failed.
		return "", apperr.Persistence("failed to create order", err)
	}
	return orderID, nil
}

func (s *Service) readBack(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	q := store.Where(store.Eq("id", orderID)).With(expanded)
	if err := s.db.SelectOne(ctx, OrdersTable, q, &o); err != nil {
		return nil, apperr.Persistence("failed to fetch complete order",
			fmt.Errorf("%w: %w", ErrOrderUnconfirmed, err)).
			WithDetail("order_id", orderID).
			MarkCommitted()
	}
	return &o, nil
}

// PlacedEvent is the payload of order.placed.
type PlacedEvent struct {
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
	Total     decimal.Decimal `json:"total"`
	Items     []PlacedLine    `json:"items"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

type PlacedLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (s *Service) publishPlaced(ctx context.Context, o *Order) {
	logger := zerolog.Ctx(ctx)
	payload := PlacedEvent{OrderID: o.ID, UserID: o.UserID, Total: o.Total, CreatedAt: o.CreatedAt}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, PlacedLine{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}

	evt, err := events.New(events.TypeOrderPlaced, o.ID, payload)
	if err != nil {
		s.recorder.PublishFailed()
		logger.Error().Err(err).Str("order_id", o.ID).Msg("build order event")
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(pctx, evt); err != nil {
		s.recorder.PublishFailed()
		logger.Warn().Err(err).Str("order_id", o.ID).Msg("publish order event")
	}
}

// ListOrdersForUser returns userID's orders newest first with items and
// products. Only the owner or an admin may read them.
func (s *Service) ListOrdersForUser(ctx context.Context, p auth.Principal, userID string) ([]Order, error) {
	if p.ID == "" {
		return nil, apperr.Unauthorized("authentication required")
	}
	if err := auth.OwnerOrAdmin(ctx, s.roles, p, userID); err != nil {
		return nil, err
	}

	out := []Order{}
	q := store.Where(store.Eq("user_id", userID)).
		OrderBy(store.Desc("created_at")).
		With(expanded)
	if err := s.db.Select(ctx, OrdersTable, q, &out); err != nil {
		return nil, apperr.Persistence("failed to fetch orders", err)
	}
	return out, nil
}

// SweepOrphans finds pending orders older than olderThan that have no items,
// the residue of a crash between the header insert and its compensation, and
// deletes them unless dryRun is set. It returns the affected ids.
func (s *Service) SweepOrphans(ctx context.Context, olderThan time.Duration, dryRun bool) ([]string, error) {
	if olderThan <= 0 {
		return nil, apperr.InvalidInput("older-than must be positive")
	}
	cutoff := s.now().Add(-olderThan).UTC()

	var candidates []Order
	q := store.Where(store.Eq("status", StatusPending), store.Lt("created_at", cutoff)).
		With(store.HasMany("order_items", ItemsTable, "order_id"))
	if err := s.db.Select(ctx, OrdersTable, q, &candidates); err != nil {
		return nil, apperr.Persistence("failed to list pending orders", err)
	}

	orphans := []string{}
	for _, o := range candidates {
		if len(o.Items) == 0 {
			orphans = append(orphans, o.ID)
		}
	}
	if dryRun || len(orphans) == 0 {
		return orphans, nil
	}

	filters := []store.Filter{store.In("id", orphans), store.Eq("status", StatusPending)}
	if err := s.db.Delete(ctx, OrdersTable, filters); err != nil {
		return nil, apperr.Persistence("failed to delete orphaned orders", err)
	}
	zerolog.Ctx(ctx).Info().Strs("order_ids", orphans).Msg("deleted orphaned order headers")
	return orphans, nil
}
