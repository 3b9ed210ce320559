package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	catalogapp "github.com/dmehra2102/campus-cafe/internal/catalog/application"
	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
	"github.com/dmehra2102/campus-cafe/internal/order/domain"
	"github.com/dmehra2102/campus-cafe/pkg/clock"
	"github.com/dmehra2102/campus-cafe/pkg/metrics"
	"github.com/dmehra2102/campus-cafe/pkg/outbox"
	"github.com/dmehra2102/campus-cafe/pkg/tracing"
)

const (
	aggregateOrder = "order"

	// HeaderSessionID carries the owning session on every order event.
	HeaderSessionID = "session_id"
)

type Service struct {
	log      *slog.Logger
	sessions *SessionStore
	catalog  Catalog
	repo     OrderRepository
	clock    clock.Clock
	metrics  *metrics.Registry
}

func NewService(log *slog.Logger, sessions *SessionStore, cat Catalog, repo OrderRepository, clk clock.Clock, m *metrics.Registry) *Service {
	return &Service{log: log, sessions: sessions, catalog: cat, repo: repo, clock: clk, metrics: m}
}

func (s *Service) NewSession() *Session {
	sess := s.sessions.Create()
	s.log.Info("session started", "session_id", sess.ID)
	return sess
}

// Session returns a live session, rebuilding it from order history when the
// process has restarted since it was created.
func (s *Service) Session(ctx context.Context, id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err == nil {
		return sess, nil
	}
	orders, lerr := s.repo.ListBySession(ctx, id)
	if lerr != nil {
		return nil, lerr
	}
	if len(orders) == 0 {
		return nil, err
	}
	restored := NewSession(id)
	restored.orders = orders
	if sess = s.sessions.GetOrPut(restored); sess == restored {
		s.log.Info("session restored", "session_id", id, "orders", len(orders))
	}
	return sess, nil
}

// RestorePreparing brings back every session with an order still being
// prepared so the tracker can finish those orders without waiting for the
// customer to return. It reports how many sessions it loaded.
func (s *Service) RestorePreparing(ctx context.Context) (int, error) {
	ids, err := s.repo.PreparingSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list preparing sessions: %w", err)
	}
	for _, id := range ids {
		if _, err := s.Session(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (s *Service) EndSession(id string) {
	s.sessions.Delete(id)
}

func (s *Service) SelectLocation(ctx context.Context, sessionID, locationID string) (CartView, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	loc, err := s.catalog.Location(ctx, locationID)
	if err != nil {
		return CartView{}, err
	}
	if err := sess.selectLocation(loc); err != nil {
		return CartView{}, fmt.Errorf("%w: %s", err, loc.Name)
	}
	return sess.Cart(), nil
}

// Menu lists the selected location's menu.
func (s *Service) Menu(ctx context.Context, sessionID string) ([]catalog.MenuItem, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	loc, ok := sess.Location()
	if !ok {
		return nil, ErrNoLocation
	}
	return s.catalog.Menu(ctx, loc.ID)
}

// LineRef identifies a cart line by item, size and customization choices.
type LineRef struct {
	ItemID  string          `json:"itemId"`
	Size    catalog.Size    `json:"size,omitempty"`
	Choices *domain.Choices `json:"customization,omitempty"`
}

// resolve looks up the item and builds the customization the line would carry.
func (s *Service) resolve(ctx context.Context, locationID string, ref LineRef) (catalog.MenuItem, *domain.Customization, error) {
	item, err := s.catalog.Item(ctx, locationID, ref.ItemID)
	if err != nil {
		return catalog.MenuItem{}, nil, err
	}
	if ref.Choices == nil {
		return item, nil, nil
	}
	c := *ref.Choices
	switch {
	case c.Size == "":
		c.Size = ref.Size
	case ref.Size != "" && ref.Size != c.Size:
		return catalog.MenuItem{}, nil, fmt.Errorf("%w: %s vs %s", domain.ErrSizeMismatch, ref.Size, c.Size)
	}
	cust, err := domain.Customize(item, c)
	if err != nil {
		return catalog.MenuItem{}, nil, err
	}
	return item, cust, nil
}

// AddItem adds quantity units of a line to the cart.
func (s *Service) AddItem(ctx context.Context, sessionID string, ref LineRef, quantity int) (CartView, error) {
	if quantity < 1 {
		quantity = 1
	}
	return s.mutateCart(ctx, sessionID, "add", ref, func(c *domain.Cart, item catalog.MenuItem, cust *domain.Customization) bool {
		return c.AddQuantity(item, ref.Size, cust, quantity) > 0
	})
}

// RemoveItem takes one unit off a line. Removing a line that is not in the
// cart changes nothing and reports false.
func (s *Service) RemoveItem(ctx context.Context, sessionID string, ref LineRef) (CartView, bool, error) {
	var changed bool
	view, err := s.mutateCart(ctx, sessionID, "remove", ref, func(c *domain.Cart, item catalog.MenuItem, cust *domain.Customization) bool {
		changed = c.RemoveLine(item.ID, ref.Size, cust)
		return changed
	})
	return view, changed, err
}

// ClearItem drops a whole line.
func (s *Service) ClearItem(ctx context.Context, sessionID string, ref LineRef) (CartView, bool, error) {
	var changed bool
	view, err := s.mutateCart(ctx, sessionID, "clear_line", ref, func(c *domain.Cart, item catalog.MenuItem, cust *domain.Customization) bool {
		changed = c.ClearLine(item.ID, ref.Size, cust)
		return changed
	})
	return view, changed, err
}

func (s *Service) ClearCart(ctx context.Context, sessionID string) (CartView, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	view, err := sess.withCart(func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
	if err == nil {
		s.metrics.CartMutations.WithLabelValues("clear").Inc()
	}
	return view, err
}

func (s *Service) Cart(ctx context.Context, sessionID string) (CartView, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	return sess.Cart(), nil
}

func (s *Service) mutateCart(ctx context.Context, sessionID, kind string, ref LineRef, apply func(*domain.Cart, catalog.MenuItem, *domain.Customization) bool) (CartView, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	loc, ok := sess.Location()
	if !ok {
		return CartView{}, ErrNoLocation
	}
	item, cust, err := s.resolve(ctx, loc.ID, ref)
	if err != nil {
		if kind != "add" && errors.Is(err, catalogapp.ErrItemNotFound) {
			return sess.Cart(), nil
		}
		return CartView{}, err
	}
	return sess.withCart(func(c *domain.Cart) error {
		if apply(c, item, cust) {
			s.metrics.CartMutations.WithLabelValues(kind).Inc()
		}
		return nil
	})
}

// PlaceOrder turns the cart into an order, records it with an OrderPlaced
// event and starts a fresh cart at the same location.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string, pickup domain.PickupChoice) (domain.Order, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return domain.Order{}, err
	}
	selected, ok := sess.Location()
	if !ok {
		return domain.Order{}, ErrNoLocation
	}
	loc, err := s.catalog.Location(ctx, selected.ID)
	if err != nil {
		return domain.Order{}, err
	}
	if !loc.Open {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrLocationClosed, loc.Name)
	}
	if pickup.ASAP {
		pickup.WaitMinutes = loc.WaitMinutes
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.cart == nil {
		return domain.Order{}, domain.ErrEmptyCart
	}
	o, err := domain.PlaceOrder(sess.cart, loc, pickup, s.clock.Now())
	if err != nil {
		return domain.Order{}, err
	}
	ev, err := newEvent(ctx, sess.ID, o, domain.EventOrderPlaced, domain.NewOrderPlaced(o))
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.SaveWithOutbox(ctx, sess.ID, o, ev); err != nil {
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}

	sess.orders = append([]domain.Order{o}, sess.orders...)
	sess.cart = domain.NewCart(loc.ID)

	s.metrics.OrdersPlaced.Inc()
	s.metrics.StatusTransitions.WithLabelValues(string(o.Status)).Inc()
	s.metrics.ActiveOrders.Inc()
	s.log.Info("order placed", "session_id", sess.ID, "order_id", o.ID, "number", o.Number, "total", o.Total.StringFixed(2))
	return o, nil
}

// ConfirmPickup completes a ready order with the customer's rating.
func (s *Service) ConfirmPickup(ctx context.Context, sessionID, orderID string, rating int) (domain.Order, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return domain.Order{}, err
	}
	o, err := sess.withOrder(orderID, func(o *domain.Order) error {
		if err := o.ConfirmPickup(rating, s.clock.Now()); err != nil {
			return err
		}
		return s.persistStatus(ctx, sess.ID, *o, domain.EventOrderCompleted)
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.metrics.StatusTransitions.WithLabelValues(string(o.Status)).Inc()
	s.metrics.ActiveOrders.Dec()
	s.log.Info("order picked up", "session_id", sess.ID, "order_id", o.ID, "rating", o.Rating)
	return o, nil
}

func (s *Service) persistStatus(ctx context.Context, sessionID string, o domain.Order, eventType string) error {
	ev, err := newEvent(ctx, sessionID, o, eventType, domain.NewOrderStatusChanged(o))
	if err != nil {
		return err
	}
	if err := s.repo.SaveWithOutbox(ctx, sessionID, o, ev); err != nil {
		return fmt.Errorf("save order status: %w", err)
	}
	return nil
}

// newEvent builds an outbox event for o. The session id rides in a header so
// consumers can find the customer's preferences.
func newEvent(ctx context.Context, sessionID string, o domain.Order, eventType string, body any) (outbox.Event, error) {
	ev, err := outbox.NewEvent(aggregateOrder, o.ID, eventType, body, tracing.Traceparent(ctx))
	if err != nil {
		return outbox.Event{}, err
	}
	ev.Headers = map[string]string{HeaderSessionID: sessionID, "source": "ordering-service"}
	return ev, nil
}

// ReorderResult is the rebuilt cart plus the order lines that could not be
// carried over.
type ReorderResult struct {
	Location catalog.Location `json:"location"`
	Cart     CartView         `json:"cart"`
	Dropped  []string         `json:"dropped"`
}

// Reorder selects the order's location and replaces the cart with the order's
// lines rebuilt from the current menu. Customizations are not carried over.
func (s *Service) Reorder(ctx context.Context, sessionID, orderID string) (ReorderResult, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return ReorderResult{}, err
	}
	o, ok := sess.Order(orderID)
	if !ok {
		return ReorderResult{}, ErrOrderNotFound
	}
	loc, err := s.orderLocation(ctx, o)
	if err != nil {
		return ReorderResult{}, err
	}
	if !loc.Open {
		return ReorderResult{}, fmt.Errorf("%w: %s", ErrLocationClosed, loc.Name)
	}
	menu, err := s.catalog.Menu(ctx, loc.ID)
	if err != nil {
		return ReorderResult{}, err
	}

	res := domain.Reorder(o, menu)
	cart := domain.NewCart(loc.ID)
	for _, l := range res.Lines {
		cart.AddQuantity(l.Item, l.Size, l.Customization, l.Quantity)
	}

	sess.mu.Lock()
	sess.location = &loc
	sess.cart = cart
	view := viewOf(cart)
	sess.mu.Unlock()

	if len(res.Dropped) > 0 {
		s.metrics.ReorderDropped.Add(float64(len(res.Dropped)))
		s.log.Info("reorder dropped lines", "order_id", o.ID, "dropped", res.Dropped)
	}
	dropped := res.Dropped
	if dropped == nil {
		dropped = []string{}
	}
	return ReorderResult{Location: loc, Cart: view, Dropped: dropped}, nil
}

// orderLocation resolves by stable id, falling back to the display name for
// orders recorded without one.
func (s *Service) orderLocation(ctx context.Context, o domain.Order) (catalog.Location, error) {
	if o.LocationID != "" {
		loc, err := s.catalog.Location(ctx, o.LocationID)
		if err == nil || !errors.Is(err, catalogapp.ErrLocationNotFound) {
			return loc, err
		}
	}
	return s.catalog.LocationByName(ctx, o.LocationName)
}

// PickupSlots lists the scheduled pickup times offered for the selected
// location.
func (s *Service) PickupSlots(ctx context.Context, sessionID string) ([]string, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	loc, ok := sess.Location()
	if !ok {
		return nil, ErrNoLocation
	}
	return domain.ScheduledSlots(s.clock.Now(), loc.WaitMinutes), nil
}

// PreviewCustomization prices a set of choices for an item at the selected
// location without touching the cart.
func (s *Service) PreviewCustomization(ctx context.Context, sessionID, itemID string, choices domain.Choices) (*domain.Customization, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	loc, ok := sess.Location()
	if !ok {
		return nil, ErrNoLocation
	}
	item, err := s.catalog.Item(ctx, loc.ID, itemID)
	if err != nil {
		return nil, err
	}
	return domain.Customize(item, choices)
}
