package application

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
	"github.com/dmehra2102/campus-cafe/internal/order/domain"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrNoLocation      = errors.New("no location selected")
	ErrLocationClosed  = errors.New("location is closed")
)

const recentOrders = 3

// Session is one customer's ordering state: the selected location, its cart
// and the orders placed so far, newest first.
type Session struct {
	ID string

	mu       sync.Mutex
	location *catalog.Location
	cart     *domain.Cart
	orders   []domain.Order
}

func NewSession(id string) *Session {
	return &Session{ID: id}
}

// CartView is a read-only snapshot of a cart with its totals.
type CartView struct {
	LocationID string            `json:"locationId"`
	Lines      []domain.CartLine `json:"lines"`
	LineCount  int               `json:"lineCount"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Tax        decimal.Decimal   `json:"tax"`
	Total      decimal.Decimal   `json:"total"`
}

func viewOf(c *domain.Cart) CartView {
	if c == nil {
		return CartView{Lines: []domain.CartLine{}}
	}
	subtotal := c.Subtotal()
	tax, total := domain.WithTax(subtotal)
	return CartView{
		LocationID: c.LocationID(),
		Lines:      c.Lines(),
		LineCount:  c.LineCount(),
		Subtotal:   subtotal.Round(2),
		Tax:        tax,
		Total:      total,
	}
}

func (s *Session) Location() (catalog.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil {
		return catalog.Location{}, false
	}
	return *s.location, true
}

func (s *Session) Cart() CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return viewOf(s.cart)
}

// Orders returns every order, newest first.
func (s *Session) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

func (s *Session) Order(id string) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Order{}, false
	}
	return s.orders[i], true
}

// ActiveOrders are preparing or ready.
func (s *Session) ActiveOrders() []domain.Order {
	return s.filter(func(o *domain.Order) bool { return o.IsActive() })
}

func (s *Session) PastOrders() []domain.Order {
	return s.filter(func(o *domain.Order) bool { return o.Status == domain.StatusCompleted })
}

// RecentOrders are the three latest orders in any status.
func (s *Session) RecentOrders() []domain.Order {
	orders := s.Orders()
	if len(orders) > recentOrders {
		orders = orders[:recentOrders]
	}
	return orders
}

func (s *Session) ActiveOrderCount() int {
	return len(s.ActiveOrders())
}

func (s *Session) filter(keep func(*domain.Order) bool) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for i := range s.orders {
		if keep(&s.orders[i]) {
			out = append(out, s.orders[i])
		}
	}
	return out
}

// selectLocation switches location. Switching to a different location starts
// a new cart; reselecting the current one keeps it.
func (s *Session) selectLocation(loc catalog.Location) error {
	if !loc.Open {
		return ErrLocationClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil || s.location.ID != loc.ID || s.cart == nil {
		s.cart = domain.NewCart(loc.ID)
	}
	s.location = &loc
	return nil
}

// withCart runs fn on the current cart under the session lock.
func (s *Session) withCart(fn func(*domain.Cart) error) (CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.location == nil || s.cart == nil {
		return CartView{}, ErrNoLocation
	}
	if err := fn(s.cart); err != nil {
		return CartView{}, err
	}
	return viewOf(s.cart), nil
}

// withOrder applies fn to a copy of the order and stores the copy only when
// fn succeeds. The order keeps its position.
func (s *Session) withOrder(id string, fn func(*domain.Order) error) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Order{}, ErrOrderNotFound
	}
	o := s.orders[i]
	if err := fn(&o); err != nil {
		return domain.Order{}, err
	}
	s.orders[i] = o
	return o, nil
}

func (s *Session) indexOf(id string) int {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return i
		}
	}
	return -1
}

// SessionStore keeps live sessions in memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

func (st *SessionStore) Create() *Session {
	s := NewSession(uuid.NewString())
	st.Put(s)
	return s
}

func (st *SessionStore) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
}

// GetOrPut stores s unless a session with its id is already live, and
// returns whichever session the store now holds.
func (st *SessionStore) GetOrPut(s *Session) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if cur, ok := st.sessions[s.ID]; ok {
		return cur
	}
	st.sessions[s.ID] = s
	return s
}

func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete ends a session. Its orders stay in the repository.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *SessionStore) All() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}
