package storefront

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"khushin_back_end/internal/cart"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/order"
)

// Cart state types, shared with the reducer.
type (
	State   = cart.State
	Line    = cart.Line
	Product = cart.Product
)

// CartStore mirrors the signed-in user's server cart. Every mutation goes to the server
// first and is applied locally only once the server accepted it. On failure the store
// records the error in State.Error and returns it unchanged.
type CartStore struct {
	client *Client

	mu          sync.Mutex
	state       State
	pending     map[int64]int
	subs        map[chan State]struct{}
	checkoutKey string
}

func NewCartStore(client *Client) *CartStore {
	return &CartStore{
		client:  client,
		state:   State{Items: []Line{}},
		pending: map[int64]int{},
		subs:    map[chan State]struct{}{},
	}
}

// State returns a snapshot of the current cart.
func (s *CartStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *CartStore) Count() int {
	return cart.Count(s.State())
}

// Pending reports whether a request for productID is in flight.
func (s *CartStore) Pending(productID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[productID] > 0
}

// Subscribe returns a channel that receives the latest state after every change.
// Slow readers only see the most recent snapshot. Call cancel to stop receiving.
func (s *CartStore) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *CartStore) dispatch(a cart.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = cart.Reduce(s.state, a)
	for ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
}

func (s *CartStore) fail(err error) error {
	s.dispatch(cart.SetError(err.Error()))
	return err
}

// track marks productID busy until the returned func runs.
func (s *CartStore) track(productID int64) func() {
	s.mu.Lock()
	s.pending[productID]++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.pending[productID]--; s.pending[productID] <= 0 {
			delete(s.pending, productID)
		}
	}
}

// Load replaces the local cart with the server's.
func (s *CartStore) Load(ctx context.Context) error {
	s.dispatch(cart.SetLoading(true))
	lines, err := s.client.Cart(ctx)
	if err != nil {
		return s.fail(err)
	}
	s.dispatch(cart.SetCartItems(lines))
	return nil
}

func (s *CartStore) AddItem(ctx context.Context, p Product, quantity int, isGift bool, message string) error {
	if quantity <= 0 {
		quantity = 1
	}
	defer s.track(p.ID)()
	if err := s.client.AddToCart(ctx, p.ID, quantity, isGift, message); err != nil {
		return s.fail(err)
	}
	s.dispatch(cart.AddItem(p, quantity, isGift, message))
	return nil
}

func (s *CartStore) RemoveItem(ctx context.Context, productID int64) error {
	defer s.track(productID)()
	if err := s.client.RemoveFromCart(ctx, productID); err != nil {
		return s.fail(err)
	}
	s.dispatch(cart.RemoveItem(productID))
	return nil
}

// UpdateQuantity sets a line's quantity, capped at the per-line maximum.
// A quantity below the minimum leaves the cart untouched.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	if quantity < models.MinLineQuantity {
		return nil
	}
	quantity = clampQuantity(quantity)
	defer s.track(productID)()
	if err := s.client.UpdateQuantity(ctx, productID, quantity); err != nil {
		return s.fail(err)
	}
	s.dispatch(cart.UpdateQuantity(productID, quantity))
	return nil
}

func (s *CartStore) UpdateGift(ctx context.Context, productID int64, isGift bool, message string) error {
	defer s.track(productID)()
	if err := s.client.UpdateGift(ctx, productID, isGift, message); err != nil {
		return s.fail(err)
	}
	s.dispatch(cart.UpdateGiftWrap(productID, isGift, message))
	return nil
}

// SetGiftWrap toggles cart-level gift wrapping. It is a local preference.
func (s *CartStore) SetGiftWrap(on bool) {
	s.dispatch(cart.UpdateGiftWrap(0, on, ""))
}

func (s *CartStore) Clear(ctx context.Context) error {
	if err := s.client.ClearCart(ctx); err != nil {
		return s.fail(err)
	}
	s.dispatch(cart.ClearCart())
	return nil
}

// Checkout submits the current cart. A failed attempt keeps its Idempotency-Key so
// that retrying cannot create a second order.
func (s *CartStore) Checkout(ctx context.Context, shipping ShippingDetails) (*CheckoutResult, error) {
	s.mu.Lock()
	st := s.state
	if s.checkoutKey == "" {
		s.checkoutKey = uuid.NewString()
	}
	key := s.checkoutKey
	s.mu.Unlock()

	if len(st.Items) == 0 {
		return nil, s.fail(errors.New("cart is empty"))
	}
	items := make([]CheckoutItem, 0, len(st.Items))
	for _, l := range st.Items {
		items = append(items, CheckoutItem{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	total := st.Total + order.ShippingCost(st.Total)

	res, err := s.client.Checkout(ctx, shipping, items, total, key)
	if err != nil {
		return nil, s.fail(err)
	}
	s.mu.Lock()
	s.checkoutKey = ""
	s.mu.Unlock()
	// The server emptied the cart with the order.
	s.dispatch(cart.ClearCart())
	return res, nil
}

// SimulatePayment records the payment outcome for orderRef.
func (s *CartStore) SimulatePayment(ctx context.Context, orderRef string, status models.OrderStatus) (*Order, error) {
	o, err := s.client.SimulatePayment(ctx, orderRef, string(status))
	if err != nil {
		return nil, s.fail(err)
	}
	if status == models.OrderCompleted {
		s.dispatch(cart.ClearCart())
	}
	return o, nil
}

func clampQuantity(q int) int {
	if q > models.MaxLineQuantity {
		return models.MaxLineQuantity
	}
	return q
}
