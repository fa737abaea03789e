package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"khushin_back_end/internal/middleware"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/session"
	"khushin_back_end/internal/storage"
	"khushin_back_end/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore is an in-memory Store for handler tests.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]*models.User
	products  map[int64]models.Product
	cart      map[int64]map[int64]*models.CartItem
	orders    map[string]*models.Order
	referrals map[string]*models.Referral
}

func newMemStore() *memStore {
	return &memStore{
		nextID: 100,
		users:  map[int64]*models.User{},
		products: map[int64]models.Product{
			1: {ID: 1, Name: "Product A", Price: 10000},
			2: {ID: 2, Name: "Product B", Price: 5000},
		},
		cart:      map[int64]map[int64]*models.CartItem{},
		orders:    map[string]*models.Order{},
		referrals: map[string]*models.Referral{},
	}
}

func (m *memStore) CreateUser(_ context.Context, u models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return nil, storage.ErrConflict
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	m.users[u.ID] = &u
	cp := u
	return &cp, nil
}

func (m *memStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) ConvertGuest(_ context.Context, id int64, username, hash, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.IsGuest {
		return nil, storage.ErrNotFound
	}
	u.Username, u.Password, u.Email = username, hash, &email
	u.IsGuest, u.GuestExpiresAt = false, nil
	cp := *u
	return &cp, nil
}

func (m *memStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (m *memStore) GetCart(_ context.Context, userID int64) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := []models.CartLine{}
	for pid, item := range m.cart[userID] {
		lines = append(lines, models.CartLine{CartItem: *item, Product: m.products[pid]})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

func (m *memStore) AddCartItem(_ context.Context, item models.CartItem) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cart[item.UserID] == nil {
		m.cart[item.UserID] = map[int64]*models.CartItem{}
	}
	if existing, ok := m.cart[item.UserID][item.ProductID]; ok {
		if existing.Quantity+item.Quantity > models.MaxLineQuantity {
			return nil, storage.ErrQuantityLimit
		}
		existing.Quantity += item.Quantity
		cp := *existing
		return &cp, nil
	}
	m.cart[item.UserID][item.ProductID] = &item
	cp := item
	return &cp, nil
}

func (m *memStore) line(userID, productID int64) (*models.CartItem, error) {
	item, ok := m.cart[userID][productID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return item, nil
}

func (m *memStore) UpdateCartQuantity(_ context.Context, userID, productID int64, q int) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, err := m.line(userID, productID)
	if err != nil {
		return nil, err
	}
	item.Quantity = q
	cp := *item
	return &cp, nil
}

func (m *memStore) UpdateCartGift(_ context.Context, userID, productID int64, isGift bool, msg *string) (*models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, err := m.line(userID, productID)
	if err != nil {
		return nil, err
	}
	item.IsGift, item.GiftMessage = isGift, msg
	cp := *item
	return &cp, nil
}

func (m *memStore) RemoveCartItem(_ context.Context, userID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.line(userID, productID); err != nil {
		return err
	}
	delete(m.cart[userID], productID)
	return nil
}

func (m *memStore) ClearCart(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cart, userID)
	return nil
}

func (m *memStore) ListOrders(_ context.Context, userID int64) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) GetOrderByRef(_ context.Context, ref string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[ref]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) GetLoyaltyAccount(_ context.Context, userID int64) (*models.LoyaltyAccount, error) {
	return &models.LoyaltyAccount{UserID: userID, Tier: "silver"}, nil
}

func (m *memStore) GetOrCreateReferral(_ context.Context, userID int64) (*models.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.referrals {
		if r.ReferrerID == userID && r.RedeemedAt == nil {
			return r, nil
		}
	}
	r := &models.Referral{ID: int64(len(m.referrals) + 1), ReferrerID: userID, Code: "KHTESTCODE"}
	m.referrals[r.Code] = r
	return r, nil
}

func (m *memStore) RedeemReferral(_ context.Context, code string, userID int64) (*models.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.referrals[code]
	switch {
	case !ok:
		return nil, storage.ErrNotFound
	case r.ReferrerID == userID:
		return nil, storage.ErrSelfReferral
	case r.RedeemedAt != nil:
		return nil, storage.ErrConflict
	}
	now := time.Now()
	r.ReferredUserID, r.RedeemedAt = &userID, &now
	return r, nil
}

// fakeEvents records published events and hands out one subscription channel.
type fakeEvents struct {
	mu        sync.Mutex
	published []string
	stream    chan string
}

func (f *fakeEvents) Publish(_ context.Context, userID int64, event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
}

func (f *fakeEvents) Subscribe(context.Context, int64) (<-chan string, error) {
	return f.stream, nil
}

func (f *fakeEvents) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}

type testEnv struct {
	store  *memStore
	events *fakeEvents
	h      *Handler
	router *gin.Engine
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := newMemStore()
	events := &fakeEvents{stream: make(chan string, 4)}
	auth := middleware.NewAuth(
		session.NewRedisStore(client, time.Hour, false, []byte("0123456789abcdef0123456789abcdef")),
		utils.NewTokenIssuer("", time.Hour),
	)
	h := New(Deps{Store: store, Auth: auth, Events: events, FrontendURL: "http://shop.test"})

	r := gin.New()
	r.Use(auth.Authenticate())
	api := r.Group("/api")
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.POST("/logout", h.Logout)
	api.POST("/guest-login", h.GuestLogin)
	api.GET("/auth/:provider/callback", h.OAuthCallback)
	api.GET("/auth/:provider", h.BeginOAuth)

	authed := api.Group("", middleware.RequireAuth())
	authed.POST("/convert-guest", h.ConvertGuest)
	authed.GET("/user", h.CurrentUser)
	authed.GET("/cart", h.GetCart)
	authed.POST("/cart", h.AddToCart)
	authed.DELETE("/cart", h.ClearCart)
	authed.DELETE("/cart/:productId", h.RemoveFromCart)
	authed.PATCH("/cart/:productId/quantity", h.UpdateQuantity)
	authed.PATCH("/cart/:productId/gift", h.UpdateGift)
	authed.GET("/orders", h.ListOrders)
	authed.GET("/orders/:orderRef", h.GetOrder)
	authed.GET("/loyalty", h.Loyalty)
	authed.GET("/referral", h.Referral)
	authed.POST("/referral/redeem", h.RedeemReferral)
	r.GET("/ws", h.WebSocket)

	return &testEnv{store: store, events: events, h: h, router: r}
}

// client replays cookies between requests like a browser.
type client struct {
	env     *testEnv
	cookies map[string]*http.Cookie
}

func (e *testEnv) client() *client {
	return &client{env: e, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.env.router.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (c *client) register(t *testing.T, username string) models.User {
	t.Helper()
	rec := c.do(t, http.MethodPost, "/api/register", `{"username":"`+username+`","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u models.User
	decodeBody(t, rec, &u)
	return u
}
