// Package storefront is a Go client for the Khushin API: an HTTP client with the
// session cookie, a cart store that mirrors the server cart, and a reconnecting
// WebSocket for realtime updates.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrAuthRequired is returned for any 401 response.
var ErrAuthRequired = errors.New("AUTH_REQUIRED")

// FieldError is one failed field of a validation error.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// APIError is a non-2xx response other than an AUTH_REQUIRED 401.
type APIError struct {
	Status  int
	Message string
	Errors  []FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storefront: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("storefront: %d %s", e.Status, e.Message)
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	IsGuest  bool   `json:"isGuest"`
}

type ShippingDetails struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country,omitempty"`
	DeliveryDate string `json:"deliveryDate,omitempty"`
}

type CheckoutItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type CheckoutResult struct {
	RedirectURL string `json:"redirectUrl"`
	OrderRef    string `json:"orderRef"`
}

type OrderItem struct {
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Name      string `json:"name"`
}

type Order struct {
	OrderRef          string          `json:"orderRef"`
	Status            string          `json:"status"`
	Items             []OrderItem     `json:"items"`
	Shipping          ShippingDetails `json:"shipping"`
	Subtotal          int64           `json:"subtotal"`
	ShippingCost      int64           `json:"shippingCost"`
	Total             int64           `json:"total"`
	PaymentMethod     string          `json:"paymentMethod,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// serverLine is one line of GET /api/cart.
type serverLine struct {
	ProductID   int64   `json:"productId"`
	Quantity    int     `json:"quantity"`
	IsGift      bool    `json:"isGift"`
	GiftMessage *string `json:"giftMessage"`
	Product     Product `json:"product"`
}

type serverCart struct {
	Items []serverLine `json:"items"`
	Total int64        `json:"total"`
	Count int          `json:"count"`
}

// Client talks to the storefront API. It keeps the session cookie between calls.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added when it has none.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithToken authenticates with a bearer token instead of the session cookie.
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("storefront: invalid base url: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// do sends body as JSON and decodes the response into out when it is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, header http.Header) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("storefront: encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var payload struct {
			Message string       `json:"message"`
			Code    string       `json:"code"`
			Errors  []FieldError `json:"errors"`
		}
		decoded := json.NewDecoder(res.Body).Decode(&payload) == nil
		// Only the auth middleware's 401 means "no session"; a failed login is a plain error.
		if res.StatusCode == http.StatusUnauthorized && (!decoded || payload.Code == ErrAuthRequired.Error()) {
			return ErrAuthRequired
		}
		return &APIError{Status: res.StatusCode, Message: payload.Message, Errors: payload.Errors}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("storefront: decode %s %s: %w", method, path, err)
	}
	return nil
}

// ===== Auth =====

func (c *Client) Register(ctx context.Context, username, password string) (*User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/api/register", map[string]string{"username": username, "password": password}, &u, nil)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{"username": username, "password": password}, &u, nil)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) GuestLogin(ctx context.Context) (*User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/api/guest-login", nil, &u, nil)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil, nil)
}

func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/api/user", nil, &u, nil)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ===== Cart =====

// Cart fetches the server cart as reducer lines.
func (c *Client) Cart(ctx context.Context) ([]Line, error) {
	var sc serverCart
	if err := c.do(ctx, http.MethodGet, "/api/cart", nil, &sc, nil); err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(sc.Items))
	for _, it := range sc.Items {
		l := Line{Product: it.Product, Quantity: it.Quantity, IsGift: it.IsGift}
		if l.Product.ID == 0 {
			l.Product.ID = it.ProductID
		}
		if it.GiftMessage != nil {
			l.GiftMessage = *it.GiftMessage
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func (c *Client) AddToCart(ctx context.Context, productID int64, quantity int, isGift bool, message string) error {
	body := map[string]interface{}{"productId": productID, "quantity": quantity, "isGift": isGift}
	if message != "" {
		body["giftMessage"] = message
	}
	return c.do(ctx, http.MethodPost, "/api/cart", body, nil, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, productID int64) error {
	return c.do(ctx, http.MethodDelete, "/api/cart/"+strconv.FormatInt(productID, 10), nil, nil, nil)
}

func (c *Client) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	return c.do(ctx, http.MethodPatch, "/api/cart/"+strconv.FormatInt(productID, 10)+"/quantity",
		map[string]int{"quantity": quantity}, nil, nil)
}

func (c *Client) UpdateGift(ctx context.Context, productID int64, isGift bool, message string) error {
	body := map[string]interface{}{"isGift": isGift}
	if isGift && message != "" {
		body["giftMessage"] = message
	}
	return c.do(ctx, http.MethodPatch, "/api/cart/"+strconv.FormatInt(productID, 10)+"/gift", body, nil, nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/cart", nil, nil, nil)
}

// ===== Orders =====

// Checkout creates a pending order. Retrying with the same idempotencyKey returns the
// order the first attempt created.
func (c *Client) Checkout(ctx context.Context, shipping ShippingDetails, items []CheckoutItem, total int64, idempotencyKey string) (*CheckoutResult, error) {
	var h http.Header
	if idempotencyKey != "" {
		h = http.Header{"Idempotency-Key": {idempotencyKey}}
	}
	var res CheckoutResult
	err := c.do(ctx, http.MethodPost, "/api/checkout", map[string]interface{}{
		"shipping": shipping,
		"items":    items,
		"total":    total,
	}, &res, h)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SimulatePayment reports the outcome of the UPI step: "completed" or "failed".
func (c *Client) SimulatePayment(ctx context.Context, orderRef, status string) (*Order, error) {
	var o Order
	err := c.do(ctx, http.MethodPost, "/api/payment/"+url.PathEscape(orderRef)+"/status",
		map[string]string{"status": status, "method": "upi"}, &o, nil)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/api/orders", nil, &orders, nil); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Order(ctx context.Context, orderRef string) (*Order, error) {
	var o Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(orderRef), nil, &o, nil); err != nil {
		return nil, err
	}
	return &o, nil
}
