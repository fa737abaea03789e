package storefront

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a minimal in-memory stand-in for the storefront server.
type fakeAPI struct {
	mu        sync.Mutex
	products  map[int64]Product
	lines     []serverLine
	failNext  map[string]int
	block     chan struct{}
	checkouts []checkoutCall
	seenKeys  []string
	payments  map[string]string
}

type checkoutCall struct {
	Key   string
	Total int64
	Items []CheckoutItem
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	api := &fakeAPI{
		products: map[int64]Product{
			1: {ID: 1, Name: "Product A", Price: 10000},
			2: {ID: 2, Name: "Product B", Price: 1500},
		},
		failNext: map[string]int{},
		payments: map[string]string{},
	}
	srv := httptest.NewServer(api.router())
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	return api, c
}

// fail makes the next request to route answer status.
func (a *fakeAPI) fail(route string, status int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failNext[route] = status
}

func (a *fakeAPI) router() *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if a.block != nil && c.Request.Method != http.MethodGet {
			<-a.block
		}
		a.mu.Lock()
		if c.FullPath() == "/api/checkout" {
			a.seenKeys = append(a.seenKeys, c.GetHeader("Idempotency-Key"))
		}
		status, ok := a.failNext[c.FullPath()]
		delete(a.failNext, c.FullPath())
		a.mu.Unlock()
		if ok {
			body := gin.H{"message": http.StatusText(status)}
			if status == http.StatusUnauthorized {
				body = gin.H{"message": "Authentication required", "code": "AUTH_REQUIRED"}
			}
			if status == http.StatusBadRequest {
				body = gin.H{"message": "Validation failed", "errors": []gin.H{{"path": "quantity", "message": "Must be at most 10"}}}
			}
			c.AbortWithStatusJSON(status, body)
		}
	})

	r.POST("/api/login", func(c *gin.Context) {
		var req struct{ Username, Password string }
		_ = c.ShouldBindJSON(&req)
		if req.Password != "secret123" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
			return
		}
		c.SetCookie("khushin.sid", "session-"+req.Username, 3600, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"id": 7, "username": req.Username})
	})
	r.GET("/api/user", func(c *gin.Context) {
		sid, err := c.Cookie("khushin.sid")
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required", "code": "AUTH_REQUIRED"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": 7, "username": sid[len("session-"):]})
	})

	r.GET("/api/cart", func(c *gin.Context) {
		a.mu.Lock()
		defer a.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"items": a.lines, "total": 0, "count": 0})
	})
	r.POST("/api/cart", func(c *gin.Context) {
		var req struct {
			ProductID   int64   `json:"productId"`
			Quantity    int     `json:"quantity"`
			IsGift      bool    `json:"isGift"`
			GiftMessage *string `json:"giftMessage"`
		}
		_ = c.ShouldBindJSON(&req)
		a.mu.Lock()
		defer a.mu.Unlock()
		for i := range a.lines {
			if a.lines[i].ProductID == req.ProductID {
				a.lines[i].Quantity += req.Quantity
				c.JSON(http.StatusOK, a.lines[i])
				return
			}
		}
		l := serverLine{ProductID: req.ProductID, Quantity: req.Quantity, IsGift: req.IsGift, GiftMessage: req.GiftMessage, Product: a.products[req.ProductID]}
		a.lines = append(a.lines, l)
		c.JSON(http.StatusOK, l)
	})
	r.DELETE("/api/cart", func(c *gin.Context) {
		a.mu.Lock()
		a.lines = nil
		a.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	})
	r.DELETE("/api/cart/:id", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		a.mu.Lock()
		defer a.mu.Unlock()
		for i := range a.lines {
			if a.lines[i].ProductID == id {
				a.lines = append(a.lines[:i], a.lines[i+1:]...)
				c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "Item not in cart"})
	})
	r.PATCH("/api/cart/:id/quantity", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		var req struct {
			Quantity int `json:"quantity"`
		}
		_ = c.ShouldBindJSON(&req)
		a.mu.Lock()
		defer a.mu.Unlock()
		for i := range a.lines {
			if a.lines[i].ProductID == id {
				a.lines[i].Quantity = req.Quantity
				c.JSON(http.StatusOK, a.lines[i])
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"message": "Item not in cart"})
	})
	r.PATCH("/api/cart/:id/gift", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	r.POST("/api/checkout", func(c *gin.Context) {
		var req struct {
			Items []CheckoutItem `json:"items"`
			Total int64          `json:"total"`
		}
		_ = c.ShouldBindJSON(&req)
		a.mu.Lock()
		defer a.mu.Unlock()
		key := c.GetHeader("Idempotency-Key")
		a.checkouts = append(a.checkouts, checkoutCall{Key: key, Total: req.Total, Items: req.Items})
		a.lines = nil
		ref := "ORD-" + strconv.Itoa(len(a.checkouts))
		c.JSON(http.StatusCreated, gin.H{"redirectUrl": "/payment/" + ref, "orderRef": ref})
	})
	r.POST("/api/payment/:ref/status", func(c *gin.Context) {
		var req struct {
			Status string `json:"status"`
		}
		_ = c.ShouldBindJSON(&req)
		a.mu.Lock()
		a.payments[c.Param("ref")] = req.Status
		a.mu.Unlock()
		c.JSON(http.StatusOK, gin.H{"orderRef": c.Param("ref"), "status": req.Status, "total": 20000})
	})
	return r
}
