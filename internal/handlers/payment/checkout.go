package payment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/handlers"
	"khushin_back_end/internal/metrics"
	"khushin_back_end/internal/middleware"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/order"
	"khushin_back_end/internal/services"
	"khushin_back_end/internal/storage"
)

const (
	IdempotencyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

type checkoutResponse struct {
	RedirectURL string `json:"redirectUrl"`
	OrderRef    string `json:"orderRef"`
}

func newCheckoutResponse(ref string) checkoutResponse {
	return checkoutResponse{RedirectURL: "/payment/" + ref, OrderRef: ref}
}

// Checkout turns the submitted items into a pending order. Prices come from the product
// table, never from the client, and the client's total must match the recomputed one.
// Replaying an Idempotency-Key returns the order it created.
func (h *Handler) Checkout(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		middleware.AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()

	var key *string
	if k := c.GetHeader(IdempotencyHeader); k != "" {
		if len(k) > maxIdempotencyKeyLen {
			handlers.Error(c, http.StatusBadRequest, "Idempotency-Key is too long")
			return
		}
		key = &k
		existing, err := h.store.GetOrderByIdempotencyKey(ctx, k)
		switch {
		case err == nil && existing.UserID == userID:
			c.JSON(http.StatusOK, newCheckoutResponse(existing.OrderRef))
			return
		case err == nil:
			handlers.Error(c, http.StatusConflict, "Idempotency-Key already used")
			return
		case !errors.Is(err, storage.ErrNotFound):
			handlers.Internal(c, err, "Checkout failed")
			return
		}
	}

	var req models.CheckoutRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	lines, ok := mergeItems(req.Items)
	if !ok {
		handlers.Error(c, http.StatusBadRequest, fmt.Sprintf("Maximum quantity per item is %d", models.MaxLineQuantity))
		return
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := h.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		handlers.Internal(c, err, "Checkout failed")
		return
	}

	items := make(models.OrderItems, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			handlers.Error(c, http.StatusBadRequest, fmt.Sprintf("Product %d is no longer available", l.ProductID))
			return
		}
		item := models.OrderItem{ProductID: p.ID, Quantity: l.Quantity, Price: p.Price, Name: p.Name}
		if len(p.Images) > 0 {
			item.Image = p.Images[0]
		}
		items = append(items, item)
	}

	quote := order.QuoteItems(items)
	if req.Total != quote.Total {
		log.WithFields(log.Fields{"user_id": userID, "client_total": req.Total, "total": quote.Total}).
			Warn("⚠️  Checkout total mismatch")
		handlers.Error(c, http.StatusBadRequest, "Cart total has changed, please review your order")
		return
	}

	o, created, err := h.store.CreateOrder(ctx, models.Order{
		OrderRef:       order.NewOrderRef(),
		UserID:         userID,
		Status:         models.OrderPending,
		Items:          items,
		Shipping:       req.Shipping,
		Subtotal:       quote.Subtotal,
		ShippingCost:   quote.Shipping,
		Total:          quote.Total,
		IdempotencyKey: key,
	})
	if err != nil {
		handlers.Internal(c, err, "Checkout failed")
		return
	}
	if !created {
		if o.UserID != userID {
			handlers.Error(c, http.StatusConflict, "Idempotency-Key already used")
			return
		}
		c.JSON(http.StatusOK, newCheckoutResponse(o.OrderRef))
		return
	}

	h.publish(c, userID, services.CartCleared)
	metrics.RecordOrderCreated()
	log.WithFields(log.Fields{"user_id": userID, "order_ref": o.OrderRef, "total": o.Total}).Info("🛒 Order created")
	c.JSON(http.StatusCreated, newCheckoutResponse(o.OrderRef))
}

// mergeItems folds repeated product ids into one line, keeping first-seen order. It
// fails when a merged line exceeds the per-item limit.
func mergeItems(items []models.CheckoutItem) ([]models.CheckoutItem, bool) {
	index := make(map[int64]int, len(items))
	out := make([]models.CheckoutItem, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			if out[i].Quantity > models.MaxLineQuantity {
				return nil, false
			}
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out, true
}
