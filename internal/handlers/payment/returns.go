package payment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/handlers"
	"khushin_back_end/internal/middleware"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/storage"
)

// CreateReturn opens a return request against a completed order.
func (h *Handler) CreateReturn(c *gin.Context) {
	o, ok := h.ownedOrder(c, "orderRef")
	if !ok {
		return
	}
	var req models.CreateReturnRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	if o.Status != models.OrderCompleted {
		handlers.Error(c, http.StatusBadRequest, "Only completed orders can be returned")
		return
	}
	if msg := checkReturnItems(o.Items, req.Items); msg != "" {
		handlers.Error(c, http.StatusBadRequest, msg)
		return
	}

	ctx := c.Request.Context()
	open, err := h.store.HasOpenReturn(ctx, o.OrderRef)
	if err != nil {
		handlers.Internal(c, err, "Could not create return request")
		return
	}
	if open {
		handlers.Error(c, http.StatusConflict, "A return request is already open for this order")
		return
	}

	r, err := h.store.CreateReturn(ctx, models.ReturnRequest{
		OrderRef: o.OrderRef,
		UserID:   o.UserID,
		Reason:   req.Reason,
		Items:    req.Items,
	})
	if errors.Is(err, storage.ErrConflict) {
		handlers.Error(c, http.StatusConflict, "A return request is already open for this order")
		return
	}
	if err != nil {
		handlers.Internal(c, err, "Could not create return request")
		return
	}
	log.WithFields(log.Fields{"order_ref": o.OrderRef, "return_id": r.ID}).Info("↩️  Return requested")
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) ListReturns(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		middleware.AbortUnauthorized(c)
		return
	}
	returns, err := h.store.ListReturns(c.Request.Context(), userID)
	if err != nil {
		handlers.Internal(c, err, "Could not load returns")
		return
	}
	c.JSON(http.StatusOK, returns)
}

// checkReturnItems requires every returned product to be in the order, with the summed
// quantity per product not exceeding what was bought. It returns the client-facing
// message for the first violation, or "".
func checkReturnItems(ordered models.OrderItems, returned []models.ReturnItem) string {
	bought := make(map[int64]int, len(ordered))
	for _, it := range ordered {
		bought[it.ProductID] += it.Quantity
	}
	asked := make(map[int64]int, len(returned))
	for _, it := range returned {
		qty, ok := bought[it.ProductID]
		if !ok {
			return fmt.Sprintf("Product %d is not part of this order", it.ProductID)
		}
		asked[it.ProductID] += it.Quantity
		if asked[it.ProductID] > qty {
			return fmt.Sprintf("Cannot return more than %d of product %d", qty, it.ProductID)
		}
	}
	return ""
}
