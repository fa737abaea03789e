package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"khushin_back_end/internal/handlers"
	"khushin_back_end/internal/storage"
)

func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orders, err := h.store.ListOrders(c.Request.Context(), userID)
	if err != nil {
		handlers.Internal(c, err, "Could not load orders")
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) GetOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	o, err := h.store.GetOrderByRef(c.Request.Context(), c.Param("orderRef"))
	if errors.Is(err, storage.ErrNotFound) {
		handlers.Error(c, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		handlers.Internal(c, err, "Could not load order")
		return
	}
	if o.UserID != userID {
		handlers.Error(c, http.StatusForbidden, "Access denied")
		return
	}
	c.JSON(http.StatusOK, o)
}
