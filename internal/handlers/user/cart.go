package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"khushin_back_end/internal/handlers"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/services"
	"khushin_back_end/internal/storage"
)

type cartResponse struct {
	Items []models.CartLine `json:"items"`
	Total int64             `json:"total"`
	Count int               `json:"count"`
}

func (h *Handler) loadCart(c *gin.Context, userID int64) (*cartResponse, error) {
	lines, err := h.store.GetCart(c.Request.Context(), userID)
	if err != nil {
		return nil, err
	}
	count := 0
	for i := range lines {
		h.images.SignProduct(c.Request.Context(), &lines[i].Product)
		count += lines[i].Quantity
	}
	return &cartResponse{Items: lines, Total: models.CartTotal(lines), Count: count}, nil
}

func (h *Handler) GetCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	cart, err := h.loadCart(c, userID)
	if err != nil {
		handlers.Internal(c, err, "Could not load cart")
		return
	}
	c.JSON(http.StatusOK, cart)
}

// AddToCart adds a product or merges the quantity into the existing line.
func (h *Handler) AddToCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.AddToCartRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	ctx := c.Request.Context()

	if _, err := h.store.GetProduct(ctx, req.ProductID); errors.Is(err, storage.ErrNotFound) {
		handlers.Error(c, http.StatusNotFound, "Product not found")
		return
	} else if err != nil {
		handlers.Internal(c, err, "Could not add to cart")
		return
	}

	item, err := h.store.AddCartItem(ctx, models.CartItem{
		UserID:      userID,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		IsGift:      req.IsGift,
		GiftMessage: req.GiftMessage,
	})
	switch {
	case errors.Is(err, storage.ErrQuantityLimit):
		handlers.Error(c, http.StatusBadRequest, "Maximum quantity per item is 10")
		return
	case errors.Is(err, storage.ErrNotFound):
		handlers.Error(c, http.StatusNotFound, "Product not found")
		return
	case err != nil:
		handlers.Internal(c, err, "Could not add to cart")
		return
	}

	h.publish(c, userID, services.CartUpdated)
	c.JSON(http.StatusOK, item)
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	err := h.store.RemoveCartItem(c.Request.Context(), userID, productID)
	if errors.Is(err, storage.ErrNotFound) {
		handlers.Error(c, http.StatusNotFound, "Item not in cart")
		return
	}
	if err != nil {
		handlers.Internal(c, err, "Could not remove item")
		return
	}
	h.publish(c, userID, services.CartUpdated)
	c.JSON(http.StatusOK, gin.H{"message": "Item removed"})
}

func (h *Handler) UpdateQuantity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	var req models.UpdateQuantityRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	item, err := h.store.UpdateCartQuantity(c.Request.Context(), userID, productID, req.Quantity)
	if errors.Is(err, storage.ErrNotFound) {
		handlers.Error(c, http.StatusNotFound, "Item not in cart")
		return
	}
	if err != nil {
		handlers.Internal(c, err, "Could not update quantity")
		return
	}
	h.publish(c, userID, services.CartUpdated)
	c.JSON(http.StatusOK, item)
}

func (h *Handler) UpdateGift(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := productIDParam(c)
	if !ok {
		return
	}
	var req models.UpdateGiftRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	item, err := h.store.UpdateCartGift(c.Request.Context(), userID, productID, *req.IsGift, req.GiftMessage)
	if errors.Is(err, storage.ErrNotFound) {
		handlers.Error(c, http.StatusNotFound, "Item not in cart")
		return
	}
	if err != nil {
		handlers.Internal(c, err, "Could not update gift options")
		return
	}
	h.publish(c, userID, services.CartUpdated)
	c.JSON(http.StatusOK, item)
}

func (h *Handler) ClearCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.store.ClearCart(c.Request.Context(), userID); err != nil {
		handlers.Internal(c, err, "Could not clear cart")
		return
	}
	h.publish(c, userID, services.CartCleared)
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
