package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/handlers"
	"khushin_back_end/internal/metrics"
	"khushin_back_end/internal/middleware"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/order"
	"khushin_back_end/internal/storage"
	"khushin_back_end/internal/utils"
)

// ownedOrder loads the :ref order and checks it belongs to the caller. It writes the
// error response itself.
func (h *Handler) ownedOrder(c *gin.Context, param string) (*models.Order, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		middleware.AbortUnauthorized(c)
		return nil, false
	}
	o, err := h.store.GetOrderByRef(c.Request.Context(), c.Param(param))
	if errors.Is(err, storage.ErrNotFound) {
		handlers.Error(c, http.StatusNotFound, "Order not found")
		return nil, false
	}
	if err != nil {
		handlers.Internal(c, err, "Could not load order")
		return nil, false
	}
	if o.UserID != userID {
		handlers.Error(c, http.StatusForbidden, "Access denied")
		return nil, false
	}
	return o, true
}

// PaymentDetails returns what the payment page shows: the amount and a UPI QR code.
func (h *Handler) PaymentDetails(c *gin.Context) {
	o, ok := h.ownedOrder(c, "ref")
	if !ok {
		return
	}
	uri := utils.UPIPaymentURI(h.upiID, h.payeeName, o.OrderRef, o.Total)
	qr, err := utils.QRDataURL(uri)
	if err != nil {
		handlers.Internal(c, err, "Could not render payment QR code")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orderRef":        o.OrderRef,
		"amount":          o.Total,
		"amountFormatted": order.FormatINR(o.Total),
		"upiId":           h.upiID,
		"payeeName":       h.payeeName,
		"upiUri":          uri,
		"qrCode":          qr,
		"status":          o.Status,
	})
}

// UpdateStatus records the simulated payment outcome. Only a pending order moves, and
// only once.
func (h *Handler) UpdateStatus(c *gin.Context) {
	o, ok := h.ownedOrder(c, "ref")
	if !ok {
		return
	}
	var req models.PaymentStatusRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	target, err := order.ParseStatus(req.Status)
	if err != nil {
		handlers.Error(c, http.StatusBadRequest, "Invalid payment status")
		return
	}
	if _, err := order.Transition(o.Status, target); err != nil {
		handlers.Error(c, http.StatusConflict, "Order is already "+string(o.Status))
		return
	}

	updated, err := h.store.FinalizePayment(c.Request.Context(), o.OrderRef, target, req.Method)
	if errors.Is(err, storage.ErrConflict) || errors.Is(err, order.ErrInvalidTransition) {
		handlers.Error(c, http.StatusConflict, "Order is no longer pending")
		return
	}
	if err != nil {
		handlers.Internal(c, err, "Could not update payment status")
		return
	}

	metrics.RecordPayment(string(updated.Status))
	log.WithFields(log.Fields{"order_ref": updated.OrderRef, "status": updated.Status}).Info("💳 Payment status updated")
	if updated.Status == models.OrderCompleted {
		h.sendConfirmation(*updated)
	}
	c.JSON(http.StatusOK, updated)
}

// ShippingQuote prices shipping for ?subtotal= (paise).
func (h *Handler) ShippingQuote(c *gin.Context) {
	var q struct {
		Subtotal *int64 `form:"subtotal" binding:"required,min=0"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		handlers.Error(c, http.StatusBadRequest, "subtotal must be a non-negative integer")
		return
	}
	quote := order.QuoteSubtotal(*q.Subtotal)
	c.JSON(http.StatusOK, gin.H{
		"subtotal":          quote.Subtotal,
		"shipping":          quote.Shipping,
		"total":             quote.Total,
		"isFree":            quote.IsFree,
		"freeThreshold":     order.FreeShippingThreshold,
		"shippingFormatted": order.FormatINR(quote.Shipping),
		"totalFormatted":    order.FormatINR(quote.Total),
	})
}
