package user

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"khushin_back_end/internal/handlers"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/storage"
)

func (h *Handler) Loyalty(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	acct, err := h.store.GetLoyaltyAccount(c.Request.Context(), userID)
	if err != nil {
		handlers.Internal(c, err, "Could not load loyalty account")
		return
	}
	c.JSON(http.StatusOK, acct)
}

// Referral returns the caller's open referral code, issuing one on first use.
func (h *Handler) Referral(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ref, err := h.store.GetOrCreateReferral(c.Request.Context(), userID)
	if err != nil {
		handlers.Internal(c, err, "Could not load referral code")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":  ref.Code,
		"bonus": storage.ReferralBonus,
	})
}

func (h *Handler) RedeemReferral(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.RedeemReferralRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	ref, err := h.store.RedeemReferral(c.Request.Context(), strings.ToUpper(strings.TrimSpace(req.Code)), userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		handlers.Error(c, http.StatusNotFound, "Referral code not found")
	case errors.Is(err, storage.ErrSelfReferral):
		handlers.Error(c, http.StatusBadRequest, "You cannot redeem your own referral code")
	case errors.Is(err, storage.ErrAlreadyReferred):
		handlers.Error(c, http.StatusConflict, "You have already redeemed a referral code")
	case errors.Is(err, storage.ErrConflict):
		handlers.Error(c, http.StatusConflict, "Referral code already used")
	case err != nil:
		handlers.Internal(c, err, "Could not redeem referral code")
	default:
		c.JSON(http.StatusOK, gin.H{
			"message":  "Referral redeemed",
			"bonus":    storage.ReferralBonus,
			"referral": ref,
		})
	}
}
