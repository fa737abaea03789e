package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/handlers"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/storage"
	"khushin_back_end/internal/utils"
)

// ================== SOCIAL AUTH ==================

func (h *Handler) BeginOAuth(c *gin.Context) {
	provider := c.Param("provider")
	if _, err := goth.GetProvider(provider); err != nil {
		handlers.Error(c, http.StatusBadRequest, "Unsupported provider")
		return
	}
	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()
	h.beginOAuth(c.Writer, c.Request)
}

// OAuthCallback finds or creates the local account for the provider identity, starts a
// session and sends the browser back to the storefront.
func (h *Handler) OAuthCallback(c *gin.Context) {
	provider := c.Param("provider")
	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()

	gu, err := h.completeOAuth(c.Writer, c.Request)
	if err != nil {
		log.WithError(err).WithField("provider", provider).Warn("⚠️  OAuth callback rejected")
		handlers.Error(c, http.StatusUnauthorized, "Authentication failed")
		return
	}

	u, err := h.findOrCreateOAuthUser(c, gu)
	if err != nil {
		handlers.Internal(c, err, "Authentication failed")
		return
	}
	if err := h.auth.Login(c, u); err != nil {
		handlers.Internal(c, err, "Could not start session")
		return
	}
	log.WithFields(log.Fields{"user_id": u.ID, "provider": provider}).Info("🔐 OAuth login")
	c.Redirect(http.StatusFound, h.frontendURL+"/")
}

func (h *Handler) findOrCreateOAuthUser(c *gin.Context, gu goth.User) (*models.User, error) {
	ctx := c.Request.Context()
	username := gu.Provider + "_" + gu.UserID

	u, err := h.store.GetUserByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(utils.RandomPassword())
	if err != nil {
		return nil, err
	}
	nu := models.User{Username: username, Password: hash}
	if gu.Email != "" {
		nu.Email = &gu.Email
	}
	if gu.FirstName != "" {
		nu.FirstName = &gu.FirstName
	}
	if gu.LastName != "" {
		nu.LastName = &gu.LastName
	}
	return h.store.CreateUser(ctx, nu)
}
