package user

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/handlers"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/storage"
	"khushin_back_end/internal/utils"
)

// ================== LOCAL AUTH ==================

func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.store.GetUserByUsername(ctx, req.Username); err == nil {
		handlers.Error(c, http.StatusBadRequest, "Username already exists")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		handlers.Internal(c, err, "Registration failed")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		handlers.Internal(c, err, "Registration failed")
		return
	}
	u, err := h.store.CreateUser(ctx, models.User{
		Username:  req.Username,
		Password:  hash,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if errors.Is(err, storage.ErrConflict) {
		handlers.Error(c, http.StatusBadRequest, "Username already exists")
		return
	}
	if err != nil {
		handlers.Internal(c, err, "Registration failed")
		return
	}

	h.startSession(c, u, http.StatusCreated)
	log.WithField("user_id", u.ID).Info("👤 User registered")
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	u, err := h.store.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		handlers.Internal(c, err, "Login failed")
		return
	}
	if u == nil {
		handlers.Error(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	ok, err := utils.VerifyPassword(req.Password, u.Password)
	if err != nil || !ok {
		handlers.Error(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if u.GuestExpired(h.now()) {
		handlers.Error(c, http.StatusUnauthorized, "Guest account has expired")
		return
	}

	h.startSession(c, u, http.StatusOK)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c); err != nil {
		handlers.Internal(c, err, "Logout failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// ================== GUESTS ==================

// GuestLogin creates a throwaway account with random credentials that expires after
// models.GuestLifetime, and signs the caller in as that account.
func (h *Handler) GuestLogin(c *gin.Context) {
	hash, err := utils.HashPassword(utils.RandomPassword())
	if err != nil {
		handlers.Internal(c, err, "Guest login failed")
		return
	}
	expires := h.now().Add(models.GuestLifetime)
	u, err := h.store.CreateUser(c.Request.Context(), models.User{
		Username:       "guest_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Password:       hash,
		IsGuest:        true,
		GuestExpiresAt: &expires,
	})
	if err != nil {
		handlers.Internal(c, err, "Guest login failed")
		return
	}
	h.startSession(c, u, http.StatusCreated)
}

func (h *Handler) ConvertGuest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req models.ConvertGuestRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	current, err := h.store.GetUser(ctx, userID)
	if err != nil {
		handlers.Internal(c, err, "Account conversion failed")
		return
	}
	if !current.IsGuest {
		handlers.Error(c, http.StatusBadRequest, "Account is not a guest account")
		return
	}
	if existing, err := h.store.GetUserByUsername(ctx, req.Username); err == nil && existing.ID != userID {
		handlers.Error(c, http.StatusBadRequest, "Username already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		handlers.Internal(c, err, "Account conversion failed")
		return
	}
	u, err := h.store.ConvertGuest(ctx, userID, req.Username, hash, req.Email)
	switch {
	case errors.Is(err, storage.ErrConflict):
		handlers.Error(c, http.StatusBadRequest, "Username already exists")
		return
	case errors.Is(err, storage.ErrNotFound):
		handlers.Error(c, http.StatusBadRequest, "Account is not a guest account")
		return
	case err != nil:
		handlers.Internal(c, err, "Account conversion failed")
		return
	}

	h.invalidateUser(ctx, userID)
	h.startSession(c, u, http.StatusOK)
	log.WithField("user_id", u.ID).Info("🎉 Guest converted to permanent account")
}

// CurrentUser returns the signed-in user's profile.
func (h *Handler) CurrentUser(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var (
		u   *models.User
		err error
	)
	if h.users != nil {
		u, err = h.users.GetUser(c.Request.Context(), userID)
	} else {
		u, err = h.store.GetUser(c.Request.Context(), userID)
	}
	if errors.Is(err, storage.ErrNotFound) {
		handlers.Error(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	if err != nil {
		handlers.Internal(c, err, "Could not load user")
		return
	}
	c.JSON(http.StatusOK, u)
}

// startSession binds u to the session cookie and writes it as the response body.
// Bearer clients also get a token in X-Auth-Token.
func (h *Handler) startSession(c *gin.Context, u *models.User, status int) {
	if err := h.auth.Login(c, u); err != nil {
		handlers.Internal(c, err, "Could not start session")
		return
	}
	if tok, ok := h.auth.IssueToken(u.ID); ok {
		c.Header("X-Auth-Token", tok)
	}
	c.JSON(status, u)
}
