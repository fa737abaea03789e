// Package user serves the customer-facing account, cart, order and realtime routes.
package user

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"

	"khushin_back_end/internal/handlers"
	"khushin_back_end/internal/middleware"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/services"
)

// Store is the persistence the user routes need.
type Store interface {
	CreateUser(ctx context.Context, u models.User) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ConvertGuest(ctx context.Context, id int64, username, passwordHash, email string) (*models.User, error)

	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetCart(ctx context.Context, userID int64) ([]models.CartLine, error)
	AddCartItem(ctx context.Context, item models.CartItem) (*models.CartItem, error)
	UpdateCartQuantity(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error)
	UpdateCartGift(ctx context.Context, userID, productID int64, isGift bool, message *string) (*models.CartItem, error)
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error

	ListOrders(ctx context.Context, userID int64) ([]models.Order, error)
	GetOrderByRef(ctx context.Context, ref string) (*models.Order, error)

	GetLoyaltyAccount(ctx context.Context, userID int64) (*models.LoyaltyAccount, error)
	GetOrCreateReferral(ctx context.Context, userID int64) (*models.Referral, error)
	RedeemReferral(ctx context.Context, code string, userID int64) (*models.Referral, error)
}

// UserReader serves the current-user profile, usually through the Redis cache.
type UserReader interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	Invalidate(ctx context.Context, id int64)
}

// CartEvents publishes and streams per-user cart changes.
type CartEvents interface {
	Publish(ctx context.Context, userID int64, event string)
	Subscribe(ctx context.Context, userID int64) (<-chan string, error)
}

type Deps struct {
	Store       Store
	Auth        *middleware.Auth
	Users       UserReader
	Events      CartEvents
	Images      *services.ImageSigner
	FrontendURL string
}

type Handler struct {
	store       Store
	auth        *middleware.Auth
	users       UserReader
	events      CartEvents
	images      *services.ImageSigner
	frontendURL string

	beginOAuth    func(http.ResponseWriter, *http.Request)
	completeOAuth func(http.ResponseWriter, *http.Request) (goth.User, error)
	now           func() time.Time

	pingInterval time.Duration
	msgRate      float64
	msgBurst     int
}

func New(d Deps) *Handler {
	return &Handler{
		store:         d.Store,
		auth:          d.Auth,
		users:         d.Users,
		events:        d.Events,
		images:        d.Images,
		frontendURL:   d.FrontendURL,
		beginOAuth:    gothic.BeginAuthHandler,
		completeOAuth: gothic.CompleteUserAuth,
		now:           time.Now,
		pingInterval:  30 * time.Second,
		msgRate:       5,
		msgBurst:      10,
	}
}

func (h *Handler) publish(c *gin.Context, userID int64, event string) {
	if h.events != nil {
		h.events.Publish(c.Request.Context(), userID, event)
	}
}

func (h *Handler) invalidateUser(ctx context.Context, id int64) {
	if h.users != nil {
		h.users.Invalidate(ctx, id)
	}
}

func currentUser(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		middleware.AbortUnauthorized(c)
	}
	return id, ok
}

func productIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil || id <= 0 {
		handlers.Error(c, http.StatusBadRequest, "Invalid product id")
		return 0, false
	}
	return id, true
}
