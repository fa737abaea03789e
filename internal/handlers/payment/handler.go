// Package payment serves checkout, the simulated UPI payment step and returns.
package payment

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/models"
)

// Store is the persistence the payment routes need.
type Store interface {
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]models.Product, error)
	CreateOrder(ctx context.Context, o models.Order) (*models.Order, bool, error)
	GetOrderByRef(ctx context.Context, ref string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	FinalizePayment(ctx context.Context, ref string, status models.OrderStatus, method string) (*models.Order, error)

	CreateReturn(ctx context.Context, r models.ReturnRequest) (*models.ReturnRequest, error)
	ListReturns(ctx context.Context, userID int64) ([]models.ReturnRequest, error)
	HasOpenReturn(ctx context.Context, orderRef string) (bool, error)
}

// Publisher announces cart changes to the user's open sockets.
type Publisher interface {
	Publish(ctx context.Context, userID int64, event string)
}

// Notifier sends the order confirmation email.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, o models.Order) error
}

type Deps struct {
	Store     Store
	Events    Publisher
	Mailer    Notifier
	UPIID     string
	PayeeName string
}

type Handler struct {
	store     Store
	events    Publisher
	mailer    Notifier
	upiID     string
	payeeName string

	// notify runs the confirmation email; tests replace it to run inline.
	notify func(func())
}

const emailTimeout = 30 * time.Second

func New(d Deps) *Handler {
	return &Handler{
		store:     d.Store,
		events:    d.Events,
		mailer:    d.Mailer,
		upiID:     d.UPIID,
		payeeName: d.PayeeName,
		notify:    func(fn func()) { go fn() },
	}
}

func (h *Handler) publish(c *gin.Context, userID int64, event string) {
	if h.events != nil {
		h.events.Publish(c.Request.Context(), userID, event)
	}
}

// sendConfirmation mails the paid order outside the request lifecycle.
func (h *Handler) sendConfirmation(o models.Order) {
	if h.mailer == nil {
		return
	}
	h.notify(func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailTimeout)
		defer cancel()
		if err := h.mailer.SendOrderConfirmation(ctx, o); err != nil {
			log.WithError(err).WithField("order_ref", o.OrderRef).Error("❌ Order confirmation email failed")
			return
		}
		log.WithField("order_ref", o.OrderRef).Info("📧 Order confirmation sent")
	})
}
