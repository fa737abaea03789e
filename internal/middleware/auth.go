package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/models"
	"khushin_back_end/internal/session"
	"khushin_back_end/internal/utils"
)

// Context and session keys.
const (
	ContextUserID = "user_id"

	sessionUserKey        = "user_id"
	sessionGuestExpiryKey = "guest_expires"
)

// Auth resolves the current user from the session cookie or a bearer token.
type Auth struct {
	store  sessions.Store
	tokens *utils.TokenIssuer
}

func NewAuth(store sessions.Store, tokens *utils.TokenIssuer) *Auth {
	return &Auth{store: store, tokens: tokens}
}

// Authenticate sets the user id in the context when the request carries valid
// credentials. It never rejects a request.
func (a *Auth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := a.fromBearer(c); ok {
			c.Set(ContextUserID, id)
			c.Next()
			return
		}

		sess, err := a.store.Get(c.Request, session.Name)
		if err != nil {
			log.WithError(err).Warn("⚠️  Session lookup failed")
			c.Next()
			return
		}
		id, ok := sess.Values[sessionUserKey].(int64)
		if !ok {
			c.Next()
			return
		}
		if exp, ok := sess.Values[sessionGuestExpiryKey].(int64); ok && time.Now().Unix() > exp {
			log.WithField("user_id", id).Info("⌛ Guest session expired")
			c.Next()
			return
		}
		c.Set(ContextUserID, id)
		c.Next()
	}
}

func (a *Auth) fromBearer(c *gin.Context) (int64, bool) {
	if !a.tokens.Enabled() {
		return 0, false
	}
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return 0, false
	}
	id, err := a.tokens.Parse(raw)
	if err != nil {
		log.WithError(err).Debug("🔐 Bearer token rejected")
		return 0, false
	}
	return id, true
}

// RequireAuth rejects requests that Authenticate did not resolve to a user.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			AbortUnauthorized(c)
			return
		}
		c.Next()
	}
}

// AbortUnauthorized writes the 401 body clients match on.
func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"message": "Authentication required",
		"code":    "AUTH_REQUIRED",
	})
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

type renewer interface {
	Renew(r *http.Request, sess *sessions.Session) error
}

// Login binds the user to a freshly issued session id and writes the cookie.
func (a *Auth) Login(c *gin.Context, u *models.User) error {
	sess, err := a.store.Get(c.Request, session.Name)
	if err != nil {
		return err
	}
	if rs, ok := a.store.(renewer); ok {
		if err := rs.Renew(c.Request, sess); err != nil {
			return err
		}
	} else {
		sess.ID = ""
	}
	sess.Values[sessionUserKey] = u.ID
	if u.IsGuest && u.GuestExpiresAt != nil {
		sess.Values[sessionGuestExpiryKey] = u.GuestExpiresAt.Unix()
	} else {
		delete(sess.Values, sessionGuestExpiryKey)
	}
	if err := sess.Save(c.Request, c.Writer); err != nil {
		return err
	}
	c.Set(ContextUserID, u.ID)
	return nil
}

// Logout destroys the session.
func (a *Auth) Logout(c *gin.Context) error {
	sess, err := a.store.Get(c.Request, session.Name)
	if err != nil {
		return err
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request, c.Writer)
}

// IssueToken returns a bearer token for the user when token auth is configured.
func (a *Auth) IssueToken(userID int64) (string, bool) {
	if !a.tokens.Enabled() {
		return "", false
	}
	tok, err := a.tokens.Generate(userID)
	if err != nil {
		log.WithError(err).Error("❌ Token generation failed")
		return "", false
	}
	return tok, true
}
