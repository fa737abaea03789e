package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	LoginMaxAttempts    = 5
	RegisterMaxAttempts = 3
	CartMaxRequests     = 20
	SearchMaxRequests   = 30

	LoginCooldown    = 15 * time.Minute
	RegisterCooldown = 30 * time.Minute
	Window           = time.Minute
)

// RateLimiter keeps fixed-window counters in Redis. Redis failures let the request through.
type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func tooMany(c *gin.Context, msg string, retry time.Duration) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"message":     msg,
		"retry_after": int(retry.Seconds()),
	})
}

// Login blocks a username for LoginCooldown after LoginMaxAttempts failed logins.
func (rl *RateLimiter) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Next()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var input struct {
			Username string `json:"username"`
		}
		if json.Unmarshal(body, &input) != nil || input.Username == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "login_attempts:" + input.Username
		cooldownKey := "login_cooldown:" + input.Username

		if ttl, err := rl.client.TTL(ctx, cooldownKey).Result(); err == nil && ttl > 0 {
			tooMany(c, fmt.Sprintf("Too many failed attempts. Try again in %d minutes", int(ttl.Minutes())+1), ttl)
			return
		}

		attempts, _ := rl.client.Get(ctx, key).Int()
		if attempts >= LoginMaxAttempts {
			rl.client.Set(ctx, cooldownKey, "1", LoginCooldown)
			rl.client.Del(ctx, key)
			tooMany(c, fmt.Sprintf("Too many failed attempts. Account locked for %d minutes", int(LoginCooldown.Minutes())), LoginCooldown)
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			pipe := rl.client.Pipeline()
			pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, LoginCooldown)
			if _, err := pipe.Exec(ctx); err != nil {
				log.WithError(err).Warn("⚠️  Login attempt counter not updated")
			}
		case http.StatusOK:
			rl.client.Del(ctx, key, cooldownKey)
		}
	}
}

// Register caps successful sign-ups per client IP.
func (rl *RateLimiter) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := "register_attempts:" + c.ClientIP()

		attempts, _ := rl.client.Get(ctx, key).Int()
		if attempts >= RegisterMaxAttempts {
			ttl := rl.client.TTL(ctx, key).Val()
			if ttl <= 0 {
				ttl = RegisterCooldown
			}
			tooMany(c, fmt.Sprintf("Too many sign-ups. Try again in %d minutes", int(ttl.Minutes())+1), ttl)
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusCreated {
			pipe := rl.client.Pipeline()
			pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, RegisterCooldown)
			pipe.Exec(ctx)
		}
	}
}

// Cart limits cart mutations per user.
func (rl *RateLimiter) Cart() gin.HandlerFunc {
	return rl.window("cart_ops", CartMaxRequests, func(c *gin.Context) string {
		id, ok := UserID(c)
		if !ok {
			return ""
		}
		return strconv.FormatInt(id, 10)
	}, "Too many cart updates. Slow down a little")
}

// Search limits product searches per client IP.
func (rl *RateLimiter) Search() gin.HandlerFunc {
	return rl.window("search_requests", SearchMaxRequests, func(c *gin.Context) string {
		return c.ClientIP()
	}, "Too many searches. Try again in a minute")
}

func (rl *RateLimiter) window(prefix string, max int, keyFn func(*gin.Context) string, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := keyFn(c)
		if id == "" {
			c.Next()
			return
		}
		count, err := rl.incr(c.Request.Context(), prefix+":"+id)
		if err != nil {
			log.WithError(err).Warn("⚠️  Rate limiter unavailable")
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		if count > int64(max) {
			tooMany(c, msg, Window)
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(int64(max)-count, 10))
		c.Next()
	}
}

func (rl *RateLimiter) incr(ctx context.Context, key string) (int64, error) {
	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := rl.client.Expire(ctx, key, Window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}
