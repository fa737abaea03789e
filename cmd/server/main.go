package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/cache"
	"khushin_back_end/internal/config"
	"khushin_back_end/internal/database"
	"khushin_back_end/internal/handlers/payment"
	"khushin_back_end/internal/handlers/product"
	"khushin_back_end/internal/handlers/user"
	"khushin_back_end/internal/jobs"
	"khushin_back_end/internal/middleware"
	"khushin_back_end/internal/routes"
	"khushin_back_end/internal/services"
	"khushin_back_end/internal/session"
	"khushin_back_end/internal/storage"
	"khushin_back_end/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("❌ Invalid configuration")
	}
	config.ConfigureLogging(cfg)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conns, err := database.Connect(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("❌ Could not connect backing services")
	}
	defer conns.Close()

	if err := database.Migrate(conns.DB); err != nil {
		log.WithError(err).Fatal("❌ Database migration failed")
	}

	store := storage.New(conns.DB)

	// ===== Sessions & auth =====
	sessionStore := session.NewRedisStore(conns.Redis, cfg.SessionMaxAge, cfg.CookieSecure, []byte(cfg.SessionSecret))
	gothic.Store = sessionStore
	if providers := config.OAuthProviders(cfg); len(providers) > 0 {
		goth.UseProviders(providers...)
		log.WithField("count", len(providers)).Info("✅ OAuth providers enabled")
	} else {
		log.Warn("⚠️  No OAuth provider configured")
	}
	auth := middleware.NewAuth(sessionStore, utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL))

	// ===== Services =====
	products := cache.NewProducts(conns.Redis, store)
	users := cache.NewUsers(conns.Redis, store)
	search := services.NewProductSearch(conns.Elastic)
	images := services.NewImageSigner(conns.MinIO, cfg.MinIOBucket, services.DefaultImageURLTTL)
	events := services.NewCartEvents(conns.Redis)
	mailer := utils.NewMailer(cfg)

	if search.Enabled() {
		go indexCatalogue(ctx, store, search)
	}

	scheduler, err := jobs.NewScheduler(cfg.GuestCleanupSchedule, store)
	if err != nil {
		log.WithError(err).Fatal("❌ Invalid job schedule")
	}
	scheduler.Start()

	router := routes.New(routes.Options{
		FrontendURL: cfg.FrontendURL,
		Auth:        auth,
		Limiter:     middleware.NewRateLimiter(conns.Redis),
		Health: map[string]routes.HealthCheck{
			"postgres": store.Ping,
			"redis":    func(ctx context.Context) error { return conns.Redis.Ping(ctx).Err() },
		},
		User: user.New(user.Deps{
			Store:       store,
			Auth:        auth,
			Users:       users,
			Events:      events,
			Images:      images,
			FrontendURL: cfg.FrontendURL,
		}),
		Product: product.New(products, store, search, images),
		Payment: payment.New(payment.Deps{
			Store:     store,
			Events:    events,
			Mailer:    mailer,
			UPIID:     cfg.UPIID,
			PayeeName: cfg.UPIPayeeName,
		}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("🚀 Khushin server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("❌ Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("❌ HTTP server shutdown")
	}
	scheduler.Stop(shutdownCtx)
	log.Info("👋 Server stopped")
}

// indexCatalogue pushes the product table into Elasticsearch so search starts warm.
func indexCatalogue(ctx context.Context, store *storage.Storage, search *services.ProductSearch) {
	list, err := store.ListProducts(ctx)
	if err != nil {
		log.WithError(err).Warn("⚠️  Could not load products for indexing")
		return
	}
	if err := search.IndexProducts(ctx, list); err != nil {
		log.WithError(err).Warn("⚠️  Product indexing failed, search falls back to SQL")
	}
}
