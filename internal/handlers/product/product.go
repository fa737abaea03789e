// Package product serves the public catalogue.
package product

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/handlers"
	"khushin_back_end/internal/models"
	"khushin_back_end/internal/services"
	"khushin_back_end/internal/storage"
)

const maxQueryLength = 100

// Catalogue reads products, usually through the Redis cache.
type Catalogue interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// Store is the fallback when the search index is unavailable.
type Store interface {
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]models.Product, error)
	SearchProducts(ctx context.Context, q string) ([]models.Product, error)
}

// Searcher returns matching product ids in relevance order.
type Searcher interface {
	Enabled() bool
	Search(ctx context.Context, query string) ([]int64, error)
}

type Handler struct {
	catalogue Catalogue
	store     Store
	search    Searcher
	images    *services.ImageSigner
}

func New(catalogue Catalogue, store Store, search Searcher, images *services.ImageSigner) *Handler {
	return &Handler{catalogue: catalogue, store: store, search: search, images: images}
}

func (h *Handler) List(c *gin.Context) {
	products, err := h.catalogue.ListProducts(c.Request.Context())
	if err != nil {
		handlers.Internal(c, err, "Could not load products")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	if category := c.Query("category"); category != "" {
		products = filterCategory(products, category)
	}
	h.images.SignProducts(c.Request.Context(), products)
	c.JSON(http.StatusOK, products)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		handlers.Error(c, http.StatusBadRequest, "Invalid product id")
		return
	}
	p, err := h.catalogue.GetProduct(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		handlers.Error(c, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		handlers.Internal(c, err, "Could not load product")
		return
	}
	h.images.SignProduct(c.Request.Context(), p)
	c.JSON(http.StatusOK, p)
}

// Search queries Elasticsearch and hydrates the hits from Postgres, keeping the index's
// ranking. When the index is down it falls back to a name/description match.
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		handlers.Error(c, http.StatusBadRequest, "Search query is required")
		return
	}
	if len(q) > maxQueryLength {
		q = q[:maxQueryLength]
	}
	ctx := c.Request.Context()

	products, err := h.searchIndex(ctx, q)
	if err != nil {
		if !errors.Is(err, services.ErrSearchUnavailable) {
			log.WithError(err).WithField("query", q).Warn("⚠️  Search index failed, using database")
		}
		products, err = h.store.SearchProducts(ctx, q)
		if err != nil {
			handlers.Internal(c, err, "Search failed")
			return
		}
	}
	if products == nil {
		products = []models.Product{}
	}
	h.images.SignProducts(ctx, products)
	c.JSON(http.StatusOK, products)
}

func (h *Handler) searchIndex(ctx context.Context, q string) ([]models.Product, error) {
	if h.search == nil || !h.search.Enabled() {
		return nil, services.ErrSearchUnavailable
	}
	ids, err := h.search.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	byID, err := h.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		// Hits for products deleted since indexing are skipped.
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func filterCategory(products []models.Product, category string) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}
