package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/models"
)

const ProductIndex = "products"

var ErrSearchUnavailable = errors.New("search index unavailable")

// ProductSearch indexes the catalogue in Elasticsearch and answers free-text queries.
type ProductSearch struct {
	client *elasticsearch.Client
	index  string
}

func NewProductSearch(client *elasticsearch.Client) *ProductSearch {
	return &ProductSearch{client: client, index: ProductIndex}
}

// Enabled is false when no Elasticsearch client is configured.
func (s *ProductSearch) Enabled() bool {
	return s != nil && s.client != nil
}

type productDoc struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
}

// IndexProducts upserts every product document. It stops at the first failure.
func (s *ProductSearch) IndexProducts(ctx context.Context, products []models.Product) error {
	if !s.Enabled() {
		return ErrSearchUnavailable
	}
	for _, p := range products {
		data, err := json.Marshal(productDoc{ID: p.ID, Name: p.Name, Description: p.Description, Category: p.Category, Price: p.Price})
		if err != nil {
			return err
		}
		req := esapi.IndexRequest{
			Index:      s.index,
			DocumentID: strconv.FormatInt(p.ID, 10),
			Body:       bytes.NewReader(data),
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return fmt.Errorf("index product %d: %w", p.ID, err)
		}
		res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("index product %d: %s", p.ID, res.Status())
		}
	}
	log.WithField("count", len(products)).Info("✅ Products indexed in Elasticsearch")
	return nil
}

// Search returns matching product ids ordered by relevance.
func (s *ProductSearch) Search(ctx context.Context, query string) ([]int64, error) {
	if !s.Enabled() {
		return nil, ErrSearchUnavailable
	}

	var buf bytes.Buffer
	q := map[string]interface{}{
		"size":    50,
		"_source": []string{"id"},
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^3", "description", "category"},
				"fuzziness": "AUTO",
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source productDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]int64, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return ids, nil
}
