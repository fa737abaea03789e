package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/models"
)

const DefaultImageURLTTL = time.Hour

// ImageSigner turns stored object keys into short-lived presigned URLs.
type ImageSigner struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewImageSigner(client *minio.Client, bucket string, ttl time.Duration) *ImageSigner {
	return &ImageSigner{client: client, bucket: bucket, ttl: ttl}
}

// Sign returns a presigned URL for key. Absolute URLs are returned unchanged.
func (s *ImageSigner) Sign(ctx context.Context, key string) (string, error) {
	if s == nil || s.client == nil || isAbsolute(key) {
		return key, nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, strings.TrimPrefix(key, "/"), s.ttl, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// SignProducts rewrites image keys in place. Keys that fail to sign are left as they are.
func (s *ImageSigner) SignProducts(ctx context.Context, products []models.Product) {
	for i := range products {
		s.SignProduct(ctx, &products[i])
	}
}

func (s *ImageSigner) SignProduct(ctx context.Context, p *models.Product) {
	signed := make([]string, len(p.Images))
	for i, key := range p.Images {
		u, err := s.Sign(ctx, key)
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("⚠️  Image URL signing failed")
			u = key
		}
		signed[i] = u
	}
	p.Images = signed
}

func isAbsolute(key string) bool {
	return strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://")
}
