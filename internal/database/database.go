package database

import (
	"context"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"khushin_back_end/internal/config"
)

// Connections groups every backing service the server talks to.
// Elastic and MinIO are nil when not configured.
type Connections struct {
	DB      *sqlx.DB
	Redis   *redis.Client
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
}

// Connect opens Postgres and Redis, and the optional search and object stores.
func Connect(ctx context.Context, cfg *config.Config) (*Connections, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	conns := &Connections{DB: db}

	conns.Redis, err = connectRedis(ctx, cfg)
	if err != nil {
		conns.Close()
		return nil, err
	}

	if cfg.ElasticURL != "" {
		conns.Elastic, err = connectElastic(cfg)
		if err != nil {
			log.WithError(err).Warn("⚠️  Elasticsearch unavailable, product search falls back to SQL")
		}
	}

	if cfg.MinIOEndpoint != "" {
		conns.MinIO, err = connectMinIO(ctx, cfg)
		if err != nil {
			log.WithError(err).Warn("⚠️  MinIO unavailable, product images served unsigned")
		}
	}

	log.Info("✅ All backing services connected")
	return conns, nil
}

// Close releases every open connection.
func (c *Connections) Close() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			log.WithError(err).Error("❌ Error closing Postgres")
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.WithError(err).Error("❌ Error closing Redis")
		}
	}
}

// =============================================
// POSTGRES
// =============================================

// ConnectPostgres opens a pooled connection and verifies it with a ping.
func ConnectPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Info("✅ Connected to Postgres")
	return db, nil
}

// =============================================
// REDIS
// =============================================
func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisHost,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info("✅ Connected to Redis")
	return client, nil
}

// =============================================
// ELASTICSEARCH
// =============================================
func connectElastic(cfg *config.Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}

	log.Info("✅ Connected to Elasticsearch")
	return client, nil
}

// =============================================
// MINIO
// =============================================

// NewMinIOClient builds a client without touching the network. The region is fixed so
// presigning never needs a bucket location lookup.
func NewMinIOClient(cfg *config.Config) (*minio.Client, error) {
	return minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
		Region: cfg.MinIORegion,
	})
}

func connectMinIO(ctx context.Context, cfg *config.Config) (*minio.Client, error) {
	client, err := NewMinIOClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIOBucket, minio.MakeBucketOptions{Region: cfg.MinIORegion}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		log.WithField("bucket", cfg.MinIOBucket).Info("🪣 Bucket created")
	} else {
		log.WithField("bucket", cfg.MinIOBucket).Info("🪣 Bucket already present")
	}

	log.WithField("endpoint", cfg.MinIOEndpoint).Info("✅ Connected to MinIO")
	return client, nil
}
