package labelstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Public    bool
	Expires   time.Duration
}

// Store keeps shipment label PDFs in object storage. Public buckets get a
// plain object URL; private ones get a presigned URL with a deadline.
type Store struct {
	client  *minio.Client
	cfg     Config
	logger  *slog.Logger
	baseURL string
}

func New(cfg Config, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	return &Store{
		client:  client,
		cfg:     cfg,
		logger:  logger.With("component", "labelstore"),
		baseURL: fmt.Sprintf("%s://%s", scheme, cfg.Endpoint),
	}, nil
}

// EnsureBucket creates the label bucket when it does not exist yet. Called
// once at startup.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check label bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create label bucket: %w", err)
	}
	return nil
}

func labelKey(orderID string) string {
	return fmt.Sprintf("labels/%s.pdf", orderID)
}

// SaveLabel uploads the PDF and returns the URL to store on the order.
func (s *Store) SaveLabel(ctx context.Context, orderID string, pdf []byte) (string, error) {
	key := labelKey(orderID)

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(pdf), int64(len(pdf)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return "", fmt.Errorf("failed to upload label: %w", err)
	}
	s.logger.DebugContext(ctx, "label uploaded", "order_id", orderID, "bytes", len(pdf))

	if s.cfg.Public {
		return fmt.Sprintf("%s/%s/%s", s.baseURL, s.cfg.Bucket, key), nil
	}

	expires := s.cfg.Expires
	if expires == 0 {
		expires = 24 * time.Hour
	}
	signed, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, expires, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign label url: %w", err)
	}
	return signed.String(), nil
}
