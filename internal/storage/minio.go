// Package storage keeps peek images in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"peek/backend/internal/logging"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// ImageStore uploads a posted image and returns the URL clients load it from.
type ImageStore interface {
	UploadImage(ctx context.Context, file *multipart.FileHeader) (string, error)
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base clients use to fetch objects. Empty means the MinIO endpoint.
	PublicURL string
}

// MinIOStore is an ImageStore backed by MinIO.
type MinIOStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinIOStore connects to MinIO and creates the bucket when it does not exist yet.
func NewMinIOStore(ctx context.Context, cfg MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	base := cfg.PublicURL
	if base == "" {
		base = client.EndpointURL().String()
	}
	logging.Info("Connected to MinIO", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))

	return &MinIOStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(base, "/"),
	}, nil
}

func (m *MinIOStore) UploadImage(ctx context.Context, file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	name := ObjectName(file.Filename)
	_, err = m.client.PutObject(ctx, m.bucket, name, src, file.Size, minio.PutObjectOptions{
		ContentType: file.Header.Get("Content-Type"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return ObjectURL(m.baseURL, m.bucket, name), nil
}

// ObjectName returns a collision-free key under images/ that keeps the original extension.
func ObjectName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("images", uuid.NewString()+ext)
}

func ObjectURL(baseURL, bucket, objectName string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(baseURL, "/"), bucket, objectName)
}
