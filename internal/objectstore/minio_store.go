package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/amauricunha/smartnlp/internal/config"
)

// MinioStore keeps uploads in a MinIO bucket. References are object
// keys, stored verbatim in the record's audio_path column.
type MinioStore struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStore connects to MinIO and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg config.MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if MinIO bucket %q exists: %w", cfg.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create MinIO bucket %q: %w", cfg.BucketName, err)
		}
		log.Info().Str("bucket", cfg.BucketName).Msg("MinIO bucket created")
	}

	return &MinioStore{client: client, bucketName: cfg.BucketName}, nil
}

// Save uploads the data under the given object name. The content type
// is inferred from the name's extension.
func (s *MinioStore) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// PutObject needs the size up front; submissions are bounded
	// audio files, so buffering is acceptable.
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("failed to buffer upload %q: %w", name, err)
	}

	_, err = s.client.PutObject(ctx, s.bucketName, name, bytes.NewReader(buf), int64(len(buf)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %q to bucket %q: %w", name, s.bucketName, err)
	}
	return name, nil
}

// GetBytes retrieves an object as a byte slice.
func (s *MinioStore) GetBytes(ctx context.Context, ref string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q from bucket %q: %w", ref, s.bucketName, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q data: %w", ref, err)
	}
	return data, nil
}
