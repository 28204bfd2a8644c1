package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const enrollmentPathPrefix = "enrollments"

var (
	ErrBucketCreationFailed = errors.New("failed to create storage bucket")
	ErrArchiveUploadFailed  = errors.New("failed to archive sample")
)

// SampleArchive retains the raw enrollment samples alongside the derived
// reference embedding. Archival is best-effort; callers must never fail an
// enrollment because of it.
type SampleArchive interface {
	// ArchiveSamples stores the raw images submitted for an enrollment and
	// returns the object keys written.
	ArchiveSamples(ctx context.Context, userUUID string, images [][]byte) ([]string, error)
}

// MinIOSampleArchive implements SampleArchive on MinIO/S3-compatible storage.
type MinIOSampleArchive struct {
	client     *minio.Client
	bucketName string
	initOnce   sync.Once
	initErr    error
}

// NewMinIOSampleArchive creates a MinIO-backed sample archive.
// Bucket creation is deferred until the first upload to avoid blocking app startup.
func NewMinIOSampleArchive(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOSampleArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOSampleArchive{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// lazyInit ensures the bucket exists on first use (not at startup).
func (a *MinIOSampleArchive) lazyInit(ctx context.Context) error {
	a.initOnce.Do(func() {
		a.initErr = a.ensureBucketExists(ctx)
	})
	return a.initErr
}

func (a *MinIOSampleArchive) ensureBucketExists(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucketName)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrBucketCreationFailed, err)
	}

	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
		}
	}

	return nil
}

// ArchiveSamples uploads every image under a per-user prefix. A batch shares
// one timestamped folder so re-enrollments never overwrite earlier samples.
func (a *MinIOSampleArchive) ArchiveSamples(ctx context.Context, userUUID string, images [][]byte) ([]string, error) {
	if len(images) == 0 {
		return nil, nil
	}

	if err := a.lazyInit(ctx); err != nil {
		return nil, err
	}

	batch := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405Z"), uuid.New().String()[:8])
	keys := make([]string, 0, len(images))
	for i, img := range images {
		// Content type is sniffed from bytes; the upload never trusts a
		// client-provided header.
		detectedType := strings.ToLower(strings.TrimSpace(http.DetectContentType(img)))
		objectKey := fmt.Sprintf("%s/%s/%s/sample-%d%s", enrollmentPathPrefix, userUUID, batch, i, contentTypeToExtension(detectedType))

		metadata := map[string]string{
			"Detected-Content-Type": detectedType,
			"User-UUID":             userUUID,
			"Uploaded-At":           time.Now().UTC().Format(time.RFC3339),
		}

		_, err := a.client.PutObject(ctx, a.bucketName, objectKey, bytes.NewReader(img), int64(len(img)), minio.PutObjectOptions{
			ContentType:  detectedType,
			UserMetadata: metadata,
		})
		if err != nil {
			return keys, fmt.Errorf("%w: %v", ErrArchiveUploadFailed, err)
		}
		keys = append(keys, objectKey)
	}

	return keys, nil
}

// contentTypeToExtension maps content type to file extension.
func contentTypeToExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ".bin"
	}
}
