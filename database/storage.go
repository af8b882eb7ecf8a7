package database

import (
	"context"
	"fmt"
	"net/url"

	"cloud.google.com/go/storage"
)

// StorageUploader implements Uploader against a Cloud Storage bucket.
type StorageUploader struct {
	bucket     *storage.BucketHandle
	bucketName string
}

// NewStorageUploader wraps a bucket handle. bucketName is needed to build
// download URLs.
func NewStorageUploader(bucket *storage.BucketHandle, bucketName string) *StorageUploader {
	return &StorageUploader{bucket: bucket, bucketName: bucketName}
}

func (u *StorageUploader) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	w := u.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("writing object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing object %s: %w", path, err)
	}

	return DownloadURL(u.bucketName, path), nil
}

// DownloadURL builds the durable Firebase Storage download URL for an object.
func DownloadURL(bucket, path string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media",
		bucket, url.PathEscape(path))
}
