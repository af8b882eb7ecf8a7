package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"borrowbox/backend/database"
	"borrowbox/backend/imaging"
)

// Uploads writes item photos and profile pictures to blob storage. There is
// no retry and no cleanup of orphaned blobs when a follow-up document write
// fails; a transport failure surfaces to the caller.
type Uploads struct {
	uploader database.Uploader
}

// NewUploads creates an Uploads helper over the given blob store.
func NewUploads(uploader database.Uploader) *Uploads {
	return &Uploads{uploader: uploader}
}

// UploadItemImage processes the image and stores it under the item's path,
// returning the durable download URL.
func (u *Uploads) UploadItemImage(ctx context.Context, r io.Reader, itemID string) (string, error) {
	return u.upload(ctx, r, fmt.Sprintf("items/%s/%d.jpg", itemID, time.Now().UnixMilli()))
}

// UploadProfilePicture processes the image and stores it under the user's
// path, returning the durable download URL.
func (u *Uploads) UploadProfilePicture(ctx context.Context, r io.Reader, uid string) (string, error) {
	return u.upload(ctx, r, fmt.Sprintf("profile-pictures/%s/%d.jpg", uid, time.Now().UnixMilli()))
}

func (u *Uploads) upload(ctx context.Context, r io.Reader, path string) (string, error) {
	photo, err := imaging.Process(r)
	if err != nil {
		return "", fmt.Errorf("processing image: %w", err)
	}

	url, err := u.uploader.Upload(ctx, path, photo.Data, photo.ContentType)
	if err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}
	return url, nil
}
