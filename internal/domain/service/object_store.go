package service

import (
	"context"
	"io"
)

// UploadedFile is an incoming file before it reaches the object store.
type UploadedFile struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// ObjectStore keeps uploaded files behind opaque handles.
type ObjectStore interface {
	// Upload stores the file under the folder and returns its handle.
	Upload(ctx context.Context, folder string, file UploadedFile) (string, error)

	// Delete releases a handle. Unknown handles are not an error.
	Delete(ctx context.Context, handle string) error
}
