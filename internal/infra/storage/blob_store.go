// Package storage keeps uploaded files in a gocloud blob bucket.
package storage

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"marketplace/config"
	"marketplace/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets for local development
	_ "gocloud.dev/blob/gcsblob"  // gs:// buckets in production
	_ "gocloud.dev/blob/memblob"  // mem:// buckets for tests
	"gocloud.dev/gcerrors"
)

// blobStore implements service.ObjectStore. Handles are bucket keys.
type blobStore struct {
	bucket *blob.Bucket
	logger *slog.Logger
}

// Params holds dependencies for the object store, injected by Fx
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewObjectStore opens the configured bucket and closes it on shutdown.
func NewObjectStore(params Params) (service.ObjectStore, error) {
	bucket, err := blob.OpenBucket(params.Ctx, params.Config.Storage.BucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bucket %s", params.Config.Storage.BucketURL)
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return errors.WithStack(bucket.Close())
		},
	})

	return NewBlobStore(bucket, params.Logger), nil
}

// NewBlobStore wraps an already opened bucket.
func NewBlobStore(bucket *blob.Bucket, logger *slog.Logger) service.ObjectStore {
	return &blobStore{bucket: bucket, logger: logger}
}

// Upload writes the file under folder/<uuid><ext> and returns the key.
func (s *blobStore) Upload(ctx context.Context, folder string, file service.UploadedFile) (string, error) {
	key := path.Join(folder, uuid.NewString()+strings.ToLower(path.Ext(file.Name)))

	opts := &blob.WriterOptions{ContentType: file.ContentType}
	if err := s.bucket.Upload(ctx, key, file.Content, opts); err != nil {
		return "", errors.Wrapf(err, "failed to upload %s", key)
	}

	return key, nil
}

// Delete removes the object. Missing objects are ignored.
func (s *blobStore) Delete(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}

	if err := s.bucket.Delete(ctx, handle); err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil
		}

		return errors.Wrapf(err, "failed to delete %s", handle)
	}

	s.logger.DebugContext(ctx, "Released object", slog.String("handle", handle))

	return nil
}
