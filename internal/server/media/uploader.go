// Package media uploads user images (avatars, cover images) to an
// S3-compatible object store and returns their public URLs.
package media

import (
	"context"
	"errors"
	"io"
)

var ErrUpload = errors.New("media upload failed")

// File is an upload candidate read from a request.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Uploaded struct {
	URL string
	Key string
}

type Uploader interface {
	Upload(ctx context.Context, f File) (*Uploaded, error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, f File) (*Uploaded, error)

func (fn UploaderFunc) Upload(ctx context.Context, f File) (*Uploaded, error) {
	return fn(ctx, f)
}
