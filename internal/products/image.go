package product

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/gabriel-vasile/mimetype"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	blob "github.com/angelmondragon/storefront-backend/pkg/storage"
)

// ImageUpload is a product image received from a multipart form.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// detectImageType sniffs the upload content; the client supplied content type
// and filename are not trusted.
func detectImageType(data []byte) (enums.ImageType, error) {
	if len(data) == 0 {
		return "", pkgerrors.Validation("image", "image is required")
	}
	detected := mimetype.Detect(data)
	imageType, err := enums.ParseImageType(detected.String())
	if err != nil {
		return "", pkgerrors.Validation("image", "attached file is not an image (png, jpg, jpeg)")
	}
	return imageType, nil
}

func (s *service) storeImage(ctx context.Context, key string, imageType enums.ImageType, data []byte) error {
	w, err := s.blob.NewWriter(ctx, key, imageType.String())
	if err != nil {
		return pkgerrors.Upstream(err, "open image writer")
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		if abortErr := w.Abort(); abortErr != nil {
			s.logg.Warn(ctx, "discard partial image: "+abortErr.Error())
		}
		return pkgerrors.Upstream(err, "write image")
	}
	if err := w.Close(); err != nil {
		return pkgerrors.Upstream(err, "store image")
	}
	return nil
}

func (s *service) deleteImage(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.blob.Delete(ctx, key); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return fmt.Errorf("delete image %s: %w", key, err)
	}
	return nil
}

// imageContentType maps a stored image key back to its MIME type.
func imageContentType(key string) string {
	switch path.Ext(key) {
	case enums.ImageTypePNG.Extension():
		return enums.ImageTypePNG.String()
	default:
		return enums.ImageTypeJPEG.String()
	}
}
