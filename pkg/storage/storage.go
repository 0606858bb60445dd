package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("object not found")

// Writer streams one object. Close commits it; Abort discards everything
// written so far and leaves any previous object at the key untouched.
type Writer interface {
	io.WriteCloser
	Abort() error
}

// Blob is the durable object store used for product images and invoices.
type Blob interface {
	// NewWriter streams an object to key. The object is visible once Close returns nil.
	NewWriter(ctx context.Context, key, contentType string) (Writer, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// InvoiceKey is the object key an order's invoice is written under.
func InvoiceKey(orderID string) string {
	return "invoices/invoice-" + orderID + ".pdf"
}

// ProductImageKey is the object key for a product image.
func ProductImageKey(productID, ext string) string {
	return "images/" + productID + ext
}
