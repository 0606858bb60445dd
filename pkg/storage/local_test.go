package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWriteOpenDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocal(root)
	require.NoError(t, err)
	ctx := context.Background()

	w, err := store.NewWriter(ctx, InvoiceKey("order-1"), "application/pdf")
	require.NoError(t, err)
	_, err = w.Write([]byte("%PDF-1.3"))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "invoices", "invoice-order-1.pdf"))
	assert.True(t, os.IsNotExist(err), "object must not be visible before Close")

	require.NoError(t, w.Close())

	r, err := store.Open(ctx, InvoiceKey("order-1"))
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "%PDF-1.3", string(body))

	require.NoError(t, store.Delete(ctx, InvoiceKey("order-1")))
	_, err = store.Open(ctx, InvoiceKey("order-1"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, InvoiceKey("order-1")), ErrNotFound)
}

func TestLocalKeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocal(root)
	require.NoError(t, err)

	w, err := store.NewWriter(context.Background(), "../../escape.txt", "text/plain")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	require.NoError(t, err)
}

func TestLocalAbortKeepsPreviousObject(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocal(root)
	require.NoError(t, err)
	ctx := context.Background()
	key := InvoiceKey("order-2")

	w, err := store.NewWriter(ctx, key, "application/pdf")
	require.NoError(t, err)
	_, err = w.Write([]byte("v1"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	w, err = store.NewWriter(ctx, key, "application/pdf")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, w.Abort())

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(got))

	leftovers, err := filepath.Glob(filepath.Join(root, "invoices", ".upload-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "invoices/invoice-abc.pdf", InvoiceKey("abc"))
	assert.Equal(t, "images/p1.png", ProductImageKey("p1", ".png"))
}
