package asset

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

func TestBlobStore_UploadStoresObject(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	store := NewBlobStore(bucket, Options{KeyPrefix: "products/"})
	defer store.Close()

	ref, err := store.Upload(ctx, []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "products/"))
	assert.True(t, strings.HasSuffix(ref, ".png"))

	got, err := bucket.ReadAll(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), got)

	attrs, err := bucket.Attributes(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "image/png", attrs.ContentType)
}

func TestBlobStore_UploadKeysAreUnique(t *testing.T) {
	store := NewBlobStore(memblob.OpenBucket(nil), Options{})
	defer store.Close()

	a, err := store.Upload(context.Background(), []byte("a"), "image/jpeg")
	require.NoError(t, err)
	b, err := store.Upload(context.Background(), []byte("a"), "image/jpeg")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBlobStore_URLWithPublicBase(t *testing.T) {
	store := NewBlobStore(memblob.OpenBucket(nil), Options{PublicBaseURL: "https://cdn.example.com/assets/"})
	defer store.Close()

	u, err := store.URL(context.Background(), "products/a b.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/assets/products/a%20b.png", u)
}

func TestBlobStore_URLWithoutSigningSupportFails(t *testing.T) {
	store := NewBlobStore(memblob.OpenBucket(nil), Options{})
	defer store.Close()

	_, err := store.URL(context.Background(), "products/x.png")
	assert.Error(t, err)

	_, err = store.URL(context.Background(), "")
	assert.Error(t, err)
}

func TestOpen_MemScheme(t *testing.T) {
	store, err := Open(context.Background(), "mem://", Options{})
	require.NoError(t, err)
	defer store.Close()

	_, err = Open(context.Background(), "nope://bucket", Options{})
	assert.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", extensionFor("image/jpeg"))
	assert.Equal(t, ".png", extensionFor("image/png; charset=binary"))
	assert.Equal(t, "", extensionFor(""))
	assert.Equal(t, "", extensionFor("application/x-unknown-thing"))
}
