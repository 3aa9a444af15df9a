package asset

import (
	"context"
	"mime"
	"net/url"
	"strings"
	"time"

	"catalog/internal/infra/metrics"
	repo "catalog/internal/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gocloud.dev/blob"

	//使うURLスキームのドライバを登録する
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

// 商品画像をバケットに保存する
type BlobStore struct {
	bucket        *blob.Bucket
	keyPrefix     string
	publicBaseURL string
	urlExpiry     time.Duration
}

var _ repo.AssetStore = (*BlobStore)(nil)

type Options struct {
	KeyPrefix     string
	PublicBaseURL string
	URLExpiry     time.Duration
}

func NewBlobStore(bucket *blob.Bucket, opts Options) *BlobStore {
	if opts.URLExpiry <= 0 {
		opts.URLExpiry = 15 * time.Minute
	}
	return &BlobStore{
		bucket:        bucket,
		keyPrefix:     opts.KeyPrefix,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		urlExpiry:     opts.URLExpiry,
	}
}

// file:///path や mem:// を開く
func Open(ctx context.Context, bucketURL string, opts Options) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "open bucket %q", bucketURL)
	}
	return NewBlobStore(bucket, opts), nil
}

func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

// 保存したオブジェクトのキーを参照として返す
func (s *BlobStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	start := time.Now()
	key := s.keyPrefix + uuid.NewString() + extensionFor(contentType)

	err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType})
	metrics.AssetUploadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AssetUploadsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return "", errors.Wrapf(err, "write asset %s", key)
	}

	metrics.AssetUploadsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	return key, nil
}

// 公開ベースURLがあればそれを使う。無ければ署名付きURL（対応していないドライバではエラー）
func (s *BlobStore) URL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty asset ref")
	}
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + escapeKey(ref), nil
	}

	signed, err := s.bucket.SignedURL(ctx, ref, &blob.SignedURLOptions{Expiry: s.urlExpiry})
	if err != nil {
		return "", errors.Wrapf(err, "sign url for %s", ref)
	}
	return signed, nil
}

// 画像の主な形式は固定、それ以外はmimeの登録から引く
func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}

	switch mediaType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}

	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}

// キーの"/"は残してセグメントごとにエスケープ
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
