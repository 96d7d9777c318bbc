package source

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"
)

// Bucket is a pmtiles.ByteRangeSource backed by a gocloud.dev blob
// bucket, so the same source works against S3, Azure Blob Storage, GCS,
// or any other gocloud-supported backend by varying the bucket URL
// scheme (e.g. "s3://", "azblob://", "gs://"). This adapts the
// teacher's BucketAdapter/Bucket abstraction, narrowed to the single
// Get capability the core Reader needs.
type Bucket struct {
	bucket *blob.Bucket
	key    string
}

// OpenBucket opens bucketURL (a gocloud.dev URL, e.g. "s3://my-bucket")
// and returns a ByteRangeSource reading key from it.
func OpenBucket(ctx context.Context, bucketURL, key string) (*Bucket, error) {
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("pmtiles/source: opening bucket %s: %w", bucketURL, err)
	}
	return &Bucket{bucket: b, key: key}, nil
}

func (b *Bucket) Get(ctx context.Context, offset, length uint64) ([]byte, error) {
	reader, err := b.bucket.NewRangeReader(ctx, b.key, int64(offset), int64(length), nil)
	if err != nil {
		return nil, fmt.Errorf("pmtiles/source: range request for %s: %w", b.key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("pmtiles/source: reading %s: %w", b.key, err)
	}
	if uint64(len(data)) != length {
		return nil, fmt.Errorf("pmtiles/source: expected %d bytes from %s, got %d", length, b.key, len(data))
	}
	return data, nil
}

// Close releases the underlying bucket connection.
func (b *Bucket) Close() error {
	return b.bucket.Close()
}
