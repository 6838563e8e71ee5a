package repository

import "context"

// IBlobStore is the boundary to the product's object storage. Presigned URLs
// are short-lived: the upload engine re-presigns a key immediately before
// fetching, never reusing a URL obtained earlier in the flow.
type IBlobStore interface {
	PutObject(ctx context.Context, data []byte, contentType string) (key string, err error)
	Presign(ctx context.Context, key string, ttlSeconds int) (url string, err error)
	// Fetch downloads the bytes behind a fresh presigned URL.
	Fetch(ctx context.Context, url string) (data []byte, contentType string, err error)
}
