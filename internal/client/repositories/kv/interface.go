// Package kv is the client's durable key-value store.
//
// Values are opaque bytes. A missing key is not an error: Get returns
// (nil, nil). Writes are last-writer-wins; callers that need several keys to
// change together run the repository on a transaction (see dbx.WithTx).
package kv

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
