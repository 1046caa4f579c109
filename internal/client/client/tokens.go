package client

import (
	"context"

	"github.com/dmitrijs2005/storefront/internal/client/repositories/kv"
	"github.com/dmitrijs2005/storefront/internal/common"
)

// StoredToken reads the access token from the durable store on every call,
// so a token written or evicted by anyone is picked up by the next request.
func StoredToken(repo kv.Repository) TokenSource {
	return TokenSourceFunc(func(ctx context.Context) (string, error) {
		v, err := repo.Get(ctx, common.AuthTokenKey)
		if err != nil {
			return "", err
		}
		return string(v), nil
	})
}
