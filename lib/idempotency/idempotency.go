package idempotency

import (
	"context"
	"fmt"
	"time"
)

// HeaderKey is the client-supplied header scoping a cached response.
const HeaderKey = "Idempotency-Key"

// Response is the replayed result of a prior mutating operation.
type Response struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

// Cache stores responses of mutating operations keyed by (operation, client
// key). Get returns nil for absent or expired entries; Set overwrites.
//
// Callers check before executing and store after: this check-then-act is not
// atomic, so two concurrent requests with the same key can both execute the
// underlying operation. The window is accepted; the escrow capability is
// expected to tolerate a duplicated call.
type Cache interface {
	Get(ctx context.Context, operation, key string) (*Response, error)
	Set(ctx context.Context, operation, key string, statusCode int, body []byte, ttl time.Duration) error
}

func cacheKey(operation, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", operation, key)
}
