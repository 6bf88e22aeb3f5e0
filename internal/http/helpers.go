package http

import (
	"context"
	"time"
)

// withTimeout bounds a dependency check independently of the request timeout.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// maxImportBytes caps the size of an uploaded CSV document.
const maxImportBytes = 10 << 20
