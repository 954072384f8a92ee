//go:build !unix

package supplicant

import "context"

// lockFile is a no-op where flock is unavailable; callers in one process
// are still serialized by the store mutex.
func lockFile(ctx context.Context, path string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}
