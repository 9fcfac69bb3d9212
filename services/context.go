package services

import "context"

// persistentContext keeps ctx's values but not its cancellation. Side effects of a
// committed change use it so a dropped client does not cut them short.
func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
