package service

import "context"

// Cache stores JSON-serialisable values by key.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// noCache is used when redis caching is disabled.
type noCache struct{}

func (noCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noCache) Set(context.Context, string, any) error         { return nil }
func (noCache) Delete(context.Context, string) error           { return nil }

func cacheOrNoop(c Cache) Cache {
	if c == nil {
		return noCache{}
	}
	return c
}
