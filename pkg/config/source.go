package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Document names resolved by a Source.
const (
	DiffDocument  = "proposal-mapper.json"
	ErrorDocument = "error.json"
)

// Source fetches a raw configuration document by name.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FileSource reads documents from a directory on disk.
type FileSource struct {
	root string
}

func NewFileSource(root string) *FileSource {
	return &FileSource{root: root}
}

func (s *FileSource) Fetch(_ context.Context, name string) ([]byte, error) {
	doc, err := os.ReadFile(filepath.Join(s.root, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read config document %s: %w", name, err)
	}

	return doc, nil
}

// CachedSource fronts another source with a TTL-bounded Redis cache, for
// deployments where documents are served remotely and fetched per refresh.
type CachedSource struct {
	inner  Source
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewCachedSource(inner Source, client redis.UniversalClient, ttl time.Duration) *CachedSource {
	return &CachedSource{
		inner:  inner,
		client: client,
		prefix: "motorbff:config:",
		ttl:    ttl,
	}
}

func (s *CachedSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	cached, err := s.client.Get(ctx, s.prefix+name).Bytes()
	if err == nil {
		return cached, nil
	}

	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("config cache read failed for %s: %w", name, err)
	}

	doc, err := s.inner.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	// Best effort: a failed cache write must not block the refresh.
	_ = s.client.Set(ctx, s.prefix+name, doc, s.ttl).Err()

	return doc, nil
}
