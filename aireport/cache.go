package aireport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedGenerator remembers replies by prompt digest. Errors are not cached.
type CachedGenerator struct {
	next  Generator
	cache *lru.Cache[string, string]
}

func NewCachedGenerator(next Generator, size int) (*CachedGenerator, error) {
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}
	return &CachedGenerator{next: next, cache: cache}, nil
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

func (c *CachedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	key := promptKey(prompt)
	if text, ok := c.cache.Get(key); ok {
		return text, nil
	}

	text, err := c.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, text)
	return text, nil
}

// Len returns the number of cached replies.
func (c *CachedGenerator) Len() int {
	return c.cache.Len()
}
