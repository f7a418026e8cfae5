// Package tokens resolves token metadata (symbol, decimals) by contract
// account id. Metadata is immutable in practice, so lookups go through a
// process-wide LRU and only miss once per token.
package tokens

import (
	"context"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/prism-swap/orchestrator/models"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "tokens").Logger()
}

// MetadataSource reads ft_metadata from the ledger.
type MetadataSource interface {
	TokenMetadata(ctx context.Context, tokenID string) (models.TokenMetadata, error)
}

// Registry caches token metadata. Known tokens from configuration act
// as a fallback when the ledger read fails, so quoting keeps working
// through a flaky metadata source.
type Registry struct {
	source MetadataSource
	cache  *lru.Cache[string, models.TokenMetadata]
	known  map[string]models.TokenMetadata
}

const cacheSize = 512

// NewRegistry builds a Registry. known seeds the fallback table and the
// cache; the native pseudo-token is always known.
func NewRegistry(source MetadataSource, known []models.TokenMetadata) (*Registry, error) {
	cache, err := lru.New[string, models.TokenMetadata](cacheSize)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		source: source,
		cache:  cache,
		known:  make(map[string]models.TokenMetadata, len(known)+1),
	}
	r.known[models.NativeToken] = models.TokenMetadata{
		ID:       models.NativeToken,
		Symbol:   "NEAR",
		Name:     "NEAR",
		Decimals: 24,
	}
	for _, t := range known {
		r.known[t.ID] = t
	}
	return r, nil
}

// Resolve returns metadata for a token id, from cache, the ledger, or
// the known-token fallback, in that order.
func (r *Registry) Resolve(ctx context.Context, tokenID string) (models.TokenMetadata, error) {
	if meta, ok := r.known[tokenID]; ok && tokenID == models.NativeToken {
		return meta, nil
	}
	if meta, ok := r.cache.Get(tokenID); ok {
		return meta, nil
	}

	meta, err := r.source.TokenMetadata(ctx, tokenID)
	if err != nil {
		if fallback, ok := r.known[tokenID]; ok {
			log.Warn().Err(err).Str("token", tokenID).Msg("metadata read failed, using known-token fallback")
			return fallback, nil
		}
		return models.TokenMetadata{}, err
	}
	meta.ID = tokenID
	r.cache.Add(tokenID, meta)
	return meta, nil
}

// Decimals is a convenience for the common unit-conversion lookup.
func (r *Registry) Decimals(ctx context.Context, tokenID string) (int, error) {
	meta, err := r.Resolve(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

// Known lists the configured fallback tokens, native first.
func (r *Registry) Known() []models.TokenMetadata {
	out := make([]models.TokenMetadata, 0, len(r.known))
	if native, ok := r.known[models.NativeToken]; ok {
		out = append(out, native)
	}
	for id, meta := range r.known {
		if id == models.NativeToken {
			continue
		}
		out = append(out, meta)
	}
	return out
}
