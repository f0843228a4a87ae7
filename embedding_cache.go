// Copyright 2025 CurioAI, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package curioai

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Tapu45/CurioAi/lib/embeddings"
)

// EmbeddingCacheTTL is the default TTL for cached embedding batches.
const EmbeddingCacheTTL = 2 * time.Minute

// EmbeddingCache deduplicates repeated embedding requests. Identical
// concurrent requests collapse onto one model invocation; completed
// batches are served from a TTL cache.
type EmbeddingCache struct {
	cache   *ttlcache.Cache[string, [][]float32]
	sfGroup singleflight.Group
	logger  *zap.Logger
	cancel  context.CancelFunc
}

// NewEmbeddingCache builds the cache and starts its eviction loop.
func NewEmbeddingCache(logger *zap.Logger) *EmbeddingCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, [][]float32](EmbeddingCacheTTL),
	)
	go cache.Start()

	ctx, cancel := context.WithCancel(context.Background())
	ec := &EmbeddingCache{
		cache:  cache,
		logger: logger.Named("embedding_cache"),
		cancel: cancel,
	}
	go ec.logStats(ctx)
	return ec
}

// Embed runs texts through the embedder, served from cache when the same
// batch was embedded recently.
func (ec *EmbeddingCache) Embed(ctx context.Context, embedder embeddings.Embedder, texts []string) ([][]float32, error) {
	key := cacheKey(embedder.ModelID(), texts)

	if item := ec.cache.Get(key); item != nil {
		RecordCacheHit("embedding")
		ec.logger.Debug("embedding cache hit",
			zap.String("model", embedder.ModelID()),
			zap.Int("num_embeddings", len(item.Value())))
		return item.Value(), nil
	}

	result, err, shared := ec.sfGroup.Do(key, func() (any, error) {
		RecordCacheMiss("embedding")
		start := time.Now()
		embeds, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		ec.cache.Set(key, embeds, ttlcache.DefaultTTL)
		ec.logger.Debug("embeddings generated and cached",
			zap.String("model", embedder.ModelID()),
			zap.Int("num_embeddings", len(embeds)),
			zap.Duration("duration", time.Since(start)))
		return embeds, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		ec.logger.Debug("singleflight hit for embedding request",
			zap.String("model", embedder.ModelID()))
	}
	return result.([][]float32), nil
}

// Close stops the eviction loop and the stats reporter.
func (ec *EmbeddingCache) Close() {
	ec.cancel()
	ec.cache.Stop()
}

func (ec *EmbeddingCache) logStats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics := ec.cache.Metrics()
			total := metrics.Hits + metrics.Misses
			if total == 0 {
				continue
			}
			ec.logger.Info("embedding cache stats",
				zap.Uint64("hits", metrics.Hits),
				zap.Uint64("misses", metrics.Misses),
				zap.Float64("hit_rate_pct", float64(metrics.Hits)/float64(total)*100),
				zap.Int("items", ec.cache.Len()))
		}
	}
}

// cacheKey hashes model id plus every text, with separators so adjacent
// texts cannot collide.
func cacheKey(model string, texts []string) string {
	h := xxhash.New()
	_, _ = h.WriteString(model)
	_, _ = h.WriteString("|")
	for _, t := range texts {
		_, _ = h.WriteString(t)
		_, _ = h.WriteString("||")
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h.Sum64())
	return string(buf[:])
}
