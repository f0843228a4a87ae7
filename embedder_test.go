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
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEmbedder maps each text to a deterministic vector so order can be
// asserted.
type fakeEmbedder struct {
	modelID string
	calls   atomic.Int64
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(i)}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int  { return 2 }
func (f *fakeEmbedder) ModelID() string { return f.modelID }

func (f *fakeEmbedder) Close() error { return nil }

func newTestEmbedder(t *testing.T, loaded *atomic.Value) *Embedder {
	t.Helper()
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)
	registry.RegisterLoader(CapabilityEmbedding, func(ctx context.Context, modelID string, device Device) (any, error) {
		if loaded != nil {
			loaded.Store(modelID)
		}
		return &fakeEmbedder{modelID: modelID}, nil
	})
	resolver := NewTierResolver(zap.NewNop(), nil, TierMidRange)
	cache := NewEmbeddingCache(zap.NewNop())
	t.Cleanup(cache.Close)
	return NewEmbedder(registry, resolver, cache, zap.NewNop())
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	e := newTestEmbedder(t, nil)

	texts := []string{"a", "bb", "ccc"}
	got, err := e.EmbedBatch(context.Background(), texts, "", "")
	require.NoError(t, err)
	require.Equal(t, 3, got.Count)
	require.Equal(t, 2, got.Dimension)
	require.Equal(t, [][]float32{{1, 0}, {2, 1}, {3, 2}}, got.Embeddings)
}

func TestEmbedBatchModelPrecedence(t *testing.T) {
	var loaded atomic.Value
	e := newTestEmbedder(t, &loaded)

	// Explicit model beats both the tier argument and the resolver binding.
	_, err := e.EmbedBatch(context.Background(), []string{"x"}, "custom/model", "premium")
	require.NoError(t, err)
	require.Equal(t, "custom/model", loaded.Load())
}

func TestEmbedBatchTierBinding(t *testing.T) {
	var loaded atomic.Value
	e := newTestEmbedder(t, &loaded)

	_, err := e.EmbedBatch(context.Background(), []string{"x"}, "", "premium")
	require.NoError(t, err)
	require.Equal(t, ModelsForTier(TierPremium).EmbeddingModel, loaded.Load())
}

func TestEmbedBatchResolverDefault(t *testing.T) {
	var loaded atomic.Value
	e := newTestEmbedder(t, &loaded)

	_, err := e.EmbedBatch(context.Background(), []string{"x"}, "", "")
	require.NoError(t, err)
	require.Equal(t, ModelsForTier(TierMidRange).EmbeddingModel, loaded.Load())
}

func TestEmbedBatchUnknownTier(t *testing.T) {
	e := newTestEmbedder(t, nil)

	_, err := e.EmbedBatch(context.Background(), []string{"x"}, "", "quantum")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "tier", verr.Field)
}

func TestEmbedSingle(t *testing.T) {
	e := newTestEmbedder(t, nil)

	got, err := e.Embed(context.Background(), "hello", "")
	require.NoError(t, err)
	require.Equal(t, []float32{5, 0}, got.Embedding)
	require.Equal(t, 2, got.Dimension)
	require.Equal(t, ModelsForTier(TierMidRange).EmbeddingModel, got.Model)
}

func TestEmbeddingCacheReuse(t *testing.T) {
	cache := NewEmbeddingCache(zap.NewNop())
	t.Cleanup(cache.Close)

	fake := &fakeEmbedder{modelID: "m"}
	texts := []string{"one", "two"}

	first, err := cache.Embed(context.Background(), fake, texts)
	require.NoError(t, err)
	second, err := cache.Embed(context.Background(), fake, texts)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, int64(1), fake.calls.Load(), "identical batch must be served from cache")

	// A different batch is a different key.
	_, err = cache.Embed(context.Background(), fake, []string{"one"})
	require.NoError(t, err)
	require.Equal(t, int64(2), fake.calls.Load())
}

func TestCacheKeySeparators(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide.
	require.NotEqual(t, cacheKey("m", []string{"ab", "c"}), cacheKey("m", []string{"a", "bc"}))
	require.NotEqual(t, cacheKey("m1", []string{"a"}), cacheKey("m2", []string{"a"}))
}
