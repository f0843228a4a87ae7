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
	"fmt"

	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/embeddings"
)

// EmbeddingResult is one text's embedding with its provenance. Model and
// Dimension are distinct fields and both populated.
type EmbeddingResult struct {
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
}

// BatchEmbeddingsResult carries a whole batch; Embeddings[i] corresponds
// to input i.
type BatchEmbeddingsResult struct {
	Embeddings [][]float32 `json:"embeddings"`
	Model      string      `json:"model"`
	Dimension  int         `json:"dimension"`
	Count      int         `json:"count"`
}

// Embedder is the embedding capability module. It resolves the effective
// model, borrows the handle from the registry, and runs batches through
// the cache. There is no safe default embedding, so failures propagate.
type Embedder struct {
	registry *ModelRegistry
	resolver *TierResolver
	cache    *EmbeddingCache
	logger   *zap.Logger
}

// NewEmbedder wires the embedding module to the shared model layer.
func NewEmbedder(registry *ModelRegistry, resolver *TierResolver, cache *EmbeddingCache, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		registry: registry,
		resolver: resolver,
		cache:    cache,
		logger:   logger.Named("embedder"),
	}
}

// Embed embeds a single text. An explicit modelID overrides the tier's
// binding for this call only.
func (e *Embedder) Embed(ctx context.Context, text, modelID string) (EmbeddingResult, error) {
	batch, err := e.EmbedBatch(ctx, []string{text}, modelID, "")
	if err != nil {
		return EmbeddingResult{}, err
	}
	return EmbeddingResult{
		Embedding: batch.Embeddings[0],
		Model:     batch.Model,
		Dimension: batch.Dimension,
	}, nil
}

// EmbedBatch embeds texts in one model invocation, preserving input order.
// modelID overrides the tier binding; tierName overrides which tier the
// binding comes from. Both apply to this call only.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, modelID, tierName string) (BatchEmbeddingsResult, error) {
	model := modelID
	if model == "" {
		if tierName != "" {
			tier, ok := ParseTier(tierName)
			if !ok {
				return BatchEmbeddingsResult{}, &ValidationError{Field: "tier", Reason: fmt.Sprintf("unknown tier %q", tierName)}
			}
			model = ModelsForTier(tier).EmbeddingModel
		} else {
			model = e.resolver.EffectiveModels().EmbeddingModel
		}
	}

	handle, err := e.registry.GetOrLoad(ctx, CapabilityEmbedding, model)
	if err != nil {
		return BatchEmbeddingsResult{}, err
	}
	embedder, ok := handle.Value().(embeddings.Embedder)
	if !ok {
		return BatchEmbeddingsResult{}, fmt.Errorf("embedding handle for %s holds %T", model, handle.Value())
	}

	var vectors [][]float32
	err = e.registry.InvokeWithDeviceFallback(ctx, handle, func(ctx context.Context, h *Handle) error {
		// A device fallback hands the op a freshly loaded instance.
		current, ok := h.Value().(embeddings.Embedder)
		if !ok {
			return fmt.Errorf("embedding handle for %s holds %T", model, h.Value())
		}
		var embedErr error
		vectors, embedErr = e.cache.Embed(ctx, current, texts)
		return embedErr
	})
	if err != nil {
		return BatchEmbeddingsResult{}, err
	}
	if len(vectors) != len(texts) {
		return BatchEmbeddingsResult{}, fmt.Errorf("embedding count mismatch: %d inputs, %d outputs", len(texts), len(vectors))
	}

	return BatchEmbeddingsResult{
		Embeddings: vectors,
		Model:      embedder.ModelID(),
		Dimension:  embedder.Dimension(),
		Count:      len(vectors),
	}, nil
}

// EmbedText satisfies the retrieval layer's embedding hook.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	result, err := e.Embed(ctx, text, "")
	if err != nil {
		return nil, err
	}
	return result.Embedding, nil
}
