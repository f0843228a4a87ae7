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

package embeddings

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	khugot "github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/backends"
	"github.com/knights-analytics/hugot/pipelines"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Tapu45/CurioAi/lib/hugotx"
)

// HugotEmbedder runs a feature-extraction model through Hugot. It keeps a
// small pool of pipelines on a shared session; a semaphore bounds
// concurrent inference.
type HugotEmbedder struct {
	modelID   string
	pipelines []*pipelines.FeatureExtractionPipeline
	sem       *semaphore.Weighted
	next      atomic.Uint64
	logger    *zap.Logger

	dimMu     sync.Mutex
	dimension int
}

// Options configures a HugotEmbedder.
type Options struct {
	// ModelID names the model, e.g. "sentence-transformers/all-MiniLM-L6-v2".
	ModelID string

	// ModelPath is the local directory holding the ONNX export.
	ModelPath string

	// OnnxFilename selects a specific file inside ModelPath; empty uses
	// the default export name.
	OnnxFilename string

	// PoolSize is the number of pipelines to create. Zero means 1.
	PoolSize int

	// Accelerate requests GPU execution when the backend supports it.
	Accelerate bool

	Logger *zap.Logger
}

// New creates a pooled embedder on the process-shared Hugot session.
func New(opts Options) (*HugotEmbedder, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("embedder")

	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}

	session, err := hugotx.SharedSession(opts.Accelerate)
	if err != nil {
		return nil, fmt.Errorf("obtaining hugot session: %w", err)
	}

	pool := make([]*pipelines.FeatureExtractionPipeline, poolSize)
	for i := range pool {
		cfg := khugot.FeatureExtractionConfig{
			ModelPath:    opts.ModelPath,
			Name:         fmt.Sprintf("%s:%s:%d", opts.ModelPath, opts.OnnxFilename, i),
			OnnxFilename: opts.OnnxFilename,
			Options: []backends.PipelineOption[*pipelines.FeatureExtractionPipeline]{
				pipelines.WithNormalization(),
			},
		}
		p, err := khugot.NewPipeline(session, cfg)
		if err != nil {
			return nil, fmt.Errorf("creating feature extraction pipeline %d: %w", i, err)
		}
		pool[i] = p
	}

	logger.Info("embedder ready",
		zap.String("model", opts.ModelID),
		zap.Int("pool_size", poolSize),
		zap.String("backend", hugotx.BackendName()))

	return &HugotEmbedder{
		modelID:   opts.ModelID,
		pipelines: pool,
		sem:       semaphore.NewWeighted(int64(poolSize)),
		logger:    logger,
		dimension: DimensionFor(opts.ModelID),
	}, nil
}

// Embed runs the whole batch through one pipeline invocation. Output order
// matches input order.
func (h *HugotEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring pipeline slot: %w", err)
	}
	defer h.sem.Release(1)

	idx := int(h.next.Add(1) % uint64(len(h.pipelines)))
	output, err := h.pipelines[idx].RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("running feature extraction: %w", err)
	}

	result := make([][]float32, len(output.Embeddings))
	for i, embedding := range output.Embeddings {
		if len(embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		result[i] = normalizeL2(embedding)
	}

	h.dimMu.Lock()
	if h.dimension == 0 && len(result) > 0 {
		h.dimension = len(result[0])
	}
	h.dimMu.Unlock()

	return result, nil
}

// Dimension returns the embedding width: the declared width for known
// models, otherwise the width observed on the first inference (0 before
// that).
func (h *HugotEmbedder) Dimension() int {
	h.dimMu.Lock()
	defer h.dimMu.Unlock()
	return h.dimension
}

func (h *HugotEmbedder) ModelID() string { return h.modelID }

// Close releases the embedder. The shared session outlives it and is
// destroyed at process shutdown.
func (h *HugotEmbedder) Close() error { return nil }

// normalizeL2 scales vec to unit length. A zero vector is returned as is.
func normalizeL2(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
