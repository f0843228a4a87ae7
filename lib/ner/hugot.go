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

package ner

import (
	"context"
	"fmt"

	khugot "github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Tapu45/CurioAi/lib/hugotx"
)

// HugotNER enhances extraction with a token-classification model (BERT NER
// family). Loaded only on capable tiers; its absence never blocks the
// lexical base path.
type HugotNER struct {
	modelID  string
	pipeline *pipelines.TokenClassificationPipeline
	sem      *semaphore.Weighted
	logger   *zap.Logger
}

// HugotOptions configures a HugotNER.
type HugotOptions struct {
	ModelID      string
	ModelPath    string
	OnnxFilename string
	Accelerate   bool
	Logger       *zap.Logger
}

// NewHugot creates the enhancer on the process-shared Hugot session.
func NewHugot(opts HugotOptions) (*HugotNER, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ner")

	session, err := hugotx.SharedSession(opts.Accelerate)
	if err != nil {
		return nil, fmt.Errorf("obtaining hugot session: %w", err)
	}

	cfg := khugot.TokenClassificationConfig{
		ModelPath:    opts.ModelPath,
		Name:         fmt.Sprintf("ner:%s:%s", opts.ModelPath, opts.OnnxFilename),
		OnnxFilename: opts.OnnxFilename,
	}
	pipeline, err := khugot.NewPipeline(session, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating token classification pipeline: %w", err)
	}
	// Group adjacent tokens of the same entity type.
	pipeline.AggregationStrategy = "SIMPLE"

	logger.Info("ner enhancer ready",
		zap.String("model", opts.ModelID),
		zap.String("backend", hugotx.BackendName()))

	return &HugotNER{
		modelID:  opts.ModelID,
		pipeline: pipeline,
		sem:      semaphore.NewWeighted(1),
		logger:   logger,
	}, nil
}

// Recognize extracts model entities for each text, mapped into this
// package's label set.
func (h *HugotNER) Recognize(ctx context.Context, texts []string) ([][]Entity, error) {
	if len(texts) == 0 {
		return [][]Entity{}, nil
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring pipeline slot: %w", err)
	}
	defer h.sem.Release(1)

	output, err := h.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("running token classification: %w", err)
	}

	results := make([][]Entity, len(texts))
	for i := range texts {
		if i >= len(output.Entities) {
			break
		}
		results[i] = h.parse(texts[i], output.Entities[i])
	}
	return results, nil
}

func (h *HugotNER) parse(text string, raw []pipelines.Entity) []Entity {
	entities := make([]Entity, 0, len(raw))
	for _, pe := range raw {
		label := MapModelLabel(pe.Entity)
		if label == "" {
			continue
		}
		start, end := int(pe.Start), int(pe.End)
		if start < 0 || end > len(text) || start >= end {
			continue
		}
		entities = append(entities, Entity{
			Text:  text[start:end],
			Label: label,
			Start: start,
			End:   end,
			Score: pe.Score,
		})
	}
	return entities
}

func (h *HugotNER) Close() error { return nil }
