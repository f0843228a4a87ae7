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

// Package zsc runs NLI-based zero-shot classification through Hugot.
package zsc

import (
	"context"
	"fmt"

	khugot "github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/Tapu45/CurioAi/lib/hugotx"
)

// DefaultHypothesisTemplate builds the NLI hypothesis for each candidate
// label; "{}" is replaced with the label.
const DefaultHypothesisTemplate = "This example is {}."

// Classification is one label with its score.
type Classification struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// Classifier scores candidate labels against texts. Results per text are
// ordered by descending score.
type Classifier interface {
	Classify(ctx context.Context, texts []string, labels []string) ([][]Classification, error)
	Close() error
}

// HugotZSC runs a zero-shot classification model on the shared session.
type HugotZSC struct {
	modelID  string
	pipeline *pipelines.ZeroShotClassificationPipeline
	sem      *semaphore.Weighted
	logger   *zap.Logger
}

// Options configures a HugotZSC.
type Options struct {
	ModelID            string
	ModelPath          string
	OnnxFilename       string
	HypothesisTemplate string
	Accelerate         bool
	Logger             *zap.Logger
}

// New creates the classifier on the process-shared Hugot session.
func New(opts Options) (*HugotZSC, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("zsc")

	template := opts.HypothesisTemplate
	if template == "" {
		template = DefaultHypothesisTemplate
	}
	onnxFilename := opts.OnnxFilename
	if onnxFilename == "" {
		onnxFilename = "model.onnx"
	}

	session, err := hugotx.SharedSession(opts.Accelerate)
	if err != nil {
		return nil, fmt.Errorf("obtaining hugot session: %w", err)
	}

	cfg := khugot.ZeroShotClassificationConfig{
		ModelPath:    opts.ModelPath,
		OnnxFilename: onnxFilename,
		Name:         fmt.Sprintf("zsc:%s:%s", opts.ModelPath, onnxFilename),
		Options: []khugot.ZeroShotClassificationOption{
			pipelines.WithHypothesisTemplate(template),
		},
	}
	pipeline, err := khugot.NewPipeline(session, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating zero-shot classification pipeline: %w", err)
	}

	logger.Info("zero-shot classifier ready",
		zap.String("model", opts.ModelID),
		zap.String("hypothesis_template", template),
		zap.String("backend", hugotx.BackendName()))

	return &HugotZSC{
		modelID:  opts.ModelID,
		pipeline: pipeline,
		sem:      semaphore.NewWeighted(1),
		logger:   logger,
	}, nil
}

// Classify scores each candidate label against each text.
func (c *HugotZSC) Classify(ctx context.Context, texts []string, labels []string) ([][]Classification, error) {
	if len(texts) == 0 || len(labels) == 0 {
		return [][]Classification{}, nil
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring pipeline slot: %w", err)
	}
	defer c.sem.Release(1)

	// Candidate labels live on the pipeline, so they are swapped in
	// while holding the run slot.
	c.pipeline.Labels = labels
	output, err := c.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("running zero-shot classification: %w", err)
	}
	return convertOutput(output), nil
}

// convertOutput flattens the pipeline output into per-text label/score
// pairs. SortedValues arrive ordered by descending score.
func convertOutput(output *pipelines.ZeroShotOutput) [][]Classification {
	results := make([][]Classification, len(output.ClassificationOutputs))
	for i, out := range output.ClassificationOutputs {
		classifications := make([]Classification, len(out.SortedValues))
		for j, sv := range out.SortedValues {
			classifications[j] = Classification{
				Label: sv.Key,
				Score: float32(sv.Value),
			}
		}
		results[i] = classifications
	}
	return results
}

func (c *HugotZSC) Close() error { return nil }
