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
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/zsc"
)

type fakeZSC struct {
	results [][]zsc.Classification
	err     error
	inputs  []string
}

func (f *fakeZSC) Classify(ctx context.Context, texts, labels []string) ([][]zsc.Classification, error) {
	f.inputs = append(f.inputs, texts...)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeZSC) Close() error { return nil }

func TestClassifyBelowTierGate(t *testing.T) {
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)

	var loads atomic.Int64
	registry.RegisterLoader(CapabilityClassifier, func(ctx context.Context, modelID string, device Device) (any, error) {
		loads.Add(1)
		return &fakeZSC{}, nil
	})

	resolver := NewTierResolver(zap.NewNop(), nil, TierLowEnd)
	c := NewActivityClassifier(registry, resolver, zap.NewNop())

	got := c.Classify(context.Background(), Activity{AppName: "vscode", WindowTitle: "main.go"})
	require.Equal(t, "other", got.ActivityType)
	require.Equal(t, undeterminedConfidence, got.Confidence)
	require.Contains(t, got.Reason, "rule-based")
	require.Zero(t, loads.Load(), "gated tiers must not load the model")
}

func TestClassifyMLPath(t *testing.T) {
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)

	fake := &fakeZSC{results: [][]zsc.Classification{{
		{Label: "coding", Score: 0.91},
		{Label: "learning", Score: 0.05},
	}}}
	registry.RegisterLoader(CapabilityClassifier, func(ctx context.Context, modelID string, device Device) (any, error) {
		require.Equal(t, DefaultClassifierModel, modelID)
		return fake, nil
	})

	resolver := NewTierResolver(zap.NewNop(), nil, TierHighEnd)
	c := NewActivityClassifier(registry, resolver, zap.NewNop())

	got := c.Classify(context.Background(), Activity{
		AppName:     "vscode",
		WindowTitle: "registry.go",
		URL:         "https://go.dev",
	})
	require.Equal(t, "coding", got.ActivityType)
	require.InDelta(t, 0.91, got.Confidence, 1e-6)
	require.Equal(t, "zero-shot-classification", got.Metadata["method"])
	require.Contains(t, got.Reason, "coding")

	all, ok := got.Metadata["all_predictions"].(map[string]float64)
	require.True(t, ok)
	require.Len(t, all, 2)

	require.Len(t, fake.inputs, 1)
	require.Equal(t, "vscode registry.go https://go.dev", fake.inputs[0])
}

func TestClassifyModelFailureFallsBack(t *testing.T) {
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)
	registry.RegisterLoader(CapabilityClassifier, func(ctx context.Context, modelID string, device Device) (any, error) {
		return nil, ErrModelUnavailable
	})

	resolver := NewTierResolver(zap.NewNop(), nil, TierPremium)
	c := NewActivityClassifier(registry, resolver, zap.NewNop())

	got := c.Classify(context.Background(), Activity{AppName: "firefox", WindowTitle: "docs"})
	require.Equal(t, "other", got.ActivityType)
	require.Equal(t, undeterminedConfidence, got.Confidence)
	require.NotEmpty(t, got.Metadata["error"])
}

func TestClassifyBatchPreservesOrder(t *testing.T) {
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)
	registry.RegisterLoader(CapabilityClassifier, func(ctx context.Context, modelID string, device Device) (any, error) {
		return &fakeZSC{results: [][]zsc.Classification{{{Label: "reading", Score: 0.7}}}}, nil
	})

	resolver := NewTierResolver(zap.NewNop(), nil, TierHighEnd)
	c := NewActivityClassifier(registry, resolver, zap.NewNop())

	got := c.ClassifyBatch(context.Background(), []Activity{
		{AppName: "kindle", WindowTitle: "chapter 1"},
		{AppName: "kindle", WindowTitle: "chapter 2"},
	})
	require.Len(t, got, 2)
	for _, r := range got {
		require.Equal(t, "reading", r.ActivityType)
	}
}

func TestClassifierStatus(t *testing.T) {
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)

	resolver := NewTierResolver(zap.NewNop(), nil, TierMidRange)
	c := NewActivityClassifier(registry, resolver, zap.NewNop())
	status := c.Status()
	require.False(t, status.MLAvailable)
	require.Equal(t, "rule-based", status.Method)
	require.Equal(t, TierMidRange, status.Tier)

	resolver.SetOverride(TierHighEnd)
	status = c.Status()
	require.True(t, status.MLAvailable)
	require.Equal(t, "zero-shot-classification", status.Method)
}

func TestClassifierInputTruncatesSnippet(t *testing.T) {
	long := strings.Repeat("x", 500)
	input := classifierInput(Activity{AppName: "app", WindowTitle: "title", ContentSnippet: long})
	require.Equal(t, "app title "+long[:200], input)
}

func TestMapToActivityType(t *testing.T) {
	require.Equal(t, "coding", MapToActivityType("coding"))
	require.Equal(t, "coding", MapToActivityType("Code Review"))
	require.Equal(t, "reading", MapToActivityType("PDF viewer"))
	require.Equal(t, "watching", MapToActivityType("YouTube video"))
	require.Equal(t, "gaming", MapToActivityType("playing a game"))
	require.Equal(t, "entertainment", MapToActivityType("listening to music"))
	require.Equal(t, "other", MapToActivityType("something unrelated"))
}
