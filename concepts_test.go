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
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/ner"
)

type fakeNER struct {
	entities []ner.Entity
	err      error
}

func (f *fakeNER) Recognize(ctx context.Context, texts []string) ([][]ner.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]ner.Entity, len(texts))
	for i := range texts {
		out[i] = f.entities
	}
	return out, nil
}

func (f *fakeNER) Close() error { return nil }

func findConcept(concepts []Concept, text string) *Concept {
	for i := range concepts {
		if concepts[i].Text == text {
			return &concepts[i]
		}
	}
	return nil
}

func TestExtractBaseOnlyBelowEnhancementTier(t *testing.T) {
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)

	var loads atomic.Int64
	registry.RegisterLoader(CapabilityNER, func(ctx context.Context, modelID string, device Device) (any, error) {
		loads.Add(1)
		return &fakeNER{}, nil
	})

	resolver := NewTierResolver(zap.NewNop(), nil, TierLowEnd)
	c := NewConceptExtractor(registry, resolver, zap.NewNop())

	got := c.Extract(context.Background(), "yesterday Alice wrote python at Acme Labs", ExtractOptions{})
	require.NotNil(t, findConcept(got.Concepts, "Alice"))
	require.NotNil(t, findConcept(got.Concepts, "python"))
	require.Zero(t, loads.Load(), "base tiers must not load the ner model")
}

func TestExtractEnhancementMergesEntities(t *testing.T) {
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)
	registry.RegisterLoader(CapabilityNER, func(ctx context.Context, modelID string, device Device) (any, error) {
		return &fakeNER{entities: []ner.Entity{
			{Text: "Alice", Label: ner.LabelPerson, Score: 0.99},
			{Text: "Berlin", Label: ner.LabelLocation, Start: 30, End: 36, Score: 0.97},
		}}, nil
	})

	resolver := NewTierResolver(zap.NewNop(), nil, TierHighEnd)
	c := NewConceptExtractor(registry, resolver, zap.NewNop())

	got := c.Extract(context.Background(), "yesterday Alice flew home", ExtractOptions{})

	alice := findConcept(got.Concepts, "Alice")
	require.NotNil(t, alice)
	require.Equal(t, float32(0.6), alice.Confidence, "base entity wins over the model duplicate")

	berlin := findConcept(got.Concepts, "Berlin")
	require.NotNil(t, berlin)
	require.Equal(t, float32(0.97), berlin.Confidence)
}

func TestExtractEnhancementFailureKeepsBase(t *testing.T) {
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)
	registry.RegisterLoader(CapabilityNER, func(ctx context.Context, modelID string, device Device) (any, error) {
		return nil, ErrModelUnavailable
	})

	resolver := NewTierResolver(zap.NewNop(), nil, TierPremium)
	c := NewConceptExtractor(registry, resolver, zap.NewNop())

	got := c.Extract(context.Background(), "yesterday Alice wrote python", ExtractOptions{})
	require.NotNil(t, findConcept(got.Concepts, "Alice"))
	require.NotNil(t, findConcept(got.Concepts, "python"))
}

func TestExtractTypeFilter(t *testing.T) {
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)
	resolver := NewTierResolver(zap.NewNop(), nil, TierLowEnd)
	c := NewConceptExtractor(registry, resolver, zap.NewNop())

	got := c.Extract(context.Background(), "yesterday Alice wrote python at Acme Labs", ExtractOptions{
		Types: []string{"person"},
	})
	require.NotNil(t, findConcept(got.Concepts, "Alice"))
	require.Nil(t, findConcept(got.Concepts, "python"))
	require.Nil(t, findConcept(got.Concepts, "Acme Labs"))
}

func TestExtractMinConfidence(t *testing.T) {
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)
	resolver := NewTierResolver(zap.NewNop(), nil, TierLowEnd)
	c := NewConceptExtractor(registry, resolver, zap.NewNop())

	// Heuristic spans score 0.6, gazetteer hits 0.8.
	got := c.Extract(context.Background(), "yesterday Alice wrote python", ExtractOptions{
		MinConfidence: 0.7,
	})
	require.Nil(t, findConcept(got.Concepts, "Alice"))
	require.NotNil(t, findConcept(got.Concepts, "python"))
}

func TestExtractKeywords(t *testing.T) {
	keywords := extractKeywords("The quick brown fox jumps over the lazy dog and the quick fox wins")
	require.Equal(t, []string{"quick", "brown", "fox", "jumps", "lazy", "dog", "wins"}, keywords)
}

func TestExtractKeywordsCap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "word%02d ", i)
	}
	keywords := extractKeywords(sb.String())
	require.Len(t, keywords, maxKeywords)
}

func TestExtractTopicsCombinesConceptsAndBigrams(t *testing.T) {
	text := "Python tutorials cover testing. Python tutorials cover profiling too."
	concepts := []Concept{
		{Text: "Python", Label: ner.LabelTech},
		{Text: "Alice", Label: ner.LabelPerson},
	}
	topics := extractTopics(text, concepts)
	require.Contains(t, topics, "Python")
	require.NotContains(t, topics, "Alice")
	require.Contains(t, topics, "python tutorials")
}

func TestTopBigramsRequiresRepetition(t *testing.T) {
	require.Empty(t, topBigrams("every single bigram appears once here", 3))

	got := topBigrams("unit tests pass and unit tests run and unit tests ship", 3)
	require.Equal(t, []string{"unit tests"}, got)
}
