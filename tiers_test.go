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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/sysinfo"
)

func probeWithMemory(gb float64) ProbeFunc {
	return func() (sysinfo.Snapshot, error) {
		return sysinfo.Snapshot{TotalMemoryGB: gb}, nil
	}
}

func failingProbe() (sysinfo.Snapshot, error) {
	return sysinfo.Snapshot{}, errors.New("probe exploded")
}

func TestResolveByMemory(t *testing.T) {
	cases := []struct {
		memoryGB float64
		want     Tier
	}{
		{2, TierLowEnd},
		{4, TierLowEnd},
		{6, TierLowEnd},
		{8, TierMidRange},
		{12, TierMidRange},
		{16, TierPremium}, // premium and high_end share the 16GB floor; highest wins
		{64, TierPremium},
	}
	for _, tc := range cases {
		r := NewTierResolver(zap.NewNop(), probeWithMemory(tc.memoryGB), "")
		require.Equal(t, tc.want, r.Resolve(), "memory %.0fGB", tc.memoryGB)
	}
}

func TestResolveMonotonic(t *testing.T) {
	memories := []float64{1, 2, 4, 6, 8, 10, 12, 16, 24, 32, 64}
	prev := -1
	for _, gb := range memories {
		r := NewTierResolver(zap.NewNop(), probeWithMemory(gb), "")
		rank := r.Resolve().rank()
		require.GreaterOrEqual(t, rank, prev, "tier dropped at %.0fGB", gb)
		prev = rank
	}
}

func TestResolveProbeFailureDefaultsMidRange(t *testing.T) {
	r := NewTierResolver(zap.NewNop(), failingProbe, "")
	require.Equal(t, TierMidRange, r.Resolve())
}

func TestOverridePrecedence(t *testing.T) {
	// Override wins over any snapshot, including one that would fail.
	r := NewTierResolver(zap.NewNop(), failingProbe, TierPremium)
	require.Equal(t, TierPremium, r.Resolve())

	r = NewTierResolver(zap.NewNop(), probeWithMemory(64), TierLowEnd)
	require.Equal(t, TierLowEnd, r.Resolve())

	r.SetOverride("")
	require.Equal(t, TierPremium, r.Resolve())
}

func TestModelsForTier(t *testing.T) {
	low := ModelsForTier(TierLowEnd)
	require.Equal(t, "phi3:mini", low.LLMModel)
	require.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", low.EmbeddingModel)
	require.Equal(t, "dslim/distilbert-NER", low.NLPModel)

	premium := ModelsForTier(TierPremium)
	require.Equal(t, "mistral:7b", premium.LLMModel)
	require.Equal(t, "sentence-transformers/all-mpnet-base-v2", premium.EmbeddingModel)
	require.Equal(t, "dslim/bert-base-NER", premium.NLPModel)
}

func TestUpdateModelsRoundTrip(t *testing.T) {
	r := NewTierResolver(zap.NewNop(), probeWithMemory(8), "")
	base := r.EffectiveModels()

	updated := r.UpdateModels("custom-llm", "", "")
	require.Equal(t, "custom-llm", updated.LLMModel)
	require.Equal(t, base.EmbeddingModel, updated.EmbeddingModel)
	require.Equal(t, base.NLPModel, updated.NLPModel)

	// A later read reflects the same override.
	require.Equal(t, "custom-llm", r.EffectiveModels().LLMModel)

	// Overriding another field leaves the first intact.
	updated = r.UpdateModels("", "custom-embed", "")
	require.Equal(t, "custom-llm", updated.LLMModel)
	require.Equal(t, "custom-embed", updated.EmbeddingModel)
}

func TestParseTier(t *testing.T) {
	for _, name := range []string{"low_end", "mid_range", "high_end", "premium"} {
		tier, ok := ParseTier(name)
		require.True(t, ok)
		require.Equal(t, name, string(tier))
	}
	_, ok := ParseTier("galactic")
	require.False(t, ok)
}

func TestAtLeast(t *testing.T) {
	require.True(t, TierPremium.AtLeast(TierHighEnd))
	require.True(t, TierHighEnd.AtLeast(TierHighEnd))
	require.False(t, TierMidRange.AtLeast(TierHighEnd))
}
