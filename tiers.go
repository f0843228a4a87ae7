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
	"sync"

	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/sysinfo"
)

// Tier is one of four ordered host-capability levels. Each tier binds a
// fixed triple of model identifiers.
type Tier string

const (
	TierLowEnd   Tier = "low_end"
	TierMidRange Tier = "mid_range"
	TierHighEnd  Tier = "high_end"
	TierPremium  Tier = "premium"
)

// tierOrder lists tiers lowest to highest capability.
var tierOrder = []Tier{TierLowEnd, TierMidRange, TierHighEnd, TierPremium}

// ParseTier returns the Tier named by s, or false if s names no known tier.
func ParseTier(s string) (Tier, bool) {
	for _, t := range tierOrder {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// rank returns the tier's position in the capability order.
func (t Tier) rank() int {
	for i, tt := range tierOrder {
		if tt == t {
			return i
		}
	}
	return -1
}

// AtLeast reports whether t is the same tier as other or a higher one.
func (t Tier) AtLeast(other Tier) bool {
	return t.rank() >= other.rank()
}

// ModelSet is the triple of model identifiers a tier binds to.
type ModelSet struct {
	LLMModel       string `json:"llm_model"`
	EmbeddingModel string `json:"embedding_model"`
	NLPModel       string `json:"nlp_model"`
}

// tierSpec is the immutable record behind each tier.
type tierSpec struct {
	Models      ModelSet
	MinMemoryGB float64
}

var tierSpecs = map[Tier]tierSpec{
	TierLowEnd: {
		Models: ModelSet{
			LLMModel:       "phi3:mini",
			EmbeddingModel: "sentence-transformers/all-MiniLM-L6-v2",
			NLPModel:       "dslim/distilbert-NER",
		},
		MinMemoryGB: 4,
	},
	TierMidRange: {
		Models: ModelSet{
			LLMModel:       "llama3.2:1b",
			EmbeddingModel: "sentence-transformers/all-MiniLM-L6-v2",
			NLPModel:       "dslim/distilbert-NER",
		},
		MinMemoryGB: 8,
	},
	TierHighEnd: {
		Models: ModelSet{
			LLMModel:       "llama3.2:3b",
			EmbeddingModel: "sentence-transformers/all-MiniLM-L6-v2",
			NLPModel:       "dslim/bert-base-NER",
		},
		MinMemoryGB: 16,
	},
	TierPremium: {
		Models: ModelSet{
			LLMModel:       "mistral:7b",
			EmbeddingModel: "sentence-transformers/all-mpnet-base-v2",
			NLPModel:       "dslim/bert-base-NER",
		},
		MinMemoryGB: 16,
	},
}

// ModelsForTier is a pure lookup of the model triple a tier binds to.
func ModelsForTier(t Tier) ModelSet {
	return tierSpecs[t].Models
}

// ProbeFunc supplies a resource snapshot. Injectable for tests.
type ProbeFunc func() (sysinfo.Snapshot, error)

// TierResolver maps host resources (or an explicit override) to a Tier, and
// tracks per-capability model-id overrides applied via the models/update
// endpoint. Safe for concurrent use.
type TierResolver struct {
	logger *zap.Logger
	probe  ProbeFunc

	mu        sync.RWMutex
	override  Tier // empty means unset
	overrides ModelSet
}

// NewTierResolver builds a resolver. A nil probe uses the live host probe; a
// nil logger is replaced with a no-op one.
func NewTierResolver(logger *zap.Logger, probe ProbeFunc, override Tier) *TierResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if probe == nil {
		probe = sysinfo.Probe
	}
	return &TierResolver{
		logger:   logger.Named("tiers"),
		probe:    probe,
		override: override,
	}
}

// Resolve returns the effective tier. A configured override short-circuits
// probing entirely. On probe failure the second-lowest tier is the safe
// default and the failure is not propagated.
func (r *TierResolver) Resolve() Tier {
	r.mu.RLock()
	override := r.override
	r.mu.RUnlock()
	if override != "" {
		return override
	}

	snap, err := r.probe()
	if err != nil {
		r.logger.Warn("resource probe failed, defaulting tier",
			zap.Error(err),
			zap.String("tier", string(TierMidRange)))
		return TierMidRange
	}

	for i := len(tierOrder) - 1; i >= 0; i-- {
		t := tierOrder[i]
		if snap.TotalMemoryGB >= tierSpecs[t].MinMemoryGB {
			return t
		}
	}
	return TierLowEnd
}

// SetOverride pins the resolver to a tier for the rest of the process
// lifetime. An empty tier clears the pin.
func (r *TierResolver) SetOverride(t Tier) {
	r.mu.Lock()
	r.override = t
	r.mu.Unlock()
}

// EffectiveModels returns the model triple for the resolved tier with any
// explicit per-capability overrides applied on top.
func (r *TierResolver) EffectiveModels() ModelSet {
	models := ModelsForTier(r.Resolve())

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.overrides.LLMModel != "" {
		models.LLMModel = r.overrides.LLMModel
	}
	if r.overrides.EmbeddingModel != "" {
		models.EmbeddingModel = r.overrides.EmbeddingModel
	}
	if r.overrides.NLPModel != "" {
		models.NLPModel = r.overrides.NLPModel
	}
	return models
}

// UpdateModels overrides individual model identifiers. Empty fields leave
// the existing binding untouched. Returns the resulting effective set.
func (r *TierResolver) UpdateModels(llm, embedding, nlp string) ModelSet {
	r.mu.Lock()
	if llm != "" {
		r.overrides.LLMModel = llm
	}
	if embedding != "" {
		r.overrides.EmbeddingModel = embedding
	}
	if nlp != "" {
		r.overrides.NLPModel = nlp
	}
	r.mu.Unlock()

	models := r.EffectiveModels()
	r.logger.Info("model bindings updated",
		zap.String("llm_model", models.LLMModel),
		zap.String("embedding_model", models.EmbeddingModel),
		zap.String("nlp_model", models.NLPModel))
	return models
}

// Recommend probes the host and returns the tier it would resolve to along
// with the snapshot that justified it.
func (r *TierResolver) Recommend() (Tier, sysinfo.Snapshot) {
	snap, err := r.probe()
	if err != nil {
		r.logger.Warn("resource probe failed during recommendation", zap.Error(err))
		return TierMidRange, sysinfo.Snapshot{}
	}
	for i := len(tierOrder) - 1; i >= 0; i-- {
		t := tierOrder[i]
		if snap.TotalMemoryGB >= tierSpecs[t].MinMemoryGB {
			return t, snap
		}
	}
	return TierLowEnd, snap
}
