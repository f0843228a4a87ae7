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

	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/zsc"
)

// ActivityTypes are the candidate labels for activity classification.
var ActivityTypes = []string{
	"coding",
	"reading",
	"watching",
	"gaming",
	"shopping",
	"social",
	"learning",
	"entertainment",
	"work",
	"other",
}

// DefaultClassifierModel is the zero-shot NLI model behind the ML path.
const DefaultClassifierModel = "typeform/distilbert-base-uncased-mnli"

// undeterminedConfidence is the fixed confidence of the gate/fallback
// result.
const undeterminedConfidence = 0.5

// Activity is one classify-activity input.
type Activity struct {
	AppName        string `json:"app_name"`
	WindowTitle    string `json:"window_title"`
	URL            string `json:"url,omitempty"`
	ContentSnippet string `json:"content_snippet,omitempty"`
}

// ClassificationResult is the structured classification output.
type ClassificationResult struct {
	ActivityType string         `json:"activity_type"`
	Confidence   float64        `json:"confidence"`
	Metadata     map[string]any `json:"metadata"`
	Reason       string         `json:"reason"`
}

// ClassifierStatus reports whether the ML path is active.
type ClassifierStatus struct {
	MLAvailable bool   `json:"ml_available"`
	Tier        Tier   `json:"tier"`
	Method      string `json:"method"`
}

// ActivityClassifier classifies user activities. The ML path (zero-shot
// classification) is gated to high-end tiers; below the gate it returns a
// fixed undetermined result without attempting any model load, leaving
// rule-based classification to the client.
type ActivityClassifier struct {
	registry *ModelRegistry
	resolver *TierResolver
	logger   *zap.Logger
}

// mlTier is the lowest tier that loads the classification model.
const mlTier = TierHighEnd

// NewActivityClassifier wires the classifier to the shared model layer.
func NewActivityClassifier(registry *ModelRegistry, resolver *TierResolver, logger *zap.Logger) *ActivityClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityClassifier{
		registry: registry,
		resolver: resolver,
		logger:   logger.Named("classifier"),
	}
}

// Classify classifies one activity.
func (a *ActivityClassifier) Classify(ctx context.Context, activity Activity) ClassificationResult {
	if !a.resolver.Resolve().AtLeast(mlTier) {
		return undetermined(nil, "tier does not support ML classification, use rule-based")
	}

	handle, err := a.registry.GetOrLoad(ctx, CapabilityClassifier, DefaultClassifierModel)
	if err != nil {
		a.logger.Warn("classifier model unavailable", zap.Error(err))
		return undetermined(map[string]any{"error": err.Error()}, "ML model not loaded, use rule-based classifier")
	}
	if _, ok := handle.Value().(zsc.Classifier); !ok {
		return undetermined(nil, "ML classification returned unexpected format")
	}

	input := classifierInput(activity)

	var results [][]zsc.Classification
	err = a.registry.InvokeWithDeviceFallback(ctx, handle, func(ctx context.Context, h *Handle) error {
		classifier, ok := h.Value().(zsc.Classifier)
		if !ok {
			return fmt.Errorf("classifier handle holds %T", h.Value())
		}
		var classifyErr error
		results, classifyErr = classifier.Classify(ctx, []string{input}, ActivityTypes)
		return classifyErr
	})
	if err != nil {
		a.logger.Warn("ml classification failed", zap.Error(err))
		return undetermined(map[string]any{"error": err.Error()}, fmt.Sprintf("ML classification error: %v", err))
	}
	if len(results) == 0 || len(results[0]) == 0 {
		return undetermined(nil, "ML classification returned unexpected format")
	}

	predictions := results[0]
	top := predictions[0]
	all := make(map[string]float64, len(predictions))
	for _, p := range predictions {
		all[p.Label] = float64(p.Score)
	}

	return ClassificationResult{
		ActivityType: MapToActivityType(top.Label),
		Confidence:   float64(top.Score),
		Metadata: map[string]any{
			"all_predictions": all,
			"model":           DefaultClassifierModel,
			"method":          "zero-shot-classification",
		},
		Reason: fmt.Sprintf("ML classification: %s (confidence: %.2f)", top.Label, top.Score),
	}
}

// ClassifyBatch classifies activities one by one with the shared model.
func (a *ActivityClassifier) ClassifyBatch(ctx context.Context, activities []Activity) []ClassificationResult {
	results := make([]ClassificationResult, len(activities))
	for i, activity := range activities {
		results[i] = a.Classify(ctx, activity)
	}
	return results
}

// Status reports the classification method the current tier resolves to.
func (a *ActivityClassifier) Status() ClassifierStatus {
	tier := a.resolver.Resolve()
	mlAvailable := tier.AtLeast(mlTier)
	method := "rule-based"
	if mlAvailable {
		method = "zero-shot-classification"
	}
	return ClassifierStatus{
		MLAvailable: mlAvailable,
		Tier:        tier,
		Method:      method,
	}
}

func classifierInput(activity Activity) string {
	parts := []string{activity.AppName, activity.WindowTitle}
	if activity.URL != "" {
		parts = append(parts, activity.URL)
	}
	if activity.ContentSnippet != "" {
		snippet := activity.ContentSnippet
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		parts = append(parts, snippet)
	}
	return strings.Join(parts, " ")
}

func undetermined(metadata map[string]any, reason string) ClassificationResult {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return ClassificationResult{
		ActivityType: "other",
		Confidence:   undeterminedConfidence,
		Metadata:     metadata,
		Reason:       reason,
	}
}

// activityTypeMappings maps free-form labels onto the fixed set.
var activityTypeMappings = []struct{ key, value string }{
	{"code", "coding"},
	{"programming", "coding"},
	{"editor", "coding"},
	{"read", "reading"},
	{"book", "reading"},
	{"pdf", "reading"},
	{"video", "watching"},
	{"youtube", "watching"},
	{"stream", "watching"},
	{"game", "gaming"},
	{"play", "gaming"},
	{"shop", "shopping"},
	{"buy", "shopping"},
	{"ecommerce", "shopping"},
	{"social", "social"},
	{"media", "social"},
	{"learn", "learning"},
	{"study", "learning"},
	{"tutorial", "learning"},
	{"entertain", "entertainment"},
	{"movie", "entertainment"},
	{"music", "entertainment"},
	{"work", "work"},
	{"office", "work"},
}

// MapToActivityType maps a classifier label onto the fixed activity-type
// set, falling back to substring mappings and then "other".
func MapToActivityType(label string) string {
	for _, t := range ActivityTypes {
		if label == t {
			return t
		}
	}
	lower := strings.ToLower(label)
	for _, m := range activityTypeMappings {
		if strings.Contains(lower, m.key) {
			return m.value
		}
	}
	return "other"
}
