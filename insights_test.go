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
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/llm"
)

// newOfflineInsightGenerator builds a generator whose model load always
// fails, exercising the degraded paths without a runtime.
func newOfflineInsightGenerator(t *testing.T) *InsightGenerator {
	t.Helper()
	registry := NewModelRegistry(zap.NewNop(), acceleratorOff)
	registry.RegisterLoader(CapabilityLLM, func(ctx context.Context, modelID string, device Device) (any, error) {
		return nil, errors.New("runtime unreachable")
	})
	resolver := NewTierResolver(zap.NewNop(), nil, TierMidRange)
	return NewInsightGenerator(nil, registry, resolver, nil, zap.NewNop())
}

func TestDailySummaryUnparseableResponseUsesRawText(t *testing.T) {
	const prose = "The day went well, lots of reading and some coding."
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"` + prose + `"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	logger := zap.NewNop()
	registry := NewModelRegistry(logger, acceleratorOff)
	registry.RegisterLoader(CapabilityLLM, func(ctx context.Context, modelID string, device Device) (any, error) {
		return modelID, nil
	})
	resolver := NewTierResolver(logger, nil, TierMidRange)
	g := NewInsightGenerator(llm.New(srv.URL, logger), registry, resolver, nil, logger)

	got := g.DailySummary(context.Background(), map[string]any{"date": "2025-06-01"})
	require.Equal(t, prose, got.Summary)
	require.Empty(t, got.Activities)
	require.Empty(t, got.TimeSpent)
	require.Empty(t, got.ConceptsLearned)
	require.Empty(t, got.Insights)
}

func TestGenerateUnknownType(t *testing.T) {
	g := newOfflineInsightGenerator(t)
	_, err := g.Generate(context.Background(), "quarterly_review", nil)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "insight_type", verr.Field)
}

func TestDailySummaryDegraded(t *testing.T) {
	g := newOfflineInsightGenerator(t)
	got := g.DailySummary(context.Background(), map[string]any{"date": "2025-06-01"})
	require.Equal(t, "Unable to generate AI summary", got.Summary)
	require.NotNil(t, got.Activities)
	require.NotNil(t, got.TimeSpent)
	require.NotNil(t, got.ConceptsLearned)
	require.NotNil(t, got.Insights)
}

func TestWeeklyInsightsDegraded(t *testing.T) {
	g := newOfflineInsightGenerator(t)
	got := g.WeeklyInsights(context.Background(), map[string]any{})
	require.Equal(t, "Unable to generate insights", got.Summary)
	require.Empty(t, got.Patterns)
	require.NotNil(t, got.TimeDistribution)
}

func TestLearningGapsDegraded(t *testing.T) {
	g := newOfflineInsightGenerator(t)
	got := g.LearningGaps(context.Background(), map[string]any{
		"gaps": []any{
			map[string]any{"concept": "goroutines", "watched_in": "Go Concurrency", "days_since": float64(12)},
			map[string]any{"concept": "generics", "days_since": 3},
		},
	})
	require.Len(t, got, 2)
	require.Equal(t, "goroutines", got[0].Concept)
	require.Equal(t, "Go Concurrency", got[0].WatchedDate)
	require.Equal(t, 12, got[0].DaysSince)
	require.Equal(t, "Consider applying this concept in a coding project to reinforce learning.", got[0].Recommendation)
	require.Equal(t, "Unknown", got[1].WatchedDate)
}

func TestLearningGapsEmptyInput(t *testing.T) {
	g := newOfflineInsightGenerator(t)
	got := g.LearningGaps(context.Background(), map[string]any{})
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestFocusAreasDegraded(t *testing.T) {
	g := newOfflineInsightGenerator(t)
	got := g.FocusAreas(context.Background(), map[string]any{
		"type_distribution": map[string]any{"coding": float64(10)},
	})
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestBuildActivitiesContext(t *testing.T) {
	got := buildActivitiesContext(map[string]any{
		"date": "2025-06-01",
		"activities": []any{
			map[string]any{"type": "watching", "title": "Go talk"},
			map[string]any{"type": "coding"},
		},
		"sessions": []any{
			map[string]any{"type": "coding", "summary": "refactored handlers", "duration": float64(1800)},
		},
		"concepts":   []any{"channels", "select"},
		"time_spent": map[string]any{"coding": float64(90), "watching": float64(30)},
	})

	require.Contains(t, got, "Date: 2025-06-01")
	require.Contains(t, got, "- watching: Go talk")
	require.Contains(t, got, "- coding: Unknown")
	require.Contains(t, got, "- coding: refactored handlers (1800s)")
	require.Contains(t, got, "Concepts learned: channels, select")
	require.Contains(t, got, "- coding: 90 minutes")
	require.Contains(t, got, "- watching: 30 minutes")
}

func TestBuildWeeklyContext(t *testing.T) {
	got := buildWeeklyContext(map[string]any{
		"week_start":       "2025-05-26",
		"week_end":         "2025-06-01",
		"total_activities": float64(42),
		"daily_stats": map[string]any{
			"monday": map[string]any{"count": float64(7)},
		},
		"type_stats": map[string]any{"coding": float64(20)},
	})

	require.Contains(t, got, "Week: 2025-05-26 to 2025-06-01")
	require.Contains(t, got, "Total activities: 42")
	require.Contains(t, got, "- monday: 7 activities")
	require.Contains(t, got, "- coding: 20")
}

func TestBuildFocusAreasContextConvertsSeconds(t *testing.T) {
	got := buildFocusAreasContext(map[string]any{
		"time_by_type": map[string]any{"coding": float64(3600)},
	})
	require.Contains(t, got, "- coding: 60 minutes")
}

func TestFieldAccessors(t *testing.T) {
	data := map[string]any{
		"s":     "value",
		"empty": "",
		"n":     float64(7),
		"list":  []any{"a", 1, "b"},
		"m":     map[string]any{"x": float64(2), "bad": "nope"},
	}

	require.Equal(t, "value", stringField(data, "s", "d"))
	require.Equal(t, "d", stringField(data, "empty", "d"))
	require.Equal(t, "d", stringField(data, "missing", "d"))

	require.Equal(t, 7, intField(data, "n"))
	require.Zero(t, intField(data, "missing"))

	require.Equal(t, []string{"a", "b"}, stringSliceField(data, "list"))
	require.Empty(t, stringSliceField(data, "missing"))

	require.Equal(t, map[string]int{"x": 2}, intMapField(data, "m"))
}

func TestSortedKeys(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, sortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}
