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
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/llm"
	"github.com/Tapu45/CurioAi/lib/ragstore"
)

// Insight types accepted by the generator.
const (
	InsightDailySummary   = "daily_summary"
	InsightWeeklyInsights = "weekly_insights"
	InsightLearningGaps   = "learning_gaps"
	InsightFocusAreas     = "focus_areas"
)

// DailySummary is the structured daily insight.
type DailySummary struct {
	Summary         string         `json:"summary"`
	Activities      []string       `json:"activities"`
	TimeSpent       map[string]int `json:"time_spent"`
	ConceptsLearned []string       `json:"concepts_learned"`
	Insights        []string       `json:"insights"`
}

// WeeklyInsights is the structured weekly insight.
type WeeklyInsights struct {
	Summary          string         `json:"summary"`
	Patterns         []string       `json:"patterns"`
	Recommendations  []string       `json:"recommendations"`
	KnowledgeGrains  []string       `json:"knowledge_grains"`
	TimeDistribution map[string]int `json:"time_distribution"`
}

// LearningGap is one watched-but-not-applied concept.
type LearningGap struct {
	Concept        string `json:"concept"`
	WatchedDate    string `json:"watched_date"`
	DaysSince      int    `json:"days_since"`
	Recommendation string `json:"recommendation"`
}

// FocusArea is one suggested area of attention.
type FocusArea struct {
	Area        string   `json:"area"`
	Reason      string   `json:"reason"`
	Priority    string   `json:"priority"`
	ActionItems []string `json:"action_items"`
}

// InsightGenerator builds a textual context from structured activity data,
// asks the local LLM for a narrative, and coerces the free text into the
// insight type's schema. Retrieval grounds the narrative when the index
// has documents. A parse failure degrades to an unstructured result with
// the raw answer as the summary.
type InsightGenerator struct {
	llm      *llm.Client
	registry *ModelRegistry
	resolver *TierResolver
	store    *ragstore.Store
	logger   *zap.Logger
}

// NewInsightGenerator wires the generator; store may be nil to disable
// retrieval grounding.
func NewInsightGenerator(client *llm.Client, registry *ModelRegistry, resolver *TierResolver, store *ragstore.Store, logger *zap.Logger) *InsightGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightGenerator{
		llm:      client,
		registry: registry,
		resolver: resolver,
		store:    store,
		logger:   logger.Named("insights"),
	}
}

// Generate dispatches on insightType. Unknown types are a validation
// error.
func (g *InsightGenerator) Generate(ctx context.Context, insightType string, data map[string]any) (any, error) {
	switch insightType {
	case InsightDailySummary:
		return g.DailySummary(ctx, data), nil
	case InsightWeeklyInsights:
		return g.WeeklyInsights(ctx, data), nil
	case InsightLearningGaps:
		return g.LearningGaps(ctx, data), nil
	case InsightFocusAreas:
		return g.FocusAreas(ctx, data), nil
	default:
		return nil, &ValidationError{Field: "insight_type", Reason: fmt.Sprintf("unknown insight type %q", insightType)}
	}
}

// DailySummary generates the day's structured summary.
func (g *InsightGenerator) DailySummary(ctx context.Context, data map[string]any) DailySummary {
	context_ := buildActivitiesContext(data)
	date := stringField(data, "date", "today")

	query := fmt.Sprintf(`Based on the following activities from %s,
generate a comprehensive daily summary. Include:
1. What the user did (activities, sessions)
2. What they learned (concepts, topics)
3. Time spent on different activities
4. Key insights and patterns

Activities data:
%s

Provide a natural, conversational summary as if you're a mentor reviewing their day.`, date, context_)

	narrative, err := g.narrate(ctx, query)
	if err != nil {
		g.logger.Warn("daily summary generation failed", zap.Error(err))
		return DailySummary{
			Summary:         "Unable to generate AI summary",
			Activities:      []string{},
			TimeSpent:       map[string]int{},
			ConceptsLearned: []string{},
			Insights:        []string{},
		}
	}

	structured := fmt.Sprintf(`You are a learning mentor. Generate a structured daily summary from this text:

%s

Respond with a JSON object with fields: "summary" (string), "activities" (array of strings), "time_spent" (object mapping activity type to minutes), "concepts_learned" (array of strings), "insights" (array of strings).

Output only valid JSON matching the schema.`, narrative)

	response, err := g.narrate(ctx, structured)
	if err == nil {
		var parsed DailySummary
		if jsonErr := extractJSON(response, &parsed); jsonErr == nil {
			fillDailyDefaults(&parsed)
			return parsed
		}
		g.logger.Warn("failed to parse structured daily summary, using raw response")
	}

	return DailySummary{
		Summary:         narrative,
		Activities:      []string{},
		TimeSpent:       map[string]int{},
		ConceptsLearned: []string{},
		Insights:        []string{},
	}
}

// WeeklyInsights generates the week's structured insights.
func (g *InsightGenerator) WeeklyInsights(ctx context.Context, data map[string]any) WeeklyInsights {
	context_ := buildWeeklyContext(data)

	query := fmt.Sprintf(`Analyze this week's learning activities and provide insights:

%s

Generate insights about:
1. Learning patterns (watching vs coding ratio, consistency)
2. Knowledge progression (what concepts were learned and applied)
3. Recommendations for improvement
4. Key knowledge grains acquired

Be specific and actionable.`, context_)

	narrative, err := g.narrate(ctx, query)
	if err != nil {
		g.logger.Warn("weekly insights generation failed", zap.Error(err))
		return WeeklyInsights{
			Summary:          "Unable to generate insights",
			Patterns:         []string{},
			Recommendations:  []string{},
			KnowledgeGrains:  []string{},
			TimeDistribution: map[string]int{},
		}
	}

	structured := fmt.Sprintf(`Generate structured weekly insights:

%s

Respond with a JSON object with fields: "summary" (string), "patterns" (array of strings), "recommendations" (array of strings), "knowledge_grains" (array of strings), "time_distribution" (object mapping activity type to minutes).

Output only valid JSON.`, narrative)

	response, err := g.narrate(ctx, structured)
	if err == nil {
		var parsed WeeklyInsights
		if jsonErr := extractJSON(response, &parsed); jsonErr == nil {
			fillWeeklyDefaults(&parsed)
			return parsed
		}
		g.logger.Warn("failed to parse structured weekly insights, using raw response")
	}

	return WeeklyInsights{
		Summary:          narrative,
		Patterns:         []string{},
		Recommendations:  []string{},
		KnowledgeGrains:  []string{},
		TimeDistribution: intMapField(data, "time_distribution"),
	}
}

// LearningGaps analyzes watched-but-not-applied concepts. data carries a
// "gaps" list; each entry has concept/days_since/watched_in fields.
func (g *InsightGenerator) LearningGaps(ctx context.Context, data map[string]any) []LearningGap {
	gaps := gapEntries(data)
	if len(gaps) == 0 {
		return []LearningGap{}
	}

	var lines []string
	for _, gap := range gaps {
		lines = append(lines, fmt.Sprintf("- %s: Watched %d days ago in '%s'", gap.Concept, gap.DaysSince, gap.WatchedDate))
	}

	query := fmt.Sprintf(`Analyze these learning gaps where concepts were watched but not applied:

%s

For each gap, provide:
1. Why it might not have been applied
2. Specific recommendation to apply it
3. Suggested project or exercise

Be encouraging and actionable.`, strings.Join(lines, "\n"))

	analysis, err := g.narrate(ctx, query)
	if err != nil {
		g.logger.Warn("learning gap analysis failed", zap.Error(err))
		return fallbackGaps(gaps)
	}

	structured := fmt.Sprintf(`Extract learning gaps from this analysis:

%s

Respond with a JSON array of objects with fields: "concept" (string), "watched_date" (string), "days_since" (number), "recommendation" (string).

Output only valid JSON array.`, analysis)

	response, err := g.narrate(ctx, structured)
	if err == nil {
		var parsed []LearningGap
		if jsonErr := extractJSONArray(response, &parsed); jsonErr == nil {
			return parsed
		}
		g.logger.Warn("failed to parse learning gaps, using fallback recommendations")
	}
	return fallbackGaps(gaps)
}

// FocusAreas suggests areas of attention from activity patterns.
func (g *InsightGenerator) FocusAreas(ctx context.Context, data map[string]any) []FocusArea {
	context_ := buildFocusAreasContext(data)

	query := fmt.Sprintf(`Based on this activity data, suggest focus areas:

%s

Provide:
1. Areas that need more attention
2. Why each area is important
3. Priority level (high, medium, low)
4. Specific action items

Be specific and actionable.`, context_)

	analysis, err := g.narrate(ctx, query)
	if err != nil {
		g.logger.Warn("focus area analysis failed", zap.Error(err))
		return []FocusArea{}
	}

	structured := fmt.Sprintf(`Extract focus areas from this analysis:

%s

Respond with a JSON array of objects with fields: "area" (string), "reason" (string), "priority" ("high", "medium", or "low"), "action_items" (array of strings).

Output only valid JSON array.`, analysis)

	response, err := g.narrate(ctx, structured)
	if err == nil {
		var parsed []FocusArea
		if jsonErr := extractJSONArray(response, &parsed); jsonErr == nil {
			return parsed
		}
		g.logger.Warn("failed to parse focus areas")
	}
	return []FocusArea{}
}

// narrate runs one LLM completion through the registry, prepending
// retrieved passages when the index has related content.
func (g *InsightGenerator) narrate(ctx context.Context, prompt string) (string, error) {
	model := g.resolver.EffectiveModels().LLMModel
	handle, err := g.registry.GetOrLoad(ctx, CapabilityLLM, model)
	if err != nil {
		return "", err
	}

	if g.store != nil && g.store.Count() > 0 {
		passages, err := g.store.Query(ctx, prompt, 5)
		if err != nil {
			g.logger.Debug("retrieval failed, generating without grounding", zap.Error(err))
		} else if len(passages) > 0 {
			var sb strings.Builder
			sb.WriteString("Relevant history:\n")
			for _, p := range passages {
				sb.WriteString("- ")
				sb.WriteString(p.Content)
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
			sb.WriteString(prompt)
			prompt = sb.String()
		}
	}

	var response string
	err = g.registry.InvokeWithDeviceFallback(ctx, handle, func(ctx context.Context, _ *Handle) error {
		var genErr error
		response, genErr = g.llm.Generate(ctx, model, prompt, llm.GenerateOptions{})
		return genErr
	})
	return response, err
}

func buildActivitiesContext(data map[string]any) string {
	var parts []string
	if date := stringField(data, "date", ""); date != "" {
		parts = append(parts, "Date: "+date)
	}
	if activities, ok := data["activities"].([]any); ok && len(activities) > 0 {
		parts = append(parts, "\nActivities:")
		for _, a := range activities {
			if m, ok := a.(map[string]any); ok {
				parts = append(parts, fmt.Sprintf("- %s: %s", stringField(m, "type", "unknown"), stringField(m, "title", "Unknown")))
			}
		}
	}
	if sessions, ok := data["sessions"].([]any); ok && len(sessions) > 0 {
		parts = append(parts, "\nSessions:")
		for _, s := range sessions {
			if m, ok := s.(map[string]any); ok {
				parts = append(parts, fmt.Sprintf("- %s: %s (%ds)",
					stringField(m, "type", "unknown"),
					stringField(m, "summary", "No summary"),
					intField(m, "duration")))
			}
		}
	}
	if concepts := stringSliceField(data, "concepts"); len(concepts) > 0 {
		parts = append(parts, "\nConcepts learned: "+strings.Join(concepts, ", "))
	}
	if spent := intMapField(data, "time_spent"); len(spent) > 0 {
		parts = append(parts, "\nTime spent:")
		for _, activityType := range sortedKeys(spent) {
			parts = append(parts, fmt.Sprintf("- %s: %d minutes", activityType, spent[activityType]))
		}
	}
	return strings.Join(parts, "\n")
}

func buildWeeklyContext(data map[string]any) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Week: %s to %s",
		stringField(data, "week_start", "Unknown"),
		stringField(data, "week_end", "Unknown")))
	parts = append(parts, fmt.Sprintf("Total activities: %d", intField(data, "total_activities")))

	if daily := intMapOfCounts(data, "daily_stats"); len(daily) > 0 {
		parts = append(parts, "\nDaily breakdown:")
		for _, day := range sortedKeys(daily) {
			parts = append(parts, fmt.Sprintf("- %s: %d activities", day, daily[day]))
		}
	}
	if types := intMapField(data, "type_stats"); len(types) > 0 {
		parts = append(parts, "\nActivity types:")
		for _, t := range sortedKeys(types) {
			parts = append(parts, fmt.Sprintf("- %s: %d", t, types[t]))
		}
	}
	if concepts := stringSliceField(data, "concepts"); len(concepts) > 0 {
		parts = append(parts, "\nConcepts: "+strings.Join(concepts, ", "))
	}
	return strings.Join(parts, "\n")
}

func buildFocusAreasContext(data map[string]any) string {
	var parts []string
	if dist := intMapField(data, "type_distribution"); len(dist) > 0 {
		parts = append(parts, "Activity distribution:")
		for _, t := range sortedKeys(dist) {
			parts = append(parts, fmt.Sprintf("- %s: %d", t, dist[t]))
		}
	}
	if byType := intMapField(data, "time_by_type"); len(byType) > 0 {
		parts = append(parts, "\nTime spent:")
		for _, t := range sortedKeys(byType) {
			parts = append(parts, fmt.Sprintf("- %s: %d minutes", t, byType[t]/60))
		}
	}
	if concepts := stringSliceField(data, "top_concepts"); len(concepts) > 0 {
		parts = append(parts, "\nTop concepts: "+strings.Join(concepts, ", "))
	}
	return strings.Join(parts, "\n")
}

func gapEntries(data map[string]any) []LearningGap {
	raw, ok := data["gaps"].([]any)
	if !ok {
		return nil
	}
	var gaps []LearningGap
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		gaps = append(gaps, LearningGap{
			Concept:     stringField(m, "concept", "Unknown"),
			WatchedDate: stringField(m, "watched_in", "Unknown"),
			DaysSince:   intField(m, "days_since"),
		})
	}
	return gaps
}

func fallbackGaps(gaps []LearningGap) []LearningGap {
	out := make([]LearningGap, len(gaps))
	for i, gap := range gaps {
		gap.Recommendation = "Consider applying this concept in a coding project to reinforce learning."
		out[i] = gap
	}
	return out
}

func fillDailyDefaults(s *DailySummary) {
	if s.Activities == nil {
		s.Activities = []string{}
	}
	if s.TimeSpent == nil {
		s.TimeSpent = map[string]int{}
	}
	if s.ConceptsLearned == nil {
		s.ConceptsLearned = []string{}
	}
	if s.Insights == nil {
		s.Insights = []string{}
	}
}

func fillWeeklyDefaults(w *WeeklyInsights) {
	if w.Patterns == nil {
		w.Patterns = []string{}
	}
	if w.Recommendations == nil {
		w.Recommendations = []string{}
	}
	if w.KnowledgeGrains == nil {
		w.KnowledgeGrains = []string{}
	}
	if w.TimeDistribution == nil {
		w.TimeDistribution = map[string]int{}
	}
}

func stringField(data map[string]any, key, fallback string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func stringSliceField(data map[string]any, key string) []string {
	out := []string{}
	switch v := data[key].(type) {
	case []string:
		return v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func intMapField(data map[string]any, key string) map[string]int {
	out := map[string]int{}
	switch v := data[key].(type) {
	case map[string]int:
		return v
	case map[string]any:
		for k, item := range v {
			switch n := item.(type) {
			case int:
				out[k] = n
			case int64:
				out[k] = int(n)
			case float64:
				out[k] = int(n)
			}
		}
	}
	return out
}

// intMapOfCounts reads maps shaped like {"mon": {"count": 3}}.
func intMapOfCounts(data map[string]any, key string) map[string]int {
	out := map[string]int{}
	if v, ok := data[key].(map[string]any); ok {
		for k, item := range v {
			if m, ok := item.(map[string]any); ok {
				out[k] = intField(m, "count")
			}
		}
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
