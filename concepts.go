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
	"unicode"

	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/ner"
)

// Concept is one extracted entity.
type Concept struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}

// ConceptSet is the structured output of concept/entity extraction.
type ConceptSet struct {
	Concepts []Concept `json:"concepts"`
	Keywords []string  `json:"keywords"`
	Topics   []string  `json:"topics"`
}

// ExtractOptions filters an extraction call.
type ExtractOptions struct {
	// Types filters by lowercase type name ("person", "movie", ...); empty
	// keeps everything.
	Types []string
	// MinConfidence drops entities scoring below it.
	MinConfidence float32
}

// ConceptExtractor extracts entities, keywords, and topics. The lexical
// base pass always runs; the model enhancement pass runs only on tiers
// that permit it, and its failure never blocks the base result.
type ConceptExtractor struct {
	registry *ModelRegistry
	resolver *TierResolver
	lexical  *ner.Lexical
	logger   *zap.Logger
}

// enhancementTier is the lowest tier that loads the NER model.
const enhancementTier = TierHighEnd

// NewConceptExtractor wires the extractor to the shared model layer.
func NewConceptExtractor(registry *ModelRegistry, resolver *TierResolver, logger *zap.Logger) *ConceptExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConceptExtractor{
		registry: registry,
		resolver: resolver,
		lexical:  ner.NewLexical(),
		logger:   logger.Named("concepts"),
	}
}

// Extract runs the base and, when permitted, the enhancement pass over
// text. It does not fail: degraded extraction returns the base result.
func (c *ConceptExtractor) Extract(ctx context.Context, text string, opts ExtractOptions) ConceptSet {
	baseEntities, _ := c.lexical.Recognize(ctx, []string{text})
	entities := baseEntities[0]

	if c.resolver.Resolve().AtLeast(enhancementTier) {
		if enhanced := c.enhance(ctx, text); enhanced != nil {
			entities = ner.Dedupe(entities, enhanced)
		}
	}

	concepts := make([]Concept, 0, len(entities))
	for _, e := range entities {
		if !typeWanted(e.Label, opts.Types) {
			continue
		}
		if e.Score < opts.MinConfidence {
			continue
		}
		concepts = append(concepts, Concept{
			Text:       e.Text,
			Label:      e.Label,
			Confidence: e.Score,
			Start:      e.Start,
			End:        e.End,
		})
	}

	return ConceptSet{
		Concepts: concepts,
		Keywords: extractKeywords(text),
		Topics:   extractTopics(text, concepts),
	}
}

// enhance runs the model pass. Any failure is logged and swallowed; the
// caller keeps the base entities.
func (c *ConceptExtractor) enhance(ctx context.Context, text string) []ner.Entity {
	model := c.resolver.EffectiveModels().NLPModel
	handle, err := c.registry.GetOrLoad(ctx, CapabilityNER, model)
	if err != nil {
		c.logger.Debug("ner enhancement unavailable", zap.Error(err))
		return nil
	}
	if _, ok := handle.Value().(ner.Model); !ok {
		c.logger.Warn("ner handle holds unexpected type", zap.String("model", model))
		return nil
	}

	var results [][]ner.Entity
	err = c.registry.InvokeWithDeviceFallback(ctx, handle, func(ctx context.Context, h *Handle) error {
		nerModel, ok := h.Value().(ner.Model)
		if !ok {
			return fmt.Errorf("ner handle for %s holds %T", model, h.Value())
		}
		var recErr error
		results, recErr = nerModel.Recognize(ctx, []string{text})
		return recErr
	})
	if err != nil {
		c.logger.Debug("ner enhancement failed", zap.Error(err))
		return nil
	}
	if len(results) == 0 {
		return nil
	}
	return results[0]
}

// typeWanted maps entity labels to the request's lowercase type filter.
func typeWanted(label string, types []string) bool {
	if len(types) == 0 {
		return true
	}
	var names []string
	switch label {
	case ner.LabelPerson:
		names = []string{"person"}
	case ner.LabelLocation:
		names = []string{"location"}
	case ner.LabelOrganization:
		names = []string{"organization", "org"}
	case ner.LabelTech:
		names = []string{"tech", "topic"}
	case ner.LabelMovie:
		names = []string{"movie", "video"}
	case ner.LabelGame:
		names = []string{"game"}
	case ner.LabelBook:
		names = []string{"book", "pdf"}
	case ner.LabelProject:
		names = []string{"project"}
	default:
		names = []string{"other", "topic"}
	}
	for _, t := range types {
		for _, n := range names {
			if t == n {
				return true
			}
		}
	}
	return false
}

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"then": {}, "this": {}, "that": {}, "these": {}, "those": {}, "is": {},
	"are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "can": {}, "could": {}, "should": {}, "not": {},
	"no": {}, "of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	"with": {}, "from": {}, "by": {}, "about": {}, "as": {}, "into": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "we": {}, "they": {},
	"my": {}, "your": {}, "his": {}, "her": {}, "its": {}, "our": {},
	"their": {}, "me": {}, "him": {}, "them": {}, "what": {}, "which": {},
	"who": {}, "when": {}, "where": {}, "why": {}, "how": {}, "all": {},
	"some": {}, "more": {}, "most": {}, "other": {}, "just": {}, "only": {},
	"very": {}, "also": {}, "there": {}, "here": {}, "so": {}, "than": {},
	"too": {}, "up": {}, "out": {}, "down": {}, "over": {}, "under": {},
	"again": {}, "after": {}, "before": {}, "while": {},
}

const (
	maxKeywords = 20
	maxTopics   = 10
)

// extractKeywords returns up to 20 distinct content words in order of
// first appearance.
func extractKeywords(text string) []string {
	seen := make(map[string]struct{})
	keywords := []string{}
	for _, word := range tokenizeWords(text) {
		lower := strings.ToLower(word)
		if len(lower) < 3 {
			continue
		}
		if _, stop := stopwords[lower]; stop {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		keywords = append(keywords, lower)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

// extractTopics combines topic-ish concepts (tech, organizations,
// projects) with the most frequent content-word bigrams.
func extractTopics(text string, concepts []Concept) []string {
	topics := []string{}
	seen := make(map[string]struct{})
	add := func(t string) {
		if t == "" {
			return
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		topics = append(topics, t)
	}

	count := 0
	for _, c := range concepts {
		if c.Label != ner.LabelTech && c.Label != ner.LabelOrganization && c.Label != ner.LabelProject {
			continue
		}
		add(c.Text)
		count++
		if count == 5 {
			break
		}
	}

	for _, phrase := range topBigrams(text, 3) {
		add(phrase)
	}

	if len(topics) > maxTopics {
		topics = topics[:maxTopics]
	}
	return topics
}

// topBigrams counts adjacent content-word pairs and returns the n most
// frequent, ties broken by first appearance.
func topBigrams(text string, n int) []string {
	words := []string{}
	for _, w := range tokenizeWords(text) {
		lower := strings.ToLower(w)
		if _, stop := stopwords[lower]; stop {
			words = append(words, "")
			continue
		}
		words = append(words, lower)
	}

	counts := make(map[string]int)
	order := []string{}
	for i := 0; i+1 < len(words); i++ {
		if words[i] == "" || words[i+1] == "" {
			continue
		}
		bigram := words[i] + " " + words[i+1]
		if counts[bigram] == 0 {
			order = append(order, bigram)
		}
		counts[bigram]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	var out []string
	for _, bigram := range order {
		if counts[bigram] < 2 {
			continue
		}
		out = append(out, bigram)
		if len(out) == n {
			break
		}
	}
	return out
}

func tokenizeWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
