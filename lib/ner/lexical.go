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
	"regexp"
	"strings"
	"unicode"
)

// Lexical is the always-available base extractor. It combines a
// capitalization heuristic with small gazetteers and a pattern pass for
// media and project mentions. No model load, no failure modes.
type Lexical struct{}

// NewLexical returns the base extractor.
func NewLexical() *Lexical { return &Lexical{} }

const (
	scoreGazetteer   = float32(0.8)
	scoreHeuristic   = float32(0.6)
	scoreSpecialized = float32(0.7)
)

// orgSuffixes mark a capitalized span as an organization.
var orgSuffixes = []string{
	"Inc", "Inc.", "Corp", "Corp.", "LLC", "Ltd", "Ltd.", "GmbH",
	"Labs", "Systems", "Technologies", "Software", "Studio", "Studios",
	"Foundation", "University", "Institute",
}

// techGazetteer covers tools and technologies common in activity logs.
var techGazetteer = map[string]struct{}{
	"python": {}, "javascript": {}, "typescript": {}, "golang": {}, "go": {},
	"rust": {}, "java": {}, "kotlin": {}, "swift": {}, "react": {},
	"vue": {}, "angular": {}, "django": {}, "flask": {}, "fastapi": {},
	"docker": {}, "kubernetes": {}, "terraform": {}, "postgres": {},
	"postgresql": {}, "mysql": {}, "redis": {}, "mongodb": {}, "sqlite": {},
	"linux": {}, "windows": {}, "macos": {}, "git": {}, "github": {},
	"gitlab": {}, "vscode": {}, "vim": {}, "emacs": {}, "excel": {},
	"photoshop": {}, "figma": {}, "blender": {}, "unity": {}, "tensorflow": {},
	"pytorch": {}, "numpy": {}, "pandas": {},
}

// locationGazetteer covers frequent location mentions; the heuristic layer
// is intentionally conservative about guessing locations.
var locationGazetteer = map[string]struct{}{
	"london": {}, "paris": {}, "berlin": {}, "tokyo": {}, "new york": {},
	"san francisco": {}, "seattle": {}, "boston": {}, "chicago": {},
	"india": {}, "china": {}, "japan": {}, "germany": {}, "france": {},
	"canada": {}, "australia": {}, "europe": {}, "asia": {}, "america": {},
}

// sentenceStarters are capitalized words that open sentences without being
// names.
var sentenceStarters = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "i": {}, "it": {}, "this": {}, "that": {},
	"he": {}, "she": {}, "they": {}, "we": {}, "you": {}, "my": {}, "his": {},
	"her": {}, "their": {}, "our": {}, "today": {}, "yesterday": {},
	"after": {}, "before": {}, "when": {}, "while": {}, "then": {}, "now": {},
	"also": {}, "but": {}, "and": {}, "or": {}, "in": {}, "on": {}, "at": {},
	"for": {}, "with": {}, "from": {},
	// Common sentence-leading verbs in activity notes.
	"met": {}, "made": {}, "went": {}, "got": {}, "had": {}, "was": {},
	"watched": {}, "played": {}, "read": {}, "spent": {}, "worked": {},
	"finished": {}, "started": {}, "fixed": {}, "deployed": {}, "wrote": {},
	"built": {},
}

var specializedPatterns = []struct {
	label string
	re    *regexp.Regexp
}{
	{LabelMovie, regexp.MustCompile(`(?i)watched\s+["']([^"']+)["']`)},
	{LabelMovie, regexp.MustCompile(`(?i)(?:movie|film)[:\s]+["']?([^"'\n]+?)["']?(?:$|[.,;\n])`)},
	{LabelGame, regexp.MustCompile(`(?i)playing\s+["']([^"']+)["']`)},
	{LabelGame, regexp.MustCompile(`(?i)game[:\s]+["']?([^"'\n]+?)["']?(?:$|[.,;\n])`)},
	{LabelBook, regexp.MustCompile(`(?i)reading\s+["']([^"']+)["']`)},
	{LabelBook, regexp.MustCompile(`(?i)(?:book|pdf)[:\s]+["']?([^"'\n]+?)["']?(?:$|[.,;\n])`)},
	{LabelProject, regexp.MustCompile(`(?i)project[:\s]+["']?([^"'\n]+?)["']?(?:$|[.,;\n])`)},
	{LabelProject, regexp.MustCompile(`(?i)working\s+on\s+["']?([^"'\n]+?)["']?(?:$|[.,;\n])`)},
}

// Recognize extracts entities per input text. It never returns an error;
// the signature matches Model so callers can swap extractors.
func (l *Lexical) Recognize(_ context.Context, texts []string) ([][]Entity, error) {
	out := make([][]Entity, len(texts))
	for i, text := range texts {
		out[i] = l.extract(text)
	}
	return out, nil
}

func (l *Lexical) Close() error { return nil }

func (l *Lexical) extract(text string) []Entity {
	var entities []Entity
	entities = append(entities, l.capitalizedSpans(text)...)
	entities = append(entities, l.gazetteerHits(text)...)
	entities = append(entities, SpecializedEntities(text, nil)...)
	return Dedupe(nil, entities)
}

// capitalizedSpans finds runs of capitalized words and guesses their label.
func (l *Lexical) capitalizedSpans(text string) []Entity {
	var entities []Entity

	type span struct{ start, end int }
	var spans []span
	inWord, wordStart := false, 0
	// Collect word boundaries first.
	var words []span
	for i, r := range text {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '.'
		if isWord && !inWord {
			inWord, wordStart = true, i
		}
		if !isWord && inWord {
			inWord = false
			words = append(words, span{wordStart, i})
		}
	}
	if inWord {
		words = append(words, span{wordStart, len(text)})
	}

	// Merge adjacent capitalized words into spans.
	var current *span
	flush := func() {
		if current != nil {
			spans = append(spans, *current)
			current = nil
		}
	}
	for _, w := range words {
		word := text[w.start:w.end]
		r := []rune(word)[0]
		if unicode.IsUpper(r) && len(word) > 1 {
			if current != nil && adjacent(text, current.end, w.start) {
				current.end = w.end
			} else {
				flush()
				c := span{w.start, w.end}
				current = &c
			}
		} else {
			flush()
		}
	}
	flush()

	for _, s := range spans {
		surface := strings.TrimRight(text[s.start:s.end], ".")
		lower := strings.ToLower(surface)
		if len(strings.Fields(surface)) == 1 {
			if _, starter := sentenceStarters[lower]; starter {
				continue
			}
		}
		label := l.guessLabel(surface)
		if label == LabelPerson {
			// "at <Name>" reads as a place of work, not a person.
			switch precedingWord(text, s.start) {
			case "at", "joined":
				label = LabelOrganization
			}
		}
		entities = append(entities, Entity{
			Text:  surface,
			Label: label,
			Start: s.start,
			End:   s.start + len(surface),
			Score: scoreHeuristic,
		})
	}
	return entities
}

func adjacent(text string, end, start int) bool {
	gap := text[end:start]
	return gap == " " || gap == "\u00a0"
}

// precedingWord returns the lowercase word immediately before offset start,
// or "" at the beginning of the text.
func precedingWord(text string, start int) string {
	prefix := strings.TrimRight(text[:start], " \t")
	i := strings.LastIndexAny(prefix, " \t\n")
	return strings.ToLower(prefix[i+1:])
}

func (l *Lexical) guessLabel(surface string) string {
	lower := strings.ToLower(surface)
	if _, ok := techGazetteer[lower]; ok {
		return LabelTech
	}
	if _, ok := locationGazetteer[lower]; ok {
		return LabelLocation
	}
	words := strings.Fields(surface)
	last := strings.TrimSuffix(words[len(words)-1], ",")
	for _, suffix := range orgSuffixes {
		if last == suffix {
			return LabelOrganization
		}
	}
	// One or two capitalized words with no org marker reads as a name.
	if len(words) <= 2 {
		return LabelPerson
	}
	return LabelOther
}

// gazetteerHits finds lowercase mentions the capitalization pass misses.
func (l *Lexical) gazetteerHits(text string) []Entity {
	var entities []Entity
	lower := strings.ToLower(text)
	for term := range techGazetteer {
		for idx := 0; ; {
			pos := strings.Index(lower[idx:], term)
			if pos < 0 {
				break
			}
			start := idx + pos
			end := start + len(term)
			if wholeWord(lower, start, end) {
				entities = append(entities, Entity{
					Text:  text[start:end],
					Label: LabelTech,
					Start: start,
					End:   end,
					Score: scoreGazetteer,
				})
			}
			idx = end
		}
	}
	return entities
}

func wholeWord(s string, start, end int) bool {
	if start > 0 {
		if r := rune(s[start-1]); unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	if end < len(s) {
		if r := rune(s[end]); unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// SpecializedEntities runs the media/project pattern pass. types filters by
// lowercase type name ("movie", "game", "book", "pdf", "video", "project");
// nil or empty means all.
func SpecializedEntities(text string, types []string) []Entity {
	wanted := func(names ...string) bool {
		if len(types) == 0 {
			return true
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

	var entities []Entity
	for _, p := range specializedPatterns {
		switch p.label {
		case LabelMovie:
			if !wanted("movie", "video") {
				continue
			}
		case LabelGame:
			if !wanted("game") {
				continue
			}
		case LabelBook:
			if !wanted("book", "pdf") {
				continue
			}
		case LabelProject:
			if !wanted("project") {
				continue
			}
		}
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			if len(m) < 4 || m[2] < 0 {
				continue
			}
			surface := strings.TrimSpace(text[m[2]:m[3]])
			if surface == "" {
				continue
			}
			entities = append(entities, Entity{
				Text:  surface,
				Label: p.label,
				Start: m[0],
				End:   m[1],
				Score: scoreSpecialized,
			})
		}
	}
	return entities
}
