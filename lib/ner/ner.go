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

// Package ner extracts named entities from text. The lexical extractor is
// the always-available base; a token-classification model can enhance its
// results on capable hosts.
package ner

import (
	"context"
	"strings"
)

// Entity labels produced by this package.
const (
	LabelPerson       = "PERSON"
	LabelOrganization = "ORGANIZATION"
	LabelLocation     = "LOCATION"
	LabelTech         = "TECH"
	LabelMovie        = "MOVIE"
	LabelGame         = "GAME"
	LabelBook         = "BOOK"
	LabelProject      = "PROJECT"
	LabelOther        = "OTHER"
)

// Entity is a named entity found in text.
type Entity struct {
	// Text is the entity surface text, e.g. "John Smith".
	Text string `json:"text"`
	// Label is one of the Label constants.
	Label string `json:"label"`
	// Start and End are byte offsets into the input; End is exclusive.
	Start int `json:"start"`
	End   int `json:"end"`
	// Score is the confidence, 0.0 to 1.0.
	Score float32 `json:"score"`
}

// Model extracts entities from a batch of texts, one entity slice per
// input.
type Model interface {
	Recognize(ctx context.Context, texts []string) ([][]Entity, error)
	Close() error
}

// MapModelLabel maps raw token-classification labels (BIO prefixed or not)
// to this package's label set. Empty means the label should be dropped.
func MapModelLabel(raw string) string {
	if raw == "O" || raw == "" {
		return ""
	}
	if len(raw) >= 2 && raw[1] == '-' {
		raw = raw[2:]
	}
	switch strings.ToUpper(raw) {
	case "PER", "PERSON":
		return LabelPerson
	case "ORG", "ORGANIZATION":
		return LabelOrganization
	case "LOC", "GPE", "LOCATION":
		return LabelLocation
	case "PRODUCT":
		return LabelTech
	default:
		return LabelOther
	}
}

// Dedupe discards entities from extra that share surface text and label
// with an entity already in base. Order within each slice is preserved.
func Dedupe(base, extra []Entity) []Entity {
	seen := make(map[[2]string]struct{}, len(base))
	for _, e := range base {
		seen[[2]string{e.Text, e.Label}] = struct{}{}
	}
	out := base
	for _, e := range extra {
		key := [2]string{e.Text, e.Label}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
