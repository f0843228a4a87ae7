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
	"testing"

	"github.com/stretchr/testify/require"
)

func findEntity(entities []Entity, text, label string) *Entity {
	for i := range entities {
		if entities[i].Text == text && entities[i].Label == label {
			return &entities[i]
		}
	}
	return nil
}

func TestLexicalRecognize(t *testing.T) {
	l := NewLexical()
	results, err := l.Recognize(context.Background(), []string{
		"yesterday Alice deployed the docker stack at Acme Labs.",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	entities := results[0]

	person := findEntity(entities, "Alice", LabelPerson)
	require.NotNil(t, person, "entities: %+v", entities)
	require.Equal(t, scoreHeuristic, person.Score)

	tech := findEntity(entities, "docker", LabelTech)
	require.NotNil(t, tech, "entities: %+v", entities)
	require.Equal(t, scoreGazetteer, tech.Score)

	org := findEntity(entities, "Acme Labs", LabelOrganization)
	require.NotNil(t, org, "entities: %+v", entities)
}

func TestLexicalSentenceInitialName(t *testing.T) {
	l := NewLexical()
	results, err := l.Recognize(context.Background(), []string{"Alice works at Acme"})
	require.NoError(t, err)
	entities := results[0]

	person := findEntity(entities, "Alice", LabelPerson)
	require.NotNil(t, person, "entities: %+v", entities)
	require.Equal(t, 0, person.Start)
	require.Equal(t, 5, person.End)

	org := findEntity(entities, "Acme", LabelOrganization)
	require.NotNil(t, org, "entities: %+v", entities)
}

func TestLexicalMergesNonBreakingSpaceGap(t *testing.T) {
	l := NewLexical()
	results, err := l.Recognize(context.Background(), []string{"Shipped it to Acme Labs yesterday"})
	require.NoError(t, err)

	org := findEntity(results[0], "Acme Labs", LabelOrganization)
	require.NotNil(t, org, "entities: %+v", results[0])
}

func TestLexicalSkipsSentenceStarters(t *testing.T) {
	l := NewLexical()
	results, err := l.Recognize(context.Background(), []string{"Today was quiet. The build passed."})
	require.NoError(t, err)
	for _, e := range results[0] {
		require.NotEqual(t, "Today", e.Text)
		require.NotEqual(t, "The", e.Text)
	}
}

func TestLexicalEntityOffsets(t *testing.T) {
	l := NewLexical()
	text := "Met with Bob Smith about the launch."
	results, err := l.Recognize(context.Background(), []string{text})
	require.NoError(t, err)

	e := findEntity(results[0], "Bob Smith", LabelPerson)
	require.NotNil(t, e)
	require.Equal(t, "Bob Smith", text[e.Start:e.End])
}

func TestSpecializedEntities(t *testing.T) {
	text := `Watched "The Matrix" then spent an hour working on the gateway service.`
	entities := SpecializedEntities(text, nil)

	require.NotNil(t, findEntity(entities, "The Matrix", LabelMovie), "entities: %+v", entities)
	require.NotNil(t, findEntity(entities, "the gateway service", LabelProject), "entities: %+v", entities)
}

func TestSpecializedEntitiesTypeFilter(t *testing.T) {
	text := `Watched "Dune" while reading "The Go Programming Language".`

	movies := SpecializedEntities(text, []string{"movie"})
	require.NotNil(t, findEntity(movies, "Dune", LabelMovie))
	require.Nil(t, findEntity(movies, "The Go Programming Language", LabelBook))

	books := SpecializedEntities(text, []string{"book"})
	require.Nil(t, findEntity(books, "Dune", LabelMovie))
	require.NotNil(t, findEntity(books, "The Go Programming Language", LabelBook))
}

func TestMapModelLabel(t *testing.T) {
	require.Equal(t, LabelPerson, MapModelLabel("B-PER"))
	require.Equal(t, LabelPerson, MapModelLabel("I-PER"))
	require.Equal(t, LabelOrganization, MapModelLabel("B-ORG"))
	require.Equal(t, LabelLocation, MapModelLabel("LOC"))
	require.Equal(t, LabelTech, MapModelLabel("PRODUCT"))
	require.Equal(t, LabelOther, MapModelLabel("B-MISC"))
	require.Empty(t, MapModelLabel("O"))
	require.Empty(t, MapModelLabel(""))
}

func TestDedupe(t *testing.T) {
	base := []Entity{{Text: "Go", Label: LabelTech, Score: 0.8}}
	extra := []Entity{
		{Text: "Go", Label: LabelTech, Score: 0.99},
		{Text: "Rust", Label: LabelTech, Score: 0.9},
		{Text: "Rust", Label: LabelTech, Score: 0.9},
	}
	out := Dedupe(base, extra)
	require.Len(t, out, 2)
	require.Equal(t, "Go", out[0].Text)
	require.Equal(t, float32(0.8), out[0].Score, "base entity wins over the duplicate")
	require.Equal(t, "Rust", out[1].Text)
}
