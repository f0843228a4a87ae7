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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const formattedSummaryResponse = `Summary: Goroutines and channels keep concurrent code simple.

Key Points:
- goroutines are cheap
- channels carry typed values
- select multiplexes channels

Complexity: advanced
Sentiment: neutral`

func TestParseSummaryResponseFormatted(t *testing.T) {
	got := parseSummaryResponse(formattedSummaryResponse, true)
	require.Equal(t, "Goroutines and channels keep concurrent code simple.", got.Summary)
	require.Equal(t, []string{
		"goroutines are cheap",
		"channels carry typed values",
		"select multiplexes channels",
	}, got.KeyPoints)
	require.Equal(t, "advanced", got.Complexity)
	require.Equal(t, 7, got.WordCount)
}

func TestParseSummaryResponseKeyPointsDisabled(t *testing.T) {
	got := parseSummaryResponse(formattedSummaryResponse, false)
	require.Empty(t, got.KeyPoints)
	require.NotNil(t, got.KeyPoints)
}

func TestParseSummaryResponseUnformatted(t *testing.T) {
	got := parseSummaryResponse("The video covers pointers.\n\nIt then moves on to slices.", true)
	require.Equal(t, "The video covers pointers.", got.Summary)
	require.Equal(t, []string{}, got.KeyPoints)
	require.Equal(t, "intermediate", got.Complexity)
}

func TestKeywordSentiment(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"this was a good and helpful walkthrough", 0.2},
		{"good great excellent positive beneficial helpful", 0.5},
		{"a difficult lecture with one problem after another", -0.2},
		{"bad poor negative problem issue difficult", -0.5},
		{"a plain description of the topic", 0},
		{"good in parts, bad in others", 0},
	}
	for _, tc := range cases {
		require.InDelta(t, tc.want, keywordSentiment(tc.text), 1e-9, tc.text)
	}
}

func TestFallbackSummaryTruncates(t *testing.T) {
	content := strings.Repeat("word ", 100)
	got := fallbackSummary(content, 50)
	require.Equal(t, content[:50]+"...", got.Summary)
	require.Equal(t, []string{}, got.KeyPoints)
	require.Equal(t, "intermediate", got.Complexity)
	require.Zero(t, got.Sentiment)
	require.Equal(t, 100, got.WordCount)
}

func TestFallbackSummaryShortContent(t *testing.T) {
	got := fallbackSummary("short note", 200)
	require.Equal(t, "short note", got.Summary)
	require.Equal(t, 2, got.WordCount)
}
