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

	"github.com/Tapu45/CurioAi/lib/ragstore"
)

func TestChunkTextShortInput(t *testing.T) {
	require.Nil(t, chunkText("   ", chunkSize, chunkOverlap))
	require.Equal(t, []string{"one short text"}, chunkText("one short text", chunkSize, chunkOverlap))
}

func TestChunkTextSplitsOnWhitespace(t *testing.T) {
	word := "abcdefghi " // 10 bytes per word
	text := strings.TrimSpace(strings.Repeat(word, 300))

	chunks := chunkText(text, chunkSize, chunkOverlap)
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		require.LessOrEqual(t, len(chunk), chunkSize, "chunk %d too large", i)
		for _, w := range strings.Fields(chunk) {
			require.Equal(t, "abcdefghi", w, "chunk %d split a word", i)
		}
	}
}

func TestChunkTextOverlap(t *testing.T) {
	word := "abcdefghi "
	text := strings.TrimSpace(strings.Repeat(word, 300))

	chunks := chunkText(text, chunkSize, chunkOverlap)
	require.Greater(t, len(chunks), 1)
	// The tail of each chunk reappears at the head of the next one.
	for i := 0; i+1 < len(chunks); i++ {
		tail := chunks[i][len(chunks[i])-50:]
		require.Contains(t, chunks[i+1], strings.TrimSpace(tail))
	}
}

func TestChunkTextUnbreakableRun(t *testing.T) {
	// No whitespace to back up to, so the cut is hard and the overlap
	// window still applies.
	text := strings.Repeat("x", 2500)
	chunks := chunkText(text, 1000, 200)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 1000)
	require.Len(t, chunks[1], 1000)
	require.Len(t, chunks[2], 900)
}

func TestBuildGroundedPrompt(t *testing.T) {
	passages := []ragstore.Passage{
		{Content: "Go has goroutines."},
		{Content: "Channels connect them."},
	}
	prompt := buildGroundedPrompt("What is a goroutine?", []string{"User is a beginner."}, passages)

	require.True(t, strings.HasPrefix(prompt, "Use the following context to answer the question.\n\nContext:\n"))
	require.Contains(t, prompt, "- Go has goroutines.\n")
	require.Contains(t, prompt, "- Channels connect them.\n")
	require.Contains(t, prompt, "User is a beginner.\n")
	require.True(t, strings.HasSuffix(prompt, "Question: What is a goroutine?\nAnswer:"))
}

func TestBuildGroundedPromptNoContext(t *testing.T) {
	require.Equal(t, "just the question", buildGroundedPrompt("just the question", nil, nil))
	require.Equal(t, "q", buildGroundedPrompt("q", []string{"  ", ""}, nil))
}

func TestDocID(t *testing.T) {
	require.Equal(t, "explicit", docID(IndexDocument{ID: "explicit", FilePath: "/tmp/a.txt"}, 3))
	require.Equal(t, "/tmp/a.txt", docID(IndexDocument{FilePath: "/tmp/a.txt"}, 3))
	require.Equal(t, "doc-3", docID(IndexDocument{}, 3))
}
