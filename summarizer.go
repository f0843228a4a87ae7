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
	"regexp"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/llm"
)

// Summary is the structured result of summarization.
type Summary struct {
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"key_points"`
	Complexity string   `json:"complexity"`
	Sentiment  float64  `json:"sentiment"`
	WordCount  int      `json:"word_count"`
}

// SummarizeRequest carries one summarization call's inputs.
type SummarizeRequest struct {
	Content          string `json:"content"`
	MaxLength        int    `json:"max_length,omitempty"`
	IncludeKeyPoints *bool  `json:"include_key_points,omitempty"`
}

const (
	defaultSummaryLength = 200

	// inputTokenBudget bounds prompt size; longer content is truncated at
	// a token boundary before prompting.
	inputTokenBudget = 2048
)

// Summarizer turns content into a structured summary via the local LLM.
// On total model failure it degrades to a truncated-input summary with
// neutral complexity and sentiment rather than propagating.
type Summarizer struct {
	llm      *llm.Client
	registry *ModelRegistry
	resolver *TierResolver
	logger   *zap.Logger

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
}

// NewSummarizer wires the summarizer to the shared model layer.
func NewSummarizer(client *llm.Client, registry *ModelRegistry, resolver *TierResolver, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		llm:      client,
		registry: registry,
		resolver: resolver,
		logger:   logger.Named("summarizer"),
	}
}

// Summarize produces a structured summary of req.Content.
func (s *Summarizer) Summarize(ctx context.Context, req SummarizeRequest) Summary {
	maxLength := req.MaxLength
	if maxLength <= 0 {
		maxLength = defaultSummaryLength
	}
	includeKeyPoints := req.IncludeKeyPoints == nil || *req.IncludeKeyPoints

	content := s.truncate(req.Content)
	model := s.resolver.EffectiveModels().LLMModel

	handle, err := s.registry.GetOrLoad(ctx, CapabilityLLM, model)
	if err != nil {
		s.logger.Warn("llm unavailable, using fallback summary", zap.Error(err))
		return fallbackSummary(req.Content, maxLength)
	}

	var response string
	err = s.registry.InvokeWithDeviceFallback(ctx, handle, func(ctx context.Context, _ *Handle) error {
		var genErr error
		response, genErr = s.llm.Generate(ctx, model, summarizationPrompt(content, maxLength, includeKeyPoints), llm.GenerateOptions{})
		return genErr
	})
	if err != nil {
		s.logger.Warn("summarization failed, using fallback summary", zap.Error(err))
		return fallbackSummary(req.Content, maxLength)
	}

	return parseSummaryResponse(response, includeKeyPoints)
}

// truncate cuts content to the prompt token budget. Falls back to a
// character cut when the encoding cannot be loaded.
func (s *Summarizer) truncate(content string) string {
	s.encOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			s.logger.Warn("token encoding unavailable, truncating by characters", zap.Error(err))
			return
		}
		s.enc = enc
	})
	if s.enc == nil {
		const charBudget = 4 * inputTokenBudget
		if len(content) > charBudget {
			return content[:charBudget] + "..."
		}
		return content
	}
	tokens := s.enc.Encode(content, nil, nil)
	if len(tokens) <= inputTokenBudget {
		return content
	}
	return s.enc.Decode(tokens[:inputTokenBudget]) + "..."
}

func summarizationPrompt(content string, maxLength int, includeKeyPoints bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Please summarize the following content in %d words or less.\n\nContent:\n%s\n\nPlease provide:\n1. A concise summary\n", maxLength, content)
	if includeKeyPoints {
		sb.WriteString("2. Key points (3-5 bullet points)\n3. Complexity level (beginner/intermediate/advanced)\n4. Overall sentiment (positive/neutral/negative)\n")
	} else {
		sb.WriteString("2. Complexity level (beginner/intermediate/advanced)\n3. Overall sentiment (positive/neutral/negative)\n")
	}
	sb.WriteString("\nFormat your response as:\nSummary: [your summary here]\n\n")
	if includeKeyPoints {
		sb.WriteString("Key Points:\n- [point 1]\n- [point 2]\n- [point 3]\n\n")
	}
	sb.WriteString("Complexity: [beginner/intermediate/advanced]\nSentiment: [positive/neutral/negative]\n")
	return sb.String()
}

var (
	summaryRe    = regexp.MustCompile(`(?s)Summary[:\s]*(.+?)(?:\n\n|Key Points|$)`)
	keyPointsRe  = regexp.MustCompile(`(?s)Key Points?[:\s]*(.+?)(?:\n\n|Complexity|$)`)
	complexityRe = regexp.MustCompile(`(?i)Complexity[:\s]*(beginner|intermediate|advanced)`)
)

var (
	positiveWords = []string{"good", "great", "excellent", "positive", "beneficial", "helpful"}
	negativeWords = []string{"bad", "poor", "negative", "problem", "issue", "difficult"}
)

// parseSummaryResponse recovers the structured fields from the model's
// formatted answer. Missing sections fall back to neutral values.
func parseSummaryResponse(response string, includeKeyPoints bool) Summary {
	result := Summary{Complexity: "intermediate"}

	if m := summaryRe.FindStringSubmatch(response); m != nil {
		result.Summary = strings.TrimSpace(m[1])
	} else {
		result.Summary = strings.TrimSpace(strings.SplitN(response, "\n\n", 2)[0])
	}

	if includeKeyPoints {
		if m := keyPointsRe.FindStringSubmatch(response); m != nil {
			for _, line := range strings.Split(m[1], "\n") {
				point := strings.TrimLeft(strings.TrimSpace(line), "-•* ")
				if point != "" {
					result.KeyPoints = append(result.KeyPoints, point)
				}
			}
		}
	}
	if result.KeyPoints == nil {
		result.KeyPoints = []string{}
	}

	if m := complexityRe.FindStringSubmatch(response); m != nil {
		result.Complexity = strings.ToLower(m[1])
	}

	result.Sentiment = keywordSentiment(response)
	result.WordCount = len(strings.Fields(result.Summary))
	return result
}

// keywordSentiment is the original word-count heuristic: each matched word
// moves the score 0.1 toward its pole, capped at ±0.5.
func keywordSentiment(text string) float64 {
	lower := strings.ToLower(text)
	var positive, negative int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			positive++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			negative++
		}
	}
	switch {
	case positive > negative:
		return min(0.5, float64(positive)*0.1)
	case negative > positive:
		return max(-0.5, -float64(negative)*0.1)
	default:
		return 0
	}
}

// fallbackSummary is the degraded path: the input itself, truncated, with
// neutral metadata.
func fallbackSummary(content string, maxLength int) Summary {
	summary := content
	if len(summary) > maxLength {
		summary = summary[:maxLength] + "..."
	}
	return Summary{
		Summary:    summary,
		KeyPoints:  []string{},
		Complexity: "intermediate",
		Sentiment:  0,
		WordCount:  len(strings.Fields(content)),
	}
}
