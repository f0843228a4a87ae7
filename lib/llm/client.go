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

// Package llm is the client to the local LLM runtime's OpenAI-compatible
// API (Ollama and friends).
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultBaseURL is the local runtime's OpenAI-compatible endpoint.
const DefaultBaseURL = "http://localhost:11434/v1"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateOptions tunes a single completion.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float32
	System      string
}

// Client talks to the local LLM runtime. The runtime hosts the model
// weights; this process only streams prompts and completions.
type Client struct {
	api    *openai.Client
	logger *zap.Logger
}

// New builds a client. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg := openai.DefaultConfig("")
	cfg.BaseURL = baseURL
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		logger: logger.Named("llm"),
	}
}

// Generate runs a single-prompt completion.
func (c *Client) Generate(ctx context.Context, model, prompt string, opts GenerateOptions) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if opts.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
	return c.complete(ctx, model, messages, opts)
}

// Chat runs a multi-turn completion.
func (c *Client) Chat(ctx context.Context, model string, history []Message) (string, error) {
	return c.complete(ctx, model, toOpenAI(history), GenerateOptions{})
}

func (c *Client) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessage, opts GenerateOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model %s returned no choices", model)
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatStream streams a completion, invoking fn for every token. It returns
// the concatenated answer. A non-nil error from fn aborts the stream.
func (c *Client) ChatStream(ctx context.Context, model string, history []Message, fn func(token string) error) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAI(history),
		Stream:   true,
	}
	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", classify(model, err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sb.String(), classify(model, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		sb.WriteString(token)
		if err := fn(token); err != nil {
			return sb.String(), err
		}
	}
	return sb.String(), nil
}

// Describe sends an image with a prompt to a vision-capable model and
// returns its free-text answer.
func (c *Client) Describe(ctx context.Context, model, prompt string, imagePNG []byte) (string, error) {
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imagePNG)
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURI},
					},
				},
			},
		},
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision model %s returned no choices", model)
	}
	return resp.Choices[0].Message.Content, nil
}

// classify keeps context errors recognizable through the wrap so callers
// can treat timeouts as transient.
func classify(model string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("model %s: %w", model, err)
	}
	return fmt.Errorf("model %s: completion failed: %w", model, err)
}

func toOpenAI(history []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(history))
	for i, m := range history {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
