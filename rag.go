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
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/extraction"
	"github.com/Tapu45/CurioAi/lib/llm"
	"github.com/Tapu45/CurioAi/lib/ragstore"
)

const (
	defaultRetrievalK = 5

	// Chunking for indexed documents.
	chunkSize    = 1000
	chunkOverlap = 200
)

// Source is one retrieved passage that grounded an answer.
type Source struct {
	Text     string            `json:"text"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// RAGAnswer is a grounded answer with the passages that informed it.
type RAGAnswer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources_used"`
}

// IndexResult reports how much of an indexing request landed.
type IndexResult struct {
	DocumentsIndexed int      `json:"documents_indexed"`
	ChunksIndexed    int      `json:"chunks_indexed"`
	Skipped          []string `json:"skipped,omitempty"`
}

// RAGService answers queries grounded in the retrieval index and feeds
// new documents into it. Generation runs through the registry so device
// fallback and failure tracking apply.
type RAGService struct {
	llm      *llm.Client
	registry *ModelRegistry
	resolver *TierResolver
	store    *ragstore.Store
	logger   *zap.Logger
}

func NewRAGService(client *llm.Client, registry *ModelRegistry, resolver *TierResolver, store *ragstore.Store, logger *zap.Logger) *RAGService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAGService{
		llm:      client,
		registry: registry,
		resolver: resolver,
		store:    store,
		logger:   logger.Named("rag"),
	}
}

// Answer retrieves passages for the query and generates a grounded
// response. extraContext entries are caller-supplied snippets folded
// into the prompt alongside retrieved passages. onToken, when non-nil,
// receives each generated token as it streams.
func (s *RAGService) Answer(ctx context.Context, query string, extraContext []string, k int, onToken func(token string)) (*RAGAnswer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Field: "query", Reason: "query must not be empty"}
	}
	if k <= 0 {
		k = defaultRetrievalK
	}

	sources := []Source{}
	var passages []ragstore.Passage
	if s.store != nil && s.store.Count() > 0 {
		var err error
		passages, err = s.store.Query(ctx, query, k)
		if err != nil {
			s.logger.Warn("retrieval failed, answering without sources", zap.Error(err))
		}
		for _, p := range passages {
			sources = append(sources, Source{Text: p.Content, Score: p.Similarity, Metadata: p.Metadata})
		}
	}

	prompt := buildGroundedPrompt(query, extraContext, passages)

	model := s.resolver.EffectiveModels().LLMModel
	handle, err := s.registry.GetOrLoad(ctx, CapabilityLLM, model)
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{{Role: "user", Content: prompt}}
	var answer string
	err = s.registry.InvokeWithDeviceFallback(ctx, handle, func(ctx context.Context, _ *Handle) error {
		var genErr error
		if onToken != nil {
			answer, genErr = s.llm.ChatStream(ctx, model, messages, func(token string) error {
				onToken(token)
				return nil
			})
		} else {
			answer, genErr = s.llm.Chat(ctx, model, messages)
		}
		return genErr
	})
	if err != nil {
		return nil, err
	}

	return &RAGAnswer{Answer: answer, Sources: sources}, nil
}

// IndexDocument is one unit of content to add to the retrieval index.
type IndexDocument struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	FilePath string            `json:"file_path"`
	Metadata map[string]string `json:"metadata"`
}

// IndexDocuments chunks each document and adds the chunks to the index.
// Documents may carry inline content or a file path to read. Unreadable
// files and empty documents are skipped, not fatal.
func (s *RAGService) IndexDocuments(ctx context.Context, docs []IndexDocument) (*IndexResult, error) {
	if s.store == nil {
		return nil, &ValidationError{Field: "documents", Reason: "retrieval index is not configured"}
	}
	if len(docs) == 0 {
		return nil, &ValidationError{Field: "documents", Reason: "documents must not be empty"}
	}

	result := &IndexResult{}
	var toAdd []ragstore.Document

	for i, doc := range docs {
		content := doc.Content
		meta := doc.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		if content == "" && doc.FilePath != "" {
			text, err := extraction.Text(doc.FilePath, extraction.FileTypeFor(doc.FilePath))
			if err != nil {
				s.logger.Warn("skipping unreadable file", zap.String("path", doc.FilePath), zap.Error(err))
				result.Skipped = append(result.Skipped, doc.FilePath)
				continue
			}
			content = text
			meta["file_path"] = doc.FilePath
			meta["file_name"] = filepath.Base(doc.FilePath)
		}
		if strings.TrimSpace(content) == "" {
			result.Skipped = append(result.Skipped, docID(doc, i))
			continue
		}

		chunks := chunkText(content, chunkSize, chunkOverlap)
		base := docID(doc, i)
		for j, chunk := range chunks {
			toAdd = append(toAdd, ragstore.Document{
				ID:       fmt.Sprintf("%s:%d", base, j),
				Content:  chunk,
				Metadata: meta,
			})
		}
		result.DocumentsIndexed++
		result.ChunksIndexed += len(chunks)
	}

	if len(toAdd) > 0 {
		if err := s.store.Add(ctx, toAdd); err != nil {
			return nil, err
		}
	}

	s.logger.Info("indexed documents",
		zap.Int("documents", result.DocumentsIndexed),
		zap.Int("chunks", result.ChunksIndexed),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// IndexDirectory walks a directory for indexable files and feeds them
// through IndexDocuments.
func (s *RAGService) IndexDirectory(ctx context.Context, dir string) (*IndexResult, error) {
	var docs []IndexDocument
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".txt", ".md":
			docs = append(docs, IndexDocument{FilePath: path})
		}
		return nil
	})
	if err != nil {
		return nil, &ValidationError{Field: "directory", Reason: err.Error()}
	}
	if len(docs) == 0 {
		return &IndexResult{}, nil
	}
	return s.IndexDocuments(ctx, docs)
}

func docID(doc IndexDocument, i int) string {
	if doc.ID != "" {
		return doc.ID
	}
	if doc.FilePath != "" {
		return doc.FilePath
	}
	return fmt.Sprintf("doc-%d", i)
}

func buildGroundedPrompt(query string, extraContext []string, passages []ragstore.Passage) string {
	var sb strings.Builder
	if len(passages) > 0 {
		sb.WriteString("Use the following context to answer the question.\n\nContext:\n")
		for _, p := range passages {
			sb.WriteString("- ")
			sb.WriteString(p.Content)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	for _, c := range extraContext {
		if c = strings.TrimSpace(c); c != "" {
			sb.WriteString(c)
			sb.WriteString("\n")
		}
	}
	if sb.Len() > 0 {
		sb.WriteString("\nQuestion: ")
		sb.WriteString(query)
		sb.WriteString("\nAnswer:")
		return sb.String()
	}
	return query
}

// chunkText splits text into overlapping chunks on whitespace
// boundaries where possible.
func chunkText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= size {
		return []string{text}
	}
	if overlap >= size {
		overlap = size / 2
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}
		// Back up to the nearest whitespace so words stay intact.
		cut := end
		for cut > start && !isSpace(text[cut]) {
			cut--
		}
		if cut == start {
			cut = end
		}
		chunks = append(chunks, strings.TrimSpace(text[start:cut]))
		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}
