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

// Package ragstore is the retrieval collaborator: an embedded vector index
// over user documents, queried for passages to ground generation on.
package ragstore

import (
	"context"
	"fmt"
	"runtime"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

const collectionName = "documents"

// Document is one indexable unit of user content.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Passage is a ranked retrieval hit.
type Passage struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Similarity float32           `json:"similarity"`
}

// EmbedFunc turns one text into a vector. Supplied by the caller so the
// store shares the service's embedding model.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Store is a chromem-backed persistent vector index.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *zap.Logger
}

// Open creates or reopens the index under persistDir. An empty persistDir
// keeps the index in memory only.
func Open(persistDir string, embed EmbedFunc, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ragstore")

	var (
		db  *chromem.DB
		err error
	)
	if persistDir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(persistDir, false)
		if err != nil {
			return nil, fmt.Errorf("opening vector index at %s: %w", persistDir, err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, chromem.EmbeddingFunc(embed))
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", collectionName, err)
	}

	logger.Info("vector index ready",
		zap.String("persist_dir", persistDir),
		zap.Int("documents", collection.Count()))

	return &Store{db: db, collection: collection, logger: logger}, nil
}

// Add indexes documents. Existing IDs are overwritten.
func (s *Store) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	converted := make([]chromem.Document, len(docs))
	for i, d := range docs {
		converted[i] = chromem.Document{
			ID:       d.ID,
			Content:  d.Content,
			Metadata: d.Metadata,
		}
	}
	if err := s.collection.AddDocuments(ctx, converted, runtime.NumCPU()); err != nil {
		return fmt.Errorf("indexing %d documents: %w", len(docs), err)
	}
	s.logger.Debug("indexed documents", zap.Int("count", len(docs)))
	return nil
}

// Query returns the k most similar passages for the query text. k is capped
// at the collection size; an empty index returns no passages.
func (s *Store) Query(ctx context.Context, query string, k int) ([]Passage, error) {
	count := s.collection.Count()
	if count == 0 {
		return []Passage{}, nil
	}
	if k > count {
		k = count
	}
	results, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying vector index: %w", err)
	}
	passages := make([]Passage, len(results))
	for i, r := range results {
		passages[i] = Passage{
			ID:         r.ID,
			Content:    r.Content,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
		}
	}
	return passages, nil
}

// Count reports how many documents are indexed.
func (s *Store) Count() int { return s.collection.Count() }
