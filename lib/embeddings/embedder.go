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

// Package embeddings generates sentence embeddings from text using local
// ONNX models.
package embeddings

import "context"

// Embedder turns texts into fixed-dimension vectors. One call embeds the
// whole batch in a single model invocation; output order matches input
// order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension is the model's declared embedding width.
	Dimension() int

	// ModelID identifies the underlying model.
	ModelID() string

	Close() error
}

// knownDimensions maps sentence-transformer model ids to their embedding
// widths, so Dimension is answerable before the first inference.
var knownDimensions = map[string]int{
	"sentence-transformers/all-MiniLM-L6-v2":  384,
	"sentence-transformers/all-mpnet-base-v2": 768,
}

// DimensionFor returns the declared width for a model id, or 0 when
// unknown (the embedder then learns it from the first output).
func DimensionFor(modelID string) int {
	return knownDimensions[modelID]
}
