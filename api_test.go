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
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/llm"
)

// newTestNode wires a gateway node with fake embedding and a failing LLM
// loader, so handlers can be exercised without models or a runtime.
func newTestNode(t *testing.T) *GatewayNode {
	t.Helper()
	logger := zap.NewNop()

	registry := NewModelRegistry(logger, acceleratorOff)
	registry.RegisterLoader(CapabilityEmbedding, func(ctx context.Context, modelID string, device Device) (any, error) {
		return &fakeEmbedder{modelID: modelID}, nil
	})
	registry.RegisterLoader(CapabilityLLM, func(ctx context.Context, modelID string, device Device) (any, error) {
		return nil, errors.New("runtime unreachable")
	})

	resolver := NewTierResolver(logger, nil, TierMidRange)
	cache := NewEmbeddingCache(logger)
	t.Cleanup(cache.Close)

	node := &GatewayNode{
		logger:         logger,
		resolver:       resolver,
		registry:       registry,
		embeddingCache: cache,
	}
	node.embedder = NewEmbedder(registry, resolver, cache, logger)
	node.summarizer = NewSummarizer(nil, registry, resolver, logger)
	node.concepts = NewConceptExtractor(registry, resolver, logger)
	node.classifier = NewActivityClassifier(registry, resolver, logger)
	node.insights = NewInsightGenerator(nil, registry, resolver, nil, logger)
	return node
}

func doRequest(t *testing.T, node *GatewayNode, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	node.apiHandler().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), v))
}

func TestApiHealth(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decodeResponse(t, rec, &body)
	require.Equal(t, "healthy", body["status"])
}

func TestApiVersion(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body VersionResponse
	decodeResponse(t, rec, &body)
	require.NotEmpty(t, body.GoVersion)
}

func TestApiEmbedding(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/embedding", `{"text": "hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body EmbeddingResult
	decodeResponse(t, rec, &body)
	require.Len(t, body.Embedding, 2)
	require.Equal(t, 2, body.Dimension)
	require.Equal(t, ModelsForTier(TierMidRange).EmbeddingModel, body.Model)
}

func TestApiEmbeddingMissingText(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/embedding", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	decodeResponse(t, rec, &body)
	require.Equal(t, "text is required", body.Detail)
}

func TestApiEmbeddingMalformedBody(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/embedding", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	decodeResponse(t, rec, &body)
	require.NotEmpty(t, body.Detail)
}

func TestApiBatchEmbeddingsUnknownTier(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/batch-embeddings", `{"texts": ["a"], "tier": "quantum"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApiBatchEmbeddings(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/batch-embeddings", `{"texts": ["a", "bb"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body BatchEmbeddingsResult
	decodeResponse(t, rec, &body)
	require.Equal(t, 2, body.Count)
	require.Len(t, body.Embeddings, 2)
}

func TestApiSummarizeDegradesWithoutRuntime(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/summarize", `{"content": "A short note about Go."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body Summary
	decodeResponse(t, rec, &body)
	require.Equal(t, "A short note about Go.", body.Summary)
	require.Equal(t, "intermediate", body.Complexity)
}

func TestApiSummarizeMissingContent(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/summarize", `{"content": "  "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApiConcepts(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/concepts", `{"text": "yesterday Alice wrote python"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body ConceptSet
	decodeResponse(t, rec, &body)
	require.NotNil(t, findConcept(body.Concepts, "python"))
	require.Contains(t, body.Keywords, "python")
}

func TestApiClassifyActivityGated(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/classify-activity",
		`{"app_name": "vscode", "window_title": "main.go"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body ClassificationResult
	decodeResponse(t, rec, &body)
	require.Equal(t, "other", body.ActivityType)
	require.Equal(t, undeterminedConfidence, body.Confidence)
}

func TestApiClassifyActivityMissingFields(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/classify-activity", `{"app_name": "vscode"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApiBatchClassifyEmpty(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/batch-classify", `{"activities": []}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApiClassifierStatus(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodGet, "/api/v1/classifier/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ClassifierStatus
	decodeResponse(t, rec, &body)
	require.False(t, body.MLAvailable)
	require.Equal(t, "rule-based", body.Method)
	require.Equal(t, TierMidRange, body.Tier)
}

func TestApiModelsCurrent(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodGet, "/api/v1/models/current", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body modelsCurrentResponse
	decodeResponse(t, rec, &body)
	require.Equal(t, TierMidRange, body.Tier)
	require.Equal(t, ModelsForTier(TierMidRange), body.Models)
}

func TestApiModelsUpdate(t *testing.T) {
	node := newTestNode(t)

	rec := doRequest(t, node, http.MethodPost, "/api/v1/models/update", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, node, http.MethodPost, "/api/v1/models/update", `{"embedding_model": "custom/embedder"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body ModelSet
	decodeResponse(t, rec, &body)
	require.Equal(t, "custom/embedder", body.EmbeddingModel)
	require.Equal(t, ModelsForTier(TierMidRange).LLMModel, body.LLMModel)

	// The override is visible on subsequent reads.
	require.Equal(t, "custom/embedder", node.resolver.EffectiveModels().EmbeddingModel)
}

func TestApiModelsStatus(t *testing.T) {
	node := newTestNode(t)
	// Load one model so status has an entry.
	_, err := node.embedder.Embed(context.Background(), "seed", "")
	require.NoError(t, err)

	rec := doRequest(t, node, http.MethodGet, "/api/v1/models/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models []ModelStatus `json:"models"`
	}
	decodeResponse(t, rec, &body)
	require.Len(t, body.Models, 1)
}

func TestApiModelsResources(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodGet, "/api/v1/models/resources", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body modelsResourcesResponse
	decodeResponse(t, rec, &body)
	require.Equal(t, TierMidRange, body.Tier)
	require.Greater(t, body.Resources.TotalMemoryGB, 0.0)
}

func TestApiRecommendedTier(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodGet, "/api/v1/models/recommended-tier", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body recommendedTierResponse
	decodeResponse(t, rec, &body)
	require.Equal(t, TierMidRange, body.CurrentTier)
	_, ok := ParseTier(string(body.RecommendedTier))
	require.True(t, ok)
}

// decodeFrames splits an SSE body into its decoded data payloads.
func decodeFrames(t *testing.T, body string) []map[string]any {
	t.Helper()
	var frames []map[string]any
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		payload := strings.TrimPrefix(block, "data: ")
		var frame map[string]any
		require.NoError(t, sonic.Unmarshal([]byte(payload), &frame))
		frames = append(frames, frame)
	}
	return frames
}

func TestApiRAGQueryStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, `data: {"id":"1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":%q}}]}`+"\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	node := newTestNode(t)
	node.registry.RegisterLoader(CapabilityLLM, func(ctx context.Context, modelID string, device Device) (any, error) {
		return modelID, nil
	})
	node.rag = NewRAGService(llm.New(srv.URL, zap.NewNop()), node.registry, node.resolver, nil, zap.NewNop())

	rec := doRequest(t, node, http.MethodPost, "/api/v1/rag/query", `{"query": "hello", "stream": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	frames := decodeFrames(t, rec.Body.String())
	var types []string
	for _, f := range frames {
		types = append(types, f["type"].(string))
	}
	require.Equal(t, []string{"start", "token", "token", "sources", "end"}, types)
	require.Equal(t, "Hel", frames[1]["token"])
	require.Equal(t, "lo", frames[2]["token"])
	require.Equal(t, "Hello", frames[4]["answer"])
}

func TestApiRAGQueryStreamingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "model not found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	node := newTestNode(t)
	node.registry.RegisterLoader(CapabilityLLM, func(ctx context.Context, modelID string, device Device) (any, error) {
		return modelID, nil
	})
	node.rag = NewRAGService(llm.New(srv.URL, zap.NewNop()), node.registry, node.resolver, nil, zap.NewNop())

	rec := doRequest(t, node, http.MethodPost, "/api/v1/rag/query", `{"query": "hello", "stream": true}`)
	require.Equal(t, http.StatusOK, rec.Code, "stream errors arrive as frames, not status codes")

	frames := decodeFrames(t, rec.Body.String())
	var types []string
	for _, f := range frames {
		types = append(types, f["type"].(string))
	}
	require.Equal(t, []string{"start", "error", "end"}, types)
	require.Contains(t, frames[1]["detail"], "model not found")
}

func TestApiRAGQueryMissingQuery(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodPost, "/api/v1/rag/query", `{"query": ""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApiGenerateInsightsValidation(t *testing.T) {
	node := newTestNode(t)

	rec := doRequest(t, node, http.MethodPost, "/api/v1/generate-insights", `{"activities_data": {}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, node, http.MethodPost, "/api/v1/generate-insights",
		`{"insight_type": "quarterly_review", "activities_data": {}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	decodeResponse(t, rec, &body)
	require.Contains(t, body.Detail, "quarterly_review")
}

func TestApiUnknownRoute(t *testing.T) {
	node := newTestNode(t)
	rec := doRequest(t, node, http.MethodGet, "/api/v1/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
