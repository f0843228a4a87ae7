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

//go:build go1.22

package curioai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/bytedance/sonic/decoder"
	"github.com/bytedance/sonic/encoder"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/sysinfo"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// VersionResponse reports build information.
type VersionResponse struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// apiHandler builds the /api/v1 route table plus /metrics.
func (gn *GatewayNode) apiHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", gn.instrument("health", gn.handleApiHealth))
	mux.HandleFunc("GET /api/version", gn.instrument("version", gn.handleApiVersion))

	mux.HandleFunc("POST /api/v1/summarize", gn.instrument("summarize", gn.handleApiSummarize))
	mux.HandleFunc("POST /api/v1/embedding", gn.instrument("embedding", gn.handleApiEmbedding))
	mux.HandleFunc("POST /api/v1/batch-embeddings", gn.instrument("batch_embeddings", gn.handleApiBatchEmbeddings))
	mux.HandleFunc("POST /api/v1/concepts", gn.instrument("concepts", gn.handleApiConcepts))
	mux.HandleFunc("POST /api/v1/extract-entities", gn.instrument("extract_entities", gn.handleApiExtractEntities))
	mux.HandleFunc("POST /api/v1/process", gn.instrument("process", gn.handleApiProcess))

	mux.HandleFunc("POST /api/v1/chat", gn.instrument("chat", gn.handleApiRAGQuery))
	mux.HandleFunc("POST /api/v1/rag/query", gn.instrument("rag_query", gn.handleApiRAGQuery))
	mux.HandleFunc("POST /api/v1/index-documents", gn.instrument("index_documents", gn.handleApiIndexDocuments))

	mux.HandleFunc("POST /api/v1/classify-activity", gn.instrument("classify_activity", gn.handleApiClassifyActivity))
	mux.HandleFunc("POST /api/v1/batch-classify", gn.instrument("batch_classify", gn.handleApiBatchClassify))
	mux.HandleFunc("GET /api/v1/classifier/status", gn.instrument("classifier_status", gn.handleApiClassifierStatus))

	mux.HandleFunc("POST /api/v1/models/update", gn.instrument("models_update", gn.handleApiModelsUpdate))
	mux.HandleFunc("GET /api/v1/models/current", gn.instrument("models_current", gn.handleApiModelsCurrent))
	mux.HandleFunc("GET /api/v1/models/resources", gn.instrument("models_resources", gn.handleApiModelsResources))
	mux.HandleFunc("GET /api/v1/models/recommended-tier", gn.instrument("models_recommended_tier", gn.handleApiModelsRecommendedTier))
	mux.HandleFunc("GET /api/v1/models/status", gn.instrument("models_status", gn.handleApiModelsStatus))

	mux.HandleFunc("POST /api/v1/analyze-image", gn.instrument("analyze_image", gn.handleApiAnalyzeImage))
	mux.HandleFunc("POST /api/v1/extract-structured", gn.instrument("extract_structured", gn.handleApiExtractStructured))
	mux.HandleFunc("POST /api/v1/extract-tables", gn.instrument("extract_tables", gn.handleApiExtractTables))
	mux.HandleFunc("POST /api/v1/generate-insights", gn.instrument("generate_insights", gn.handleApiGenerateInsights))

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (gn *GatewayNode) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(sr, r)
		RecordRequestDuration(endpoint, fmt.Sprintf("%d", sr.status), time.Since(start).Seconds())
	}
}

// requestContext applies the configured per-request timeout, if any.
func (gn *GatewayNode) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if gn.requestTimeout > 0 {
		return context.WithTimeout(r.Context(), gn.requestTimeout)
	}
	return r.Context(), func() {}
}

func (gn *GatewayNode) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := encoder.NewStreamEncoder(w).Encode(v); err != nil {
		gn.logger.Error("encoding response", zap.Error(err))
	}
}

// writeError maps the error taxonomy onto status codes: validation is
// 4xx, everything else 5xx, always as {"detail": message}.
func (gn *GatewayNode) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	status := http.StatusInternalServerError
	if errors.As(err, &verr) {
		status = http.StatusBadRequest
	}
	gn.writeJSON(w, status, ErrorResponse{Detail: err.Error()})
}

func (gn *GatewayNode) writeDetail(w http.ResponseWriter, status int, detail string) {
	gn.writeJSON(w, status, ErrorResponse{Detail: detail})
}

func decodeBody(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	if err := decoder.NewStreamDecoder(r.Body).Decode(v); err != nil {
		return &ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

func (gn *GatewayNode) handleApiHealth(w http.ResponseWriter, r *http.Request) {
	gn.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (gn *GatewayNode) handleApiVersion(w http.ResponseWriter, r *http.Request) {
	gn.writeJSON(w, http.StatusOK, VersionResponse{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	})
}

func (gn *GatewayNode) handleApiSummarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		gn.writeDetail(w, http.StatusBadRequest, "content is required")
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	RecordGeneratorRequest(gn.resolver.EffectiveModels().LLMModel)
	gn.writeJSON(w, http.StatusOK, gn.summarizer.Summarize(ctx, req))
}

type embeddingRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

func (gn *GatewayNode) handleApiEmbedding(w http.ResponseWriter, r *http.Request) {
	var req embeddingRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		gn.writeDetail(w, http.StatusBadRequest, "text is required")
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	result, err := gn.embedder.Embed(ctx, req.Text, req.Model)
	if err != nil {
		gn.writeError(w, err)
		return
	}
	RecordEmbeddingRequest(result.Model)
	RecordEmbeddingCreation(result.Model, 1)
	gn.writeJSON(w, http.StatusOK, result)
}

type batchEmbeddingsRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model"`
	Tier  string   `json:"tier"`
}

func (gn *GatewayNode) handleApiBatchEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req batchEmbeddingsRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if len(req.Texts) == 0 {
		gn.writeDetail(w, http.StatusBadRequest, "texts is required")
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	result, err := gn.embedder.EmbedBatch(ctx, req.Texts, req.Model, req.Tier)
	if err != nil {
		gn.writeError(w, err)
		return
	}
	RecordEmbeddingRequest(result.Model)
	RecordEmbeddingCreation(result.Model, result.Count)
	gn.writeJSON(w, http.StatusOK, result)
}

type conceptsRequest struct {
	Text          string   `json:"text"`
	ExtractTypes  []string `json:"extract_types"`
	MinConfidence float64  `json:"min_confidence"`
}

func (gn *GatewayNode) handleApiConcepts(w http.ResponseWriter, r *http.Request) {
	gn.extractConcepts(w, r, false)
}

func (gn *GatewayNode) handleApiExtractEntities(w http.ResponseWriter, r *http.Request) {
	gn.extractConcepts(w, r, true)
}

func (gn *GatewayNode) extractConcepts(w http.ResponseWriter, r *http.Request, withTypes bool) {
	var req conceptsRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		gn.writeDetail(w, http.StatusBadRequest, "text is required")
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	opts := ExtractOptions{MinConfidence: float32(req.MinConfidence)}
	if withTypes {
		opts.Types = req.ExtractTypes
	}
	result := gn.concepts.Extract(ctx, req.Text, opts)
	RecordConceptRequest(gn.resolver.EffectiveModels().NLPModel)
	RecordConceptCreation(gn.resolver.EffectiveModels().NLPModel, len(result.Concepts))
	gn.writeJSON(w, http.StatusOK, result)
}

type processRequest struct {
	Content           string `json:"content"`
	Title             string `json:"title"`
	GenerateSummary   *bool  `json:"generate_summary"`
	GenerateEmbedding *bool  `json:"generate_embedding"`
	ExtractConcepts   *bool  `json:"extract_concepts"`
}

type processResponse struct {
	Summary   *Summary         `json:"summary,omitempty"`
	Embedding *EmbeddingResult `json:"embedding,omitempty"`
	Concepts  *ConceptSet      `json:"concepts,omitempty"`
}

func (gn *GatewayNode) handleApiProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		gn.writeDetail(w, http.StatusBadRequest, "content is required")
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	enabled := func(p *bool) bool { return p == nil || *p }
	var resp processResponse

	if enabled(req.GenerateSummary) {
		summary := gn.summarizer.Summarize(ctx, SummarizeRequest{Content: req.Content})
		resp.Summary = &summary
	}
	if enabled(req.GenerateEmbedding) {
		embedding, err := gn.embedder.Embed(ctx, req.Content, "")
		if err != nil {
			gn.writeError(w, err)
			return
		}
		resp.Embedding = &embedding
	}
	if enabled(req.ExtractConcepts) {
		concepts := gn.concepts.Extract(ctx, req.Content, ExtractOptions{})
		resp.Concepts = &concepts
	}

	gn.writeJSON(w, http.StatusOK, resp)
}

type ragRequest struct {
	Query   string   `json:"query"`
	Context []string `json:"context"`
	K       int      `json:"k"`
	Stream  bool     `json:"stream"`
}

// sseFrame writes one server-sent event and flushes it to the client.
func sseFrame(w http.ResponseWriter, v any) {
	data, err := encoder.Encode(v, 0)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (gn *GatewayNode) handleApiRAGQuery(w http.ResponseWriter, r *http.Request) {
	var req ragRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		gn.writeDetail(w, http.StatusBadRequest, "query is required")
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	if !req.Stream {
		answer, err := gn.rag.Answer(ctx, req.Query, req.Context, req.K, nil)
		if err != nil {
			gn.writeError(w, err)
			return
		}
		gn.writeJSON(w, http.StatusOK, answer)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sseFrame(w, map[string]any{"type": "start"})
	tokens := 0
	answer, err := gn.rag.Answer(ctx, req.Query, req.Context, req.K, func(token string) {
		tokens++
		sseFrame(w, map[string]any{"type": "token", "token": token})
	})
	RecordTokenGeneration(gn.resolver.EffectiveModels().LLMModel, tokens)
	if err != nil {
		sseFrame(w, map[string]any{"type": "error", "detail": err.Error()})
		sseFrame(w, map[string]any{"type": "end"})
		return
	}
	sseFrame(w, map[string]any{"type": "sources", "sources_used": answer.Sources})
	sseFrame(w, map[string]any{"type": "end", "answer": answer.Answer})
}

type indexDocumentsRequest struct {
	Documents []IndexDocument `json:"documents"`
	Directory string          `json:"directory"`
}

func (gn *GatewayNode) handleApiIndexDocuments(w http.ResponseWriter, r *http.Request) {
	var req indexDocumentsRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	var result *IndexResult
	var err error
	if req.Directory != "" {
		result, err = gn.rag.IndexDirectory(ctx, req.Directory)
	} else {
		result, err = gn.rag.IndexDocuments(ctx, req.Documents)
	}
	if err != nil {
		gn.writeError(w, err)
		return
	}
	gn.writeJSON(w, http.StatusOK, result)
}

func (gn *GatewayNode) handleApiClassifyActivity(w http.ResponseWriter, r *http.Request) {
	var req Activity
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if req.AppName == "" || req.WindowTitle == "" {
		gn.writeDetail(w, http.StatusBadRequest, "app_name and window_title are required")
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	result := gn.classifier.Classify(ctx, req)
	RecordClassificationRequest(gn.classifier.Status().Method)
	gn.writeJSON(w, http.StatusOK, result)
}

type batchClassifyRequest struct {
	Activities []Activity `json:"activities"`
}

type batchClassifyResponse struct {
	Results []ClassificationResult `json:"results"`
}

func (gn *GatewayNode) handleApiBatchClassify(w http.ResponseWriter, r *http.Request) {
	var req batchClassifyRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if len(req.Activities) == 0 {
		gn.writeDetail(w, http.StatusBadRequest, "activities is required")
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	results := gn.classifier.ClassifyBatch(ctx, req.Activities)
	RecordClassificationRequest(gn.classifier.Status().Method)
	gn.writeJSON(w, http.StatusOK, batchClassifyResponse{Results: results})
}

func (gn *GatewayNode) handleApiClassifierStatus(w http.ResponseWriter, r *http.Request) {
	gn.writeJSON(w, http.StatusOK, gn.classifier.Status())
}

type modelsUpdateRequest struct {
	LLMModel       string `json:"llm_model"`
	EmbeddingModel string `json:"embedding_model"`
	NLPModel       string `json:"nlp_model"`
}

func (gn *GatewayNode) handleApiModelsUpdate(w http.ResponseWriter, r *http.Request) {
	var req modelsUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if req.LLMModel == "" && req.EmbeddingModel == "" && req.NLPModel == "" {
		gn.writeDetail(w, http.StatusBadRequest, "at least one model field is required")
		return
	}

	// Swapping a binding drops the cached instance so the next request
	// loads the new model.
	if req.LLMModel != "" {
		gn.registry.Invalidate(CapabilityLLM, "")
	}
	if req.EmbeddingModel != "" {
		gn.registry.Invalidate(CapabilityEmbedding, "")
	}
	if req.NLPModel != "" {
		gn.registry.Invalidate(CapabilityNER, "")
	}

	models := gn.resolver.UpdateModels(req.LLMModel, req.EmbeddingModel, req.NLPModel)
	gn.writeJSON(w, http.StatusOK, models)
}

type modelsCurrentResponse struct {
	Tier   Tier     `json:"tier"`
	Models ModelSet `json:"models"`
}

func (gn *GatewayNode) handleApiModelsCurrent(w http.ResponseWriter, r *http.Request) {
	gn.writeJSON(w, http.StatusOK, modelsCurrentResponse{
		Tier:   gn.resolver.Resolve(),
		Models: gn.resolver.EffectiveModels(),
	})
}

type modelsResourcesResponse struct {
	Tier            Tier             `json:"tier"`
	RecommendedTier Tier             `json:"recommended_tier"`
	Resources       sysinfo.Snapshot `json:"resources"`
}

func (gn *GatewayNode) handleApiModelsResources(w http.ResponseWriter, r *http.Request) {
	recommended, snap := gn.resolver.Recommend()
	// A short blocking sample gives a steadier utilization figure than the
	// instantaneous read the recommendation uses.
	if sampled, err := sysinfo.ProbeBlocking(200 * time.Millisecond); err == nil {
		snap = sampled
	}
	gn.writeJSON(w, http.StatusOK, modelsResourcesResponse{
		Tier:            gn.resolver.Resolve(),
		RecommendedTier: recommended,
		Resources:       snap,
	})
}

type recommendedTierResponse struct {
	RecommendedTier Tier `json:"recommended_tier"`
	CurrentTier     Tier `json:"current_tier"`
}

func (gn *GatewayNode) handleApiModelsRecommendedTier(w http.ResponseWriter, r *http.Request) {
	recommended, _ := gn.resolver.Recommend()
	gn.writeJSON(w, http.StatusOK, recommendedTierResponse{
		RecommendedTier: recommended,
		CurrentTier:     gn.resolver.Resolve(),
	})
}

func (gn *GatewayNode) handleApiModelsStatus(w http.ResponseWriter, r *http.Request) {
	gn.writeJSON(w, http.StatusOK, map[string]any{"models": gn.registry.Status()})
}

type analyzeImageRequest struct {
	FilePath string                `json:"file_path"`
	Options  *ImageAnalysisOptions `json:"options"`
}

func (gn *GatewayNode) handleApiAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	var req analyzeImageRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if req.FilePath == "" {
		gn.writeDetail(w, http.StatusBadRequest, "file_path is required")
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	opts := DefaultImageAnalysisOptions()
	if req.Options != nil {
		opts = *req.Options
	}
	result, err := gn.analyzer.AnalyzePath(ctx, req.FilePath, opts)
	if err != nil {
		gn.writeError(w, err)
		return
	}
	gn.writeJSON(w, http.StatusOK, result)
}

type extractFileRequest struct {
	FilePath string `json:"file_path"`
	FileType string `json:"file_type"`
}

func (gn *GatewayNode) handleApiExtractStructured(w http.ResponseWriter, r *http.Request) {
	var req extractFileRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if req.FilePath == "" {
		gn.writeDetail(w, http.StatusBadRequest, "file_path is required")
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	result, err := gn.extractor.ExtractStructured(ctx, req.FilePath, req.FileType)
	if err != nil {
		gn.writeError(w, err)
		return
	}
	gn.writeJSON(w, http.StatusOK, result)
}

func (gn *GatewayNode) handleApiExtractTables(w http.ResponseWriter, r *http.Request) {
	var req extractFileRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if req.FilePath == "" {
		gn.writeDetail(w, http.StatusBadRequest, "file_path is required")
		return
	}

	result, err := gn.extractor.ExtractTables(req.FilePath, req.FileType)
	if err != nil {
		gn.writeError(w, err)
		return
	}
	gn.writeJSON(w, http.StatusOK, result)
}

type generateInsightsRequest struct {
	ActivitiesData map[string]any `json:"activities_data"`
	InsightType    string         `json:"insight_type"`
}

type generateInsightsResponse struct {
	Insights    any       `json:"insights"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (gn *GatewayNode) handleApiGenerateInsights(w http.ResponseWriter, r *http.Request) {
	var req generateInsightsRequest
	if err := decodeBody(r, &req); err != nil {
		gn.writeError(w, err)
		return
	}
	if req.InsightType == "" {
		gn.writeDetail(w, http.StatusBadRequest, "insight_type is required")
		return
	}
	if req.ActivitiesData == nil {
		gn.writeDetail(w, http.StatusBadRequest, "activities_data is required")
		return
	}

	ctx, cancel := gn.requestContext(r)
	defer cancel()

	insights, err := gn.insights.Generate(ctx, req.InsightType, req.ActivitiesData)
	if err != nil {
		gn.writeError(w, err)
		return
	}
	RecordInsightRequest(req.InsightType)
	gn.writeJSON(w, http.StatusOK, generateInsightsResponse{
		Insights:    insights,
		GeneratedAt: time.Now().UTC(),
	})
}
