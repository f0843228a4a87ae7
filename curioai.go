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
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/embeddings"
	"github.com/Tapu45/CurioAi/lib/hugotx"
	"github.com/Tapu45/CurioAi/lib/llm"
	"github.com/Tapu45/CurioAi/lib/ner"
	"github.com/Tapu45/CurioAi/lib/ragstore"
	"github.com/Tapu45/CurioAi/lib/zsc"
)

// GatewayNode wires every capability module to the shared model registry
// and tier resolver, and owns the HTTP surface.
type GatewayNode struct {
	logger *zap.Logger
	config Config

	resolver *TierResolver
	registry *ModelRegistry

	llm            *llm.Client
	embeddingCache *EmbeddingCache
	store          *ragstore.Store

	embedder   *Embedder
	summarizer *Summarizer
	concepts   *ConceptExtractor
	classifier *ActivityClassifier
	insights   *InsightGenerator
	rag        *RAGService
	analyzer   *ImageAnalyzer
	extractor  *DocumentExtractor

	requestTimeout time.Duration
}

// corsMiddleware adds permissive CORS headers for the gateway API
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// DefaultShutdownTimeout is the default time to wait for graceful shutdown
const DefaultShutdownTimeout = 30 * time.Second

// modelPath maps a model identifier like "dslim/bert-base-NER" to its
// local directory under the models dir.
func modelPath(modelsDir, modelID string) string {
	return filepath.Join(modelsDir, filepath.FromSlash(modelID))
}

// NewGatewayNode builds the node: resolver, registry, capability loaders,
// and all capability modules. The retrieval index opens lazily relative
// to IndexDir; models load on first use.
func NewGatewayNode(zl *zap.Logger, config Config) (*GatewayNode, error) {
	var override Tier
	if config.TierOverride != "" {
		t, ok := ParseTier(config.TierOverride)
		if !ok {
			return nil, &ValidationError{Field: "tier_override", Reason: "unknown tier " + config.TierOverride}
		}
		override = t
	}

	resolver := NewTierResolver(zl, nil, override)

	var acceleratorProbe func() bool
	switch config.Gpu {
	case "off":
		acceleratorProbe = func() bool { return false }
	case "on":
		acceleratorProbe = func() bool { return true }
	}
	registry := NewModelRegistry(zl, acceleratorProbe)

	baseURL := config.LLMBaseURL
	if baseURL == "" {
		baseURL = llm.DefaultBaseURL
	}
	client := llm.New(baseURL, zl)

	embeddingCache := NewEmbeddingCache(zl.Named("embedding-cache"))

	node := &GatewayNode{
		logger:         zl,
		config:         config,
		resolver:       resolver,
		registry:       registry,
		llm:            client,
		embeddingCache: embeddingCache,
	}

	if config.RequestTimeout != "" && config.RequestTimeout != "0" {
		d, err := time.ParseDuration(config.RequestTimeout)
		if err != nil {
			return nil, &ValidationError{Field: "request_timeout", Reason: err.Error()}
		}
		node.requestTimeout = d
	}

	// The chat models live in the local LLM runtime; loading is a
	// handle registration, not a weights load. Failures surface on the
	// first generate call and flow through the same classification.
	registry.RegisterLoader(CapabilityLLM, func(ctx context.Context, modelID string, device Device) (any, error) {
		return modelID, nil
	})
	registry.RegisterLoader(CapabilityVision, func(ctx context.Context, modelID string, device Device) (any, error) {
		return modelID, nil
	})

	registry.RegisterLoader(CapabilityEmbedding, func(ctx context.Context, modelID string, device Device) (any, error) {
		return embeddings.New(embeddings.Options{
			ModelID:    modelID,
			ModelPath:  modelPath(config.ModelsDir, modelID),
			PoolSize:   config.EmbeddingPoolSize,
			Accelerate: device == DeviceAccelerator,
			Logger:     zl,
		})
	})
	registry.RegisterLoader(CapabilityNER, func(ctx context.Context, modelID string, device Device) (any, error) {
		return ner.NewHugot(ner.HugotOptions{
			ModelID:    modelID,
			ModelPath:  modelPath(config.ModelsDir, modelID),
			Accelerate: device == DeviceAccelerator,
			Logger:     zl,
		})
	})
	registry.RegisterLoader(CapabilityClassifier, func(ctx context.Context, modelID string, device Device) (any, error) {
		return zsc.New(zsc.Options{
			ModelID:    modelID,
			ModelPath:  modelPath(config.ModelsDir, modelID),
			Accelerate: device == DeviceAccelerator,
			Logger:     zl,
		})
	})

	node.embedder = NewEmbedder(registry, resolver, embeddingCache, zl)

	store, err := ragstore.Open(config.IndexDir, node.embedder.EmbedText, zl)
	if err != nil {
		return nil, err
	}
	node.store = store

	node.summarizer = NewSummarizer(client, registry, resolver, zl)
	node.concepts = NewConceptExtractor(registry, resolver, zl)
	node.classifier = NewActivityClassifier(registry, resolver, zl)
	node.insights = NewInsightGenerator(client, registry, resolver, store, zl)
	node.rag = NewRAGService(client, registry, resolver, store, zl)
	node.analyzer = NewImageAnalyzer(client, registry, config.VisionModel, zl)
	node.extractor = NewDocumentExtractor(client, registry, resolver, zl)

	return node, nil
}

// Close releases pooled resources. Safe to call once after the server
// stops.
func (gn *GatewayNode) Close() {
	gn.embeddingCache.Close()
	hugotx.CloseShared()
}

// RunAsGateway starts the inference gateway and blocks until ctx is
// cancelled or the server fails. If readyC is non-nil it is closed once
// the server accepts requests.
func RunAsGateway(ctx context.Context, zl *zap.Logger, config Config, readyC chan struct{}) {
	zl = zl.Named("curioai")
	zl.Info("Starting gateway node", zap.Any("config", config))

	u, err := url.Parse(config.ApiUrl)
	if err != nil {
		zl.Fatal("Invalid API URL", zap.String("url", config.ApiUrl), zap.Error(err))
	}

	node, err := NewGatewayNode(zl, config)
	if err != nil {
		zl.Fatal("Failed to initialize gateway", zap.Error(err))
	}
	defer node.Close()

	tier := node.resolver.Resolve()
	SetResolvedTier(tier)
	zl.Info("Hardware tier resolved",
		zap.String("tier", string(tier)),
		zap.Bool("accelerator", hugotx.AcceleratorAvailable()))

	rootMux := http.NewServeMux()

	// Health endpoints (outside /api prefix for k8s compatibility)
	rootMux.HandleFunc("GET /healthz", node.handleHealthz)
	rootMux.HandleFunc("GET /readyz", node.handleReadyz)

	rootMux.Handle("/", node.apiHandler())

	srv := &http.Server{
		Addr:        u.Host,
		Handler:     corsMiddleware(rootMux),
		ReadTimeout: 540 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("Gateway api server starting", zap.String("address", config.ApiUrl))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	if readyC != nil {
		close(readyC)
	}

	select {
	case err := <-serverErr:
		if err != nil {
			zl.Fatal("HTTP server error", zap.Error(err))
		}
	case <-ctx.Done():
		zl.Info("Shutdown signal received, starting graceful shutdown...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer shutdownCancel()

	srv.SetKeepAlivesEnabled(false)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Warn("Graceful shutdown failed, forcing close",
			zap.Error(err),
			zap.Duration("timeout", DefaultShutdownTimeout))
		_ = srv.Close()
	} else {
		zl.Info("Graceful shutdown completed successfully")
	}

	zl.Info("HTTP server stopped")
}
