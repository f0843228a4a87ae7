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

import "github.com/prometheus/client_golang/prometheus"

var (
	embeddingRequestOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "embedding_request_ops_total",
			Help:      "The total number of embedding requests.",
		},
		[]string{"model"},
	)
	embeddingCreationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "embedding_creation_ops_total",
			Help:      "The total number of embeddings created.",
		},
		[]string{"model"},
	)

	generatorRequestOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "generator_request_ops_total",
			Help:      "The total number of generator (LLM) requests.",
		},
		[]string{"model"},
	)
	tokenGenerationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "token_generation_ops_total",
			Help:      "The total number of tokens generated.",
		},
		[]string{"model"},
	)

	conceptRequestOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "concept_request_ops_total",
			Help:      "The total number of concept extraction requests.",
		},
		[]string{"model"},
	)
	conceptCreationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "concept_creation_ops_total",
			Help:      "The total number of concepts extracted.",
		},
		[]string{"model"},
	)

	classificationRequestOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "classification_request_ops_total",
			Help:      "The total number of activity classification requests.",
		},
		[]string{"method"},
	)

	insightRequestOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "insight_request_ops_total",
			Help:      "The total number of insight generation requests.",
		},
		[]string{"insight_type"},
	)

	deviceFallbackOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "device_fallback_ops_total",
			Help:      "The total number of accelerator-to-CPU fallbacks.",
		},
		[]string{"capability"},
	)

	modelLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "model_load_duration_seconds",
			Help:      "Time taken to load a model.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model", "capability"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Time taken to process a request.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits.",
		},
		[]string{"type"}, // embedding
	)

	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses.",
		},
		[]string{"type"}, // embedding
	)

	resolvedTier = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "curioai",
			Subsystem: "gateway",
			Name:      "resolved_tier",
			Help:      "The currently resolved hardware tier (0=low_end .. 3=premium).",
		},
	)
)

func init() {
	prometheus.MustRegister(embeddingRequestOps)
	prometheus.MustRegister(embeddingCreationOps)
	prometheus.MustRegister(generatorRequestOps)
	prometheus.MustRegister(tokenGenerationOps)
	prometheus.MustRegister(conceptRequestOps)
	prometheus.MustRegister(conceptCreationOps)
	prometheus.MustRegister(classificationRequestOps)
	prometheus.MustRegister(insightRequestOps)
	prometheus.MustRegister(deviceFallbackOps)
	prometheus.MustRegister(modelLoadDuration)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
	prometheus.MustRegister(resolvedTier)
}

// RecordEmbeddingRequest increments the embedding request counter
func RecordEmbeddingRequest(model string) {
	embeddingRequestOps.WithLabelValues(model).Inc()
}

// RecordEmbeddingCreation records the number of embeddings created
func RecordEmbeddingCreation(model string, count int) {
	embeddingCreationOps.WithLabelValues(model).Add(float64(count))
}

// RecordGeneratorRequest increments the generator request counter
func RecordGeneratorRequest(model string) {
	generatorRequestOps.WithLabelValues(model).Inc()
}

// RecordTokenGeneration records the number of tokens generated
func RecordTokenGeneration(model string, count int) {
	tokenGenerationOps.WithLabelValues(model).Add(float64(count))
}

// RecordConceptRequest increments the concept extraction request counter
func RecordConceptRequest(model string) {
	conceptRequestOps.WithLabelValues(model).Inc()
}

// RecordConceptCreation records the number of concepts extracted
func RecordConceptCreation(model string, count int) {
	conceptCreationOps.WithLabelValues(model).Add(float64(count))
}

// RecordClassificationRequest increments the classification counter
func RecordClassificationRequest(method string) {
	classificationRequestOps.WithLabelValues(method).Inc()
}

// RecordInsightRequest increments the insight generation counter
func RecordInsightRequest(insightType string) {
	insightRequestOps.WithLabelValues(insightType).Inc()
}

// RecordDeviceFallback increments the accelerator fallback counter
func RecordDeviceFallback(capability string) {
	deviceFallbackOps.WithLabelValues(capability).Inc()
}

// RecordModelLoadDuration records how long it took to load a model
func RecordModelLoadDuration(model, capability string, seconds float64) {
	modelLoadDuration.WithLabelValues(model, capability).Observe(seconds)
}

// RecordRequestDuration records how long a request took
func RecordRequestDuration(endpoint, status string, seconds float64) {
	requestDuration.WithLabelValues(endpoint, status).Observe(seconds)
}

// RecordCacheHit increments the cache hit counter
func RecordCacheHit(cacheType string) {
	cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss increments the cache miss counter
func RecordCacheMiss(cacheType string) {
	cacheMisses.WithLabelValues(cacheType).Inc()
}

// SetResolvedTier publishes the currently resolved tier
func SetResolvedTier(tier Tier) {
	resolvedTier.Set(float64(tier.rank()))
}
