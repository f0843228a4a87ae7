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

// Config holds the gateway's startup configuration. Fields map 1:1 to
// viper keys bound in the run command.
type Config struct {
	// ApiUrl is the address the HTTP server binds to, e.g.
	// "http://localhost:8000".
	ApiUrl string `json:"api_url" mapstructure:"api_url"`

	// ModelsDir is the root directory holding downloaded ONNX models.
	ModelsDir string `json:"models_dir" mapstructure:"models_dir"`

	// LLMBaseURL points at the local LLM runtime's OpenAI-compatible
	// API. Empty uses the default Ollama address.
	LLMBaseURL string `json:"llm_base_url" mapstructure:"llm_base_url"`

	// TierOverride pins the hardware tier instead of probing. Empty
	// means probe.
	TierOverride string `json:"tier_override" mapstructure:"tier_override"`

	// Gpu controls accelerator use: "on", "off", or "" for auto.
	Gpu string `json:"gpu" mapstructure:"gpu"`

	// IndexDir is where the retrieval index persists. Empty keeps the
	// index in memory only.
	IndexDir string `json:"index_dir" mapstructure:"index_dir"`

	// VisionModel names the multimodal model used for image analysis.
	VisionModel string `json:"vision_model" mapstructure:"vision_model"`

	// RequestTimeout bounds a single model invocation, as a
	// time.ParseDuration string. Empty means no per-request timeout.
	RequestTimeout string `json:"request_timeout" mapstructure:"request_timeout"`

	// EmbeddingPoolSize is the number of pooled encoder pipelines.
	EmbeddingPoolSize int `json:"embedding_pool_size" mapstructure:"embedding_pool_size"`
}
