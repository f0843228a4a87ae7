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
	"net/http"

	"github.com/bytedance/sonic/encoder"
)

// Version information - set at build time via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// HealthResponse is the response for /healthz endpoint
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the response for /readyz endpoint
type ReadyResponse struct {
	Status string      `json:"status"`
	Tier   Tier        `json:"tier"`
	Models ReadyModels `json:"models"`
}

// ReadyModels counts cached models by lifecycle state
type ReadyModels struct {
	Ready   int `json:"ready"`
	Loading int `json:"loading"`
	Failed  int `json:"failed"`
}

// handleHealthz returns 200 if the service is running (liveness check)
func (gn *GatewayNode) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = encoder.NewStreamEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// handleReadyz returns 200 once the tier has resolved and no capability is
// stuck. Models load lazily, so an empty registry still counts as ready.
func (gn *GatewayNode) handleReadyz(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{
		Status: "ready",
		Tier:   gn.resolver.Resolve(),
	}

	for _, st := range gn.registry.Status() {
		switch st.State {
		case ModelStateReady:
			resp.Models.Ready++
		case ModelStateLoading:
			resp.Models.Loading++
		case ModelStateFailed:
			resp.Models.Failed++
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = encoder.NewStreamEncoder(w).Encode(resp)
}
