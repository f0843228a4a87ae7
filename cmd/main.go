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

// Command curioai runs the local AI inference gateway.
//
// The gateway serves summarization, embeddings, concept extraction,
// activity classification, insights, RAG, and document analysis over a
// local HTTP API, selecting models to match the host's hardware tier.
//
// Usage:
//
//	curioai run                    # Start the gateway
//	curioai pull <model>           # Download a model from HuggingFace
//	curioai list                   # List local models
package main

import (
	"runtime"

	"github.com/Tapu45/CurioAi/cmd/cmd"
)

// https://goreleaser.com/cookbooks/using-main.version/
var version = "dev"

func main() {
	runtime.SetMutexProfileFraction(1) // Enable mutex profiling
	runtime.SetBlockProfileRate(1)     // Sample every blocking event
	cmd.Version = version
	cmd.Execute()
}
