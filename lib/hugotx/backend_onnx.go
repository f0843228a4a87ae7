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

//go:build onnx && ORT

package hugotx

import (
	"os"
	"path/filepath"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
)

func init() {
	Register(&onnxBackend{})
}

// onnxBackend runs pipelines on ONNX Runtime. Fastest option; requires
// libonnxruntime.so at runtime.
type onnxBackend struct{}

func (b *onnxBackend) Name() string {
	if AcceleratorAvailable() {
		return "ONNX Runtime (GPU)"
	}
	return "ONNX Runtime (CPU)"
}

func (b *onnxBackend) Available() bool {
	return onnxLibraryPath() != ""
}

func (b *onnxBackend) Priority() int { return 10 }

func (b *onnxBackend) NewSession(accelerate bool, opts ...options.WithOption) (*hugot.Session, error) {
	base := []options.WithOption{options.WithOnnxLibraryPath(onnxLibraryPath())}
	if accelerate && AcceleratorAvailable() {
		base = append(base, options.WithCuda(nil))
	}
	return hugot.NewORTSession(append(base, opts...)...)
}

// onnxLibraryPath locates the directory holding libonnxruntime.so, checking
// ONNXRUNTIME_ROOT then LD_LIBRARY_PATH.
func onnxLibraryPath() string {
	if root := os.Getenv("ONNXRUNTIME_ROOT"); root != "" {
		dir := filepath.Join(root, "lib")
		if _, err := os.Stat(filepath.Join(dir, "libonnxruntime.so")); err == nil {
			return dir
		}
	}
	for _, dir := range filepath.SplitList(os.Getenv("LD_LIBRARY_PATH")) {
		if _, err := os.Stat(filepath.Join(dir, "libonnxruntime.so")); err == nil {
			return dir
		}
	}
	return ""
}
