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

package hugotx

import (
	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
)

func init() {
	Register(&goBackend{})
}

// goBackend runs pipelines on the pure Go goMLX runtime. No CGO, always
// available, slower than ONNX Runtime. CPU only; the accelerate flag is
// ignored.
type goBackend struct{}

func (b *goBackend) Name() string    { return "goMLX (Pure Go)" }
func (b *goBackend) Available() bool { return true }
func (b *goBackend) Priority() int   { return 100 }

func (b *goBackend) NewSession(_ bool, opts ...options.WithOption) (*hugot.Session, error) {
	return hugot.NewGoSession(opts...)
}
