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

// Package hugotx wraps Hugot session creation behind a backend registry.
//
// The pure Go (goMLX) backend is always compiled in. The ONNX Runtime
// backend is compiled in with -tags="onnx,ORT" and takes precedence when
// its shared library is present. Backends self-register in init().
package hugotx

import (
	"fmt"
	"sort"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
)

// Backend creates Hugot sessions on one inference runtime.
type Backend interface {
	// Name is a human-readable identifier, e.g. "ONNX Runtime (CUDA)".
	Name() string

	// Available reports whether the backend can run in this environment.
	Available() bool

	// Priority orders backend selection; lower wins.
	Priority() int

	// NewSession creates a session. accelerate requests GPU execution
	// where the backend supports it; backends without GPU support ignore
	// it.
	NewSession(accelerate bool, opts ...options.WithOption) (*hugot.Session, error)
}

var (
	backendsMu sync.RWMutex
	backends   []Backend
)

// Register adds a backend. Called from init() in backend files.
func Register(b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends = append(backends, b)
	sort.SliceStable(backends, func(i, j int) bool {
		return backends[i].Priority() < backends[j].Priority()
	})
}

// Default returns the highest-priority available backend, or nil when none
// is available (cannot happen in practice, the Go backend always is).
func Default() Backend {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	for _, b := range backends {
		if b.Available() {
			return b
		}
	}
	return nil
}

// BackendName names the backend sessions will be created on.
func BackendName() string {
	if b := Default(); b != nil {
		return b.Name()
	}
	return "none"
}

// NewSession creates a session on the default backend.
func NewSession(accelerate bool, opts ...options.WithOption) (*hugot.Session, error) {
	b := Default()
	if b == nil {
		return nil, fmt.Errorf("no inference backend available")
	}
	return b.NewSession(accelerate, opts...)
}

// Shared sessions, one per accelerate flag. ONNX Runtime tolerates a single
// live session, so every pipeline on the same device shares one.
var (
	sharedMu sync.Mutex
	shared   = make(map[bool]*hugot.Session)
)

// SharedSession returns the process-wide session for the given device
// choice, creating it on first use. Callers must not destroy it; it lives
// until CloseShared.
func SharedSession(accelerate bool, opts ...options.WithOption) (*hugot.Session, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if s, ok := shared[accelerate]; ok {
		return s, nil
	}
	s, err := NewSession(accelerate, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating %s session: %w", deviceLabel(accelerate), err)
	}
	shared[accelerate] = s
	return s, nil
}

// CloseShared destroys all shared sessions. Called at process shutdown.
func CloseShared() error {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	var firstErr error
	for k, s := range shared {
		if err := s.Destroy(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("destroying %s session: %w", deviceLabel(k), err)
		}
		delete(shared, k)
	}
	return firstErr
}

func deviceLabel(accelerate bool) string {
	if accelerate {
		return "accelerator"
	}
	return "cpu"
}
