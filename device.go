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
	"sync"

	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/hugotx"
)

// Device is the compute device a model runs on.
type Device string

const (
	DeviceAccelerator Device = "accelerator"
	DeviceCPU         Device = "cpu"
)

// deviceArbiter owns the process-wide device state: whether an accelerator
// exists at all, and which capabilities have been degraded to CPU. A degrade
// is sticky for the process lifetime so a failing accelerator is never
// re-attempted for the same capability.
type deviceArbiter struct {
	logger *zap.Logger

	probeOnce sync.Once
	probe     func() bool
	available bool

	mu       sync.RWMutex
	degraded map[Capability]bool
}

// newDeviceArbiter builds an arbiter. A nil probe uses platform accelerator
// detection (CUDA libraries, CoreML on darwin).
func newDeviceArbiter(logger *zap.Logger, probe func() bool) *deviceArbiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if probe == nil {
		probe = hugotx.AcceleratorAvailable
	}
	return &deviceArbiter{
		logger:   logger.Named("device"),
		probe:    probe,
		degraded: make(map[Capability]bool),
	}
}

// acceleratorAvailable resolves the accelerator probe, once.
func (a *deviceArbiter) acceleratorAvailable() bool {
	a.probeOnce.Do(func() {
		a.available = a.probe()
		a.logger.Info("accelerator probe resolved", zap.Bool("available", a.available))
	})
	return a.available
}

// Preferred returns the device the capability should attempt next: the
// accelerator when one exists and the capability has not been degraded.
func (a *deviceArbiter) Preferred(capability Capability) Device {
	if !a.acceleratorAvailable() {
		return DeviceCPU
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.degraded[capability] {
		return DeviceCPU
	}
	return DeviceAccelerator
}

// Degrade permanently routes the capability to CPU.
func (a *deviceArbiter) Degrade(capability Capability) {
	a.mu.Lock()
	already := a.degraded[capability]
	a.degraded[capability] = true
	a.mu.Unlock()
	if !already {
		a.logger.Warn("capability degraded to cpu", zap.String("capability", string(capability)))
	}
}

// Degraded reports whether the capability has been routed to CPU.
func (a *deviceArbiter) Degraded(capability Capability) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.degraded[capability]
}
