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
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Capability is a category of AI function a model serves.
type Capability string

const (
	CapabilityLLM        Capability = "llm"
	CapabilityEmbedding  Capability = "embedding"
	CapabilityNER        Capability = "ner"
	CapabilityClassifier Capability = "classifier"
	CapabilityVision     Capability = "vision"
	CapabilityOCR        Capability = "ocr"
)

// ModelState is the lifecycle state of a cached model.
type ModelState string

const (
	ModelStateUnloaded ModelState = "unloaded"
	ModelStateLoading  ModelState = "loading"
	ModelStateReady    ModelState = "ready"
	ModelStateFailed   ModelState = "failed"
)

// LoadFunc instantiates a model of one capability on the given device.
// Implementations classify device faults by returning a *DeviceError.
type LoadFunc func(ctx context.Context, modelID string, device Device) (any, error)

// Handle is a borrowed reference to a loaded model. Capability modules use
// it for the duration of one call and never retain it.
type Handle struct {
	Capability Capability
	ModelID    string

	value any
}

// Value returns the capability-specific loaded model instance.
func (h *Handle) Value() any { return h.value }

type registryKey struct {
	capability Capability
	modelID    string
}

func (k registryKey) String() string {
	return string(k.capability) + "/" + k.modelID
}

type registryEntry struct {
	state  ModelState
	handle *Handle
	device Device
	err    error
}

// ModelStatus is the externally visible state of one cached model.
type ModelStatus struct {
	Capability Capability `json:"capability"`
	ModelID    string     `json:"model_id"`
	State      ModelState `json:"state"`
	Device     Device     `json:"device,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ModelRegistry is the single authority for loading, caching, and device
// arbitration of every model the service can run. At most one handle exists
// per (capability, model id); concurrent loads for the same key collapse to
// one instantiation. Load failures are sticky until Invalidate; transient
// failures (timeouts) never mutate cached state.
type ModelRegistry struct {
	logger  *zap.Logger
	devices *deviceArbiter

	loadersMu sync.RWMutex
	loaders   map[Capability]LoadFunc

	mu      sync.RWMutex
	entries map[registryKey]*registryEntry
	group   singleflight.Group
}

// NewModelRegistry builds an empty registry. A nil acceleratorProbe uses
// platform detection.
func NewModelRegistry(logger *zap.Logger, acceleratorProbe func() bool) *ModelRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("registry")
	return &ModelRegistry{
		logger:  logger,
		devices: newDeviceArbiter(logger, acceleratorProbe),
		loaders: make(map[Capability]LoadFunc),
		entries: make(map[registryKey]*registryEntry),
	}
}

// RegisterLoader installs the instantiation function for a capability.
func (r *ModelRegistry) RegisterLoader(capability Capability, load LoadFunc) {
	r.loadersMu.Lock()
	r.loaders[capability] = load
	r.loadersMu.Unlock()
}

// GetOrLoad returns the cached handle for (capability, modelID), loading it
// on first use. Concurrent callers for the same uncached key share one
// in-flight load. A previously failed key returns the sticky failure
// without re-attempting the load.
func (r *ModelRegistry) GetOrLoad(ctx context.Context, capability Capability, modelID string) (*Handle, error) {
	key := registryKey{capability: capability, modelID: modelID}

	if h, err, done := r.cached(key); done {
		return h, err
	}

	v, err, _ := r.group.Do(key.String(), func() (any, error) {
		// A racing caller may have completed the load while this one was
		// queueing on the flight group.
		if h, err, done := r.cached(key); done {
			if err != nil {
				return nil, err
			}
			return h, nil
		}
		return r.load(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// cached returns the entry's terminal outcome, or done=false when the key
// has no cached outcome yet.
func (r *ModelRegistry) cached(key registryKey) (*Handle, error, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[key]
	if !ok {
		return nil, nil, false
	}
	switch entry.state {
	case ModelStateReady:
		return entry.handle, nil, true
	case ModelStateFailed:
		return nil, fmt.Errorf("%s %s: %w: %w", key.capability, key.modelID, ErrModelUnavailable, entry.err), true
	default:
		return nil, nil, false
	}
}

// load instantiates the model for key, applying the one-shot device
// fallback policy. Runs inside the singleflight group; no registry lock is
// held across the loader call.
func (r *ModelRegistry) load(ctx context.Context, key registryKey) (*Handle, error) {
	r.loadersMu.RLock()
	loader, ok := r.loaders[key.capability]
	r.loadersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("capability %s: %w: no loader registered", key.capability, ErrModelUnavailable)
	}

	r.setState(key, &registryEntry{state: ModelStateLoading})

	device := r.devices.Preferred(key.capability)
	r.logger.Info("loading model",
		zap.String("capability", string(key.capability)),
		zap.String("model", key.modelID),
		zap.String("device", string(device)))

	start := time.Now()
	value, err := loader(ctx, key.modelID, device)
	if err != nil && device == DeviceAccelerator && IsDeviceError(err) && !IsTransient(err) {
		// One CPU retry, then the accelerator is off the table for this
		// capability.
		r.devices.Degrade(key.capability)
		RecordDeviceFallback(string(key.capability))
		r.logger.Warn("accelerator load failed, retrying on cpu",
			zap.String("capability", string(key.capability)),
			zap.String("model", key.modelID),
			zap.Error(err))
		device = DeviceCPU
		value, err = loader(ctx, key.modelID, device)
	}

	if err != nil {
		if IsTransient(err) {
			// A timeout says nothing about the model itself. Leave the key
			// unloaded so the next caller retries the load.
			r.clearState(key)
			return nil, fmt.Errorf("loading %s %s: %w: %w", key.capability, key.modelID, ErrTransientInference, err)
		}
		r.setState(key, &registryEntry{state: ModelStateFailed, err: err})
		r.logger.Error("model load failed",
			zap.String("capability", string(key.capability)),
			zap.String("model", key.modelID),
			zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w: %w", key.capability, key.modelID, ErrModelUnavailable, err)
	}

	handle := &Handle{Capability: key.capability, ModelID: key.modelID, value: value}
	r.setState(key, &registryEntry{state: ModelStateReady, handle: handle, device: device})
	RecordModelLoadDuration(key.modelID, string(key.capability), time.Since(start).Seconds())
	r.logger.Info("model ready",
		zap.String("capability", string(key.capability)),
		zap.String("model", key.modelID),
		zap.String("device", string(device)))
	return handle, nil
}

func (r *ModelRegistry) setState(key registryKey, entry *registryEntry) {
	r.mu.Lock()
	r.entries[key] = entry
	r.mu.Unlock()
}

func (r *ModelRegistry) clearState(key registryKey) {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

// Device returns the device the handle's model is currently bound to.
func (r *ModelRegistry) Device(h *Handle) Device {
	key := registryKey{capability: h.Capability, modelID: h.ModelID}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.entries[key]; ok && entry.state == ModelStateReady {
		return entry.device
	}
	return DeviceCPU
}

// InvokeWithDeviceFallback runs one inference operation against the
// handle's model. If the operation fails with a device-class error while
// the model is bound to the accelerator, the capability is degraded, the
// stale handle is dropped, and the op retries exactly once against a
// freshly loaded CPU-bound handle. Transient failures pass through
// without mutating any state. A failed reload or CPU retry is terminal
// for the call.
func (r *ModelRegistry) InvokeWithDeviceFallback(ctx context.Context, h *Handle, op func(ctx context.Context, h *Handle) error) error {
	device := r.Device(h)

	err := op(ctx, h)
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return fmt.Errorf("%s %s: %w: %w", h.Capability, h.ModelID, ErrTransientInference, err)
	}
	if device != DeviceAccelerator || !IsDeviceError(err) {
		return err
	}

	r.devices.Degrade(h.Capability)
	RecordDeviceFallback(string(h.Capability))
	// The cached instance is bound to the accelerator session; retrying
	// through it cannot change devices. Drop it and load a CPU-bound
	// replacement.
	r.Invalidate(h.Capability, h.ModelID)
	r.logger.Warn("inference failed on accelerator, reloading on cpu",
		zap.String("capability", string(h.Capability)),
		zap.String("model", h.ModelID),
		zap.Error(err))

	fresh, loadErr := r.GetOrLoad(ctx, h.Capability, h.ModelID)
	if loadErr != nil {
		return fmt.Errorf("%s %s: %w: accelerator: %v, cpu reload: %w",
			h.Capability, h.ModelID, ErrDeviceFallbackExhausted, err, loadErr)
	}
	if retryErr := op(ctx, fresh); retryErr != nil {
		return fmt.Errorf("%s %s: %w: accelerator: %v, cpu: %w",
			h.Capability, h.ModelID, ErrDeviceFallbackExhausted, err, retryErr)
	}
	return nil
}

// Invalidate drops the cached handle for (capability, modelID), or every
// handle for the capability when modelID is empty. Used only for explicit
// model switches; failed entries become loadable again. Device degradation
// is not reset.
func (r *ModelRegistry) Invalidate(capability Capability, modelID string) {
	r.mu.Lock()
	for key := range r.entries {
		if key.capability != capability {
			continue
		}
		if modelID == "" || key.modelID == modelID {
			delete(r.entries, key)
		}
	}
	r.mu.Unlock()
	r.logger.Info("invalidated models",
		zap.String("capability", string(capability)),
		zap.String("model", modelID))
}

// Status lists the lifecycle state of every model the registry has touched.
func (r *ModelRegistry) Status() []ModelStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelStatus, 0, len(r.entries))
	for key, entry := range r.entries {
		st := ModelStatus{
			Capability: key.capability,
			ModelID:    key.modelID,
			State:      entry.state,
			Device:     entry.device,
		}
		if entry.err != nil {
			st.Error = entry.err.Error()
		}
		out = append(out, st)
	}
	return out
}
