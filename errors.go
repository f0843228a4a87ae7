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
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the model layer. Capability modules classify every
// registry error against these before deciding whether to degrade or
// propagate.
var (
	// ErrModelUnavailable means the model weights are missing or
	// incompatible. Fatal for that (capability, model id) until an explicit
	// Invalidate.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrDeviceFallbackExhausted means both the accelerator and the CPU
	// failed for the same operation. Fatal for the call, never retried.
	ErrDeviceFallbackExhausted = errors.New("device fallback exhausted")

	// ErrTransientInference marks a recoverable per-call failure such as a
	// timeout. It must never mutate cached model or device state.
	ErrTransientInference = errors.New("transient inference failure")

	// ErrParseFailure means LLM free text contained no recoverable
	// structured payload. Callers degrade to an unstructured result.
	ErrParseFailure = errors.New("no structured payload in model output")
)

// ValidationError is a request-level error: missing or malformed fields.
// It maps to a 400 and never reaches the model layer.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required field: %s", e.Field)
	}
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// DeviceError wraps an error that the runtime boundary has classified as
// device-related (accelerator allocation, CUDA/Metal runtime faults). The
// registry uses it to decide whether an instantiation or inference failure
// warrants a one-shot CPU retry.
type DeviceError struct {
	Device Device
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// deviceErrorHints is the last-resort substring heuristic for runtimes that
// only surface device faults as text. Matching here is a known heuristic,
// not a guarantee; typed classification via *DeviceError always wins.
var deviceErrorHints = []string{
	"cuda",
	"cudnn",
	"out of memory",
	"device",
	"mps",
	"metal",
	"accelerator",
	"gpu",
}

// IsDeviceError reports whether err is plausibly a device-class failure.
// Typed classification is checked first; the substring heuristic only runs
// when no *DeviceError is in the chain.
func IsDeviceError(err error) bool {
	if err == nil {
		return false
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range deviceErrorHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is a per-call recoverable failure.
// Context cancellation and deadline expiry are transient: a timeout is not
// evidence of device unsuitability.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransientInference) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
