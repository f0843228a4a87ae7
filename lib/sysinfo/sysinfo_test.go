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

package sysinfo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProbe(t *testing.T) {
	snap, err := Probe()
	require.NoError(t, err)
	require.Greater(t, snap.TotalMemoryGB, 0.0)
	require.Positive(t, snap.CPUCount)
	require.NotEmpty(t, snap.Platform)
}

func TestProbeBlocking(t *testing.T) {
	snap, err := ProbeBlocking(50 * time.Millisecond)
	require.NoError(t, err)
	require.Greater(t, snap.TotalMemoryGB, 0.0)
	require.GreaterOrEqual(t, snap.CPUPercent, 0.0)
}
