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

// Package sysinfo probes host memory and CPU characteristics. Snapshots are
// point-in-time reads, recomputed on every call, never cached.
package sysinfo

import (
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// Snapshot is a point-in-time read of host resources.
type Snapshot struct {
	TotalMemoryGB     float64 `json:"total_memory_gb"`
	AvailableMemoryGB float64 `json:"available_memory_gb"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	CPUCount          int     `json:"cpu_count"`
	CPUPercent        float64 `json:"cpu_percent"`
	Platform          string  `json:"platform"`
}

const bytesPerGB = 1 << 30

// Probe returns a fresh Snapshot. An error means the host query itself
// failed; callers decide whether that is fatal.
func Probe() (Snapshot, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Snapshot{}, fmt.Errorf("probing virtual memory: %w", err)
	}

	snap := Snapshot{
		TotalMemoryGB:     float64(vm.Total) / bytesPerGB,
		AvailableMemoryGB: float64(vm.Available) / bytesPerGB,
		MemoryUsedPercent: vm.UsedPercent,
		Platform:          runtime.GOOS + "/" + runtime.GOARCH,
	}

	if n, err := cpu.Counts(true); err == nil {
		snap.CPUCount = n
	} else {
		snap.CPUCount = runtime.NumCPU()
	}

	// Instantaneous read; a zero-interval sample compares against the
	// previous call rather than blocking.
	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		snap.CPUPercent = pcts[0]
	}

	return snap, nil
}

// ProbeBlocking samples CPU usage over the given interval for a more
// representative utilization figure. Used by the resource-usage endpoint.
func ProbeBlocking(interval time.Duration) (Snapshot, error) {
	snap, err := Probe()
	if err != nil {
		return Snapshot{}, err
	}
	if pcts, err := cpu.Percent(interval, false); err == nil && len(pcts) > 0 {
		snap.CPUPercent = pcts[0]
	}
	return snap, nil
}
