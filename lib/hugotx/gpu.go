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
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

var (
	acceleratorOnce sync.Once
	acceleratorOK   bool
)

// AcceleratorAvailable reports whether GPU acceleration is plausible on
// this host. The result is cached after the first call.
//
// CURIOAI_GPU=off forces CPU regardless of hardware.
func AcceleratorAvailable() bool {
	acceleratorOnce.Do(func() {
		if strings.EqualFold(os.Getenv("CURIOAI_GPU"), "off") {
			return
		}
		switch runtime.GOOS {
		case "darwin":
			// CoreML is present on all supported macOS hardware.
			acceleratorOK = true
		case "linux", "windows":
			acceleratorOK = cudaPresent()
		}
	})
	return acceleratorOK
}

func cudaPresent() bool {
	if _, err := exec.LookPath("nvidia-smi"); err == nil {
		return true
	}
	dirs := []string{
		"/usr/local/cuda/lib64",
		"/usr/lib/x86_64-linux-gnu",
		"/usr/lib64",
	}
	dirs = append(dirs, filepath.SplitList(os.Getenv("LD_LIBRARY_PATH"))...)
	for _, dir := range dirs {
		matches, _ := filepath.Glob(filepath.Join(dir, "libcudart.so*"))
		if len(matches) > 0 {
			return true
		}
	}
	return false
}
