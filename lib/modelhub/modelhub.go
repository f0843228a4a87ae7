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

// Package modelhub downloads ONNX model exports from HuggingFace Hub
// into the local models directory.
package modelhub

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/go-huggingface/hub"
)

// Files worth pulling alongside the ONNX graph. Tokenizer and config
// files are required by the pipeline loaders.
var auxiliaryFiles = map[string]bool{
	"config.json":             true,
	"tokenizer.json":          true,
	"tokenizer_config.json":   true,
	"special_tokens_map.json": true,
	"vocab.txt":               true,
}

// PullOptions configures a Pull.
type PullOptions struct {
	// ModelsDir is the root directory models land in. The repo is
	// stored under ModelsDir/<owner>/<name>/.
	ModelsDir string

	// Token authenticates against gated repos. Empty for public repos.
	Token string

	// Variant selects an ONNX quantization suffix such as "fp16" or
	// "quantized". Empty pulls the default export.
	Variant string

	// Progress, when non-nil, is called once per downloaded file.
	Progress func(fileName string)
}

// Pull downloads a repo's ONNX export and tokenizer files. Nested onnx/
// paths are flattened so the pipeline loaders see a flat model dir.
func Pull(repoID string, opts PullOptions) error {
	repo := hub.New(repoID)
	if opts.Token != "" {
		repo = repo.WithAuth(opts.Token)
	}

	var files []string
	for fileName, err := range repo.IterFileNames() {
		if err != nil {
			return fmt.Errorf("listing files in %s: %w", repoID, err)
		}
		files = append(files, fileName)
	}

	toDownload := selectFiles(files, opts.Variant)
	if len(toDownload) == 0 {
		return fmt.Errorf("no model files found in %s", repoID)
	}

	modelDir := filepath.Join(opts.ModelsDir, filepath.FromSlash(repoID))
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	for _, fileName := range toDownload {
		localPath, err := repo.DownloadFile(fileName)
		if err != nil {
			return fmt.Errorf("downloading %s: %w", fileName, err)
		}
		destPath := filepath.Join(modelDir, filepath.Base(fileName))
		if err := copyFile(localPath, destPath); err != nil {
			return fmt.Errorf("copying %s: %w", fileName, err)
		}
		if opts.Progress != nil {
			opts.Progress(filepath.Base(fileName))
		}
	}
	return nil
}

// selectFiles picks the ONNX graph matching the variant plus every
// known auxiliary file.
func selectFiles(files []string, variant string) []string {
	var out []string
	wantONNX := "model.onnx"
	if variant != "" {
		wantONNX = "model_" + variant + ".onnx"
	}
	for _, f := range files {
		base := filepath.Base(f)
		if auxiliaryFiles[base] {
			out = append(out, f)
			continue
		}
		if base == wantONNX || (strings.HasSuffix(base, ".onnx_data") && strings.HasPrefix(base, strings.TrimSuffix(wantONNX, ".onnx"))) {
			out = append(out, f)
		}
	}
	return out
}

// ListLocal returns the model identifiers present under modelsDir,
// detected as directories containing an .onnx file.
func ListLocal(modelsDir string) ([]string, error) {
	var models []string
	err := filepath.WalkDir(modelsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".onnx" {
			return nil
		}
		rel, err := filepath.Rel(modelsDir, filepath.Dir(path))
		if err != nil {
			return err
		}
		models = append(models, filepath.ToSlash(rel))
		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}
	return models, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, in)
	return err
}
