// Copyright 2025 CurioAI, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tapu45/CurioAi/lib/modelhub"
)

var pullCmd = &cobra.Command{
	Use:   "pull <model-name> [model-name...]",
	Short: "Pull ONNX model(s) from HuggingFace",
	Long: `Download one or more ONNX models from HuggingFace Hub into the
models directory. Models are stored under <models-dir>/<owner>/<name>/.

Variants select a quantized ONNX export when the repo publishes one:
  fp16        - half precision
  quantized   - INT8 dynamic quantization

Examples:
  # Pull the default export
  curioai pull sentence-transformers/all-MiniLM-L6-v2

  # Pull a recognizer model
  curioai pull dslim/bert-base-NER

  # Pull the zero-shot classifier used for activity classification
  curioai pull typeform/distilbert-base-uncased-mnli

  # Pull a quantized variant to a custom directory
  curioai pull --variant quantized --models-dir /opt/curioai/models dslim/distilbert-NER`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)

	pullCmd.Flags().String("variant", "",
		"ONNX variant to download (fp16, quantized). Defaults to the full-precision export.")
	pullCmd.Flags().String("hf-token", "",
		"HuggingFace API token for gated models (or use HF_TOKEN env var)")
}

func runPull(cmd *cobra.Command, args []string) error {
	variant, _ := cmd.Flags().GetString("variant")
	hfToken, _ := cmd.Flags().GetString("hf-token")
	if hfToken == "" {
		hfToken = os.Getenv("HF_TOKEN")
	}

	for _, repoID := range args {
		fmt.Printf("\n=== Pulling %s ===\n", repoID)
		err := modelhub.Pull(repoID, modelhub.PullOptions{
			ModelsDir: modelsDir,
			Token:     hfToken,
			Variant:   variant,
			Progress: func(fileName string) {
				fmt.Printf("  %s\n", fileName)
			},
		})
		if err != nil {
			return fmt.Errorf("failed to pull %s: %w", repoID, err)
		}
	}
	return nil
}
