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

	"github.com/spf13/cobra"

	"github.com/Tapu45/CurioAi/lib/modelhub"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List locally installed ONNX models",
	Long: `List ONNX models installed under the models directory.

Examples:
  # List local models
  curioai list

  # List models in a custom directory
  curioai list --models-dir /opt/curioai/models`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	models, err := modelhub.ListLocal(modelsDir)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Printf("No models found in %s\n", modelsDir)
		fmt.Println("Use 'curioai pull <model-name>' to download one.")
		return nil
	}
	for _, m := range models {
		fmt.Println(m)
	}
	return nil
}
