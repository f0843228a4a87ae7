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
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	curioai "github.com/Tapu45/CurioAi"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the inference gateway",
	Long:  `Start the gateway serving summarization, embeddings, concepts, classification, insights, RAG, and document analysis.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("llm-base-url", "", "base URL of the local LLM runtime's OpenAI-compatible API")
	runCmd.Flags().String("tier", "", "pin the hardware tier (low_end, mid_range, high_end, premium)")
	runCmd.Flags().String("gpu", "", "accelerator use: on, off, or auto when empty")
	runCmd.Flags().String("index-dir", "", "directory to persist the retrieval index (empty keeps it in memory)")
	runCmd.Flags().String("vision-model", "", "multimodal model for image analysis")
	runCmd.Flags().String("request-timeout", "", "per-request model invocation timeout, e.g. 60s")
	runCmd.Flags().Int("embedding-pool-size", 0, "number of pooled embedding pipelines")

	mustBindPFlag("llm_base_url", runCmd.Flags().Lookup("llm-base-url"))
	mustBindPFlag("tier_override", runCmd.Flags().Lookup("tier"))
	mustBindPFlag("gpu", runCmd.Flags().Lookup("gpu"))
	mustBindPFlag("index_dir", runCmd.Flags().Lookup("index-dir"))
	mustBindPFlag("vision_model", runCmd.Flags().Lookup("vision-model"))
	mustBindPFlag("request_timeout", runCmd.Flags().Lookup("request-timeout"))
	mustBindPFlag("embedding_pool_size", runCmd.Flags().Lookup("embedding-pool-size"))
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger()
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Running as gateway")

	cfg := curioai.Config{
		ApiUrl:            viper.GetString("api_url"),
		ModelsDir:         modelsDir,
		LLMBaseURL:        viper.GetString("llm_base_url"),
		TierOverride:      viper.GetString("tier_override"),
		Gpu:               viper.GetString("gpu"),
		IndexDir:          viper.GetString("index_dir"),
		VisionModel:       viper.GetString("vision_model"),
		RequestTimeout:    viper.GetString("request_timeout"),
		EmbeddingPoolSize: viper.GetInt("embedding_pool_size"),
	}

	curioai.RunAsGateway(ctx, logger, cfg, nil)
	return nil
}
