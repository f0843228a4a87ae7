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

package zsc

import (
	"testing"

	"github.com/knights-analytics/hugot/pipelines"
	"github.com/stretchr/testify/require"
)

func TestConvertOutput(t *testing.T) {
	output := &pipelines.ZeroShotOutput{
		ClassificationOutputs: []pipelines.ZeroShotClassificationOutput{
			{
				Sequence: "vscode main.go",
				SortedValues: []struct {
					Key   string
					Value float64
				}{
					{Key: "coding", Value: 0.91},
					{Key: "reading", Value: 0.06},
					{Key: "entertainment", Value: 0.03},
				},
			},
			{
				Sequence: "youtube cat videos",
				SortedValues: []struct {
					Key   string
					Value float64
				}{
					{Key: "watching", Value: 0.88},
					{Key: "coding", Value: 0.12},
				},
			},
		},
	}

	results := convertOutput(output)
	require.Len(t, results, 2)

	require.Equal(t, []Classification{
		{Label: "coding", Score: 0.91},
		{Label: "reading", Score: 0.06},
		{Label: "entertainment", Score: 0.03},
	}, results[0])
	require.Equal(t, "watching", results[1][0].Label)
	require.True(t, results[1][0].Score > results[1][1].Score)
}

func TestConvertOutputEmpty(t *testing.T) {
	results := convertOutput(&pipelines.ZeroShotOutput{})
	require.Empty(t, results)
}
