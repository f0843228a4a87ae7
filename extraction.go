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

	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/extraction"
	"github.com/Tapu45/CurioAi/lib/llm"
)

// extractionTextLimit bounds the document text passed to the model.
const extractionTextLimit = 4000

// llmExtractionConfidence is the fixed score attached to model-derived
// structured data.
const llmExtractionConfidence = 0.85

// StructuredItem is one extracted key-value fact.
type StructuredItem struct {
	Type       string  `json:"type"`
	Key        string  `json:"key"`
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

// StructuredResult bundles extracted items with the overall method and
// confidence.
type StructuredResult struct {
	Data       []StructuredItem `json:"data"`
	Confidence float64          `json:"confidence"`
	Method     string           `json:"method"`
}

// TablesResult lists the tables found in a document.
type TablesResult struct {
	Tables     []extraction.Table `json:"tables"`
	TableCount int                `json:"table_count"`
	Method     string             `json:"method"`
}

// DocumentExtractor pulls structured data and tables out of PDFs,
// spreadsheets, and plain text files. Structured extraction flows the
// document text through the LLM; table extraction is purely mechanical.
type DocumentExtractor struct {
	llm      *llm.Client
	registry *ModelRegistry
	resolver *TierResolver
	logger   *zap.Logger
}

func NewDocumentExtractor(client *llm.Client, registry *ModelRegistry, resolver *TierResolver, logger *zap.Logger) *DocumentExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentExtractor{
		llm:      client,
		registry: registry,
		resolver: resolver,
		logger:   logger.Named("extraction"),
	}
}

// ExtractStructured reads the document and asks the LLM for percentages,
// key-value pairs, lists, and form fields. An empty document or an
// unparseable model response yields an empty data list, not an error.
func (e *DocumentExtractor) ExtractStructured(ctx context.Context, filePath, fileType string) (*StructuredResult, error) {
	if fileType == "" {
		fileType = extraction.FileTypeFor(filePath)
	}

	result := &StructuredResult{
		Data:   []StructuredItem{},
		Method: "llm-extraction",
	}

	text, err := extraction.Text(filePath, fileType)
	if err != nil {
		return nil, &ValidationError{Field: "file_path", Reason: err.Error()}
	}
	if text == "" {
		return result, nil
	}
	if len(text) > extractionTextLimit {
		text = text[:extractionTextLimit]
	}

	prompt := fmt.Sprintf(`Extract structured data from the following text. Look for:
- Percentages (e.g., "85%%", "Grade: A")
- Key-value pairs (e.g., "Name: John", "Date: 2024-01-01")
- Lists (numbered or bulleted)
- Form fields

Return the results as a JSON array with this structure:
[
    {
        "type": "percentage" | "key_value" | "list" | "form",
        "key": "field name or label",
        "value": "extracted value",
        "confidence": 0.0-1.0
    }
]

Text to analyze:
%s

Return only valid JSON, no additional text.`, text)

	model := e.resolver.EffectiveModels().LLMModel
	handle, err := e.registry.GetOrLoad(ctx, CapabilityLLM, model)
	if err != nil {
		return nil, err
	}

	var response string
	err = e.registry.InvokeWithDeviceFallback(ctx, handle, func(ctx context.Context, _ *Handle) error {
		var genErr error
		response, genErr = e.llm.Generate(ctx, model, prompt, llm.GenerateOptions{})
		return genErr
	})
	if err != nil {
		return nil, err
	}

	var items []StructuredItem
	if err := extractJSONArray(response, &items); err != nil {
		if !errors.Is(err, ErrParseFailure) {
			return nil, err
		}
		e.logger.Warn("model response did not contain a parsable JSON array")
		return result, nil
	}

	result.Data = items
	result.Confidence = llmExtractionConfidence
	return result, nil
}

// ExtractTables finds tables in PDFs, Excel workbooks, and CSVs.
func (e *DocumentExtractor) ExtractTables(filePath, fileType string) (*TablesResult, error) {
	if fileType == "" {
		fileType = extraction.FileTypeFor(filePath)
	}

	tables, err := extraction.Tables(filePath, fileType)
	if err != nil {
		return nil, &ValidationError{Field: "file_path", Reason: err.Error()}
	}

	e.logger.Info("table extraction completed",
		zap.String("file_type", fileType),
		zap.Int("tables", len(tables)))

	return &TablesResult{
		Tables:     tables,
		TableCount: len(tables),
		Method:     "table-extraction",
	}, nil
}
