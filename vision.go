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
	"strings"

	"go.uber.org/zap"

	"github.com/Tapu45/CurioAi/lib/llm"
	"github.com/Tapu45/CurioAi/lib/vision"
)

// DefaultVisionModel is the multimodal model served by the local runtime.
const DefaultVisionModel = "llava"

const (
	visionScenePrompt   = "Describe this image in detail. Include objects, text, and context."
	visionOCRPrompt     = "Extract all readable text from this image. Return only the text content, nothing else."
	visionObjectsPrompt = "List all objects you can see in this image. Return only a comma-separated list."

	// Confidence estimates for model-derived results. The multimodal
	// model reports no per-token confidence, so these mirror the
	// fixed weights used for combined scoring.
	ocrConfidenceEstimate   = 0.7
	sceneConfidenceEstimate = 0.8
)

// ImageAnalysisOptions selects which analysis passes run.
type ImageAnalysisOptions struct {
	UseOCR    bool `json:"use_ocr"`
	UseVision bool `json:"use_vision"`
}

// DefaultImageAnalysisOptions enables both passes.
func DefaultImageAnalysisOptions() ImageAnalysisOptions {
	return ImageAnalysisOptions{UseOCR: true, UseVision: true}
}

// ImageAnalysis is the combined OCR plus scene result. Pass-level
// failures are reported in the error fields rather than failing the
// whole analysis.
type ImageAnalysis struct {
	OCRText          *string  `json:"ocr_text"`
	OCRConfidence    *float64 `json:"ocr_confidence"`
	SceneDescription *string  `json:"scene_description"`
	ObjectsDetected  []string `json:"objects_detected"`
	Confidence       float64  `json:"confidence"`
	Method           string   `json:"method"`
	OCRError         string   `json:"ocr_error,omitempty"`
	VisionError      string   `json:"vision_error,omitempty"`
}

// ImageAnalyzer runs screenshots and photos through the multimodal
// model for text extraction, scene description, and object listing.
type ImageAnalyzer struct {
	llm      *llm.Client
	registry *ModelRegistry
	model    string
	logger   *zap.Logger
}

func NewImageAnalyzer(client *llm.Client, registry *ModelRegistry, model string, logger *zap.Logger) *ImageAnalyzer {
	if model == "" {
		model = DefaultVisionModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageAnalyzer{
		llm:      client,
		registry: registry,
		model:    model,
		logger:   logger.Named("vision"),
	}
}

// AnalyzePath loads the image at path, normalizes it to PNG bounded at
// the model's working resolution, and runs the selected passes.
func (a *ImageAnalyzer) AnalyzePath(ctx context.Context, path string, opts ImageAnalysisOptions) (*ImageAnalysis, error) {
	png, err := vision.LoadPNG(path)
	if err != nil {
		return nil, &ValidationError{Field: "file_path", Reason: err.Error()}
	}
	return a.Analyze(ctx, png, opts)
}

// Analyze runs OCR and scene passes over an already-encoded PNG.
func (a *ImageAnalyzer) Analyze(ctx context.Context, imagePNG []byte, opts ImageAnalysisOptions) (*ImageAnalysis, error) {
	handle, err := a.registry.GetOrLoad(ctx, CapabilityVision, a.model)
	if err != nil {
		return nil, err
	}

	result := &ImageAnalysis{
		ObjectsDetected: []string{},
		Method:          "combined",
	}

	if opts.UseOCR {
		text, err := a.describe(ctx, handle, imagePNG, visionOCRPrompt)
		if err != nil {
			a.logger.Error("text extraction pass failed", zap.Error(err))
			result.OCRError = err.Error()
		} else {
			text = strings.TrimSpace(text)
			confidence := 0.0
			if text != "" {
				confidence = ocrConfidenceEstimate
			}
			result.OCRText = &text
			result.OCRConfidence = &confidence
			a.logger.Info("text extraction completed", zap.Int("chars", len(text)))
		}
	}

	if opts.UseVision {
		description, err := a.describe(ctx, handle, imagePNG, visionScenePrompt)
		if err != nil {
			a.logger.Error("scene description pass failed", zap.Error(err))
			result.VisionError = err.Error()
		} else {
			description = strings.TrimSpace(description)
			result.SceneDescription = &description

			objects, err := a.describe(ctx, handle, imagePNG, visionObjectsPrompt)
			if err != nil {
				a.logger.Warn("object listing pass failed", zap.Error(err))
			} else {
				result.ObjectsDetected = splitObjectList(objects)
			}
		}
	}

	var confidences []float64
	if result.OCRConfidence != nil && *result.OCRConfidence > 0 {
		confidences = append(confidences, *result.OCRConfidence)
	}
	if result.SceneDescription != nil && *result.SceneDescription != "" {
		confidences = append(confidences, sceneConfidenceEstimate)
	}
	if len(confidences) > 0 {
		var sum float64
		for _, c := range confidences {
			sum += c
		}
		result.Confidence = sum / float64(len(confidences))
	}

	return result, nil
}

func (a *ImageAnalyzer) describe(ctx context.Context, handle *Handle, imagePNG []byte, prompt string) (string, error) {
	var response string
	err := a.registry.InvokeWithDeviceFallback(ctx, handle, func(ctx context.Context, _ *Handle) error {
		var describeErr error
		response, describeErr = a.llm.Describe(ctx, a.model, prompt, imagePNG)
		return describeErr
	})
	return response, err
}

func splitObjectList(response string) []string {
	objects := []string{}
	for _, part := range strings.Split(response, ",") {
		if obj := strings.TrimSpace(part); obj != "" {
			objects = append(objects, obj)
		}
	}
	return objects
}
