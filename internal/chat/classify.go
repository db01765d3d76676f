package chat

import (
	"context"
	"errors"
	"time"

	"github.com/fpang/asset-classifier/internal/assets"
	"github.com/fpang/asset-classifier/internal/filehandler"
	"github.com/fpang/asset-classifier/internal/jsonutil"
	"github.com/fpang/asset-classifier/internal/metrics"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ClassificationResult is the structured verdict for a single asset.
type ClassificationResult struct {
	Filename       string   `json:"filename"`
	Category       string   `json:"category"`
	MainTheme      string   `json:"main_theme"`
	AdditionalTags []string `json:"additional_tags"`
}

// classificationReply mirrors ClassificationResult with pointer fields so a
// missing key can be told apart from an empty value.
type classificationReply struct {
	Filename       *string   `json:"filename"`
	Category       *string   `json:"category"`
	MainTheme      *string   `json:"main_theme"`
	AdditionalTags *[]*string `json:"additional_tags"`
}

// ContentGenerator is the part of the Gemini SDK the classifier needs.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Classifier sends one image per call to Gemini and returns a validated result.
type Classifier struct {
	models    ContentGenerator
	modelName string
	config    *genai.GenerateContentConfig
}

// Option customizes a Classifier.
type Option func(*Classifier)

// WithModel overrides the Gemini model (defaults to GetModelName()).
func WithModel(name string) Option {
	return func(c *Classifier) {
		if name != "" {
			c.modelName = name
		}
	}
}

// NewClassifier builds a Classifier around a content generator, normally client.Models.
func NewClassifier(models ContentGenerator, opts ...Option) *Classifier {
	c := &Classifier{
		models:    models,
		modelName: GetModelName(),
		config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: assets.ClassifierSystemPrompt}},
			},
			ResponseMIMEType: "application/json",
			ResponseSchema:   ClassificationSchema(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelName returns the model the classifier calls.
func (c *Classifier) ModelName() string {
	return c.modelName
}

// ClassificationSchema is the response schema Gemini must follow.
func ClassificationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"filename": {
				Type:        genai.TypeString,
				Description: "Name of the analysed file.",
			},
			"category": {
				Type:        genai.TypeString,
				Description: "Main category of the asset (e.g. 'Character', 'Background', 'UI Icon', 'Environment Object').",
			},
			"main_theme": {
				Type:        genai.TypeString,
				Description: "Core theme and style of the asset (e.g. 'Gothic Fantasy', 'Pixel Art', 'Sci-Fi Minimalist').",
			},
			"additional_tags": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Three additional tags relevant to game development (e.g. 'Low Poly', 'Needs Animation', 'High Contrast').",
			},
		},
		Required:         []string{"filename", "category", "main_theme", "additional_tags"},
		PropertyOrdering: []string{"filename", "category", "main_theme", "additional_tags"},
	}
}

// Classify sends a single encoded image to Gemini and parses the structured reply.
//
// Failures are *ServiceError (errors.Is ErrService) when the call fails or
// returns no text, and *SchemaError (errors.Is ErrSchemaViolation) when the
// text is not a valid classification.
func (c *Classifier) Classify(ctx context.Context, img *filehandler.EncodedImage) (*ClassificationResult, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, &ServiceError{Type: ErrTypeUnknown, Message: "no image data to classify"}
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: assets.RenderClassifierUserPrompt(img.Name)},
			{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: img.Data}},
		},
	}}

	log.Debug().
		Str("file", img.Name).
		Str("model", c.modelName).
		Str("mime_type", img.MIMEType).
		Int("bytes", len(img.Data)).
		Msg("Starting Gemini API call for asset classification")

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.modelName, contents, c.config)
	elapsed := time.Since(start)

	text := ""
	if resp != nil {
		text = resp.Text()
	}

	m := metrics.New("AssetClassifier").
		Dimension("Operation", "classify").
		Property("file", img.Name).
		Property("model", c.modelName).
		Metric("GeminiApiLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("GeminiApiCalls")
	if resp != nil && resp.UsageMetadata != nil {
		m.Metric("GeminiInputTokens", float64(resp.UsageMetadata.PromptTokenCount), metrics.UnitCount)
		m.Metric("GeminiOutputTokens", float64(resp.UsageMetadata.CandidatesTokenCount), metrics.UnitCount)
	}

	if err != nil {
		m.Count("GeminiApiErrors").Flush()
		se := classifyServiceError(err, text)
		log.Debug().Err(se).Str("file", img.Name).Dur("duration", elapsed).Msg("Gemini classification call failed")
		return nil, se
	}

	if text == "" {
		m.Count("GeminiEmptyResponses").Flush()
		return nil, emptyResponseError(resp)
	}
	m.Flush()

	log.Debug().
		Str("file", img.Name).
		Int("response_length", len(text)).
		Dur("duration", elapsed).
		Msg("Gemini API response received")

	result, err := ParseClassification(text)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("file", img.Name).
		Str("category", result.Category).
		Str("main_theme", result.MainTheme).
		Strs("tags", result.AdditionalTags).
		Msg("Asset classified")

	return result, nil
}

// ParseClassification decodes a reply into a ClassificationResult, requiring all four fields.
func ParseClassification(text string) (*ClassificationResult, error) {
	snippet := jsonutil.Snippet(text, jsonutil.SnippetLimit)

	reply, err := jsonutil.ParseObject[classificationReply](text)
	if err != nil {
		return nil, &SchemaError{Reason: "reply is not a valid JSON object", Snippet: snippet, Err: err}
	}

	switch {
	case reply.Filename == nil:
		return nil, &SchemaError{Field: "filename", Reason: "required field missing", Snippet: snippet}
	case reply.Category == nil:
		return nil, &SchemaError{Field: "category", Reason: "required field missing", Snippet: snippet}
	case reply.MainTheme == nil:
		return nil, &SchemaError{Field: "main_theme", Reason: "required field missing", Snippet: snippet}
	case reply.AdditionalTags == nil:
		return nil, &SchemaError{Field: "additional_tags", Reason: "required field missing", Snippet: snippet}
	}

	tags := make([]string, 0, len(*reply.AdditionalTags))
	for _, tag := range *reply.AdditionalTags {
		if tag == nil {
			return nil, &SchemaError{Field: "additional_tags", Reason: "tag must be a string", Snippet: snippet}
		}
		tags = append(tags, *tag)
	}

	return &ClassificationResult{
		Filename:       *reply.Filename,
		Category:       *reply.Category,
		MainTheme:      *reply.MainTheme,
		AdditionalTags: tags,
	}, nil
}

// emptyResponseError explains why a successful call carried no text.
func emptyResponseError(resp *genai.GenerateContentResponse) error {
	se := &ServiceError{Type: ErrTypeEmptyResponse, Message: "received empty response from Gemini API"}
	if resp == nil {
		return se
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		se.Err = errors.New("prompt blocked: " + string(resp.PromptFeedback.BlockReason))
		return se
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
		se.Err = errors.New("finish reason: " + string(resp.Candidates[0].FinishReason))
	}
	return se
}
