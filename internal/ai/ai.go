/*
Package ai classifies search results against a tracking query using the Gemini API.
*/
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/shanehull/preminder/internal/types"
)

// ErrUnparseable is returned alongside a negative verdict when the model's
// response does not satisfy the verdict schema.
var ErrUnparseable = errors.New("oracle response could not be parsed")

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Oracle answers two independent yes/no questions about a search result:
// whether it is about the tracked subject and whether it mentions a date
// after the reference date.
type Oracle struct {
	models generator
	model  string
	logger *zap.Logger
}

func NewOracle(ctx context.Context, apiKey string, modelName string, logger *zap.Logger) (*Oracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newOracle(client.Models, modelName, logger), nil
}

func newOracle(models generator, modelName string, logger *zap.Logger) *Oracle {
	return &Oracle{
		models: models,
		model:  modelName,
		logger: logger.Named("oracle"),
	}
}

// Classify never returns a positive verdict together with an error. On any
// failure the verdict is {false, false}.
func (o *Oracle) Classify(ctx context.Context, result types.SearchResult, query string, referenceDate time.Time) (types.Verdict, error) {
	userContent := &genai.Content{
		Parts: []*genai.Part{
			{Text: buildUserPrompt(result, query, referenceDate)},
		},
		Role: "user",
	}

	resp, err := o.models.GenerateContent(ctx, o.model, []*genai.Content{userContent}, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   getResponseSchema(),
	})
	if err != nil {
		return types.Verdict{}, fmt.Errorf("gemini API call failed: %w", err)
	}
	if resp == nil {
		return types.Verdict{}, fmt.Errorf("%w: empty response", ErrUnparseable)
	}

	respText := resp.Text()
	verdict, err := ParseVerdict(respText)
	if err != nil {
		o.logger.Warn("Unparseable verdict, failing closed",
			zap.String("link", result.Link),
			zap.String("raw", respText),
			zap.Error(err),
		)
		return types.Verdict{}, err
	}

	o.logger.Debug("Classified result",
		zap.String("link", result.Link),
		zap.Bool("topic_relevant", verdict.TopicRelevant),
		zap.Bool("future_dated", verdict.FutureDated),
	)
	return verdict, nil
}

type rawVerdict struct {
	TopicRelevant *bool `json:"topic_relevant"`
	FutureDated   *bool `json:"future_dated"`
}

// ParseVerdict normalizes a model response into a strict verdict. Anything
// other than a JSON object carrying both booleans is ErrUnparseable.
func ParseVerdict(text string) (types.Verdict, error) {
	s := stripCodeFence(strings.TrimSpace(text))
	if s == "" {
		return types.Verdict{}, fmt.Errorf("%w: empty text", ErrUnparseable)
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return types.Verdict{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if raw.TopicRelevant == nil || raw.FutureDated == nil {
		return types.Verdict{}, fmt.Errorf("%w: missing field", ErrUnparseable)
	}

	return types.Verdict{
		TopicRelevant: *raw.TopicRelevant,
		FutureDated:   *raw.FutureDated,
	}, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func getResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"topic_relevant": {
				Type:        genai.TypeBoolean,
				Description: "True if the search result is about the subject of the tracking query.",
			},
			"future_dated": {
				Type:        genai.TypeBoolean,
				Description: "True if the search result mentions any date strictly after the reference date.",
			},
		},
		Required: []string{"topic_relevant", "future_dated"},
	}
}
