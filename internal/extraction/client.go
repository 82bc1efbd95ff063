package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/spec-kit/roadside-assist/internal/config"
	"github.com/spec-kit/roadside-assist/internal/domain"
)

// Result is the structured output of one extraction call. It is untrusted:
// the orchestrator never takes NextStep over the progression state machine,
// only as one input to the composite escalation trigger.
type Result struct {
	Intent         string         `json:"intent"`
	EmergencyLevel string         `json:"emergency_level"`
	Confidence     float64        `json:"confidence"`
	Extracted      map[string]any `json:"extracted_data"`
	NextStep       string         `json:"next_step"`
	UserReply      string         `json:"user_reply"`
}

// Extractor produces structured facts from the recent transcript plus an
// injected per-turn context note.
type Extractor interface {
	Extract(ctx context.Context, history []domain.Message, contextNote string) (*Result, error)
}

// Client calls an OpenAI-compatible chat completion endpoint in JSON mode.
type Client struct {
	api       openai.Client
	model     string
	maxTokens int64
	logger    *zap.Logger
}

// NewClient builds the extraction client from configuration.
func NewClient(cfg config.ExtractionConfig, logger *zap.Logger) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:       openai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: 500,
		logger:    logger,
	}
}

// Extract sends the system prompt, the per-turn context note, and the recent
// transcript window, and decodes the model's JSON reply.
func (c *Client) Extract(ctx context.Context, history []domain.Message, contextNote string) (*Result, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(SystemPrompt))
	if contextNote != "" {
		messages = append(messages, openai.SystemMessage(contextNote))
	}
	for _, msg := range history {
		switch msg.Role {
		case domain.MessageRoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		case domain.MessageRoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		MaxTokens:   openai.Int(c.maxTokens),
		Temperature: openai.Float(0.7),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("extraction returned no choices")
	}

	var result Result
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		c.logger.Warn("undecodable extraction output", zap.Error(err))
		return nil, fmt.Errorf("decode extraction output: %w", err)
	}
	if result.Extracted == nil {
		result.Extracted = map[string]any{}
	}
	return &result, nil
}

// FailureResult is the fail-safe sentinel substituted when the extraction
// call errors: zero confidence plus a HIGH emergency flag force the
// orchestrator to escalate rather than silently continue.
func FailureResult() *Result {
	return &Result{
		Intent:         "ERROR",
		EmergencyLevel: "HIGH",
		Confidence:     0,
		Extracted:      map[string]any{},
		NextStep:       string(domain.StageEscalated),
		UserReply:      "I am experiencing a technical issue but I'm here to ensure your safety. Please stay away from traffic and wait while I connect you to a human agent.",
	}
}
