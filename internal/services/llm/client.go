package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"heatclip/internal/logging"
	"heatclip/internal/retry"
	"heatclip/internal/services"
)

const (
	defaultModel       = "gpt-4o"
	defaultHTTPTimeout = 120 * time.Second
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	TimeoutSeconds int
}

// Classifier labels transcripts as violent (1) or not (0).
type Classifier struct {
	cfg    Config
	client openai.Client
	policy retry.Policy
	logger *slog.Logger
}

// NewClassifier constructs a classifier using the supplied configuration.
// Extra request options are appended after the defaults (useful for tests).
func NewClassifier(cfg Config, policy retry.Policy, logger *slog.Logger, opts ...option.RequestOption) (*Classifier, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "classify", "init", "OpenAI API key missing (set OPEN_AI_API_KEY)", nil)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &Classifier{
		cfg:    cfg,
		client: openai.NewClient(clientOpts...),
		policy: policy,
		logger: logging.NewComponentLogger(logger, "llm"),
	}, nil
}

// Model returns the configured model name for logging.
func (c *Classifier) Model() string {
	return c.cfg.Model
}

type classificationArgs struct {
	Classification *int `json:"classification"`
}

// Classify asks the model whether transcript depicts violence toward women.
func (c *Classifier) Classify(ctx context.Context, transcript string) (int, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return 0, services.Wrap(services.ErrValidation, "classify", "llm", "transcript required", nil)
	}

	params := c.buildParams(transcript)
	policy := c.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		logging.WithContext(ctx, c.logger).Debug("classification retry scheduled",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
	}

	var result int
	err := retry.Do(ctx, policy, "llm classify", func(ctx context.Context) error {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return classifyError(err)
		}
		args, err := toolArguments(resp)
		if err != nil {
			return err
		}
		var parsed classificationArgs
		if err := DecodeLLMJSON(args, &parsed); err != nil {
			return services.Wrap(services.ErrTransient, "classify", "parse tool arguments", "", err)
		}
		if parsed.Classification == nil {
			return services.Wrap(services.ErrTransient, "classify", "parse tool arguments", "classification missing", nil)
		}
		switch value := *parsed.Classification; value {
		case 0, 1:
			result = value
			return nil
		default:
			return services.Wrap(services.ErrValidation, "classify", "llm", fmt.Sprintf("classification %d is not 0 or 1", value), nil)
		}
	}, services.Retryable)
	if err != nil {
		return 0, err
	}
	return result, nil
}

// buildParams sends the transcript first and the instructions second, the
// order the dataset's existing labels were produced with.
func (c *Classifier) buildParams(transcript string) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(transcript),
			openai.SystemMessage(ViolenceClassificationPrompt),
		},
		Temperature: openai.Float(c.cfg.Temperature),
		Tools: []openai.ChatCompletionToolParam{{
			Function: shared.FunctionDefinitionParam{
				Name:        ToolName,
				Description: openai.String(toolDescription),
				Parameters: shared.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						classificationProperty: map[string]any{
							"type":        "integer",
							"description": classificationDescription,
						},
					},
					"required": []string{classificationProperty},
				},
			},
		}},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: ToolName},
			},
		},
	}
}

func toolArguments(resp *openai.ChatCompletion) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", services.Wrap(services.ErrTransient, "classify", "llm", "empty choices", nil)
	}
	msg := resp.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			return args, nil
		}
	}
	// Some compatible servers ignore tool_choice and answer in content.
	if content := strings.TrimSpace(msg.Content); content != "" {
		return content, nil
	}
	detail := fmt.Sprintf("no tool call (finish_reason=%q, refusal=%q)", resp.Choices[0].FinishReason, msg.Refusal)
	return "", services.Wrap(services.ErrTransient, "classify", "llm", detail, nil)
}

func classifyError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return services.Wrap(services.ErrTransient, "classify", "llm request", "", err)
	}
	switch {
	case apiErr.StatusCode == http.StatusRequestTimeout,
		apiErr.StatusCode == http.StatusTooManyRequests,
		apiErr.StatusCode >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, "classify", "llm request", fmt.Sprintf("http %d", apiErr.StatusCode), err)
	case apiErr.StatusCode == http.StatusUnauthorized, apiErr.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "classify", "llm request", fmt.Sprintf("http %d", apiErr.StatusCode), err)
	default:
		return services.Wrap(services.ErrValidation, "classify", "llm request", fmt.Sprintf("http %d", apiErr.StatusCode), err)
	}
}
