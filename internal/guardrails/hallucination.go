package guardrails

import (
	"context"
	"fmt"
	"strings"

	"github.com/Inovico-app/inovy-sub006/internal/logger"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// HallucinationChecker verifies a model output against the source context it
// was generated from. Implementations make at most one external call and
// must respect the context deadline; retry and backoff belong to the caller
// that owns the model integration, not here.
type HallucinationChecker interface {
	Check(ctx context.Context, output, sourceContext string) (unsupported bool, details string, err error)
}

const verificationPrompt = `You are a strict fact checker. Given a source context and a statement, answer with exactly "SUPPORTED" if every factual claim in the statement is supported by the context, or "UNSUPPORTED: <short reason>" otherwise.

Context:
%s

Statement:
%s`

// OpenAIHallucinationChecker runs the verification as a single bounded
// chat-completion call.
type OpenAIHallucinationChecker struct {
	client *openai.Client
	model  string
	logger *logger.Logger
}

// NewOpenAIHallucinationChecker creates a checker. An empty model selects
// gpt-4o-mini, cheap enough to run on every guarded output.
func NewOpenAIHallucinationChecker(apiKey, baseURL, model string, log *logger.Logger) *OpenAIHallucinationChecker {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIHallucinationChecker{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: log,
	}
}

// Check asks the verification model whether output is grounded in
// sourceContext. An empty source context cannot support any claim, so it is
// reported as unsupported without spending the call.
func (c *OpenAIHallucinationChecker) Check(ctx context.Context, output, sourceContext string) (bool, string, error) {
	if strings.TrimSpace(sourceContext) == "" {
		return true, "no source context available for verification", nil
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   100,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(verificationPrompt, sourceContext, output),
			},
		},
	})
	if err != nil {
		return false, "", fmt.Errorf("verification call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return false, "", fmt.Errorf("verification call returned no choices")
	}

	verdict := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("hallucination verification completed",
		zap.String("model", c.model),
		zap.String("verdict", verdict),
	)

	if strings.HasPrefix(strings.ToUpper(verdict), "UNSUPPORTED") {
		return true, verdict, nil
	}
	return false, "", nil
}
