// Package llm wraps an LLM provider behind the narrow {model, systemPrompt,
// userPrompt, responseFormat?, temperature?, maxTokens?} → {text} interface
// the spec treats as a black box. Retry/backoff logic lives entirely in
// this adapter — it is the LLM service's own collaborator concern, not
// something the core's business logic (C5/C6/C7) ever sees.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Request is one bounded completion call.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	JSONMode     bool
	Temperature  float64
	MaxTokens    int
}

// Response is the provider's reply: the generated text only.
type Response struct {
	Text string
}

// Client is the narrow LLM service boundary every component calls
// through. Nothing upstream of this package ever touches llms.Model
// directly.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// LangchainClient implements Client over a langchaingo llms.Model,
// wrapped with the retry policy below.
type LangchainClient struct {
	model   llms.Model
	retry   RetryConfig
	verbose bool
}

// NewLangchainClient builds a client around model (e.g. an
// llms/openai.Chat instance), bounding every retried attempt at
// perCallTimeout (the configured LLMTimeout).
func NewLangchainClient(model llms.Model, perCallTimeout time.Duration, verbose bool) *LangchainClient {
	return &LangchainClient{model: model, retry: DefaultRetryConfig(perCallTimeout), verbose: verbose}
}

func (c *LangchainClient) Complete(ctx context.Context, req Request) (Response, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, req.UserPrompt),
	}

	opts := []llms.CallOption{llms.WithModel(req.Model)}
	if req.Temperature > 0 || req.JSONMode {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSONMode {
		opts = append(opts, llms.WithJSONMode())
	}

	wrapper := NewRetryWrapper(c.model, c.retry, c.verbose)
	resp, err := wrapper.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return Response{}, fmt.Errorf("llm: complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("llm: complete: empty response")
	}
	return Response{Text: resp.Choices[0].Content}, nil
}
