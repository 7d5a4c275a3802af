// Package backend generates reply text from a flat prompt using a locally
// served GPT4All model behind an OpenAI-compatible API.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	configpkg "github.com/minhyannv/gpt4all-chat-go/pkg/config"
	loggerpkg "github.com/minhyannv/gpt4all-chat-go/pkg/logger"
)

var (
	// ErrModelLoad is returned when the configured model cannot be made available.
	ErrModelLoad = errors.New("load model")
	// ErrGeneration is returned when the model fails to produce a reply.
	ErrGeneration = errors.New("generate reply")
)

// Generator turns a prompt into reply text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAI is a Generator backed by an OpenAI-compatible completions endpoint.
type OpenAI struct {
	client     openai.Client
	model      string
	generation configpkg.GenerationOptions
	logger     loggerpkg.Logger
}

// Load builds the client and checks that the configured model is served.
// It is the one expensive, fallible setup step before Generate.
func Load(ctx context.Context, cfg configpkg.Config, opts ...Option) (*OpenAI, error) {
	cfg = configpkg.Normalize(cfg)
	deps := backendDeps{logger: loggerpkg.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loggerpkg.Debug(deps.logger, "backend init", loggerpkg.Fields{
		"model":    cfg.Model,
		"base_url": cfg.BaseURL,
		"timeout":  cfg.Timeout.String(),
	})

	g := &OpenAI{
		client:     newOpenAIClient(cfg, deps),
		model:      cfg.Model,
		generation: cfg.Generation,
		logger:     deps.logger,
	}

	model, err := g.client.Models.Get(ctx, g.model)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrModelLoad, g.model, err)
	}
	loggerpkg.Debug(deps.logger, "model ready", loggerpkg.Fields{
		"id":       model.ID,
		"owned_by": model.OwnedBy,
	})
	return g, nil
}

func newOpenAIClient(cfg configpkg.Config, deps backendDeps) openai.Client {
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if deps.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(deps.httpClient))
	}
	return openai.NewClient(opts...)
}

// Model returns the model identifier requests are sent for.
func (g *OpenAI) Model() string {
	return g.model
}

// Generate sends prompt to the completions endpoint and returns the text of
// the first choice.
func (g *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	loggerpkg.Debug(g.logger, "generation request", loggerpkg.Fields{
		"model":        g.model,
		"prompt_bytes": len(prompt),
	})

	completion, err := g.client.Completions.New(ctx, g.newCompletionParams(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion choices", ErrGeneration)
	}

	choice := completion.Choices[0]
	loggerpkg.Debug(g.logger, "generation complete", loggerpkg.Fields{
		"finish_reason":     string(choice.FinishReason),
		"reply_bytes":       len(choice.Text),
		"completion_tokens": completion.Usage.CompletionTokens,
	})
	return choice.Text, nil
}

func (g *OpenAI) newCompletionParams(prompt string) openai.CompletionNewParams {
	params := openai.CompletionNewParams{
		Model: openai.CompletionNewParamsModel(g.model),
		Prompt: openai.CompletionNewParamsPromptUnion{
			OfString: openai.String(prompt),
		},
	}
	gen := g.generation
	if gen.MaxTokens > 0 {
		params.MaxTokens = openai.Int(gen.MaxTokens)
	}
	if gen.Temperature != nil {
		params.Temperature = openai.Float(*gen.Temperature)
	}
	if gen.TopP != nil {
		params.TopP = openai.Float(*gen.TopP)
	}
	if len(gen.Stop) > 0 {
		params.Stop = openai.CompletionNewParamsStopUnion{OfStringArray: gen.Stop}
	}
	return params
}
