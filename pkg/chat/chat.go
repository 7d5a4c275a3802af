// Package chat runs the one-shot transcript -> prompt -> reply pipeline.
package chat

import (
	"context"
	"errors"

	"github.com/minhyannv/gpt4all-chat-go/pkg/backend"
	loggerpkg "github.com/minhyannv/gpt4all-chat-go/pkg/logger"
	"github.com/minhyannv/gpt4all-chat-go/pkg/transcript"
)

// Chat formats transcripts and asks the generator for a reply.
type Chat struct {
	generator backend.Generator
	ctx       context.Context
	logger    loggerpkg.Logger
}

// New returns a Chat that sends prompts to gen.
func New(ctx context.Context, gen backend.Generator, opts ...Option) (*Chat, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	deps := chatDeps{logger: loggerpkg.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Chat{
		generator: gen,
		ctx:       ctx,
		logger:    deps.logger,
	}, nil
}

// ReplyTo flattens messages and returns the generated reply.
func (c *Chat) ReplyTo(messages []transcript.Message) (string, error) {
	prompt := transcript.Format(messages)
	loggerpkg.Debug(c.logger, "prompt ready", loggerpkg.Fields{
		"messages":   len(messages),
		"has_system": transcript.SystemPrompt(messages) != "",
		"bytes":      len(prompt),
	})

	reply, err := c.generator.Generate(c.ctx, prompt)
	if err != nil {
		return "", err
	}
	loggerpkg.Debug(c.logger, "reply received", loggerpkg.Fields{
		"bytes": len(reply),
	})
	return reply, nil
}
