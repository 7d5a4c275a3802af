package chat

import loggerpkg "github.com/minhyannv/gpt4all-chat-go/pkg/logger"

// Option configures optional runtime dependencies for Chat.
type Option func(*chatDeps)

type chatDeps struct {
	logger loggerpkg.Logger
}

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) Option {
	return func(d *chatDeps) {
		d.logger = loggerpkg.OrNop(l)
	}
}
