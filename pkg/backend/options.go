package backend

import (
	"github.com/openai/openai-go/option"

	loggerpkg "github.com/minhyannv/gpt4all-chat-go/pkg/logger"
)

// Option configures optional runtime dependencies for Load.
type Option func(*backendDeps)

type backendDeps struct {
	logger     loggerpkg.Logger
	httpClient option.HTTPClient
}

// WithLogger injects a logger dependency.
func WithLogger(l loggerpkg.Logger) Option {
	return func(d *backendDeps) {
		d.logger = loggerpkg.OrNop(l)
	}
}

// WithHTTPClient replaces the HTTP client used to reach the model server.
func WithHTTPClient(c option.HTTPClient) Option {
	return func(d *backendDeps) {
		d.httpClient = c
	}
}
