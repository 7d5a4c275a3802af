package chat

import (
	"errors"

	"github.com/minhyannv/gpt4all-chat-go/pkg/backend"
	"github.com/minhyannv/gpt4all-chat-go/pkg/transcript"
)

// ErrorKind tells an invalid transcript apart from a backend failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidTranscript
	KindBackend
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidTranscript:
		return "invalid_transcript"
	case KindBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// Kind classifies an error returned by transcript.Parse, backend.Load or
// ReplyTo.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, transcript.ErrInvalidFormat):
		return KindInvalidTranscript
	case errors.Is(err, backend.ErrModelLoad), errors.Is(err, backend.ErrGeneration):
		return KindBackend
	default:
		return KindUnknown
	}
}
