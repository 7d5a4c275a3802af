// Package transcript turns a JSON chat transcript into a flat text prompt.
package transcript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Role is the role for a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// systemLabel prefixes the header line carrying the system prompt.
const systemLabel = "System"

// ErrInvalidFormat is returned when the input is not an array of objects.
var ErrInvalidFormat = errors.New("invalid transcript format")

// Message is one role-tagged unit of conversation content.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Parse decodes a JSON array of messages. Missing or null roles default to
// "user" and missing or null content defaults to "".
func Parse(raw string) ([]Message, error) {
	if isNull(json.RawMessage(raw)) {
		return nil, fmt.Errorf("%w: expected a JSON array, got null", ErrInvalidFormat)
	}
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	messages := make([]Message, 0, len(elems))
	for i, elem := range elems {
		msg, err := parseMessage(elem)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %v", ErrInvalidFormat, i, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func parseMessage(elem json.RawMessage) (Message, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
		return Message{}, fmt.Errorf("expected a JSON object, got %s", describe(elem))
	}

	msg := Message{Role: RoleUser}
	if rawRole, ok := fields["role"]; ok && !isNull(rawRole) {
		var role string
		if err := json.Unmarshal(rawRole, &role); err != nil {
			return Message{}, fmt.Errorf("role must be a string, got %s", describe(rawRole))
		}
		msg.Role = Role(role)
	}
	if rawContent, ok := fields["content"]; ok && !isNull(rawContent) {
		msg.Content = contentText(rawContent)
	}
	return msg, nil
}

// contentText returns string content verbatim and any other JSON value as
// its compact text.
func contentText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func describe(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "nothing"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// SystemPrompt returns the content of the first message when its role is
// exactly "system", and "" otherwise.
func SystemPrompt(messages []Message) string {
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		return messages[0].Content
	}
	return ""
}

// Format flattens messages into a prompt. System-role messages are never
// emitted as body lines, wherever they appear; only the first one can
// become the "System:" header.
func Format(messages []Message) string {
	var sb strings.Builder
	if system := SystemPrompt(messages); system != "" {
		writeLine(&sb, systemLabel, system)
	}
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			continue
		}
		writeLine(&sb, Capitalize(string(msg.Role)), msg.Content)
	}
	return sb.String()
}

func writeLine(sb *strings.Builder, label, content string) {
	sb.WriteString(label)
	sb.WriteString(": ")
	sb.WriteString(content)
	sb.WriteString("\n")
}

// Capitalize upper-cases the first character of s and leaves the rest as is.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
