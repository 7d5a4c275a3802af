package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	configpkg "github.com/minhyannv/gpt4all-chat-go/pkg/config"
)

// newModelServer fakes a GPT4All server that serves only the default model
// and echoes the prompt back as the completion text.
func newModelServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/models/"+configpkg.DefaultModel:
			_, _ = io.WriteString(w, `{"id":"`+configpkg.DefaultModel+`","object":"model","created":0,"owned_by":"gpt4all"}`)
		case r.URL.Path == "/v1/completions":
			var body struct {
				Prompt string `json:"prompt"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "cmpl-1", "object": "text_completion", "created": 0, "model": configpkg.DefaultModel,
				"choices": []map[string]any{{"index": 0, "text": "echo<" + body.Prompt + ">", "finish_reason": "stop"}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"message":"model not found","type":"invalid_request_error"}}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func envFor(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func runWith(t *testing.T, env map[string]string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, envFor(env), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunPrintsReply(t *testing.T) {
	var hits int32
	srv := newModelServer(t, &hits)

	code, stdout, stderr := runWith(t, map[string]string{configpkg.EnvBaseURL: srv.URL + "/v1"},
		`[{"role":"system","content":"Be terse."},{"role":"user","content":"Hi"}]`)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr=%q)", code, stderr)
	}
	want := "echo<System: Be terse.\nUser: Hi\n>\n"
	if stdout != want {
		t.Fatalf("expected %q, got %q", want, stdout)
	}
	if stderr != "" {
		t.Fatalf("expected quiet stderr, got %q", stderr)
	}
}

func TestRunEmptyTranscript(t *testing.T) {
	var hits int32
	srv := newModelServer(t, &hits)

	code, stdout, _ := runWith(t, map[string]string{configpkg.EnvBaseURL: srv.URL + "/v1"}, `[]`)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if stdout != "echo<>\n" {
		t.Fatalf("expected empty prompt to be generated, got %q", stdout)
	}
}

func TestRunRejectsObjectTranscript(t *testing.T) {
	var hits int32
	srv := newModelServer(t, &hits)

	code, stdout, stderr := runWith(t, map[string]string{configpkg.EnvBaseURL: srv.URL + "/v1"},
		`{"role":"user","content":"Hi"}`)
	if code == exitOK {
		t.Fatal("expected non-zero exit for object input")
	}
	if stdout != "" {
		t.Fatalf("expected no reply, got %q", stdout)
	}
	if !strings.Contains(stderr, "invalid transcript format") {
		t.Fatalf("expected diagnostic, got %q", stderr)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("model server should not be contacted for malformed input")
	}
}

func TestRunUsageErrors(t *testing.T) {
	cases := map[string][]string{
		"no args":      nil,
		"two args":     {`[]`, `[]`},
		"unknown flag": {"-model", "x", `[]`},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			code, stdout, stderr := runWith(t, nil, args...)
			if code != exitUsage {
				t.Fatalf("expected exit %d, got %d", exitUsage, code)
			}
			if stdout != "" {
				t.Fatalf("expected empty stdout, got %q", stdout)
			}
			if !strings.Contains(stderr, "Usage: gpt4all-chat") {
				t.Fatalf("expected usage on stderr, got %q", stderr)
			}
		})
	}
}

func TestRunBackendFailure(t *testing.T) {
	var hits int32
	srv := newModelServer(t, &hits)

	code, stdout, stderr := runWith(t, map[string]string{
		configpkg.EnvBaseURL: srv.URL + "/v1",
		configpkg.EnvModel:   "missing-model",
	}, `[{"role":"user","content":"Hi"}]`)
	if code != exitFailure {
		t.Fatalf("expected exit %d, got %d", exitFailure, code)
	}
	if stdout != "" {
		t.Fatalf("expected no reply, got %q", stdout)
	}
	if !strings.Contains(stderr, "load model") || !strings.Contains(stderr, "missing-model") {
		t.Fatalf("expected load diagnostic, got %q", stderr)
	}
}

func TestRunVerboseLogsToStderr(t *testing.T) {
	var hits int32
	srv := newModelServer(t, &hits)

	code, stdout, stderr := runWith(t, map[string]string{configpkg.EnvBaseURL: srv.URL + "/v1"},
		"-verbose", `[{"role":"user","content":"Hi"}]`)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d (stderr=%q)", code, stderr)
	}
	if stdout != "echo<User: Hi\n>\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
	if !strings.Contains(stderr, "DEBUG prompt ready") {
		t.Fatalf("expected debug logs, got %q", stderr)
	}
	if !strings.Contains(stderr, `DEBUG backend loaded obj={"messages":1,"model":"`+configpkg.DefaultModel+`"}`) {
		t.Fatalf("expected loaded model in debug logs, got %q", stderr)
	}
}

func TestRunDashLeadingTranscriptIsInvalidFormat(t *testing.T) {
	cases := map[string][]string{
		"bare":           {"-1"},
		"after verbose":  {"-verbose", "-1"},
		"after dashdash": {"--", "-1"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			var hits int32
			srv := newModelServer(t, &hits)

			code, stdout, stderr := runWith(t, map[string]string{configpkg.EnvBaseURL: srv.URL + "/v1"}, args...)
			if code != exitFailure {
				t.Fatalf("expected exit %d, got %d (stderr=%q)", exitFailure, code, stderr)
			}
			if stdout != "" {
				t.Fatalf("expected no reply, got %q", stdout)
			}
			if !strings.Contains(stderr, "invalid transcript format") {
				t.Fatalf("expected invalid transcript diagnostic, got %q", stderr)
			}
			if strings.Contains(stderr, "Usage:") {
				t.Fatalf("expected no usage text, got %q", stderr)
			}
			if atomic.LoadInt32(&hits) != 0 {
				t.Fatal("model server should not be contacted for malformed input")
			}
		})
	}
}

func TestFlagArgs(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{[]string{`[]`}, []string{"--", `[]`}},
		{[]string{"-1"}, []string{"--", "-1"}},
		{[]string{"-verbose", "-1"}, []string{"-verbose", "--", "-1"}},
		{[]string{"--verbose=true", `[]`}, []string{"--verbose=true", "--", `[]`}},
		{[]string{"--", "-1"}, []string{"--", "-1"}},
		{[]string{"-model", "x"}, []string{"-model", "--", "x"}},
		{[]string{"-h"}, []string{"-h"}},
	}
	for _, tc := range cases {
		got := flagArgs(tc.in)
		if strings.Join(got, "\x00") != strings.Join(tc.want, "\x00") {
			t.Fatalf("flagArgs(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRunBadOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generation.yaml")
	if err := os.WriteFile(path, []byte("top_k: 40\n"), 0o644); err != nil {
		t.Fatalf("write options: %v", err)
	}

	code, _, stderr := runWith(t, map[string]string{configpkg.EnvOptionsFile: path}, `[]`)
	if code != exitFailure {
		t.Fatalf("expected exit %d, got %d", exitFailure, code)
	}
	if !strings.Contains(stderr, "load generation options") {
		t.Fatalf("expected options diagnostic, got %q", stderr)
	}
}

func TestParseCLIConfigDefaults(t *testing.T) {
	cli, err := parseCLIConfig([]string{`[]`}, envFor(nil), io.Discard)
	if err != nil {
		t.Fatalf("parseCLIConfig: %v", err)
	}
	if cli.Transcript != `[]` {
		t.Fatalf("unexpected transcript %q", cli.Transcript)
	}
	if cli.Config.Model != configpkg.DefaultModel || cli.Config.BaseURL != configpkg.DefaultBaseURL {
		t.Fatalf("unexpected config %#v", cli.Config)
	}
	if cli.Config.Verbose {
		t.Fatal("verbose should default to false")
	}
}

func TestParseCLIConfigLoadsOptionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generation.yaml")
	if err := os.WriteFile(path, []byte("max_tokens: 64\n"), 0o644); err != nil {
		t.Fatalf("write options: %v", err)
	}
	cli, err := parseCLIConfig([]string{`[]`}, envFor(map[string]string{configpkg.EnvOptionsFile: path}), io.Discard)
	if err != nil {
		t.Fatalf("parseCLIConfig: %v", err)
	}
	if cli.Config.Generation.MaxTokens != 64 {
		t.Fatalf("expected max_tokens 64, got %d", cli.Config.Generation.MaxTokens)
	}
}
