// Package main flattens a JSON chat transcript into a prompt, asks a local
// GPT4All model for a reply and prints it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"

	"github.com/minhyannv/gpt4all-chat-go/pkg/backend"
	"github.com/minhyannv/gpt4all-chat-go/pkg/chat"
	loggerpkg "github.com/minhyannv/gpt4all-chat-go/pkg/logger"
	"github.com/minhyannv/gpt4all-chat-go/pkg/transcript"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// main is the program entry point.
func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit status.
func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	cli, err := parseCLIConfig(args, getenv, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	case err != nil:
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}

	appLogger := loggerpkg.NewWriterLogger(stderr, cli.Config.Verbose)

	// Malformed input must fail before the model is touched.
	messages, err := transcript.Parse(cli.Transcript)
	if err != nil {
		return fail(stderr, appLogger, err)
	}

	gen, err := backend.Load(ctx, cli.Config, backend.WithLogger(appLogger))
	if err != nil {
		return fail(stderr, appLogger, err)
	}
	loggerpkg.Debug(appLogger, "backend loaded", loggerpkg.Fields{
		"model":    gen.Model(),
		"messages": len(messages),
	})

	app, err := chat.New(ctx, gen, chat.WithLogger(appLogger))
	if err != nil {
		return fail(stderr, appLogger, err)
	}

	reply, err := app.ReplyTo(messages)
	if err != nil {
		return fail(stderr, appLogger, err)
	}

	_, _ = fmt.Fprintln(stdout, reply)
	return exitOK
}

func fail(stderr io.Writer, l loggerpkg.Logger, err error) int {
	loggerpkg.Debug(l, "invocation failed", loggerpkg.Fields{
		"kind": chat.Kind(err).String(),
	})
	_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitFailure
}
