package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	configpkg "github.com/minhyannv/gpt4all-chat-go/pkg/config"
)

// errUsage marks argument errors that should print usage and exit 2.
var errUsage = errors.New("usage")

// cliConfig is everything one invocation needs.
type cliConfig struct {
	Config     configpkg.Config
	Transcript string
}

// parseCLIConfig loads env + flags + the positional transcript argument.
func parseCLIConfig(args []string, getenv func(string) string, stderr io.Writer) (cliConfig, error) {
	fs := flag.NewFlagSet("gpt4all-chat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs, stderr) }
	verbose := fs.Bool("verbose", false, "Debug logging to stderr")
	if err := fs.Parse(flagArgs(args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return cliConfig{}, err
		}
		return cliConfig{}, fmt.Errorf("%w: %v", errUsage, err)
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return cliConfig{}, fmt.Errorf("%w: expected exactly one transcript argument, got %d", errUsage, fs.NArg())
	}

	cfg, err := configpkg.FromEnv(configpkg.DefaultConfig(), getenv)
	if err != nil {
		return cliConfig{}, err
	}
	cfg.Verbose = *verbose
	cfg = configpkg.Normalize(cfg)

	if cfg.OptionsFile != "" {
		gen, err := configpkg.LoadGenerationOptions(cfg.OptionsFile)
		if err != nil {
			return cliConfig{}, fmt.Errorf("load generation options: %w", err)
		}
		cfg.Generation = gen
	}

	return cliConfig{
		Config:     cfg,
		Transcript: fs.Arg(0),
	}, nil
}

// flagArgs ends flag parsing before the first argument that does not look
// like a flag name, so a transcript such as "-1" reaches transcript.Parse
// instead of being reported as an unknown flag.
func flagArgs(args []string) []string {
	for i, arg := range args {
		if arg == "--" {
			return args
		}
		if !looksLikeFlag(arg) {
			out := make([]string, 0, len(args)+1)
			out = append(out, args[:i]...)
			out = append(out, "--")
			return append(out, args[i:]...)
		}
	}
	return args
}

func looksLikeFlag(arg string) bool {
	name := strings.TrimPrefix(arg, "-")
	if name == arg {
		return false
	}
	name = strings.TrimPrefix(name, "-")
	if name == "" {
		return false
	}
	c := name[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func printUsage(fs *flag.FlagSet, out io.Writer) {
	_, _ = fmt.Fprintln(out, "Usage: gpt4all-chat [-verbose] [--] '<json transcript>'")
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, `Transcript: [{"role":"system|user|assistant","content":"..."}, ...]`)
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Use -- before a transcript that starts with a dash.")
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Flags:")
	fs.PrintDefaults()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Environment (also read from .env):")
	_, _ = fmt.Fprintf(out, "  %-22s model server URL (default %s)\n", configpkg.EnvBaseURL, configpkg.DefaultBaseURL)
	_, _ = fmt.Fprintf(out, "  %-22s model identifier (default %s)\n", configpkg.EnvModel, configpkg.DefaultModel)
	_, _ = fmt.Fprintf(out, "  %-22s API key sent to the server\n", configpkg.EnvAPIKey)
	_, _ = fmt.Fprintf(out, "  %-22s request timeout, e.g. 90s\n", configpkg.EnvTimeout)
	_, _ = fmt.Fprintf(out, "  %-22s YAML generation options file\n", configpkg.EnvOptionsFile)
}
