// Package cli wires the pink-transcriber command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pinktranscriber/internal/config"
	"pinktranscriber/internal/logging"
)

// Version is set at build time via -ldflags "-X pinktranscriber/internal/cli.Version=...".
var Version = "dev"

// exitError carries a process exit code through cobra. Its message has
// already been printed when msg is empty.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func fail(code int, format string, a ...any) error {
	return &exitError{code: code, msg: fmt.Sprintf(format, a...)}
}

// Options holds the persistent flags.
type Options struct {
	ConfigPath string
	LogLevel   string
	Verbose    bool

	stdout io.Writer
	stderr io.Writer
}

func (o *Options) resolve() (config.Config, error) {
	cfg, err := config.Resolve(o.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func (o *Options) logger(cfg config.Config) zerolog.Logger {
	return logging.New(o.stderr, logging.Options{Level: cfg.LogLevel, Verbose: cfg.Verbose})
}

// buildRootCmd constructs the command tree writing to stdout/stderr.
func buildRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &Options{stdout: stdout, stderr: stderr}
	var health bool

	root := &cobra.Command{
		Use:           "pink-transcriber [audio_file]",
		Short:         "Voice transcription against a resident whisper model",
		Long:          "Transcribe an audio file using the running pink-transcriber server.\n\nSupported formats: " + supportedList(),
		Version:       Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if health {
				return runHealth(cmd.Context(), opts)
			}
			if len(args) == 0 {
				_ = cmd.Help()
				return &exitError{code: 1}
			}
			return runTranscribe(cmd.Context(), opts, args[0])
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.Flags().BoolVar(&health, "health", false, "Check if transcription server is running")

	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Path to config file (.yaml/.yml/.json/.toml)")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level: debug|info|warn|error (defaults PINK_TRANSCRIBER_LOG_LEVEL or info)")
	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Debug logging (same as VERBOSE=1)")

	root.AddCommand(
		newServeCmd(opts),
		newHealthCmd(opts),
		newTranscribeCmd(opts),
		newModelsCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(args []string) int {
	return execute(args, os.Stdout, os.Stderr)
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := buildRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(stderr, "ERROR: "+ee.msg)
		}
		return ee.code
	}
	fmt.Fprintln(stderr, "ERROR: "+err.Error())
	return 1
}

func newVersionCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(opts.stdout, "pink-transcriber %s\n", Version)
		},
	}
}
