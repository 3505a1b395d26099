package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pinktranscriber/internal/client"
	"pinktranscriber/internal/transport"
)

func supportedList() string { return client.FormatList() }

func newHealthCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:     "health",
		Short:   "Check if transcription server is running",
		Example: "  pink-transcriber health",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd.Context(), opts)
		},
	}
}

func newTranscribeCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:     "transcribe <audio_file>",
		Short:   "Transcribe an audio file",
		Example: "  pink-transcriber transcribe ~/voice/note.ogg",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd.Context(), opts, args[0])
		},
	}
}

func (o *Options) client() (*client.Client, error) {
	cfg, err := o.resolve()
	if err != nil {
		return nil, err
	}
	tr, err := transport.Select(cfg.Transport, cfg.SocketPath, cfg.TCPAddr)
	if err != nil {
		return nil, err
	}
	return client.New(tr), nil
}

func runHealth(ctx context.Context, opts *Options) error {
	c, err := opts.client()
	if err != nil {
		return err
	}
	err = c.Health(ctx)
	var re *client.RemoteError
	switch {
	case err == nil:
		fmt.Fprintln(opts.stdout, "OK")
		return nil
	case errors.Is(err, client.ErrModelLoading),
		errors.Is(err, client.ErrServerNotRunning),
		errors.Is(err, client.ErrServerTimeout):
		return fail(1, "%s", err.Error())
	case errors.As(err, &re):
		return fail(1, "%s", re.Message)
	default:
		return fail(1, "%s", err.Error())
	}
}

func runTranscribe(ctx context.Context, opts *Options, path string) error {
	c, err := opts.client()
	if err != nil {
		return err
	}
	text, err := c.Transcribe(ctx, path)
	if err != nil {
		var ve *client.ValidationError
		if errors.As(err, &ve) && ve.Reason != "File not found" && ve.Reason != "Not a file" {
			fmt.Fprintln(opts.stderr, "ERROR: "+err.Error())
			fmt.Fprintln(opts.stderr, "Supported formats: "+supportedList())
			return &exitError{code: 1}
		}
		return fail(1, "%s", err.Error())
	}
	fmt.Fprintln(opts.stdout, text)
	return nil
}
