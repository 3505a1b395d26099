package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pinktranscriber/internal/common/fsutil"
	"pinktranscriber/internal/registry"
)

func newModelsCmd(opts *Options) *cobra.Command {
	var dirFlag string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect and prefetch whisper models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("models requires a subcommand: list|download")
		},
	}
	cmd.PersistentFlags().StringVar(&dirFlag, "model-dir", "", "Model cache directory (defaults PINK_TRANSCRIBER_MODEL_DIR)")

	modelDir := func() (string, error) {
		cfg, err := opts.resolve()
		if err != nil {
			return "", err
		}
		override := cfg.ModelDir
		if dirFlag != "" {
			override = dirFlag
		}
		local, _ := fsutil.ExecutableModelsDir()
		return fsutil.ResolveModelCacheDir(override, local)
	}

	list := &cobra.Command{
		Use:     "list",
		Short:   "List catalog models and which are downloaded",
		Example: "  pink-transcriber models list",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := modelDir()
			if err != nil {
				return err
			}
			local, err := registry.LoadDir(dir)
			if err != nil {
				return err
			}
			present := make(map[string]bool, len(local))
			for _, m := range local {
				present[m.ID] = true
			}
			tw := tabwriter.NewWriter(opts.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSIZE\tLOCAL")
			for _, m := range registry.Catalog {
				mark := ""
				if present[m.ID] {
					mark = "yes"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Name, humanSize(m.SizeBytes), mark)
			}
			for _, m := range local {
				if _, known := registry.Lookup(m.ID); !known {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Name, humanSize(m.SizeBytes), "yes")
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(opts.stdout, "\nmodel dir: %s\n", dir)
			return nil
		},
	}

	download := &cobra.Command{
		Use:     "download <model>...",
		Short:   "Download catalog models into the cache directory",
		Example: "  pink-transcriber models download ggml-large-v3.bin ggml-large-v3-q8_0.bin",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := modelDir()
			if err != nil {
				return err
			}
			cfg, err := opts.resolve()
			if err != nil {
				return err
			}
			dl := registry.NewDownloader(opts.logger(cfg))
			for _, id := range args {
				if _, ok := registry.Lookup(id); !ok {
					return fmt.Errorf("unknown model %q (see 'pink-transcriber models list')", id)
				}
				m, err := dl.Ensure(cmd.Context(), dir, id, true)
				if err != nil {
					return err
				}
				fmt.Fprintln(opts.stdout, m.Path)
			}
			return nil
		},
	}

	cmd.AddCommand(list, download)
	return cmd
}

func humanSize(n int64) string {
	const unit = 1000
	if n <= 0 {
		return "-"
	}
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "kMGT"[exp])
}
