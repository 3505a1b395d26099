package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pinktranscriber/internal/common/fsutil"
	"pinktranscriber/internal/config"
	"pinktranscriber/internal/httpapi"
	"pinktranscriber/internal/manager"
	"pinktranscriber/internal/registry"
	"pinktranscriber/internal/server"
	"pinktranscriber/internal/singleton"
	"pinktranscriber/internal/transport"
)

// serveFlags override config values when set.
type serveFlags struct {
	transport    string
	socket       string
	tcpAddr      string
	modelDir     string
	model        string
	language     string
	threads      int
	httpAddr     string
	autoDownload bool
	processScan  bool
}

func (f serveFlags) apply(cfg config.Config) config.Config {
	return cfg.Merge(config.Config{
		Transport:    f.transport,
		SocketPath:   f.socket,
		TCPAddr:      f.tcpAddr,
		ModelDir:     f.modelDir,
		Model:        f.model,
		Language:     f.language,
		Threads:      f.threads,
		HTTPAddr:     f.httpAddr,
		AutoDownload: f.autoDownload,
		ProcessScan:  f.processScan,
	})
}

func newServeCmd(opts *Options) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the transcription server in the foreground",
		Example: "  pink-transcriber serve\n  pink-transcriber serve --transport tcp --http-addr 127.0.0.1:9090",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve()
			if err != nil {
				return err
			}
			cfg = f.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := opts.logger(cfg)
			return runServe(cmd.Context(), cfg, log)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.transport, "transport", "", "Transport: auto|unix|tcp")
	fl.StringVar(&f.socket, "socket", "", "Unix socket path (default "+config.DefaultSocketPath+")")
	fl.StringVar(&f.tcpAddr, "tcp-addr", "", "Loopback TCP address (default "+config.DefaultTCPAddr+")")
	fl.StringVar(&f.modelDir, "model-dir", "", "Model cache directory (defaults PINK_TRANSCRIBER_MODEL_DIR)")
	fl.StringVar(&f.model, "model", "", "Full-precision model file (default "+config.DefaultModel+")")
	fl.StringVar(&f.language, "language", "", "Spoken language code, or auto")
	fl.IntVar(&f.threads, "threads", 0, "Engine threads (0 = physical cores)")
	fl.StringVar(&f.httpAddr, "http-addr", "", "Optional HTTP status address, e.g. 127.0.0.1:9090")
	fl.BoolVar(&f.autoDownload, "auto-download", false, "Download missing catalog models into the cache directory")
	fl.BoolVar(&f.processScan, "process-scan", false, "Refuse to start when another server process is found")
	return cmd
}

func runServe(parent context.Context, cfg config.Config, log zerolog.Logger) error {
	tr, err := transport.Select(cfg.Transport, cfg.SocketPath, cfg.TCPAddr)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	guard := &singleton.Guard{Transport: tr, LockPath: cfg.LockPath, Strict: cfg.ProcessScan, Log: log}
	if err := guard.Acquire(ctx); err != nil {
		if errors.Is(err, singleton.ErrAlreadyRunning) {
			log.Error().Err(err).Str("event", "already_running").Msg("another server is already running")
			return &exitError{code: 1}
		}
		return err
	}
	defer guard.Release()

	local, _ := fsutil.ExecutableModelsDir()
	modelDir, err := fsutil.ResolveModelCacheDir(cfg.ModelDir, local)
	if err != nil {
		return err
	}
	log.Info().Str("model_dir", modelDir).Str("transport", transport.String(tr)).Msg("starting server")

	loader := manager.NewWhisperLoader(manager.WhisperOptions{
		ModelDir:       modelDir,
		Model:          cfg.Model,
		QuantizedModel: cfg.QuantizedModel,
		AutoDownload:   cfg.AutoDownload,
		Downloader:     registry.NewDownloader(log),
		Language:       cfg.Language,
		BeamSize:       cfg.BeamSize,
		Threads:        cfg.Threads,
	}, log)
	mgr := manager.NewWithConfig(manager.ManagerConfig{Loader: loader, Logger: &log, Model: cfg.Model})
	defer mgr.Close()

	ln, err := tr.Listen()
	if err != nil {
		if errors.Is(err, transport.ErrAlreadyRunning) {
			log.Error().Err(err).Str("event", "already_running").Msg("another server is already running")
			return &exitError{code: 1}
		}
		return err
	}
	srv := server.New(server.Config{
		Transport:   tr,
		Model:       mgr,
		Logger:      &log,
		ReadTimeout: cfg.ReadTimeout(),
	})
	serveErr := make(chan error, 1)
	// The worker outlives the signal so the in-service job can finish.
	go func() { serveErr <- srv.Serve(context.WithoutCancel(ctx), ln) }()

	if cfg.HTTPAddr != "" {
		httpapi.SetLogger(log)
		httpapi.SetCORSOptions(len(cfg.CORSOrigins) > 0, cfg.CORSOrigins, nil, nil)
		go func() {
			if err := httpapi.ListenAndServe(ctx, cfg.HTTPAddr, httpapi.NewMux(srv), cfg.ShutdownTimeout()); err != nil {
				log.Error().Err(err).Str("addr", cfg.HTTPAddr).Msg("http status server failed")
			}
		}()
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status listening")
	}

	loadErr := make(chan error, 1)
	go func() { loadErr <- mgr.Load(ctx) }()

	var exit error
	for exit == nil {
		select {
		case <-ctx.Done():
			log.Info().Str("event", "signal").Msg("shutting down")
			exit = context.Canceled
		case err := <-loadErr:
			if err != nil {
				log.Error().Err(err).Str("event", "load_failed").Msg("cannot serve without a model")
				exit = &exitError{code: 1}
				break
			}
			log.Info().Str("device", mgr.Profile().String()).Str("event", "ready").Msg("ready for transcription")
			loadErr = nil
		case err := <-serveErr:
			log.Error().Err(err).Msg("listener stopped")
			exit = err
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
	if errors.Is(exit, context.Canceled) || errors.Is(exit, server.ErrServerClosed) {
		return nil
	}
	return exit
}
