package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/codz-dev/uploader/internal/config"
	"github.com/codz-dev/uploader/pkg/server"
	"github.com/codz-dev/uploader/pkg/upload"
)

func serveCmd() *cobra.Command {
	var (
		dir     string
		port    int
		host    string
		page    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a page with live upload widgets",
		Long: `Serve a host page with its upload widgets mounted.

Settings come from uploader.json when present, then UPLOADER_*
environment variables (a .env file is read first), then flags.
Without a page the built-in demo form is served.

Examples:
  uploader serve
  uploader serve --page=templates/new-post.html
  UPLOADER_STAGING_BACKEND=s3 UPLOADER_S3_BUCKET=staging uploader serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(dir)
			if err != nil {
				return err
			}

			// Apply command-line overrides
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if page != "" {
				cfg.Page = page
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, verbose)
		},
	}

	cmd.Flags().StringVarP(&dir, "config", "c", ".", "Directory holding uploader.json")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from uploader.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from uploader.json)")
	cmd.Flags().StringVar(&page, "page", "", "Host page to mount (default: built-in demo)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	return cmd
}

// loadConfig reads .env, uploader.json and UPLOADER_* overrides.
func loadConfig(dir string) (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrNew(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg *config.Config, verbose bool) error {
	level := slog.LevelInfo
	if verbose || cfg.Server.DevMode {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if ctx == nil {
		ctx = context.Background()
	}
	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithLogger(logger)}
	if path := cfg.PagePath(); path != "" {
		opts = append(opts, server.WithPageSource(server.FilePage(path)))
	}

	srv := server.New(serverConfig(cfg), store, opts...)

	success("Serving on http://%s", displayAddress(cfg))
	if cfg.Page == "" {
		info("Page: built-in demo")
	} else {
		info("Page: %s", cfg.PagePath())
	}
	info("Staging: %s", stagingLabel(cfg))
	if cfg.Server.DevMode {
		warn("Dev mode: client script caching disabled")
	}

	return srv.Run()
}

func newStore(ctx context.Context, cfg *config.Config) (upload.Store, error) {
	switch cfg.Staging.Backend {
	case config.BackendS3:
		return upload.NewS3StoreFromEnv(ctx, cfg.Staging.Bucket, cfg.Staging.Prefix,
			cfg.Staging.Region, cfg.Staging.MaxFileSize)
	default:
		return upload.NewDiskStore(cfg.StagingDir(), cfg.Staging.MaxFileSize)
	}
}

// serverConfig maps the file configuration onto the server's.
func serverConfig(cfg *config.Config) *server.ServerConfig {
	d := server.DefaultServerConfig()
	sc := d.Clone().WithAddress(cfg.Address())

	sc.DevMode = cfg.Server.DevMode
	sc.ShutdownTimeout = config.Duration(cfg.Server.ShutdownTimeout, d.ShutdownTimeout)
	sc.MaxUploadSize = cfg.Staging.MaxFileSize
	sc.StagingExpiry = config.Duration(cfg.Staging.Expiry, d.StagingExpiry)
	sc.DeleteTimeout = config.Duration(cfg.Deletion.Timeout, d.DeleteTimeout)
	sc.DeleteRetries = cfg.Deletion.Retries
	sc.PreviewTTL = config.Duration(cfg.Session.PreviewTTL, d.PreviewTTL)
	sc.PageTTL = config.Duration(cfg.Session.PageTTL, d.PageTTL)
	sc.MaxPages = cfg.Session.MaxPages

	sess := sc.SessionConfig
	sess.ReadTimeout = config.Duration(cfg.Session.ReadTimeout, sess.ReadTimeout)
	sess.WriteTimeout = config.Duration(cfg.Session.WriteTimeout, sess.WriteTimeout)
	sess.EventRate = cfg.Session.EventRate
	sess.EventBurst = cfg.Session.EventBurst
	if sess.HeartbeatInterval >= sess.ReadTimeout {
		sess.HeartbeatInterval = sess.ReadTimeout / 2
	}
	return sc
}

func displayAddress(cfg *config.Config) string {
	if cfg.Server.Host == "" {
		return "localhost" + cfg.Address()
	}
	return cfg.Address()
}

func stagingLabel(cfg *config.Config) string {
	if cfg.Staging.Backend == config.BackendS3 {
		return "s3://" + cfg.Staging.Bucket + "/" + cfg.Staging.Prefix
	}
	return cfg.StagingDir() + " (expires after " + config.Duration(cfg.Staging.Expiry, time.Hour).String() + ")"
}
