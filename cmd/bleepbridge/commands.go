package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/bleepstore/bleepbridge/internal/config"
	"github.com/bleepstore/bleepbridge/internal/logging"
	"github.com/bleepstore/bleepbridge/internal/metrics"
	"github.com/bleepstore/bleepbridge/internal/server"
	"github.com/bleepstore/bleepbridge/internal/storage"
)

const configKey = "config"

// loadConfig reads the configuration file, applies global flag overrides,
// and installs the logger. It runs before every command.
func loadConfig(cCtx *cli.Context) error {
	cfg, err := config.Load(cCtx.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Command-line flags override config file values.
	if v := cCtx.String("backend"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := cCtx.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := cCtx.String("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if cCtx.App.Metadata == nil {
		cCtx.App.Metadata = make(map[string]interface{})
	}
	cCtx.App.Metadata[configKey] = cfg
	return nil
}

func configFrom(cCtx *cli.Context) *config.Config {
	cfg, _ := cCtx.App.Metadata[configKey].(*config.Config)
	return cfg
}

// newClient builds the instrumented adapter for the configured backend.
func newClient(ctx context.Context, cfg *config.Config) (storage.ObjectStorageClient, storage.BackendType, error) {
	req, err := cfg.Storage.SelectionRequest()
	if err != nil {
		return nil, "", err
	}
	client, err := storage.New(ctx, req)
	if err != nil {
		return nil, "", err
	}
	return storage.Instrument(client, req.Type), req.Type, nil
}

// parseLocation splits "bucket/key" into an object location.
func parseLocation(arg string) (storage.ObjectLocation, error) {
	trimmed := strings.TrimPrefix(arg, "/")
	idx := strings.IndexByte(trimmed, '/')
	if idx <= 0 || idx == len(trimmed)-1 {
		return storage.ObjectLocation{}, fmt.Errorf("invalid object location %q: want bucket/key", arg)
	}
	return storage.ObjectLocation{Bucket: trimmed[:idx], Key: trimmed[idx+1:]}, nil
}

// locationArgs parses exactly n bucket/key arguments.
func locationArgs(cCtx *cli.Context, n int) ([]storage.ObjectLocation, error) {
	if cCtx.NArg() != n {
		return nil, fmt.Errorf("%s: expected %d bucket/key argument(s), got %d", cCtx.Command.Name, n, cCtx.NArg())
	}
	locs := make([]storage.ObjectLocation, 0, n)
	for _, arg := range cCtx.Args().Slice() {
		loc, err := parseLocation(arg)
		if err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	return locs, nil
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the HTTP gateway",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "override listening host (default: from config or 0.0.0.0)"},
		&cli.IntFlag{Name: "port", Usage: "override listening port (default: from config or 9000)"},
		&cli.IntFlag{Name: "shutdown-timeout", Usage: "graceful shutdown timeout in seconds (default: from config or 30)"},
	},
	Action: func(cCtx *cli.Context) error {
		cfg := configFrom(cCtx)
		if v := cCtx.String("host"); v != "" {
			cfg.Server.Host = v
		}
		if v := cCtx.Int("port"); v != 0 {
			cfg.Server.Port = v
		}
		if v := cCtx.Int("shutdown-timeout"); v != 0 {
			cfg.Server.ShutdownTimeout = v
		}

		if cfg.Metrics.Enabled {
			metrics.Register()
		}

		client, backend, err := newClient(cCtx.Context, cfg)
		if err != nil {
			return err
		}

		srv, err := server.New(cfg, server.WithStorageClient(backend, client))
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
		return run(srv, cfg)
	},
}

// run starts the gateway and blocks until it fails or a SIGINT/SIGTERM
// arrives, then drains in-flight requests within the shutdown window.
func run(srv *server.Server, cfg *config.Config) error {
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	// Start the server in a goroutine so we can handle shutdown signals.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		slog.Info("Received signal, shutting down", "signal", sig)

		// Give in-flight requests time to complete.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownWindow())
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
		slog.Info("Server stopped")
		return nil

	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}

var getCommand = &cli.Command{
	Name:      "get",
	Usage:     "download an object",
	ArgsUsage: "BUCKET/KEY",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "-", Usage: "write to `FILE` (- for stdout)"},
	},
	Action: func(cCtx *cli.Context) error {
		locs, err := locationArgs(cCtx, 1)
		if err != nil {
			return err
		}
		client, _, err := newClient(cCtx.Context, configFrom(cCtx))
		if err != nil {
			return err
		}

		rc, err := client.GetObject(cCtx.Context, locs[0])
		if err != nil {
			return err
		}
		defer rc.Close()

		var out io.Writer = cCtx.App.Writer
		if path := cCtx.String("output"); path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		if _, err := io.Copy(out, rc); err != nil {
			return fmt.Errorf("writing object: %w", err)
		}
		return nil
	},
}

var putCommand = &cli.Command{
	Name:      "put",
	Usage:     "upload a file, replacing any existing object",
	ArgsUsage: "BUCKET/KEY FILE",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "content-type", Usage: "MIME type (default: guessed from FILE's extension)"},
	},
	Action: func(cCtx *cli.Context) error {
		if cCtx.NArg() != 2 {
			return fmt.Errorf("put: expected BUCKET/KEY and FILE, got %d argument(s)", cCtx.NArg())
		}
		loc, err := parseLocation(cCtx.Args().Get(0))
		if err != nil {
			return err
		}
		path := cCtx.Args().Get(1)

		var body io.Reader = os.Stdin
		if path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			body = f
		}

		contentType := cCtx.String("content-type")
		if contentType == "" && path != "-" {
			contentType = mime.TypeByExtension(filepath.Ext(path))
		}

		client, _, err := newClient(cCtx.Context, configFrom(cCtx))
		if err != nil {
			return err
		}
		return client.PutObject(cCtx.Context, storage.PutObjectParams{
			Bucket:      loc.Bucket,
			Key:         loc.Key,
			Body:        body,
			ContentType: contentType,
		})
	},
}

var copyCommand = &cli.Command{
	Name:      "cp",
	Usage:     "copy an object within the backend",
	ArgsUsage: "SRC_BUCKET/KEY DST_BUCKET/KEY",
	Action: func(cCtx *cli.Context) error {
		locs, err := locationArgs(cCtx, 2)
		if err != nil {
			return err
		}
		client, _, err := newClient(cCtx.Context, configFrom(cCtx))
		if err != nil {
			return err
		}
		return client.CopyObject(cCtx.Context, storage.CopyObjectParams{Source: locs[0], Destination: locs[1]})
	},
}

var removeCommand = &cli.Command{
	Name:      "rm",
	Usage:     "delete an object",
	ArgsUsage: "BUCKET/KEY",
	Action: func(cCtx *cli.Context) error {
		locs, err := locationArgs(cCtx, 1)
		if err != nil {
			return err
		}
		client, _, err := newClient(cCtx.Context, configFrom(cCtx))
		if err != nil {
			return err
		}
		return client.DeleteObject(cCtx.Context, locs[0])
	},
}
