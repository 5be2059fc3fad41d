// Command transcribe runs the transcription saga against the configured
// provider, either once from the command line or behind an HTTP server.
//
//	transcribe run -file call.wav [-lang en-US] [-vocab a,b] ...
//	transcribe serve
//	transcribe languages
//	transcribe version
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/kbukum/transcribe/bootstrap"
	"github.com/kbukum/transcribe/config"
	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/observability"
	"github.com/kbukum/transcribe/redis"
	"github.com/kbukum/transcribe/server"
	"github.com/kbukum/transcribe/storage"
	"github.com/kbukum/transcribe/transcription/httpapi"
	"github.com/kbukum/transcribe/version"

	_ "github.com/kbukum/transcribe/storage/local"
	_ "github.com/kbukum/transcribe/storage/s3"
	_ "github.com/kbukum/transcribe/transcription/aws"
	_ "github.com/kbukum/transcribe/transcription/azure"
	_ "github.com/kbukum/transcribe/transcription/deepgram"
	_ "github.com/kbukum/transcribe/transcription/google"
	_ "github.com/kbukum/transcribe/transcription/whisper"
)

const serviceName = "transcribe"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: transcribe [-config file] [-env file] <run|serve|languages|version> [flags]")
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	global.SetOutput(stderr)
	configFile := global.String("config", "", "config file (default: standard lookup)")
	envFile := global.String("env", "", ".env file (default: standard lookup)")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		usage(stderr)
		return 2
	}
	cmd, rest := global.Arg(0), global.Args()[1:]

	if cmd == "version" {
		writeJSON(stdout, version.Get())
		return 0
	}

	cfg, err := loadConfig(*configFile, *envFile)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}

	// Commands that print JSON keep stdout for the result.
	if cmd != "serve" {
		cfg.Logging.Output = "stderr"
	}

	switch cmd {
	case "run":
		return runOnce(ctx, cfg, rest, stdout, stderr)
	case "serve":
		return serve(ctx, cfg, stderr)
	case "languages":
		return languages(ctx, cfg, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
}

func loadConfig(configFile, envFile string) (*Config, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg := &Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp registers storage, redis and the transcription service with a
// bootstrap app, plus the observability exporters.
func newApp(cfg *Config, opts ...bootstrap.Option) (*bootstrap.App[*Config], *service, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	var st *storage.Component
	if cfg.Storage.Enabled {
		st = storage.NewComponent(cfg.Storage.Config, cfg.Storage.ProviderConfig(), app.Logger)
		if err := app.RegisterComponent(st); err != nil {
			return nil, nil, err
		}
	}
	var rd *redis.Component
	if cfg.Redis.Enabled {
		rd = redis.NewComponent(cfg.Redis, app.Logger)
		if err := app.RegisterComponent(rd); err != nil {
			return nil, nil, err
		}
	}

	// The otel globals delegate, so the meter the service creates during
	// StartAll reports through exporters installed here.
	var shutdown observability.ShutdownFunc
	app.OnStart(func(ctx context.Context) error {
		var err error
		shutdown, err = observability.Init(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
		return err
	})
	app.OnStop(func(ctx context.Context) error {
		if shutdown == nil {
			return nil
		}
		return shutdown(ctx)
	})

	svc := newService(cfg, st, rd, app.Logger)
	if err := app.RegisterComponent(svc); err != nil {
		return nil, nil, err
	}
	return app, svc, nil
}

// runOnce transcribes one file and prints the response.
func runOnce(ctx context.Context, cfg *Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f requestFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	req, err := f.request()
	if err != nil {
		writeError(stderr, err)
		return 1
	}

	app, svc, err := newApp(cfg)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	err = app.RunTask(ctx, func(ctx context.Context) error {
		resp, err := svc.Execute(ctx, req)
		if err != nil {
			return errors.Ensure(req.RequestID, err)
		}
		writeJSON(stdout, resp)
		return nil
	})
	if err != nil {
		writeError(stderr, err)
		return 1
	}
	return 0
}

// serve runs the HTTP server until a signal arrives.
func serve(ctx context.Context, cfg *Config, stderr io.Writer) int {
	app, svc, err := newApp(cfg)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}

	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyDefaults(cfg.Name, app.Components.HealthAll)
	httpapi.NewHandler(svc, svc, app.Logger).Register(srv.GinEngine())
	srv.GinEngine().NoRoute(httpapi.NotFound)
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}

	if err := app.Run(ctx); err != nil {
		app.Logger.Error("Server stopped with error", logger.Fields(logger.FieldError, err.Error()))
		return 1
	}
	return 0
}

// languages prints the language codes the active backend accepts.
func languages(ctx context.Context, cfg *Config, stdout, stderr io.Writer) int {
	app, svc, err := newApp(cfg)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	err = app.RunTask(ctx, func(context.Context) error {
		langs := svc.Languages()
		if langs == nil {
			langs = []string{}
		}
		writeJSON(stdout, httpapi.LanguagesResponse{Provider: cfg.Provider, Languages: langs})
		return nil
	})
	if err != nil {
		writeError(stderr, err)
		return 1
	}
	return 0
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// writeError writes the error envelope the HTTP API would return.
func writeError(w io.Writer, err error) {
	writeJSON(w, errors.Ensure("", err).ToResponse())
}

func errNotStarted(req request) *errors.AppError {
	var rid string
	if req != nil {
		rid = req.RequestID
	}
	err := errors.New(errors.ErrCodeInternal, "transcription service is not started", http.StatusServiceUnavailable)
	err.RequestID = rid
	return err
}
