package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pior/rsp"
	"github.com/pior/rsp/internal/cliconfig"
	"github.com/pior/rsp/promexporter"
)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app holds the state shared by the subcommands.
type app struct {
	cfg     cliconfig.Config
	cfgPath string

	log     zerolog.Logger
	client  *rsp.Client
	metrics *http.Server
}

func main() {
	a := &app{cfg: cliconfig.DefaultConfig()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCommand(a).ExecuteContext(ctx)
	a.teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "rsp",
		Short:         "Command line client for the stream data store",
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgPath, "config", "", "config file (default $HOME/.rsp/config.toml)")
	f.StringVar(&a.cfg.Addr, "addr", a.cfg.Addr, "server address")
	f.IntVar(&a.cfg.PoolSize, "pool-size", a.cfg.PoolSize, "number of connections")
	f.DurationVar(&a.cfg.DialTimeout, "dial-timeout", a.cfg.DialTimeout, "connection timeout")
	f.DurationVar(&a.cfg.RequestTimeout, "timeout", a.cfg.RequestTimeout, "request timeout (0 disables)")
	f.BoolVar(&a.cfg.FailFast, "fail-fast", a.cfg.FailFast, "fail instead of waiting when all connections are busy")
	f.StringVar(&a.cfg.Hash, "hash", a.cfg.Hash, "stream name hash of upload frames (murmur3 or xxh3)")
	f.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	f.StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "log format (json or console)")
	f.StringVar(&a.cfg.MetricsAddr, "metrics-addr", a.cfg.MetricsAddr, "serve Prometheus metrics on this address")

	root.AddCommand(
		newExecCommand(a),
		newPipelineCommand(a),
		newPingCommand(a),
		newCreateCommand(a),
		newMetaCommand(a),
		newListCommand(a),
		newUploadCommand(a),
		newBenchCommand(a),
	)
	return root
}

// setup loads the configuration and connects to the server.
// Precedence: flags, then RSP_* environment, then the config file.
func (a *app) setup(cmd *cobra.Command) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	} else if a.cfgPath != "" {
		return fmt.Errorf("config file not found: %s", a.cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.log = cliconfig.NewLogger(os.Stderr, a.cfg.LogLevel, a.cfg.LogFormat)
	a.log.Debug().Interface("config", a.cfg).Msg("configuration")

	client, err := rsp.NewClient(a.cfg.Addr, a.cfg.ClientConfig(&a.log))
	if err != nil {
		return err
	}
	a.client = client

	if a.cfg.MetricsAddr != "" {
		a.startMetrics()
	}
	return nil
}

func (a *app) startMetrics() {
	a.metrics = promexporter.NewExporter(a.client).NewServer(a.cfg.MetricsAddr)

	go func() {
		a.log.Info().Str("addr", a.cfg.MetricsAddr).Msg("serving metrics")
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// teardown releases what setup acquired. It is safe to call when setup did not run.
func (a *app) teardown() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
	if a.client != nil {
		stats := a.client.Stats()
		a.log.Debug().
			Uint64("commands", stats.Commands).
			Uint64("frames_sent", stats.FramesSent).
			Uint64("errors", stats.Errors).
			Msg("client stats")
		a.client.Close()
	}
}
