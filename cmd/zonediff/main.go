package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haukened/zonediff/internal/dns/common/log"
	"github.com/haukened/zonediff/internal/dns/config"
	"github.com/haukened/zonediff/internal/dns/gateways/report"
	"github.com/haukened/zonediff/internal/dns/services/compare"
)

const (
	appName = "zonediff"

	exitOK    = 0
	exitError = 1
	exitDiff  = 2
)

// version is set via ldflags during releases.
var version = "0.1.0-dev"

// errDifferences is returned when --fail-on-diff is set and the zones differ.
var errDifferences = errors.New("zones differ")

// cliFlags holds the values of flags that are not part of AppConfig.
type cliFlags struct {
	names      []string
	namesFiles []string
	current    string
	failOnDiff bool
}

// builder constructs the application from configuration; tests replace it.
type builder func(cfg *config.AppConfig) (*Application, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, buildApplication)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, build builder) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return exitError
	}

	cmd := newRootCmd(cfg, build)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err = cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errDifferences):
		return exitDiff
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(stderr, "Error: interrupted")
		return exitError
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

func newRootCmd(cfg *config.AppConfig, build builder) *cobra.Command {
	var fl cliFlags

	cmd := &cobra.Command{
		Use:   appName + " [flags] <zone> <new_nameserver_ip>",
		Short: "Compare a zone on its current nameserver with a new nameserver",
		Long: `zonediff queries the zone's current authoritative nameserver (found through
the system resolver, or given with --current) and a new nameserver for the same
names and record types (A, AAAA, CNAME, MX, TXT, SRV, PTR), then reports
records missing from the new server, extra records on it, and TTL differences.

Only the apex, names given with --name or --names-file and, with --follow,
the in-zone targets of their MX, SRV and CNAME records are compared.

Settings can also be given as ZONEDIFF_* environment variables.`,
		Version:       version,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			return runCompare(c, cfg, fl, args, build)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&fl.names, "name", "n", nil, "extra owner name to compare, relative to the zone (repeatable)")
	f.StringArrayVar(&fl.namesFiles, "names-file", nil, "YAML, JSON or TOML file (or directory) listing names to compare (repeatable)")
	f.StringVar(&fl.current, "current", "", "IP of the current nameserver, skipping system discovery")
	f.BoolVar(&fl.failOnDiff, "fail-on-diff", false, "exit with status 2 when the zones differ")
	f.BoolVar(&cfg.Follow, "follow", cfg.Follow, "also compare in-zone MX, SRV and CNAME targets")
	f.StringVarP(&cfg.Output, "output", "o", cfg.Output, "output format: text, json or yaml")
	f.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "queries in flight per nameserver")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout of a single query")
	f.IntVar(&cfg.Attempts, "attempts", cfg.Attempts, "tries per query on timeout or unreachable server")
	f.DurationVar(&cfg.Backoff, "backoff", cfg.Backoff, "base wait between tries")
	f.IntVar(&cfg.Port, "port", cfg.Port, "DNS port of both nameservers")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	f.StringVar(&cfg.ResolvConf, "resolv-conf", cfg.ResolvConf, "resolver configuration used to find the current nameserver")

	return cmd
}

func runCompare(c *cobra.Command, cfg *config.AppConfig, fl cliFlags, args []string, build builder) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		return fmt.Errorf("logging configuration error: %w", err)
	}
	format, err := report.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}

	app, err := build(cfg)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	log.Debug(map[string]any{
		"version":     version,
		"env":         cfg.Env,
		"port":        cfg.Port,
		"timeout":     cfg.Timeout.String(),
		"attempts":    cfg.Attempts,
		"concurrency": cfg.Concurrency,
		"follow":      cfg.Follow,
	}, "Starting zonediff")

	rep, err := app.comparer.Compare(c.Context(), compare.Request{
		Zone:          args[0],
		NewServer:     args[1],
		CurrentServer: fl.current,
		Names:         fl.names,
		NamesFiles:    fl.namesFiles,
	})
	if err != nil {
		return err
	}

	if err := report.Render(c.OutOrStdout(), format, rep); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if fl.failOnDiff && !rep.Diff.Identical() {
		return errDifferences
	}
	return nil
}
