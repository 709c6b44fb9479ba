// Command playbackd replays recorded launch telemetry to subscribers.
//
// Usage:
//
//	playbackd [serve] [flags]
//	playbackd import <file>...
//	playbackd control <type> [payload-json]
//	playbackd status
//	playbackd watch <properties> [hz]
//	playbackd version
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/OCAP2/launch-telemetry/internal/config"
)

// Version and BuildDate can be set at build time via ldflags.
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

const ServiceName = "playbackd"

var errUnknownCommand = errors.New("unknown command")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", ServiceName, err)
		os.Exit(1)
	}
}

// run parses args, loads configuration and executes one subcommand.
func run(ctx context.Context, args []string, out io.Writer) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = strings.ToLower(args[0]), args[1:]
	}

	fs := newFlagSet(cmd, out)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := loadConfig(fs); err != nil {
		return err
	}
	server, _ := fs.GetString("server")

	switch cmd {
	case "serve":
		return serve(ctx)
	case "import":
		return runImport(ctx, fs.Args(), out)
	case "control":
		return runControl(ctx, server, fs.Args(), out)
	case "status":
		return runStatus(ctx, server, out)
	case "watch":
		return runWatch(ctx, server, fs.Args(), out)
	case "version":
		fmt.Fprintf(out, "%s %s (built %s)\n", ServiceName, Version, BuildDate)
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, cmd)
	}
}

func newFlagSet(cmd string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(ServiceName+" "+cmd, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.String("config-dir", ".", "directory containing "+config.FileName)
	fs.String("addr", "", "HTTP listen address")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("mission", "", "mission to load at startup")
	fs.String("server", "http://localhost:8080", "playbackd base URL for client commands")
	return fs
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, and lets explicitly set flags override it.
func loadConfig(fs *pflag.FlagSet) error {
	dir, _ := fs.GetString("config-dir")
	if err := config.Load(dir); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	for key, flag := range map[string]string{
		"server.addr":              "addr",
		"logLevel":                 "log-level",
		"simulator.defaultMission": "mission",
	} {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}
