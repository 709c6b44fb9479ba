package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/OCAP2/launch-telemetry/internal/api"
	"github.com/OCAP2/launch-telemetry/internal/config"
	"github.com/OCAP2/launch-telemetry/internal/dispatcher"
	"github.com/OCAP2/launch-telemetry/internal/handlers"
	"github.com/OCAP2/launch-telemetry/internal/influx"
	"github.com/OCAP2/launch-telemetry/internal/logging"
	"github.com/OCAP2/launch-telemetry/internal/metrics"
	"github.com/OCAP2/launch-telemetry/internal/mission"
	"github.com/OCAP2/launch-telemetry/internal/monitor"
	intOtel "github.com/OCAP2/launch-telemetry/internal/otel"
	"github.com/OCAP2/launch-telemetry/internal/perfstats"
	"github.com/OCAP2/launch-telemetry/internal/simulator"
	"github.com/OCAP2/launch-telemetry/internal/transport/port"
)

const shutdownTimeout = 10 * time.Second

// serve runs the simulator and its HTTP surface until ctx is cancelled.
func serve(ctx context.Context) (err error) {
	sessionStart := time.Now()
	logsDir := viper.GetString("logsDir")

	logFile, err := logging.OpenLogFile(logsDir, ServiceName, sessionStart)
	if err != nil {
		return err
	}
	defer logFile.Close()

	otelCfg := config.GetOTelConfig()
	var otelFile *os.File
	if otelCfg.Enabled {
		otelFile, err = logging.OpenLogFile(logsDir, ServiceName+".otel", sessionStart)
		if err != nil {
			return err
		}
		defer otelFile.Close()
	}
	provider, err := intOtel.New(ctx, intOtel.FromConfig(otelCfg, writerOrNil(otelFile)))
	if err != nil {
		return fmt.Errorf("failed to set up OpenTelemetry: %w", err)
	}

	mctx := mission.NewContext()
	logOpts := []logging.Option{
		logging.WithServiceName(otelCfg.ServiceName),
		logging.WithContext(logging.MissionAttrs(mctx)),
	}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGelfWriter(gl.Address)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Graylog disabled: %v\n", err)
		} else {
			logOpts = append(logOpts, logging.WithGelf(w))
			defer w.Close()
		}
	}

	logManager := logging.NewSlogManager()
	logManager.Setup(io.MultiWriter(os.Stderr, logFile), viper.GetString("logLevel"), provider.LoggerProvider(), logOpts...)
	log := logManager.Logger()
	slog.SetDefault(log)
	log.Info("Starting", "service", ServiceName, "version", Version, "buildDate", BuildDate)

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i](); cerr != nil {
				err = multierror.Append(err, cerr)
			}
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if ferr := logManager.Flush(flushCtx); ferr != nil {
			err = multierror.Append(err, ferr)
		}
		if serr := provider.Shutdown(flushCtx); serr != nil {
			err = multierror.Append(err, serr)
		}
	}()

	store, closeStore, err := createMissionStore(config.GetStoreConfig(), config.GetDBConfig(), log)
	if err != nil {
		return err
	}
	closers = append(closers, closeStore)

	perfOpts := []perfstats.Option{perfstats.WithLogger(log)}
	if sink := connectInflux(ctx, config.GetInfluxConfig(), log); sink != nil {
		perfOpts = append(perfOpts, perfstats.WithSink(sink))
		closers = append(closers, sink.Close)
	}
	perf := perfstats.New(perfOpts...)

	simCfg := config.GetSimulatorConfig()
	host, control := port.NewPair(simCfg.PortBuffer)
	closers = append(closers, host.Close)

	sim, err := simulator.New(store, simulator.Config{
		SourceRateHz:  simCfg.SourceRateHz,
		PlaybackSpeed: simCfg.PlaybackSpeed,
		Control:       control,
		Perf:          perf,
		Context:       mctx,
		Logger:        log,
	})
	if err != nil {
		return err
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	handlers.NewService(sim, perf, log).Register(d)

	srvCfg := config.GetServerConfig()
	server := api.NewServer(api.Options{
		Simulator:      sim,
		Control:        d,
		Missions:       store,
		Perf:           perf,
		Metrics:        metrics.New(),
		Logger:         log,
		SubscribeRate:  srvCfg.SubscribeRate,
		SubscribeBurst: srvCfg.SubscribeBurst,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	simDone := make(chan error, 1)
	go func() { simDone <- sim.Run(runCtx) }()
	go server.WatchControl(runCtx, host.Receive())

	// dispatcher and simulator stop before the store they read from closes
	closers = append(closers, func() error {
		d.Close()
		cerr := sim.Close()
		if runErr := <-simDone; runErr != nil && !errors.Is(runErr, context.Canceled) {
			cerr = multierror.Append(cerr, runErr)
		}
		return cerr
	})

	if monCfg := config.GetMonitorConfig(); monCfg.Enabled {
		var statusPath string
		if monCfg.StatusFile != "" {
			statusPath = filepath.Join(logsDir, monCfg.StatusFile)
		}
		mon := monitor.NewService(monitor.Dependencies{
			Simulator:  sim,
			Perf:       perf,
			Logger:     log,
			StatusPath: statusPath,
			Interval:   monCfg.Interval,
		})
		if err := mon.Start(runCtx); err != nil {
			log.Warn("Status monitor disabled", "error", err)
		} else {
			closers = append(closers, func() error { mon.Stop(); return nil })
		}
	}

	if simCfg.DefaultMission != "" {
		if err := sim.UpdateMission(ctx, simCfg.DefaultMission); err != nil {
			log.Warn("Failed to select default mission", "mission", simCfg.DefaultMission, "error", err)
		} else {
			log.Info("Default mission selected", "mission", simCfg.DefaultMission)
		}
	}

	err = server.ListenAndServe(runCtx, srvCfg.Addr)
	log.Info("Shutting down")
	return err
}

// connectInflux returns nil when the sink is disabled or cannot be set up.
// An unreachable server still yields a manager writing to its backup file.
func connectInflux(ctx context.Context, cfg config.InfluxConfig, log *slog.Logger) *influx.Manager {
	if !cfg.Enabled {
		return nil
	}
	m := influx.NewManager(cfg, log)
	if err := m.Connect(ctx); err != nil {
		log.Warn("Perf stats sink unavailable", "error", err)
		_ = m.Close()
		return nil
	}
	return m
}

func writerOrNil(f *os.File) io.Writer {
	if f == nil {
		return nil
	}
	return f
}
