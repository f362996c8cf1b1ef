package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/neutronworks/scintcam-simulator/core"
	"github.com/neutronworks/scintcam-simulator/internal/envcfg"
	"github.com/neutronworks/scintcam-simulator/internal/logging"
	"github.com/neutronworks/scintcam-simulator/internal/macro"
	"github.com/neutronworks/scintcam-simulator/internal/observability"
	"github.com/neutronworks/scintcam-simulator/internal/sim"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	setupMacro := flag.String("setup-macro", "", "macro executed before geometry assembly")
	runMacro := flag.String("macro", "", "macro executed after initialization")
	catalogPath := flag.String("catalog", "", "JSON material catalog with extra scintillator recipes")
	outDir := flag.String("out-dir", ".", "directory for event CSV batch files")
	windows := flag.Int("windows", 0, "beam windows to run after macros; 0 skips the run")
	interactive := flag.Bool("interactive", false, "force an interactive command session after macros")
	flag.Parse()

	cfg, err := envcfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	registry := prometheus.NewRegistry()
	commandMetrics, err := observability.NewCommandCollector(registry)
	if err != nil {
		fatal(log, "failed to initialise command metrics", err)
	}
	runMetrics, err := observability.NewRunCollector(registry)
	if err != nil {
		fatal(log, "failed to initialise run metrics", err)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddr, commandMetrics, log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ServiceName: cfg.TracingServiceName,
		Exporter:    cfg.TracingExporter,
		Endpoint:    cfg.TracingEndpoint,
		SampleRatio: cfg.TracingSampleRatio,
	}, log)
	if err != nil {
		fatal(log, "failed to initialise tracing", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	// Synthetic engine; a transport-accurate engine satisfies
	// core.Engine the same way.
	engine := core.NewFakeEngine()

	rt, err := sim.New(engine, log,
		sim.WithCommandCollector(commandMetrics),
		sim.WithRunCollector(runMetrics),
		sim.WithOutputDir(*outDir),
		sim.WithHelpWriter(os.Stdout),
	)
	if err != nil {
		fatal(log, "failed to build simulator runtime", err)
	}

	if *catalogPath != "" {
		if err := rt.LoadCatalog(*catalogPath); err != nil {
			fatal(log, "failed to load material catalog", err)
		}
	}

	dispatcher := rt.Dispatcher(ctx)
	if *setupMacro != "" {
		log.Info("running setup macro", logging.String("path", *setupMacro))
		if err := macro.RunFile(dispatcher, *setupMacro); err != nil {
			fatal(log, "setup macro failed", err)
		}
	}

	if err := rt.Bootstrap(ctx); err != nil {
		fatal(log, "bootstrap failed", err)
	}

	if *runMacro != "" {
		log.Info("running macro", logging.String("path", *runMacro))
		if err := macro.RunFile(dispatcher, *runMacro); err != nil {
			fatal(log, "macro failed", err)
		}
	}

	if *windows > 0 {
		report, err := rt.Run(ctx, *windows)
		if err != nil {
			fatal(log, "beam run failed", err)
		}
		log.Info("beam run finished",
			logging.String("run_id", report.RunID),
			logging.Int("pulses", report.Pulses),
			logging.Any("neutrons", report.Neutrons),
			logging.Any("events", report.Events),
			logging.Any("files", report.Files))
	}

	// With no macro and no windows requested there is nothing batch to
	// do, so fall into the console unless one was forced anyway.
	if *interactive || (*runMacro == "" && *windows == 0) {
		console := &macro.Console{Dispatch: dispatcher, In: os.Stdin, Out: os.Stdout}
		if err := console.Run(); err != nil {
			log.Warn("console session ended with error", logging.String("error", err.Error()))
		}
	}

	fmt.Println(rt.Stats().String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.CommandCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info("serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func fatal(log logging.Logger, msg string, err error) {
	log.Error(msg, logging.String("error", err.Error()))
	os.Exit(1)
}
