package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/NavarchProject/framekit/pkg/config"
	"github.com/NavarchProject/framekit/pkg/frame"
	"github.com/NavarchProject/framekit/pkg/metrics"
)

func runCmd() *cobra.Command {
	var (
		configPath  string
		duration    time.Duration
		metricsAddr string
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the frame loop with a workload",
		Long: `Run the frame loop at the configured frame rate and schedule the
timers of every Workload in the configuration. Without a configuration a
built-in demo workload is used.

Examples:
  # Run the demo workload for five seconds
  framekit run --duration 5s

  # Run a workload file and expose Prometheus metrics
  framekit run --config workload.yaml --metrics-addr :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				cfg.Runtime.Spec.MetricsAddr = metricsAddr
			}
			return runFrames(cfg, duration, quiet)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 3*time.Second, "How long to run (0 = until interrupted)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Skip the summary output")

	return cmd
}

// loadConfig reads, defaults and validates the configuration at path. An
// empty path yields the default configuration.
func loadConfig(path string) (*config.Config, error) {
	cfg := &config.Config{}
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runFrames(cfg *config.Config, duration time.Duration, quiet bool) error {
	spec := cfg.Runtime.Spec
	logger := setupLogger(spec.LogLevel)

	workloads := cfg.Workloads
	if len(workloads) == 0 {
		workloads = []*config.Workload{defaultWorkload()}
	}

	rt := frame.New(spec, frame.WithLogger(logger))
	collector := metrics.NewCollector(rt)
	wl := newWorkload(rt, workloads, collector, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	var metricsServer *http.Server
	if spec.MetricsAddr != "" {
		metricsServer = serveMetrics(spec.MetricsAddr, collector, logger)
	}

	if !quiet {
		printHeader(cfg, workloads, duration)
	}

	started := time.Now()
	err := rt.Run(ctx)
	rt.Close()
	elapsed := time.Since(started)

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down metrics server", slog.String("error", err.Error()))
		}
	}

	if err != nil {
		return fmt.Errorf("frame loop failed: %w", err)
	}
	if !quiet {
		printSummary(rt.Stats(), elapsed)
		printTimers(os.Stdout, wl)
	}
	return nil
}

func serveMetrics(addr string, collector *metrics.Collector, logger *slog.Logger) *http.Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector, collectors.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()
	logger.Info("metrics server started", slog.String("addr", addr))
	return srv
}

func printHeader(cfg *config.Config, workloads []*config.Workload, duration time.Duration) {
	pterm.DefaultHeader.WithBackgroundStyle(pterm.NewStyle(pterm.BgDarkGray)).
		WithTextStyle(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold)).
		Println("FRAMEKIT: " + cfg.Runtime.Metadata.Name)

	spec := cfg.Runtime.Spec
	timers := 0
	for _, wl := range workloads {
		timers += len(wl.Spec.Timers)
	}

	runFor := "until interrupted"
	if duration > 0 {
		runFor = duration.String()
	}
	panel := pterm.DefaultBox.WithTitle("Configuration").WithTitleTopCenter()
	panel.Println(fmt.Sprintf(
		"Frame rate: %g fps\nPhysics rate: %g Hz\nWorkers: %d\nWorkloads: %d (%d timers)\nDuration: %s",
		spec.FrameRate, spec.PhysicsRate, spec.Workers, len(workloads), timers, runFor,
	))
	fmt.Println()
}

func printSummary(s frame.Stats, elapsed time.Duration) {
	pterm.DefaultSection.Println("Summary")
	pterm.Info.Printfln("Ran %s of wall time, %s of frame time", elapsed.Round(time.Millisecond), s.Now.Duration().Round(time.Millisecond))

	data := pterm.TableData{
		{"Metric", "Value"},
		{"Frames", strconv.FormatUint(s.Frames, 10)},
		{"Physics steps", strconv.FormatUint(s.PhysicsSteps, 10)},
		{"Average frame time", s.AverageFrameTime.Round(time.Microsecond).String()},
		{"Overruns", strconv.FormatUint(s.Overruns, 10)},
		{"Clamped frames", strconv.FormatUint(s.ClampedFrames, 10)},
		{"Timers fired", strconv.FormatUint(s.TimersFired, 10)},
		{"Timers registered", strconv.Itoa(s.TimersRegistered)},
		{"Deferred drained", fmt.Sprintf("%d / %d", s.DeferredDrained, s.DeferredEnqueued)},
		{"Jobs completed", strconv.FormatUint(s.Worker.Completed, 10)},
		{"Jobs failed", strconv.FormatUint(s.Worker.Failed, 10)},
	}
	pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render()

	if s.Worker.Failed > 0 {
		pterm.Warning.Printfln("%d background jobs failed", s.Worker.Failed)
	} else {
		pterm.Success.Println("All background jobs succeeded")
	}
}

func printTimers(w io.Writer, wl *workload) {
	pterm.DefaultSection.Println("Timers")

	table := tablewriter.NewWriter(w)
	table.Append([]string{"Workload", "Timer", "Delay", "Repeating", "State", "Fired", "Phase", "Offloads", "Failed"})

	for _, st := range wl.timers {
		table.Append([]string{
			st.workload,
			st.spec.Name,
			st.spec.Delay.Duration().String(),
			strconv.FormatBool(st.spec.Repeating),
			describeState(st),
			strconv.Itoa(st.fired),
			orDash(st.phase),
			fmt.Sprintf("%d/%d", st.succeeded, st.offloaded),
			strconv.Itoa(st.failed),
		})
	}

	table.Render()
}

func describeState(st *timerState) string {
	switch {
	case st.timer.Over():
		return "over"
	case st.timer.Running():
		return "running"
	default:
		return "stopped"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
