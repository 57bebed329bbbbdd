package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	valtron "github.com/ewe-studios/go-valtron"
	"github.com/ewe-studios/go-valtron/journal/sqlitejournal"
	obsprom "github.com/ewe-studios/go-valtron/observability/prometheus"
)

var (
	runConfigPath  string
	runWorkloadSel []string
	runMetricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run demo workloads against the engine",
	Long: `run submits the selected demo workloads, waits for their terminal
statuses and prints a summary table. When the config lists periodic
entries the process stays up and keeps submitting them on their cron
schedules until interrupted.`,
	RunE: runDemo,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to YAML config; built-in defaults apply when omitted")
	runCmd.Flags().StringSliceVarP(&runWorkloadSel, "workload", "w", nil, "workloads to run (pipeline, fanout, flaky); all when omitted")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics", "", "serve Prometheus metrics on this address, overriding the config")
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	selected, err := selectWorkloads(runWorkloadSel)
	if err != nil {
		return err
	}

	// Ctrl-C cancels waits and ends the periodic phase; the engine itself
	// is always taken down through StopGraceful below.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := cfg.EngineOptions()

	// The sqlite backend pulls in the driver, so only the binary links it;
	// memory and none are handled by EngineOptions already.
	if cfg.Journal.Driver == valtron.JournalSQLite {
		j, err := sqlitejournal.Open(cfg.Journal.DSN)
		if err != nil {
			return err
		}
		defer j.Close()
		opts.Journal = j
	}

	var poller *obsprom.SnapshotPoller
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		exporter, err := obsprom.NewMetricsExporter(cfg.Metrics.Namespace, reg, obsprom.ExporterOptions{})
		if err != nil {
			return err
		}
		opts.Metrics = exporter
		poller, err = obsprom.NewSnapshotPoller(cfg.Metrics.Namespace, reg, time.Second)
		if err != nil {
			return err
		}
		srv := serveMetrics(cfg.Metrics.Addr, reg)
		defer srv.Close()
		color.New(color.FgCyan).Printf("metrics on http://%s/metrics\n", cfg.Metrics.Addr)
	}

	eng := valtron.New[string, int](opts)
	if err := eng.Start(context.Background()); err != nil {
		return err
	}
	if poller != nil {
		poller.AddEngine("demo", eng)
		poller.Start(context.Background())
		defer poller.Stop()
	}

	rows, err := runBatch(ctx, eng, selected)
	if err != nil {
		eng.Stop()
		return err
	}
	printSummary(rows, eng.Stats(), opts.Journal)

	if len(cfg.Periodic) > 0 {
		if err := runPeriodic(ctx, eng, cfg.Periodic, opts.Logger); err != nil {
			eng.Stop()
			return err
		}
	}
	return eng.StopGraceful(cfg.Engine.GracefulTimeout)
}

// loadRunConfig reads the config file when one was given and folds the
// --metrics override in.
func loadRunConfig() (*valtron.Config, error) {
	cfg := &valtron.Config{}
	if runConfigPath != "" {
		var err error
		if cfg, err = valtron.LoadConfig(runConfigPath); err != nil {
			return nil, err
		}
	} else {
		cfg.ApplyDefaults()
	}
	if runMetricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = runMetricsAddr
		if cfg.Metrics.Namespace == "" {
			cfg.Metrics.Namespace = "valtron"
		}
	}
	return cfg, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			color.New(color.FgRed).Printf("metrics server: %v\n", err)
		}
	}()
	return srv
}

func selectWorkloads(names []string) ([]workload, error) {
	if len(names) == 0 {
		return allWorkloads(), nil
	}
	out := make([]workload, 0, len(names))
	for _, name := range names {
		w, ok := workloadByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown workload %q (have: %s)", name, strings.Join(workloadNames(), ", "))
		}
		out = append(out, w)
	}
	return out, nil
}

// runPeriodic registers the config's cron entries and blocks until the
// context is canceled, typically by Ctrl-C.
func runPeriodic(ctx context.Context, eng valtron.Engine[string, int], entries []valtron.PeriodicConfig, logger valtron.Logger) error {
	ps := valtron.NewPeriodicSubmitter[string, int](eng, logger)
	for _, entry := range entries {
		w, ok := workloadByName(entry.Workload)
		if !ok {
			return fmt.Errorf("periodic entry %q: unknown workload %q", entry.Name, entry.Workload)
		}
		if err := ps.Register(entry.Name, entry.Spec, w.build); err != nil {
			return err
		}
	}
	ps.Start()
	defer ps.Stop()

	color.New(color.FgYellow).Printf("periodic entries %v running, Ctrl-C to stop\n", ps.Entries())
	<-ctx.Done()
	fmt.Println()
	fmt.Println("shutting down")
	return nil
}
