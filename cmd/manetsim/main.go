// Command manetsim runs one trust-aware MANET routing simulation and
// emits the RESULT_DATA / DROP_SUMMARY lines described by the routing
// core's external interface.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/manet-trust-router/internal/logging"
	"github.com/signalsfoundry/manet-trust-router/internal/observability"
	"github.com/signalsfoundry/manet-trust-router/metrics"
	"github.com/signalsfoundry/manet-trust-router/sim"
)

func main() {
	numNodes := flag.Uint("num_nodes", 30, "nodes in the MANET")
	numFlows := flag.Uint("num_flows", 10, "UDP flows (unique endpoints, disjoint from malicious set)")
	numBlackholes := flag.Uint("num_blackholes", 7, "size of ground-truth malicious set")
	simTime := flag.Float64("sim_time", 60.0, "simulated duration in seconds")
	maxRadioRange := flag.Float64("max_radio_range", 150.0, "edge inclusion threshold in metres")
	defaultSNR := flag.Float64("default_snr", 20.0, "fallback SNR in dB")
	rngSeed := flag.Uint("rng_seed", 1, "rng seed")
	rngRun := flag.Uint("rng_run", 1, "rng stream selector; also salts position allocator and flow choice")
	useBlockchain := flag.Bool("use_blockchain", true, "Proposed (trust-weighted) vs Baseline (hop count)")

	logLevel := flag.String("log_level", "info", "ambient logging level (debug, info, warn, error)")
	logFormat := flag.String("log_format", "text", "text or json")
	metricsAddr := flag.String("metrics_addr", "", "if set, serve Prometheus /metrics on this address")
	trace := flag.Bool("trace", false, "enable OpenTelemetry stdout tracing of heartbeats")

	flag.Parse()

	log := logging.New(logging.Config{Level: *logLevel, Format: *logFormat})
	ctx, runID := logging.EnsureRunID(context.Background())
	log = log.With(logging.String("run_id", runID))

	tracingCfg := observability.TracingConfigFromEnv()
	tracingCfg.Enabled = *trace
	shutdownTracing, err := observability.InitTracing(ctx, tracingCfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialize tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	cfg := sim.Config{
		NumNodes:      *numNodes,
		NumFlows:      *numFlows,
		NumBlackholes: *numBlackholes,
		SimTime:       *simTime,
		MaxRadioRange: *maxRadioRange,
		DefaultSNR:    *defaultSNR,
		RngSeed:       *rngSeed,
		RngRun:        *rngRun,
		UseBlockchain: *useBlockchain,
	}

	scenario, err := sim.NewScenario(cfg)
	if err != nil {
		log.Error(ctx, "failed to build scenario", logging.String("error", err.Error()))
		os.Exit(1)
	}
	scenario.Ctx = ctx

	if *metricsAddr != "" {
		collector, err := observability.NewHeartbeatCollector(prometheus.NewRegistry())
		if err != nil {
			log.Error(ctx, "failed to register heartbeat metrics", logging.String("error", err.Error()))
			os.Exit(1)
		}
		scenario.Collector = collector

		mux := http.NewServeMux()
		mux.Handle("/metrics", scenario.Metrics.Handler())
		mux.Handle("/metrics/heartbeat", collector.Handler())
		server := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn(ctx, "metrics server stopped", logging.String("error", err.Error()))
			}
		}()
		defer server.Close()
	}

	log.Info(ctx, "starting simulation",
		logging.Any("num_nodes", cfg.NumNodes),
		logging.Any("num_flows", cfg.NumFlows),
		logging.Any("num_blackholes", cfg.NumBlackholes),
		logging.Any("sim_time", cfg.SimTime),
		logging.String("mode", scenario.ModeName()),
	)

	result := scenario.Run()

	fmt.Println(scenario.Metrics.DropSummaryLine(cfg.RngRun, scenario.ModeName(), scenario.Ledger.TrustPenalties()))
	fmt.Println(metrics.ResultLine(result.RunID, result.UseBlockchain, result.PDRPercent, result.AvgLatencyMs, result.AvgHops, result.MaliciousDrops))

	os.Exit(0)
}
