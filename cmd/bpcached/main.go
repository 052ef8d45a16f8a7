package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dtnkit/bpcache/pkg/cache"
	"github.com/dtnkit/bpcache/pkg/config"
	"github.com/dtnkit/bpcache/pkg/events"
	"github.com/dtnkit/bpcache/pkg/log"
	"github.com/dtnkit/bpcache/pkg/metrics"
	"github.com/dtnkit/bpcache/pkg/route"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "bpcached",
	Short:   "bpcached - DTN bundle storage-and-custody cache agent",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("bpcached version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (defaults embedded if unset)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(injectCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Attach a storage interface and drive its event loop",
	Long: `Attach a cache State to an in-memory route table at --self and
run its poll loop until interrupted. The poll interval stands in for
the forwarding fabric's timer source (spec.md §4.5 do_poll).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		self, _ := cmd.Flags().GetString("self")
		if self != "" {
			eid, err := parseEID(self)
			if err != nil {
				return fmt.Errorf("run: --self: %w", err)
			}
			cfg.SelfAddr = eid
		}
		pollInterval, _ := cmd.Flags().GetDuration("poll-interval")

		bus := events.NewBroker()
		bus.Start()
		defer bus.Stop()

		table := route.NewInMemoryTable()
		s, err := cache.Attach(table, cfg, bus)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		defer func() { _ = cache.Detach(table, s) }()

		metrics.SetVersion(Version)
		metrics.RegisterComponent("cache", true, "attached")
		collector := metrics.NewCollector(s)
		collector.Start(pollInterval)
		defer collector.Stop()

		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			mux.Handle("/health", metrics.HealthHandler())
			mux.Handle("/ready", metrics.ReadyHandler())
			mux.Handle("/live", metrics.LivenessHandler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				log.Logger.Error().Err(err).Msg("metrics server exited")
			}
		}()
		log.Logger.Info().Str("addr", metricsAddr).Msg("metrics endpoint listening")

		table.Dispatch(cfg.SelfAddr, route.Event{Kind: route.EventUp})

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		log.Logger.Info().Str("self", cfg.SelfAddr.String()).Msg("bpcached running, press Ctrl+C to stop")
		for {
			select {
			case <-ticker.C:
				table.Dispatch(cfg.SelfAddr, route.Event{Kind: route.EventPoll})
			case <-sigCh:
				log.Logger.Info().Msg("shutting down")
				table.Dispatch(cfg.SelfAddr, route.Event{Kind: route.EventDown})
				return nil
			}
		}
	},
}

func init() {
	runCmd.Flags().String("self", "", "This interface's EID (overrides config, e.g. ipn:1.1)")
	runCmd.Flags().Duration("poll-interval", time.Second, "do_poll sweep interval")
	runCmd.Flags().String("metrics-addr", ":9464", "Bind address for /metrics, /health, /ready, /live")
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debug and inspection commands",
}

var debugScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Print a point-in-time occupancy scan of a fresh cache state",
	Long: `A standalone equivalent of bplib_cache_debug_scan: since bpcached
does not yet expose an attach socket, this builds an empty State from
the active config and prints its occupancy — useful for sanity
checking a config file's constants.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("debug scan: %w", err)
		}
		s := cache.NewState(cfg, nil)
		snap := s.DebugScan()
		fmt.Printf("pending_list: %d\n", snap.PendingListLen)
		fmt.Printf("idle_list:    %d\n", snap.IdleListLen)
		fmt.Printf("hash_index:   %d queues\n", snap.HashQueues)
		fmt.Printf("time_index:   %d queues\n", snap.TimeQueues)
		fmt.Printf("dest_index:   %d queues\n", snap.DestQueues)
		fmt.Printf("entries idle: %d, dacs: %d\n", snap.EntriesIdle, snap.EntriesDACS)
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugScanCmd)
}

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Construct and admit a synthetic custody-tracked bundle",
	Long: `Builds a synthetic bundle from --source/--dest/--seq and admits it
through a fresh cache State's StoreBundle path, for local testing of
the admission path outside of a running agent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("inject: %w", err)
		}
		source, _ := cmd.Flags().GetString("source")
		dest, _ := cmd.Flags().GetString("dest")
		seq, _ := cmd.Flags().GetUint64("seq")

		b, err := buildSyntheticBundle(source, dest, seq)
		if err != nil {
			return fmt.Errorf("inject: %w", err)
		}

		s := cache.NewState(cfg, nil)
		stored, dup, err := s.StoreBundle(b, defaultInjectDelivery(cfg))
		if err != nil {
			return fmt.Errorf("inject: admit bundle: %w", err)
		}

		correlationID := newCorrelationID()
		log.Logger.Info().
			Str("correlation_id", correlationID).
			Str("source", source).
			Str("dest", dest).
			Uint64("seq", seq).
			Bool("stored", stored).
			Bool("duplicate", dup).
			Msg("bundle injected")

		fmt.Printf("correlation-id: %s\n", correlationID)
		fmt.Printf("stored: %v, duplicate: %v\n", stored, dup)
		return nil
	},
}

func init() {
	injectCmd.Flags().String("source", "ipn:100.1", "Synthetic bundle's flow source EID")
	injectCmd.Flags().String("dest", "ipn:200.1", "Synthetic bundle's destination EID")
	injectCmd.Flags().Uint64("seq", 1, "Creation timestamp sequence number")
}
