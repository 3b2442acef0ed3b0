package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gomer1002/lanprobe/cli/output"
	"github.com/gomer1002/lanprobe/internal"
	"github.com/gomer1002/lanprobe/pkg/metrics"
	"github.com/gomer1002/lanprobe/pkg/probe"
)

type clientOpts struct {
	protocol string
	host     string
	port     int
	seconds  float64
	live     bool
}

// ClientCommand runs the receiving role: measure incoming throughput for a
// bounded duration and report statistics.
func ClientCommand() *cobra.Command {
	var opts clientOpts

	cmd := &cobra.Command{
		Use:     "client",
		Aliases: []string{"c"},
		Short:   "Measure throughput from a lanprobe server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := internal.LoadClientConfig(configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("type") {
				cfg.Protocol = opts.protocol
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = opts.host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = opts.port
			}
			if cmd.Flags().Changed("time") {
				cfg.MeasureSeconds = opts.seconds
			}

			if err := internal.ConfigureLogger(cfg.LogLevel); err != nil {
				internal.Warn("invalid log level in config, defaulting to info", internal.Fields{
					internal.FieldError: err.Error(),
				})
			}
			if cfg.MeasureSeconds <= 0 {
				return fmt.Errorf("measurement duration must be positive, got %g", cfg.MeasureSeconds)
			}
			duration := time.Duration(cfg.MeasureSeconds * float64(time.Second))

			printer := output.NewPrinter()
			params := map[string]any{
				"mode":     "client",
				"protocol": strings.ToUpper(cfg.Protocol),
				"port":     cfg.Port,
				"duration": fmt.Sprintf("%g s", cfg.MeasureSeconds),
			}
			if strings.EqualFold(cfg.Protocol, "tcp") {
				params["host"] = cfg.Host
			}
			printer.Banner(fmt.Sprintf("LANProbe %s", Version), params)

			collector := metrics.NewProbeCollector("lanprobe")

			var report *output.LiveReport
			onSample := printer.Sample
			if opts.live {
				report = output.NewLiveReport("Probe Telemetry", collector)
				if err := report.Start(ctx); err != nil {
					return err
				}
				defer report.Stop()
				// The area printer owns the terminal while live; skip the
				// per-second lines.
				onSample = nil
			}

			var stats probe.ReceiverStats
			var runErr error
			switch strings.ToLower(cfg.Protocol) {
			case "tcp":
				receiver := probe.NewTCPReceiver(probe.TCPReceiverConfig{
					Host:      cfg.Host,
					Port:      cfg.Port,
					Duration:  duration,
					Collector: collector,
					OnSample:  onSample,
				})
				stats, runErr = receiver.Run(ctx)
			case "udp":
				receiver := probe.NewUDPReceiver(probe.UDPReceiverConfig{
					Port:      cfg.Port,
					Duration:  duration,
					Collector: collector,
					OnSample:  onSample,
				})
				stats, runErr = receiver.Run(ctx)
			default:
				return fmt.Errorf("unknown protocol %q (want tcp or udp)", cfg.Protocol)
			}

			if report != nil {
				report.Stop()
			}

			if runErr != nil {
				if errors.Is(runErr, context.Canceled) {
					printer.Warn("interrupted before any traffic was measured", nil)
					return nil
				}
				if errors.Is(runErr, probe.ErrNoTrafficDetected) {
					printer.Warn("no traffic detected within the first-packet timeout", nil)
					return nil
				}
				if errors.Is(runErr, probe.ErrPeerDisconnected) {
					printer.Warn(runErr.Error(), nil)
					return nil
				}
				return runErr
			}

			if stats.ConnectLatency > 0 {
				printer.Latency("connect latency", stats.ConnectLatency)
			}
			printer.Latency("first-packet latency", stats.FirstPacketLatency)
			if stats.Result.Elapsed > 0 {
				printer.SessionResult("Final statistics", stats.Result)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.protocol, "type", "tcp", "Protocol to probe over (tcp or udp)")
	cmd.Flags().StringVar(&opts.host, "host", "127.0.0.1", "Server host to connect to (tcp only)")
	cmd.Flags().IntVar(&opts.port, "port", 5000, "Port to connect or bind to")
	cmd.Flags().Float64Var(&opts.seconds, "time", 10.0, "Measurement duration in seconds")
	cmd.Flags().BoolVar(&opts.live, "live", false, "Render a live telemetry dashboard instead of per-second lines")

	return cmd
}
