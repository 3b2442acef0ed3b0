package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gomer1002/lanprobe/cli/output"
	"github.com/gomer1002/lanprobe/internal"
	"github.com/gomer1002/lanprobe/pkg/metrics"
	"github.com/gomer1002/lanprobe/pkg/probe"
)

type serverOpts struct {
	protocol   string
	port       int
	speedMbps  float64
	packetSize int
	target     string
}

// ServerCommand runs the sending role: pace packets at the configured rate
// until interrupted.
func ServerCommand() *cobra.Command {
	var opts serverOpts

	cmd := &cobra.Command{
		Use:     "server",
		Aliases: []string{"s"},
		Short:   "Send paced traffic to measuring clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := internal.LoadServerConfig(configPath)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("type") {
				cfg.Protocol = opts.protocol
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = opts.port
			}
			if cmd.Flags().Changed("speed") {
				cfg.SpeedMbps = opts.speedMbps
			}
			if cmd.Flags().Changed("packet") {
				cfg.PacketSize = opts.packetSize
			}
			if cmd.Flags().Changed("target") {
				cfg.UDPTarget = opts.target
			}

			if err := internal.ConfigureLogger(cfg.LogLevel); err != nil {
				internal.Warn("invalid log level in config, defaulting to info", internal.Fields{
					internal.FieldError: err.Error(),
				})
			}

			rate := probe.RateConfig{TargetMbps: cfg.SpeedMbps, PacketSize: cfg.PacketSize}
			if err := rate.Validate(); err != nil {
				return err
			}

			printer := output.NewPrinter()
			params := map[string]any{
				"mode":        "server",
				"protocol":    strings.ToUpper(cfg.Protocol),
				"port":        cfg.Port,
				"target rate": fmt.Sprintf("%g Mbit/s", cfg.SpeedMbps),
				"packet size": fmt.Sprintf("%d bytes", cfg.PacketSize),
			}
			if strings.EqualFold(cfg.Protocol, "udp") {
				dest := cfg.UDPTarget
				if dest == "" {
					dest = "broadcast (255.255.255.255)"
				}
				params["udp destination"] = dest
			}
			printer.Banner(fmt.Sprintf("LANProbe %s", Version), params)

			collector := metrics.NewProbeCollector("lanprobe")
			onSessionEnd := func(peer net.Addr, res probe.Result) {
				if res.Elapsed <= 0 {
					return
				}
				printer.SessionResult(fmt.Sprintf("Session with %s", peer), res)
			}

			switch strings.ToLower(cfg.Protocol) {
			case "tcp":
				sender, err := probe.NewTCPSender(probe.TCPSenderConfig{
					Port:         cfg.Port,
					Rate:         rate,
					Collector:    collector,
					OnSessionEnd: onSessionEnd,
				})
				if err != nil {
					return err
				}
				printer.Info("server started, waiting for clients (Ctrl+C to stop)", nil)
				return sender.Run(ctx)
			case "udp":
				sender, err := probe.NewUDPSender(probe.UDPSenderConfig{
					Port:         cfg.Port,
					Target:       cfg.UDPTarget,
					Rate:         rate,
					Collector:    collector,
					OnSessionEnd: onSessionEnd,
				})
				if err != nil {
					return err
				}
				printer.Info("server started, transmitting (Ctrl+C to stop)", nil)
				return sender.Run(ctx)
			default:
				return fmt.Errorf("unknown protocol %q (want tcp or udp)", cfg.Protocol)
			}
		},
	}

	cmd.Flags().StringVar(&opts.protocol, "type", "tcp", "Protocol to probe over (tcp or udp)")
	cmd.Flags().IntVar(&opts.port, "port", 5000, "Port to serve on")
	cmd.Flags().Float64Var(&opts.speedMbps, "speed", 10.0, "Target rate in Mbit/s (0 = unthrottled)")
	cmd.Flags().IntVar(&opts.packetSize, "packet", 1400, "Packet size in bytes")
	cmd.Flags().StringVar(&opts.target, "target", "", "UDP unicast destination IP (empty = broadcast)")

	return cmd
}
