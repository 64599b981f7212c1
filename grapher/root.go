package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itohio/golivegraph/pkg/config"
)

var rootFlags = struct {
	config         string
	port           string
	baud           int
	mock           bool
	metricsAddress string
}{}

var rootCmd = &cobra.Command{
	Use:   "grapher",
	Short: "Live graphs of a multi-channel serial stream",
	RunE:  runGUI,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.config, "config", "config.yaml", "configuration file path")
	rootCmd.PersistentFlags().StringVarP(&rootFlags.port, "port", "p", "", "serial port override (e.g. COM3 or /dev/ttyACM0)")
	rootCmd.PersistentFlags().IntVar(&rootFlags.baud, "baud", 0, "baud rate override")
	rootCmd.PersistentFlags().BoolVar(&rootFlags.mock, "mock", false, "use the generated mock stream instead of a serial port")
	rootCmd.PersistentFlags().StringVar(&rootFlags.metricsAddress, "metrics-address", "", "listen address of the Prometheus endpoint (e.g. :9100)")
}

// loadConfig reads the configuration file and applies the flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(rootFlags.config)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, cmd)
	return cfg, cfg.Validate()
}

func applyOverrides(cfg *config.Config, cmd *cobra.Command) {
	if rootFlags.port != "" {
		cfg.Serial.Port = rootFlags.port
	}
	if rootFlags.baud > 0 {
		cfg.Serial.BaudRate = rootFlags.baud
	}
	if cmd.Flags().Changed("metrics-address") {
		cfg.Metrics.Address = rootFlags.metricsAddress
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			log.Print("Interrupted")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx, cancel
}
