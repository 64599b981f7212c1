package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/itohio/golivegraph/pkg/engine"
	"github.com/itohio/golivegraph/pkg/metrics"
)

var captureFlags = struct {
	duration time.Duration
}{}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record a session without a window and export it",
	RunE:  runCapture,
}

func init() {
	captureCmd.Flags().DurationVar(&captureFlags.duration, "duration", 10*time.Second, "recording length")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, _ []string) error {
	if captureFlags.duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", captureFlags.duration)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	uploader, closeUploader, err := buildUploader(cfg)
	if err != nil {
		return err
	}
	defer closeUploader()

	m := metrics.New(nil)
	stopMetrics, err := serveMetrics(cfg.Metrics.Address, m)
	if err != nil {
		return err
	}
	defer stopMetrics()

	eng := engine.New(cfg, engine.Options{
		Transport: buildTransport(cfg, rootFlags.mock),
		Uploader:  uploader,
		Metrics:   m,
		OnWarning: func(err error) { log.Printf("Warning: %v", err) },
	})
	defer eng.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := eng.Connect(ctx); err != nil {
		return err
	}
	if err := eng.StartRecording(); err != nil {
		return err
	}
	log.Printf("Recording for %v", captureFlags.duration)

	if err := captureLoop(ctx, eng, captureFlags.duration, time.Second); err != nil {
		return err
	}
	if ctx.Err() != nil {
		// The engine finalized the session on cancellation; Close waits
		// for its export.
		return nil
	}

	exportCtx, cancelExport := context.WithTimeout(context.Background(), time.Minute)
	defer cancelExport()
	s, err := eng.StopRecording(exportCtx)
	if s != nil {
		log.Printf("Session %s: %d samples over %v", s.ID, s.Len(), s.Duration(time.Now()).Round(time.Millisecond))
	}
	if err != nil {
		var exportErr *engine.ExportError
		if errors.As(err, &exportErr) {
			return fmt.Errorf("session recorded but not exported: %w", err)
		}
		return err
	}
	if s != nil && s.Location() != "" {
		log.Printf("Exported to %s", s.Location())
	}
	return nil
}

// captureLoop logs the engine status every interval until duration elapses,
// ctx is cancelled or the stream drops.
func captureLoop(ctx context.Context, eng *engine.Engine, duration, interval time.Duration) error {
	deadline := time.NewTimer(duration)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Print("Capture interrupted")
			return nil
		case <-deadline.C:
			return nil
		case now := <-ticker.C:
			f := eng.Snapshot(now)
			logStatus(f)
			if f.Stream == engine.Disconnected {
				return errors.New("stream lost during capture")
			}
		}
	}
}

func logStatus(f engine.Frame) {
	samples := 0
	if f.Session != nil {
		samples = f.Session.Samples
	}
	log.Printf("%s/%s: %.1f samples/s, %d recorded, %d dropped", f.Stream, f.Capture, f.Rate, samples, f.ParseErrors)
}
