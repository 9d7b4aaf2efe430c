package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petems/micrecorder/internal/app"
	"github.com/petems/micrecorder/internal/metrics"
	"github.com/petems/micrecorder/internal/permissions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from a capture device until interrupted",
	Long: `Record from a capture device and print signal levels.

Recording runs until Ctrl+C, or until --duration worth of audio has been
captured. With --metrics-addr set, Prometheus metrics are served on
/metrics while recording.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("device") {
			cfg.Audio.DeviceID, _ = flags.GetString("device")
		}
		if flags.Changed("rate") {
			cfg.Audio.SampleRate, _ = flags.GetInt("rate")
		}
		if flags.Changed("interval") {
			cfg.Audio.ProcessingInterval, _ = flags.GetDuration("interval")
		}
		if flags.Changed("duration") {
			cfg.Meter.MaxDuration, _ = flags.GetDuration("duration")
		}
		if flags.Changed("metrics-addr") {
			cfg.MetricsAddr, _ = flags.GetString("metrics-addr")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		return runRecord(cmd.Context())
	},
}

func init() {
	recordCmd.Flags().StringP("device", "d", "", "capture device name (overrides config)")
	recordCmd.Flags().IntP("rate", "r", 0, "sample rate in Hz (overrides config)")
	recordCmd.Flags().Duration("interval", 0, "processing interval (overrides config)")
	recordCmd.Flags().Duration("duration", 0, "stop after this much audio, 0 for no limit")
	recordCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
}

func runRecord(parent context.Context) error {
	// macOS requires explicit microphone approval before capture works
	if err := permissions.EnsureMicrophone(); err != nil {
		return err
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	reg := prometheus.NewRegistry()
	application, err := app.New(app.Config{
		Backend:       b,
		Config:        cfg,
		Logger:        log,
		Metrics:       metrics.New(reg),
		StatusUpdater: app.NewConsoleStatus(os.Stdout),
	})
	if err != nil {
		return fmt.Errorf("failed to create recorder: %w", err)
	}

	if err := application.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
			log.Info().Msg("Shutting down...")
		case <-application.Done():
			log.Info().Msg("Recording finished")
		}
		// Unblocks the metrics server when the meter ended the recording
		defer stop()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return application.Shutdown(sctx)
	})

	err = g.Wait()

	s := application.Stats()
	fmt.Printf("Captured %s (%d samples in %d chunks), max peak %.2f\n",
		s.Duration(cfg.Audio.SampleRate).Round(time.Millisecond), s.Samples, s.Chunks, s.MaxPeak)
	return err
}
