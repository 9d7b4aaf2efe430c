package main

import (
	"errors"
	"fmt"

	"github.com/petems/micrecorder/internal/audio"
	"github.com/petems/micrecorder/internal/recorder"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices",
	Long:  `List the capture devices the configured backend can open. The default device is marked with *.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		names, err := recorder.AvailableDevices(b)
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		def, err := recorder.DefaultDevice(b)
		if err != nil {
			log.Warn().Err(err).Msg("No default capture device")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "🎤 Capture devices (%s, %d found):\n", cfg.Backend, len(names))
		for i, name := range names {
			marker := " "
			if name == def {
				marker = "*"
			}
			fmt.Fprintf(out, " %s %d. %s\n", marker, i+1, name)
		}
		return nil
	},
}

var availableCmd = &cobra.Command{
	Use:   "available",
	Short: "Check whether audio capture is supported",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		if !recorder.IsAvailable(b) {
			return errors.New("audio capture is not available (" + audio.ExtCapture + " not supported)")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Audio capture available on %s\n", cfg.Backend)
		return nil
	},
}
