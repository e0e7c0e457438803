// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shini4i/ksct/internal/dbus"
	"github.com/shini4i/ksct/internal/gamma"
	"github.com/shini4i/ksct/internal/preset"
	"github.com/shini4i/ksct/internal/runner"
	"github.com/shini4i/ksct/internal/udev"
	"github.com/shini4i/ksct/internal/xrandr"
)

const (
	// hotplugSettleDelay gives the X server time to bring up a new output
	// before its CRTC is written.
	hotplugSettleDelay = 500 * time.Millisecond

	// reapplyRetries is how many times a failed reapply is retried.
	reapplyRetries = 3
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ksct D-Bus service",
	Long: `serve exports the io.github.shini4i.Ksct service on the session bus.

It keeps the last colour temperature set through the service and applies it
again when a display is connected. A temperature set with the command line
in the meantime is overwritten on the next hot-plug. The presets file is
reloaded when it changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(flags.display, flags.presets)
	},
}

func serve(display, presetsFlag string) error {
	log.Info().Msg("Starting ksct service")

	presets, path, err := loadPresets(presetsFlag, false)
	if err != nil {
		return err
	}

	device, err := xrandr.Open(display)
	if err != nil {
		return err
	}
	controller := gamma.NewController(device)
	log.Info().Int("screens", controller.ScreenCount()).Msg("Connected to X server")

	r := runner.New(controller, runner.WithPresets(presets), runner.WithPresetsFile(path))

	server := dbus.NewServer(r)
	if err := server.Start(); err != nil {
		_ = controller.Close()
		return err
	}

	monitor := udev.NewMonitor(createHotplugHandler(server))
	monitor.SetRecoveryHandler(createRecoveryHandler(server))
	if err := monitor.Start(); err != nil {
		log.Error().Err(err).Msg("Failed to start udev monitor (hot-plug reapply disabled)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var watcher *preset.Watcher
	if path != "" {
		watcher, err = preset.NewWatcher(path, server.SetPresets)
		if err != nil {
			log.Error().Err(err).Msg("Failed to watch presets file (preset reload disabled)")
		} else {
			go watcher.Run(ctx)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info().Msg("Service running, press Ctrl+C to stop")
	<-sigChan

	log.Info().Msg("Shutting down...")
	cancel()
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to stop presets watcher")
		}
	}
	if err := monitor.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop udev monitor")
	}
	if err := server.Stop(); err != nil {
		log.Error().Err(err).Msg("Failed to stop D-Bus server")
	}
	if err := controller.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close X connection")
	}

	log.Info().Msg("Service stopped")
	return nil
}

// reapplier restores the last applied state.
type reapplier interface {
	Reapply() error
}

// reapplyMu serializes reapply operations triggered by hot-plug and recovery.
var reapplyMu sync.Mutex

// reapplyWithRetry reapplies the last state with linear backoff.
func reapplyWithRetry(target reapplier, maxRetries int, backoff time.Duration) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * backoff
			log.Debug().
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Retrying reapply")
			time.Sleep(delay)
		}

		if err := target.Reapply(); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Int("maxRetries", maxRetries+1).
				Msg("Reapply failed")
			continue
		}

		if attempt > 0 {
			log.Info().Int("attempts", attempt+1).Msg("Reapply succeeded after retry")
		}
		return nil
	}
	return lastErr
}

// createHotplugHandler returns an event handler that reapplies the last state
// once the new output has settled.
func createHotplugHandler(target reapplier) udev.EventHandler {
	return func(event udev.Event) {
		reapplyMu.Lock()
		defer reapplyMu.Unlock()

		time.Sleep(hotplugSettleDelay)

		if err := reapplyWithRetry(target, reapplyRetries, hotplugSettleDelay); err != nil {
			log.Error().Err(err).Str("devpath", event.Device).Msg("Failed to reapply after hot-plug (all retries exhausted)")
		}
	}
}

// createRecoveryHandler returns a handler for netlink buffer overflow
// recovery. Hot-plug events may have been lost, so the last state is
// reapplied unconditionally.
func createRecoveryHandler(target reapplier) udev.RecoveryHandler {
	return func() {
		reapplyMu.Lock()
		defer reapplyMu.Unlock()

		log.Info().Msg("Reapplying after netlink buffer overflow")
		if err := reapplyWithRetry(target, reapplyRetries, hotplugSettleDelay); err != nil {
			log.Error().Err(err).Msg("Recovery reapply failed (all retries exhausted)")
		}
	}
}
