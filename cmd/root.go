// SPDX-License-Identifier: AGPL-3.0-or-later
// llrpclient - LLRP client for the Zebra FX9600 reader family
// Copyright (C) 2023-2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/USA-RedDragon/configulator"
	"github.com/fx9600/llrpclient/internal/config"
	"github.com/fx9600/llrpclient/internal/metrics"
	"github.com/fx9600/llrpclient/internal/observer"
	"github.com/fx9600/llrpclient/internal/session"
	"github.com/fx9600/llrpclient/internal/telemetry"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// NewCommand builds the root "llrpclient" command: connect to a reader,
// configure it per environment variables and config file (no CLI flags are
// registered), and stream tag reports to stdout until interrupted.
func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "llrpclient",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:              runRoot,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}
	return cmd
}

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	fmt.Printf("llrpclient - %s (%s)\n", cmd.Annotations["version"], cmd.Annotations["commit"])

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cleanup, err := telemetry.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			slog.Error("failed to shut down tracer", "error", err)
		}
	}()

	m := metrics.NewMetrics()
	go func() {
		if err := metrics.CreateMetricsServer(cfg); err != nil {
			slog.Error("metrics server exited", "error", err)
		}
	}()

	bus := observer.NewBus()
	defer bus.Close()

	sub, unsubscribe := bus.Subscribe()
	defer unsubscribe()
	go logEvents(sub)

	sess := session.New(sessionConfig(cfg), bus, m, slog.Default(), telemetry.Tracer())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sess.Connect(runCtx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	waitForShutdownSignal()
	slog.Info("shutting down")
	sess.Disconnect()
	cancel()

	return nil
}

func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Host:              cfg.Reader.Host,
		Port:              cfg.Reader.Port,
		Antennas:          cfg.Reader.Antennas,
		PowerDBM:          cfg.Reader.PowerDBM,
		ReconnectInterval: time.Duration(cfg.Reader.ReconnectIntervalMS) * time.Millisecond,
		EnableReconnect:   cfg.Reader.EnableReconnect,
	}
}

// logEvents drains the observer bus and logs each lifecycle event at a
// level matched to its severity; tag events are logged at info since this
// command has no other consumer for them.
func logEvents(events <-chan observer.Event) {
	for ev := range events {
		switch ev.Kind {
		case observer.EventConnected:
			slog.Info("connected to reader")
		case observer.EventReady:
			slog.Info("inventory running")
		case observer.EventTag:
			slog.Info("tag read",
				"epc", ev.Tag.EPC,
				"antenna", ev.Tag.AntennaID,
				"rssi", ev.Tag.RSSI,
				"seen_count", ev.Tag.SeenCount,
			)
		case observer.EventDisconnected:
			slog.Warn("disconnected from reader", "reason", ev.DisconnectReason)
		case observer.EventError:
			slog.Error("session error", "error", ev.Err)
		}
	}
}

func waitForShutdownSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	<-sigCh
}

// loadConfig loads the configuration from context
func loadConfig(ctx context.Context) (*config.Config, error) {
	c, err := configulator.FromContext[config.Config](ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get config from context: %w", err)
	}

	cfg, err := c.LoadWithoutValidation()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// setupLogger configures the structured logger
func setupLogger(cfg *config.Config) {
	var logger *slog.Logger
	switch cfg.LogLevel {
	case config.LogLevelDebug:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	case config.LogLevelInfo:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	case config.LogLevelWarn:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn}))
	case config.LogLevelError:
		logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelError}))
	default:
		logger = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)
}
