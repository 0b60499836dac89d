// Copyright (c) 2025 The Rotor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/rotorlabs/rotor/kv"
	"github.com/rotorlabs/rotor/log"
	"github.com/rotorlabs/rotor/metrics"
)

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".rotor")
	}
	return ""
}

func initLogger(ctx *cli.Context) {
	var level slog.Level
	switch ctx.Uint64(verbosityFlag.Name) {
	case 0:
		level = slog.LevelError
	case 1:
		level = slog.LevelWarn
	case 2:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}

	// JSON when requested or when stderr is piped somewhere
	if ctx.Bool(jsonLogsFlag.Name) || !isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetDefault(log.NewJSONHandler(level))
	} else {
		log.SetDefault(log.NewTextHandler(level))
	}
}

func openMainDB(ctx *cli.Context) (kv.StoreCloser, error) {
	if !ctx.Bool(persistFlag.Name) {
		return kv.NewMem()
	}

	dir := ctx.String(dataDirFlag.Name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return kv.New(filepath.Join(dir, "engine.db"), kv.Options{
		CacheSize:              128,
		OpenFilesCacheCapacity: 64,
	})
}

func startMetricsServer(ctx *cli.Context) func() {
	if !ctx.Bool(enableMetricsFlag.Name) {
		return func() {}
	}

	metrics.InitializePrometheusMetrics()
	srv := &http.Server{
		Addr:              ctx.String(metricsAddrFlag.Name),
		Handler:           metrics.HTTPHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLogger.Error("metrics server stopped", "error", err)
		}
	}()
	mainLogger.Info("metrics server started", "addr", srv.Addr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
}

// handleExitSignal returns a context cancelled on SIGINT or SIGTERM.
func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		mainLogger.Info("exit signal received, shutting down")
		cancel()
	}()
	return ctx
}
