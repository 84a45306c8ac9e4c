// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/LexGuard/cmd/lexguard/config"
	"github.com/AleutianAI/LexGuard/services/guardrail/handlers"
	"github.com/AleutianAI/LexGuard/services/guardrail/telemetry"
)

func runServe(cmd *cobra.Command, args []string) error {
	logger := appLogger.Logger
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
		}
	}()

	a, err := buildApp(settings, logger)
	if err != nil {
		return err
	}
	runner := newReloadableRunner(a)
	defer func() {
		if cur := runner.Swap(nil); cur != nil {
			_ = cur.Close()
		}
	}()

	// Hot-reload the settings file. A reload rebuilds the stack; the old
	// one is closed after a short drain window.
	watchPath := configPath
	if watchPath == "" {
		if watchPath, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	err = config.Watch(ctx, watchPath, logger, func(s config.Settings) {
		next, err := buildApp(s, logger)
		if err != nil {
			logger.Warn("settings reload kept previous stack", slog.String("error", err.Error()))
			return
		}
		prev := runner.Swap(next)
		time.AfterFunc(30*time.Second, func() {
			if prev != nil {
				_ = prev.Close()
			}
		})
	})
	if err != nil {
		logger.Warn("settings watch disabled", slog.String("error", err.Error()))
	}

	h, err := handlers.NewHandlers(runner, settings.Models.Provider, settings.Models.Model, logger)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           handlers.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("lexguard service listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down lexguard service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownGrace())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
