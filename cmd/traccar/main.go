/*
 * Copyright 2026 Talisson Junior
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/TalissonJunior/traccar/pkg/cache"
	"github.com/TalissonJunior/traccar/pkg/config"
	"github.com/TalissonJunior/traccar/pkg/events"
	"github.com/TalissonJunior/traccar/pkg/groups"
	"github.com/TalissonJunior/traccar/pkg/handlers"
	"github.com/TalissonJunior/traccar/pkg/logger"
	"github.com/TalissonJunior/traccar/pkg/session"
	"github.com/TalissonJunior/traccar/pkg/store"
	"github.com/TalissonJunior/traccar/pkg/timer"
	"github.com/TalissonJunior/traccar/pkg/web"
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/traccar/traccar.json", "Path to config file")
	flag.Parse()

	ctx := context.Background()

	loader := config.NewLoader(nil)

	var cfg config.Config
	if err := loader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	var notifications session.NotificationManager = events.NewLogSink(appLogger)

	if cfg.NATS != nil && cfg.NATS.Enabled {
		natsConn, err := nats.Connect(cfg.NATS.URL, nats.Name("traccar-session"))
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}

		defer func() {
			if err := natsConn.Drain(); err != nil {
				appLogger.Warn().Err(err).Msg("NATS drain error")
			}
		}()

		notifications = events.NewPublisher(natsConn, cfg.NATS.SubjectPrefix, appLogger)
	}

	memory := store.NewMemory()

	groupManager := groups.NewManager(memory, appLogger)
	if err := groupManager.Refresh(ctx); err != nil {
		appLogger.Warn().Err(err).Msg("Group refresh error")
	}

	wheel := timer.NewWheel()

	manager := session.New(session.Options{
		DeviceTimeout:     cfg.DeviceTimeout(),
		UpdateDeviceState: cfg.StatusUpdateDeviceState,
		RegisterUnknown:   cfg.DatabaseRegisterUnknown,
		Identity:          memory,
		Devices:           memory,
		Permissions:       memory,
		Notifications:     notifications,
		Cache:             cache.NewManager(),
		Timer:             wheel,
		Motion:            handlers.NewMotionEventHandler(),
		Overspeed:         handlers.NewOverspeedEventHandler(),
		Logger:            appLogger,
	})
	defer manager.Close()

	if cfg.Web != nil && cfg.Web.ListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/api/socket", web.NewHandler(manager, appLogger))

		server := &http.Server{
			Addr:              cfg.Web.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLogger.Error().Err(err).Msg("Web server error")
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				appLogger.Warn().Err(err).Msg("Web server shutdown error")
			}
		}()

		appLogger.Info().Str("listen_addr", cfg.Web.ListenAddr).Msg("Subscription socket listening")
	}

	keepalive := time.NewTicker(cfg.Keepalive())
	defer keepalive.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	appLogger.Info().
		Int("status_timeout", cfg.StatusTimeout).
		Bool("register_unknown", cfg.DatabaseRegisterUnknown).
		Msg("Connection manager started")

	for {
		select {
		case <-keepalive.C:
			manager.SendKeepalive()
		case sig := <-stop:
			appLogger.Info().Str("signal", sig.String()).Msg("Shutting down")
			return nil
		}
	}
}
