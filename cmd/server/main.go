package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harrylevesque/csms/internal/api"
	"github.com/harrylevesque/csms/internal/auth"
	"github.com/harrylevesque/csms/internal/certs"
	"github.com/harrylevesque/csms/internal/config"
	"github.com/harrylevesque/csms/internal/crypto"
	"github.com/harrylevesque/csms/internal/dashboard"
	"github.com/harrylevesque/csms/internal/metrics"
	"github.com/harrylevesque/csms/internal/notify"
	"github.com/harrylevesque/csms/internal/sensors"
	"github.com/harrylevesque/csms/internal/state"
	"github.com/harrylevesque/csms/internal/utils"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	addr := flag.String("addr", "", "Listen address, overrides server.addr")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log, closer, err := utils.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped")
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	master, generated, err := crypto.LoadOrGenerateMasterKey(utils.ResolvePath(cfg.Session.MasterKeyFile))
	if err != nil {
		return err
	}
	if generated {
		log.Warn().Msg("no master key configured, sessions will not survive a restart (run genmasterkey)")
	}
	keys, err := crypto.DeriveSessionKeys(master)
	if err != nil {
		return err
	}
	a, err := auth.New(cfg.Auth, cfg.Session, keys)
	if err != nil {
		return err
	}

	store, cleanup, err := newStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	m := metrics.New()
	dash := dashboard.New(store, sensors.NewGenerator(0), notifiers(cfg, log), m, log, dashboard.Options{
		WindowSize:    cfg.Server.WindowSize,
		HistoryRows:   cfg.Server.HistoryRows,
		NotifyTimeout: cfg.Server.NotifyTimeout,
		Thresholds:    thresholds(cfg.Thresholds),
	})
	srv, err := api.NewServer(cfg, a, dash, m, log)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server running")
		if cfg.Server.TLSCert != "" {
			cm := certs.NewCertManager(cfg.Server.TLSCert, cfg.Server.TLSKey)
			left, err := cm.Check()
			if err != nil {
				errCh <- err
				return
			}
			if left < 30*24*time.Hour {
				log.Warn().Dur("remaining", left).Msg("TLS certificate expires soon")
			}
			errCh <- httpServer.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	srv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (state.Store, func(), error) {
	if cfg.Redis.URL != "" {
		r, err := state.NewRedisStore(ctx, cfg.Redis.URL, cfg.Session.TTL, cfg.Server.WindowSize)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("session state in Redis")
		return r, func() { r.Close() }, nil
	}

	m := state.NewMemoryStore(cfg.Session.TTL, cfg.Server.WindowSize)
	sweepCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					log.Debug().Int("expired", n).Msg("swept session state")
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()
	return m, cancel, nil
}

func notifiers(cfg *config.Config, log zerolog.Logger) notify.Fanout {
	var f notify.Fanout
	if cfg.Email.Enabled {
		f = append(f, notify.NewEmailNotifier(cfg.Email))
	}
	if cfg.MQTT.Enabled {
		f = append(f, notify.NewMQTTNotifier(cfg.MQTT))
	}
	if len(f) == 0 {
		log.Info().Msg("no notification channel configured, alerts are only logged")
		f = append(f, notify.NewLogNotifier(log))
	}
	return f
}

func thresholds(t config.ThresholdsConfig) sensors.Thresholds {
	return sensors.Thresholds{
		TemperatureHigh: t.TemperatureHigh,
		TemperatureWarm: t.TemperatureWarm,
		HumidityHigh:    t.HumidityHigh,
		PressureLow:     t.PressureLow,
		CO2High:         t.CO2High,
		CO2Moderate:     t.CO2Moderate,
		PM25Moderate:    t.PM25Moderate,
	}
}
