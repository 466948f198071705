// Package server assembles a running nfs4state instance from its
// configuration: the client store, the state registry, the COMPOUND
// handler, the admin API and the config watcher.
package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/nfs4state/internal/logger"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/handlers"
	"github.com/marmos91/nfs4state/internal/protocol/nfs/v4/state"
	"github.com/marmos91/nfs4state/pkg/api"
	"github.com/marmos91/nfs4state/pkg/config"
	badgerstore "github.com/marmos91/nfs4state/pkg/store/badger"
)

// Server owns every long-lived component of an instance.
type Server struct {
	cfg        *config.Config
	configPath string

	registry *prometheus.Registry
	store    *badgerstore.ClientStore
	sm       *state.StateManager
	handler  *handlers.Handler
	api      *api.Server
}

// New builds a server from cfg. configPath, when set, is watched for log
// level changes while serving. The caller must eventually call Serve or
// Close to release the client store.
func New(cfg *config.Config, configPath string) (*Server, error) {
	s := &Server{cfg: cfg, configPath: configPath}

	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		reg = s.registry
	}

	smCfg := state.Config{
		LeaseDuration:    cfg.State.LeaseDuration,
		GracePeriod:      cfg.State.GracePeriod,
		SessionCacheSize: cfg.State.SessionCacheSize,
		SessionTTLFactor: cfg.State.SessionCacheTTLFactor,
		MaxSlots:         cfg.State.MaxSlots,
		Registerer:       reg,
	}

	if cfg.Store.Enabled {
		store, err := badgerstore.Open(badgerstore.Config{Path: cfg.Store.Path})
		if err != nil {
			return nil, fmt.Errorf("failed to open client store: %w", err)
		}
		s.store = store
		smCfg.Store = store
	}

	s.sm = state.NewStateManager(smCfg)
	s.handler = handlers.NewHandler(s.sm)

	if cfg.API.Enabled {
		deps := api.Deps{State: s.sm}
		if s.store != nil {
			deps.Store = s.store
		}
		if s.registry != nil {
			deps.Gatherer = s.registry
		}
		s.api = api.NewServer(cfg.API, deps)
	}

	return s, nil
}

// StateManager returns the client and session registry.
func (s *Server) StateManager() *state.StateManager { return s.sm }

// CompoundHandler returns the COMPOUND processor that an RPC transport
// feeds decoded requests into.
func (s *Server) CompoundHandler() *handlers.Handler { return s.handler }

// API returns the admin API server, or nil when it is disabled.
func (s *Server) API() *api.Server { return s.api }

// Serve recovers persisted clients, starts the lease reaper, the admin API
// and the config watcher, and blocks until ctx is cancelled or a component
// fails. Everything is shut down before Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	defer s.Close()

	if err := s.sm.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover persisted clients: %w", err)
	}
	s.sm.StartReaper(ctx, s.cfg.State.ReaperInterval)

	logger.Info("State manager ready",
		"lease", s.sm.LeaseDuration(),
		"boot_epoch", s.sm.BootEpoch(),
		"grace", s.sm.Grace().InGrace())

	g, gctx := errgroup.WithContext(ctx)

	if s.api != nil {
		g.Go(func() error { return s.api.Start(gctx) })
	}

	if s.configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, s.configPath, func(c *config.Config) {
				logger.SetLevel(c.Logging.Level)
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Close stops the registry and closes the client store. Safe to call
// after Serve.
func (s *Server) Close() {
	s.sm.Shutdown()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			logger.Warn("Failed to close client store", logger.KeyError, err)
		}
		s.store = nil
	}
}
