package restservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/solestate/estated/internal/config"
	interfaces "github.com/solestate/estated/internal/interface"
	"github.com/solestate/estated/internal/telemetry"
	"github.com/solestate/estated/pkg/macaroons"
)

type service struct {
	version       string
	config        Config
	appConfig     *config.Config
	macaroonSvc   *macaroons.Service
	server        *http.Server
	appSvcStarted atomic.Bool
	otelShutdown  func(context.Context) error
}

func NewService(
	version string, svcConfig Config, appConfig *config.Config,
) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	return &service{
		version:   version,
		config:    svcConfig,
		appConfig: appConfig,
	}, nil
}

func (s *service) Start() error {
	ctx := context.Background()
	if s.appConfig.OtelCollectorEndpoint != "" {
		pushInterval := time.Duration(s.appConfig.OtelPushInterval) * time.Second
		otelShutdown, err := telemetry.InitOtelSDK(
			ctx, s.appConfig.OtelCollectorEndpoint, pushInterval,
		)
		if err != nil {
			return err
		}
		s.otelShutdown = otelShutdown
	}

	if !s.appConfig.NoMacaroons {
		macaroonSvc, err := newMacaroonService(s.appConfig.Datadir)
		if err != nil {
			return fmt.Errorf("failed to open macaroon store: %w", err)
		}
		s.macaroonSvc = macaroonSvc

		dir := filepath.Join(s.appConfig.Datadir, MacaroonsDir)
		created, err := genMacaroons(ctx, macaroonSvc, dir)
		if err != nil {
			return fmt.Errorf("failed to create macaroons: %w", err)
		}
		if created {
			log.Debugf("created and stored macaroons at path %s", dir)
		}
	}

	appSvc, err := s.appConfig.AppService()
	if err != nil {
		return fmt.Errorf("failed to create app service: %w", err)
	}
	if err := appSvc.Start(); err != nil {
		return fmt.Errorf("failed to start app service: %w", err)
	}
	s.appSvcStarted.Store(true)
	log.Info("started app service")

	// Bind before returning so a busy port fails Start instead of a goroutine.
	listener, err := net.Listen("tcp", s.config.address())
	if err != nil {
		s.appSvcStarted.Store(false)
		appSvc.Stop()
		return fmt.Errorf("failed to listen on %s: %w", s.config.address(), err)
	}

	s.server = &http.Server{
		Handler:           NewRouter(s.version, appSvc, s.macaroonSvc),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped unexpectedly")
		}
	}()

	log.Infof("started listening at %s", s.config.address())
	return nil
}

func (s *service) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.shutdownTimeout())
		if err := s.server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("failed to gracefully shutdown http server")
			_ = s.server.Close()
		}
		cancel()
		log.Info("stopped http server")
	}

	if s.appSvcStarted.CompareAndSwap(true, false) {
		appSvc, _ := s.appConfig.AppService()
		if appSvc != nil {
			appSvc.Stop()
			log.Info("stopped app service")
		}
	}

	if s.macaroonSvc != nil {
		if err := s.macaroonSvc.Close(); err != nil {
			log.WithError(err).Warn("failed to close macaroon store")
		}
		s.macaroonSvc = nil
	}

	if s.otelShutdown != nil {
		if err := s.otelShutdown(context.Background()); err != nil {
			log.Errorf("failed to shutdown otel: %s", err)
		}
	}
	log.Info("shutdown service")
}
