package uploads

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"MaintBackOffice/api/constants"
	"MaintBackOffice/internal/config"
	"MaintBackOffice/internal/logger"
	"MaintBackOffice/internal/resources"
	"MaintBackOffice/internal/serviceiface"
	"MaintBackOffice/internal/store"
	"MaintBackOffice/internal/upload"

	"go.uber.org/zap"
)

type UploadService struct {
	config   map[string]interface{}
	store    store.Store
	registry *resources.Registry
	server   *http.Server
	addr     net.Addr
}

func NewUploadService(cfg map[string]interface{}, st store.Store) serviceiface.Service {
	return &UploadService{config: cfg, store: st, registry: resources.Default()}
}

func (s *UploadService) Name() string {
	return "upload"
}

func (s *UploadService) Start() error {
	if s.store == nil {
		return fmt.Errorf(constants.ErrServiceNeedsStore, s.Name())
	}
	cfg := config.UploadConfigFrom(s.config)
	if addr := os.Getenv("UPLOAD_ADDR"); addr != "" {
		cfg.Addr = addr
	}

	orch := upload.NewOrchestrator(s.store, cfg)
	h := NewHandler(s.store, s.registry, orch, cfg.MaxUploadBytes)
	s.server = &http.Server{
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("upload service listen on %s: %w", cfg.Addr, err)
	}
	s.addr = ln.Addr()
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("upload service stopped unexpectedly", zap.Error(err))
		}
	}()
	logger.Audit("upload service started",
		zap.String("addr", s.addr.String()),
		zap.Strings("resources", s.registry.Names()),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("max_in_flight", cfg.MaxInFlight))
	return nil
}

// Stop waits for in-flight uploads to finish streaming, up to 30 seconds.
func (s *UploadService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("upload service shutdown: %w", err)
	}
	zap.L().Info("upload service stopped")
	return nil
}
