package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"devdb/pkg/common/config"
	"devdb/pkg/common/logger"
	"devdb/pkg/common/restful"
	"devdb/pkg/common/worker"
	"devdb/pkg/dbapi"
	"devdb/pkg/service"
)

// NewAPIServer builds the admin HTTP server around svc without starting it.
func NewAPIServer(cfg *config.Config, svc *service.Service) *restful.Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := restful.NewServer(restful.WithAddress(cfg.Server.Address))
	api := srv.Engine.Group("/api")
	dbapi.RegisterRoutes(api.Group("/db"), svc)
	dbapi.RegisterPoolRoutes(api.Group("/pool"))
	return srv
}

// RunAPI serves the admin API until ctx is cancelled.
func RunAPI(ctx context.Context, cfg *config.Config) error {
	log := logger.WithComponent("app")
	log.Info().Msg("Starting devdb admin service")

	if err := worker.Init(cfg.Worker.Size); err != nil {
		return err
	}
	defer worker.Release()

	svc, err := service.NewService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())

	srv := NewAPIServer(cfg, svc)
	if err := srv.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("Server exited cleanly")
	return nil
}
