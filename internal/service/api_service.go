package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/api"
	"github.com/ingeniumed/Sitsense/internal/config"
	"github.com/ingeniumed/Sitsense/internal/database"
	"github.com/ingeniumed/Sitsense/internal/notifier"
	"github.com/ingeniumed/Sitsense/internal/repository"
)

// APIService 管理与Slack集成的HTTP服务
type APIService struct {
	cfg    *config.Config
	logger *zap.Logger

	db         *sql.DB
	httpServer *http.Server
}

// NewAPIService 创建API服务
func NewAPIService(cfg *config.Config, logger *zap.Logger) *APIService {
	return &APIService{
		cfg:    cfg,
		logger: logger,
	}
}

// Start 启动HTTP服务
func (s *APIService) Start() error {
	db, err := database.NewPostgresDB(&s.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db

	beacons := repository.NewBeaconRepository(db, s.logger)
	reports := repository.NewReportRepository(db, s.logger)
	tokens := repository.NewSlackTokenRepository(db, s.logger)
	slackClient := notifier.NewClient(&s.cfg.Slack, s.logger)

	server := api.NewServer(beacons, reports, tokens, slackClient, s.cfg.HTTP.SecretKey, s.logger)

	s.httpServer = &http.Server{
		Addr:         s.cfg.HTTP.Addr,
		Handler:      server.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		s.logger.Info("API service listening", zap.String("addr", s.cfg.HTTP.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop 优雅关闭HTTP服务并释放连接
func (s *APIService) Stop() {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down http server", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := database.Close(s.db); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Info("API service stopped")
}
