package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"camscout/internal/camera"
	"camscout/internal/config"
	"camscout/internal/event"
	"camscout/internal/logger"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	camera     camera.Service
	broker     *event.Broker
	engine     *gin.Engine
	httpServer *http.Server
}

// New は新しいServerインスタンスを作成する
// broker は camera.Service のイベント送り先と同じものを渡す
func New(cfg *config.Config, svc camera.Service, broker *event.Broker) (*Server, error) {
	gin.SetMode(cfg.Server.Mode)

	doc, err := loadOpenAPI()
	if err != nil {
		return nil, err
	}
	validator, err := openAPIValidator(doc)
	if err != nil {
		return nil, fmt.Errorf("API検証ルーターの作成に失敗: %w", err)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), validator)

	s := &Server{
		config: cfg,
		camera: svc,
		broker: broker,
		engine: engine,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	h := &handler{config: s.config, camera: s.camera, broker: s.broker}

	// ヘルスチェックエンドポイント
	s.engine.GET("/health", h.healthCheck)

	api := s.engine.Group("/api")
	api.GET("/status", h.getStatus)
	api.GET("/openapi.yaml", h.getOpenAPI)

	api.POST("/capture", h.capture)
	api.POST("/save", h.save)
	api.POST("/stream/start", h.startStream)
	api.POST("/stream/stop", h.stopStream)
	api.POST("/scan", h.scan)

	api.GET("/events", h.events)
	api.GET("/presets", h.getPresets)
	api.GET("/captures", h.getCaptures)
	api.GET("/frame/latest", h.getLatestFrame)
}

// Handler はルーティング済みのhttp.Handlerを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		logger.Infof("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		logger.Infof("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// SSE購読を先に閉じてから接続の終了を待つ
func (s *Server) Shutdown() error {
	logger.Info("サーバーをシャットダウンしています...")

	s.broker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	if err := s.camera.Close(); err != nil {
		return fmt.Errorf("ストリームの停止に失敗: %w", err)
	}

	logger.Info("サーバーが正常にシャットダウンされました")
	return nil
}
