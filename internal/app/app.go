// Package app はサーバーモードの構成要素を組み立てる
package app

import (
	"context"
	"fmt"

	"camscout/internal/camera"
	"camscout/internal/config"
	"camscout/internal/event"
	"camscout/internal/logger"
	"camscout/internal/scanner"
	"camscout/internal/server"
)

// App はサーバーモードで動く一式
type App struct {
	Config  *config.Config
	Broker  *event.Broker
	Service camera.Service
	Server  *server.Server
}

// New は設定から App を組み立てる
// ctx はストリームループの寿命になる
func New(ctx context.Context, cfg *config.Config, dialer scanner.Dialer) (*App, error) {
	broker := event.NewBroker(cfg.Server.EventBuffer)
	discovery := camera.NewNetworkDiscovery(cfg.Scan, dialer, broker)

	svc, err := camera.NewService(ctx, discovery, broker, cfg.Stream, cfg.Capture)
	if err != nil {
		return nil, err
	}

	srv, err := server.New(cfg, svc, broker)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("サーバーの作成に失敗: %w", err)
	}

	return &App{
		Config:  cfg,
		Broker:  broker,
		Service: svc,
		Server:  srv,
	}, nil
}

// Run はサーバーを起動し、終了まで待つ
func (a *App) Run(ctx context.Context) error {
	return a.Server.Start(ctx)
}

// WatchLogLevel は設定ファイルの変更を監視してログレベルに反映する
func WatchLogLevel(loader *config.Loader, m *logger.Manager) bool {
	return loader.Watch(func(cfg *config.Config, err error) {
		if err != nil {
			logger.WithError(err).Warn("設定の再読み込みに失敗")
			return
		}
		if err := m.SetLevel(cfg.Log.Level); err != nil {
			logger.WithError(err).Warn("ログレベルの更新に失敗")
		}
	})
}
