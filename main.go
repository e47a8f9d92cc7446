package main

import (
	"context"
	"log"

	"camscout/internal/app"
	"camscout/internal/config"
	"camscout/internal/logger"
)

func main() {
	// 設定を読み込む
	loader := config.NewLoader("")
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// ロガーを初期化
	lm, err := logger.Init(cfg.Log)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗しました: %v", err)
	}
	defer lm.Close()

	app.WatchLogLevel(loader, lm)

	// コンテキストを作成
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		logger.Errorf("初期化に失敗しました: %v", err)
		return
	}

	// サーバーを起動
	if err := a.Run(ctx); err != nil {
		logger.Errorf("サーバーの起動に失敗しました: %v", err)
	}
}
