package main

import (
	"context"

	"github.com/spf13/cobra"

	"camscout/internal/app"
	"camscout/internal/logger"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "HTTPサーバーを起動する",
		RunE: func(cmd *cobra.Command, args []string) error {
			// コマンドラインオプションで設定を上書き
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if app.WatchLogLevel(loader, logManage) {
				logger.Infof("設定ファイルを監視します: %s", loader.ConfigFile())
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := app.New(ctx, cfg, nil)
			if err != nil {
				return err
			}

			logger.Infof("camscout サーバーを起動します: %s", cfg.ServerAddress())
			return a.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "サーバーのポート (デフォルト: 8080)")

	return cmd
}
