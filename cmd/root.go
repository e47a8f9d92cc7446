// Package main は camscout のコマンドラインツールです
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"camscout/internal/config"
	"camscout/internal/logger"
)

var (
	cfgFile  string
	envFile  string
	logLevel string

	loader    *config.Loader
	cfg       *config.Config
	logManage *logger.Manager
)

var rootCmd = &cobra.Command{
	Use:   "camscout",
	Short: "LAN上のHTTPカメラを探してプレビューする",
	Long: `camscout はローカルネットワークのIPカメラを検出し、
ライブプレビュー、静止画の取得と保存を行います。

例:
  camscout serve --port 8080
  camscout scan --subnet 192.168.0
  camscout capture --url http://192.168.1.20:4747/video --save`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnv(); err != nil {
			return err
		}

		loader = config.NewLoader(cfgFile)
		loaded, err := loader.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if logLevel == "debug" {
			pterm.EnableDebugMessages()
		}

		logManage, err = logger.Init(cfg.Log)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logManage != nil {
			_ = logManage.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "設定ファイルのパス (デフォルト: ./camscout.yaml, ./configs/camscout.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "読み込む .env ファイル")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newCaptureCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadEnv は .env を環境変数に読み込む。ファイルがなければ何もしない
func loadEnv() error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(".env の読み込みに失敗: %w", err)
	}
	return nil
}

// quietLogs はCLI表示と混ざらないようログを警告以上に絞る
func quietLogs(w io.Writer) {
	if logLevel == "" && cfg.Log.Output != "file" {
		_ = logManage.SetLevel("warn")
		logManage.Logger().SetOutput(w)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
