package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"camscout/internal/capture"
	"camscout/internal/logger"
	"camscout/internal/scanner"
	"camscout/internal/stream"
)

// EnvPrefix は環境変数による上書きの接頭辞
const EnvPrefix = "CAMSCOUT"

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig    `yaml:"server" mapstructure:"server"`
	Scan    scanner.Options `yaml:"scan" mapstructure:"scan"`
	Stream  stream.Options  `yaml:"stream" mapstructure:"stream"`
	Capture capture.Options `yaml:"capture" mapstructure:"capture"`
	Log     logger.Config   `yaml:"log" mapstructure:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"` // リッスンするホスト
	Port int    `yaml:"port" mapstructure:"port"` // リッスンするポート番号
	Mode string `yaml:"mode" mapstructure:"mode"` // gin のモード (debug / release / test)

	// タイムアウト設定
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`         // 読み込みタイムアウト
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`       // 書き込みタイムアウト
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // 終了待ちの上限

	EventBuffer int `yaml:"event_buffer" mapstructure:"event_buffer"` // SSE購読者ごとのバッファ
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // ストリーミング用にタイムアウト無効化
			ShutdownTimeout: 5 * time.Second,
			EventBuffer:     64,
		},
		Scan:    scanner.DefaultOptions(),
		Stream:  stream.DefaultOptions(),
		Capture: capture.DefaultOptions(),
		Log:     logger.DefaultConfig(),
	}
}

// Load は設定を読み込む
// 設定ファイルは ./camscout.yaml または ./configs/camscout.yaml を探す
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// Loader は viper を使って設定ファイルと環境変数を読み込む
type Loader struct {
	path string
	v    *viper.Viper
}

// NewLoader は新しいLoaderを作成する
// path が空の場合は既定の場所を探す
func NewLoader(path string) *Loader {
	return &Loader{path: path, v: viper.New()}
}

// Load は設定ファイル、環境変数、デフォルト値の順に優先して設定を組み立てる
func (l *Loader) Load() (*Config, error) {
	v := l.v

	if l.path != "" {
		if _, err := os.Stat(l.path); err != nil {
			return nil, fmt.Errorf("設定ファイルが見つかりません: %w", err)
		}
		v.SetConfigFile(l.path)
	} else {
		v.SetConfigName("camscout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	// 従来の PORT / SERVER_HOST も受け付ける
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.host", EnvPrefix+"_SERVER_HOST", "SERVER_HOST")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("設定の変換に失敗: %w", err)
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// ConfigFile は読み込んだ設定ファイルのパスを返す。なければ空
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// Watch は設定ファイルの変更を監視し、再読み込みした設定を渡す
// 設定ファイルを使っていない場合は false を返す
func (l *Loader) Watch(onChange func(*Config, error)) bool {
	if l.v.ConfigFileUsed() == "" {
		return false
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(l.decode())
	})
	l.v.WatchConfig()
	return true
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("無効なサーバーモード: %s", c.Server.Mode)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("無効な終了タイムアウト: %s", c.Server.ShutdownTimeout)
	}

	if err := c.Scan.Validate(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// YAML は設定をYAMLとして書き出す
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("設定のYAML変換に失敗: %w", err)
	}
	return out, nil
}

// setDefaults は全キーのデフォルト値を登録する
// 登録したキーだけが環境変数で上書きできる
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.event_buffer", d.Server.EventBuffer)

	v.SetDefault("scan.subnet_base", d.Scan.SubnetBase)
	v.SetDefault("scan.host_start", d.Scan.HostStart)
	v.SetDefault("scan.host_end", d.Scan.HostEnd)
	v.SetDefault("scan.ports", d.Scan.Ports)
	v.SetDefault("scan.camera_ports", d.Scan.CameraPorts)
	v.SetDefault("scan.concurrency", d.Scan.Concurrency)
	v.SetDefault("scan.batch_size", d.Scan.BatchSize)
	v.SetDefault("scan.connect_timeout", d.Scan.ConnectTimeout)

	v.SetDefault("stream.frame_interval", d.Stream.FrameInterval)
	v.SetDefault("stream.idle_poll", d.Stream.IdlePoll)
	v.SetDefault("stream.fetch_timeout", d.Stream.FetchTimeout)
	v.SetDefault("stream.max_width", d.Stream.MaxWidth)
	v.SetDefault("stream.jpeg_quality", d.Stream.JPEGQuality)
	v.SetDefault("stream.resample", d.Stream.Resample)
	v.SetDefault("stream.backoff_base", d.Stream.BackoffBase)
	v.SetDefault("stream.backoff_cap", d.Stream.BackoffCap)

	v.SetDefault("capture.timeout", d.Capture.Timeout)
	v.SetDefault("capture.output_dir", d.Capture.OutputDir)
	v.SetDefault("capture.format", d.Capture.Format)
	v.SetDefault("capture.history_size", d.Capture.HistorySize)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("log.caller", d.Log.Caller)
}
