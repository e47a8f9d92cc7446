// Package logger はlogrusベースのアプリケーションロガーを提供する
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config はログ出力の設定
type Config struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug / info / warn / error
	Format string `yaml:"format" mapstructure:"format"` // text / json
	Output string `yaml:"output" mapstructure:"output"` // stdout / stderr / file

	// Output が file の場合のローテーション設定
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"` // 日数
	Compress   bool   `yaml:"compress" mapstructure:"compress"`

	Caller bool `yaml:"caller" mapstructure:"caller"`
}

// DefaultConfig はデフォルトのログ設定を返す
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "text",
		Output:     "stdout",
		FilePath:   "logs/camscout.log",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// Validate は設定値の妥当性を検証する
func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("無効なログレベル: %s", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("無効なログフォーマット: %s", c.Format)
	}
	switch strings.ToLower(c.Output) {
	case "stdout", "stderr":
	case "file":
		if c.FilePath == "" {
			return fmt.Errorf("ファイル出力にはパスが必要です")
		}
	default:
		return fmt.Errorf("無効なログ出力先: %s", c.Output)
	}
	return nil
}

// Manager はロガーと現在の設定を保持する
type Manager struct {
	mu     sync.Mutex
	logger *logrus.Logger
	config Config
	closer io.Closer
}

var current atomic.Pointer[Manager]

func init() {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: timestampFormat})
	current.Store(&Manager{logger: l, config: DefaultConfig()})
}

const timestampFormat = "2006-01-02 15:04:05.000"

// Init は設定からロガーを作成し、パッケージ全体のロガーとして登録する
func Init(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := logrus.New()
	level, _ := logrus.ParseLevel(cfg.Level)
	l.SetLevel(level)
	l.SetReportCaller(cfg.Caller)
	setFormatter(l, cfg)

	closer, err := setOutput(l, cfg)
	if err != nil {
		return nil, fmt.Errorf("ログ出力の設定に失敗: %w", err)
	}

	m := &Manager{logger: l, config: cfg, closer: closer}
	if prev := current.Swap(m); prev != nil && prev.closer != nil {
		_ = prev.closer.Close()
	}
	return m, nil
}

func setFormatter(l *logrus.Logger, cfg Config) {
	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
		return
	}
	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: timestampFormat,
		FullTimestamp:   true,
	})
}

func setOutput(l *logrus.Logger, cfg Config) (io.Closer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		l.SetOutput(os.Stderr)
	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("ログディレクトリの作成に失敗: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		l.SetOutput(rotator)
		return rotator, nil
	default:
		l.SetOutput(os.Stdout)
	}
	return nil, nil
}

// Logger はlogrusインスタンスを返す
func (m *Manager) Logger() *logrus.Logger {
	return m.logger
}

// Config は現在の設定を返す
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// SetLevel は実行中にログレベルを変更する
func (m *Manager) SetLevel(level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("無効なログレベル: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.Level == level {
		return nil
	}
	m.logger.SetLevel(parsed)
	m.logger.Infof("ログレベルを変更: %s -> %s", m.config.Level, level)
	m.config.Level = level
	return nil
}

// Close はファイル出力を閉じる
func (m *Manager) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}

// Current は現在登録されているManagerを返す
func Current() *Manager {
	return current.Load()
}

// L は現在のlogrusインスタンスを返す
func L() *logrus.Logger {
	return current.Load().logger
}

func WithFields(fields logrus.Fields) *logrus.Entry { return L().WithFields(fields) }
func WithField(key string, value any) *logrus.Entry { return L().WithField(key, value) }
func WithError(err error) *logrus.Entry             { return L().WithError(err) }

func Debugf(format string, args ...any) { L().Debugf(format, args...) }
func Infof(format string, args ...any)  { L().Infof(format, args...) }
func Warnf(format string, args ...any)  { L().Warnf(format, args...) }
func Errorf(format string, args ...any) { L().Errorf(format, args...) }

func Info(args ...any)  { L().Info(args...) }
func Warn(args ...any)  { L().Warn(args...) }
func Error(args ...any) { L().Error(args...) }
