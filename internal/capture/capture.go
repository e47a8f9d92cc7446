// Package capture は単発の画像取得と保存を扱う
package capture

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"camscout/internal/codec"
	"camscout/internal/frame"
	"camscout/internal/history"
	"camscout/internal/logger"
)

// CapturedMessage は取得成功時にホストへ返す文言
const CapturedMessage = "Image captured successfully"

// filenameLayout は保存ファイル名の時刻部分
const filenameLayout = "2006-01-02-15-04-05"

// Options はキャプチャと保存の設定
type Options struct {
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	OutputDir   string        `yaml:"output_dir" mapstructure:"output_dir"`
	Format      string        `yaml:"format" mapstructure:"format"` // png / bmp / tiff
	HistorySize int           `yaml:"history_size" mapstructure:"history_size"`
}

// DefaultOptions はデフォルトの設定を返す
func DefaultOptions() Options {
	return Options{
		Timeout:     10 * time.Second,
		OutputDir:   ".",
		Format:      string(codec.FormatPNG),
		HistorySize: history.DefaultSize,
	}
}

// Validate は設定値の妥当性を検証する
func (o Options) Validate() error {
	if o.Timeout <= 0 {
		return fmt.Errorf("無効なキャプチャタイムアウト: %s", o.Timeout)
	}
	if o.OutputDir == "" {
		return fmt.Errorf("保存先ディレクトリが指定されていません")
	}
	if _, err := codec.ParseFormat(o.Format); err != nil {
		return err
	}
	if o.HistorySize < 1 {
		return fmt.Errorf("無効な履歴サイズ: %d", o.HistorySize)
	}
	return nil
}

// Adapter は共有フレームストアを介したキャプチャと保存を行う
type Adapter struct {
	fetcher   *Fetcher
	store     *frame.Store
	history   *history.History
	outputDir string
	format    codec.Format
	now       func() time.Time
}

// NewAdapter は新しいAdapterを作成する
func NewAdapter(opts Options, store *frame.Store, hist *history.History) (*Adapter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	format, _ := codec.ParseFormat(opts.Format)

	return &Adapter{
		fetcher:   NewFetcher(&http.Client{Timeout: opts.Timeout}),
		store:     store,
		history:   hist,
		outputDir: opts.OutputDir,
		format:    format,
		now:       time.Now,
	}, nil
}

// Capture はURLから1枚取得してストアに格納する
// 失敗した場合ストアは変更しない
func (a *Adapter) Capture(ctx context.Context, rawURL string) (string, error) {
	if err := ValidateURL(rawURL); err != nil {
		return "", err
	}

	img, err := a.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	snap := a.store.Set(img)

	if a.history != nil {
		entry, err := history.NewEntry(snap.Seq, rawURL, img, snap.CapturedAt)
		if err != nil {
			logger.WithError(err).Warn("キャプチャ履歴の記録に失敗")
		} else {
			a.history.Add(entry)
		}
	}

	return CapturedMessage, nil
}

// Save はストアの画像を可逆形式で書き出し、ファイル名を返す
// 同じ秒に保存した場合は上書きする
func (a *Adapter) Save(ctx context.Context) (string, error) {
	snap, ok := a.store.Get()
	if !ok {
		return "", ErrNoImage
	}

	data, err := codec.EncodeLossless(snap.Image, a.format)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(a.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("保存先ディレクトリの作成に失敗: %w", err)
	}

	filename := filepath.Join(a.outputDir, a.now().Format(filenameLayout)+a.format.Ext())
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("ファイルの書き込みに失敗: %w", err)
	}

	// 保存した画像がキャプチャ由来のときだけ履歴に紐付ける
	if a.history != nil {
		a.history.MarkSaved(snap.Seq, filename)
	}

	return filename, nil
}

