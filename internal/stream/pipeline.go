// Package stream はカメラURLを繰り返し取得してフレームを配信するループを提供する
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"camscout/internal/capture"
	"camscout/internal/codec"
	"camscout/internal/event"
	"camscout/internal/frame"
	"camscout/internal/logger"
)

// Options はストリームループの設定
type Options struct {
	FrameInterval time.Duration `yaml:"frame_interval" mapstructure:"frame_interval"` // フレーム間の最小間隔
	IdlePoll      time.Duration `yaml:"idle_poll" mapstructure:"idle_poll"`           // 間隔待ちの再確認周期
	FetchTimeout  time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`

	MaxWidth    int    `yaml:"max_width" mapstructure:"max_width"`
	JPEGQuality int    `yaml:"jpeg_quality" mapstructure:"jpeg_quality"`
	Resample    string `yaml:"resample" mapstructure:"resample"`

	BackoffBase time.Duration `yaml:"backoff_base" mapstructure:"backoff_base"`
	BackoffCap  time.Duration `yaml:"backoff_cap" mapstructure:"backoff_cap"`
}

// DefaultOptions はデフォルトのストリーム設定を返す
func DefaultOptions() Options {
	b := DefaultBackoff()
	return Options{
		FrameInterval: 100 * time.Millisecond,
		IdlePoll:      5 * time.Millisecond,
		FetchTimeout:  10 * time.Second,
		MaxWidth:      800,
		JPEGQuality:   80,
		Resample:      "nearest",
		BackoffBase:   b.Base,
		BackoffCap:    b.Cap,
	}
}

// Validate は設定値の妥当性を検証する
func (o Options) Validate() error {
	if o.FrameInterval < 0 {
		return fmt.Errorf("無効なフレーム間隔: %s", o.FrameInterval)
	}
	if o.IdlePoll <= 0 {
		return fmt.Errorf("無効なポーリング間隔: %s", o.IdlePoll)
	}
	if o.FetchTimeout <= 0 {
		return fmt.Errorf("無効な取得タイムアウト: %s", o.FetchTimeout)
	}
	if o.MaxWidth < 1 {
		return fmt.Errorf("無効な最大幅: %d", o.MaxWidth)
	}
	if o.JPEGQuality < 1 || o.JPEGQuality > 100 {
		return fmt.Errorf("無効なJPEG品質: %d", o.JPEGQuality)
	}
	if _, err := codec.ParseResampler(o.Resample); err != nil {
		return err
	}
	if o.BackoffBase <= 0 || o.BackoffCap < o.BackoffBase {
		return fmt.Errorf("無効なバックオフ設定: %s / %s", o.BackoffBase, o.BackoffCap)
	}
	return nil
}

// Pipeline はストリームループを生成する
// 全ループで1つのHTTPクライアントとフレームストアを共有する
type Pipeline struct {
	opts      Options
	fetcher   *capture.Fetcher
	store     *frame.Store
	sink      event.Sink
	resampler draw.Interpolator
	backoff   Backoff
}

// NewPipeline は新しいPipelineを作成する
// ストリームでは Content-Type を検査せず、デコード結果だけで判定する
func NewPipeline(opts Options, store *frame.Store, sink event.Sink) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	resampler, _ := codec.ParseResampler(opts.Resample)
	if sink == nil {
		sink = event.Nop
	}

	return &Pipeline{
		opts:      opts,
		fetcher:   capture.NewFetcher(NewClient(opts.FetchTimeout)).AcceptAnyContentType(),
		store:     store,
		sink:      sink,
		resampler: resampler,
		backoff:   Backoff{Base: opts.BackoffBase, Cap: opts.BackoffCap},
	}, nil
}

// Start はループを1本起動してHandleを返す
// ctx はアプリケーションの寿命を表すもので、リクエスト単位のものを渡してはならない
func (p *Pipeline) Start(ctx context.Context, session, rawURL string) (*Handle, error) {
	if err := capture.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	h := newHandle(session, rawURL)
	go p.run(ctx, h)

	// アプリケーション終了時にループを止める
	go func() {
		select {
		case <-ctx.Done():
			_ = h.Stop()
		case <-h.done:
		}
	}()

	return h, nil
}

func (p *Pipeline) run(ctx context.Context, h *Handle) {
	defer close(h.done)

	log := logger.WithFields(logrus.Fields{"session": h.session, "url": h.url})
	log.Info("ストリームを開始")
	defer log.Info("ストリームを終了")

	var lastFrame time.Time
	consecutive := 0

	for h.Running() {
		if !lastFrame.IsZero() && time.Since(lastFrame) < p.opts.FrameInterval {
			h.sleep(p.opts.IdlePoll)
			continue
		}

		frameStart := time.Now()
		payload, err := p.processFrame(ctx, h.url, frameStart)

		// 停止後に取得が終わった分は通知しない
		if !h.Running() {
			return
		}

		if err != nil {
			consecutive++
			h.failures.Add(1)
			log.WithError(err).WithField("consecutive", consecutive).Debug("フレーム取得に失敗")

			p.emit(h, event.ErrorUpdate(err))
			h.sleep(p.backoff.Delay(consecutive))
			continue
		}

		consecutive = 0
		lastFrame = frameStart
		h.frames.Add(1)
		h.lastFrame.Store(frameStart.UnixNano())
		p.emit(h, payload)
	}
}

// processFrame は1フレーム分の取得から変換までを行う
func (p *Pipeline) processFrame(ctx context.Context, url string, frameStart time.Time) (event.StreamUpdatePayload, error) {
	img, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return event.StreamUpdatePayload{}, err
	}

	p.store.Set(img)
	elapsed := uint64(time.Since(frameStart).Milliseconds())

	encoded, err := codec.EncodeBase64JPEG(codec.Resize(img, p.opts.MaxWidth, p.resampler), p.opts.JPEGQuality)
	if err != nil {
		return event.StreamUpdatePayload{}, err
	}

	return event.FrameUpdate(encoded, elapsed), nil
}

func (p *Pipeline) emit(h *Handle, payload event.StreamUpdatePayload) {
	p.sink.Emit(event.Event{
		Name:    event.StreamUpdate,
		Session: h.session,
		Payload: payload,
	})
}
