package camera

import (
	"context"
	"fmt"
	"time"

	"camscout/internal/capture"
	"camscout/internal/event"
	"camscout/internal/frame"
	"camscout/internal/history"
	"camscout/internal/logger"
	"camscout/internal/stream"
)

// closeTimeout はClose時にループの終了を待つ上限
const closeTimeout = 5 * time.Second

// defaultService はServiceのデフォルト実装
type defaultService struct {
	discovery Discovery
	sink      event.Sink
	store     *frame.Store
	history   *history.History
	capture   *capture.Adapter
	streams   *streamManager
}

// NewService は新しいServiceを作成する
// ctx はストリームループの寿命になる
func NewService(ctx context.Context, discovery Discovery, sink event.Sink, streamOpts stream.Options, captureOpts capture.Options) (Service, error) {
	if sink == nil {
		sink = event.Nop
	}

	store := frame.NewStore()
	hist := history.New(captureOpts.HistorySize)

	adapter, err := capture.NewAdapter(captureOpts, store, hist)
	if err != nil {
		return nil, fmt.Errorf("キャプチャ設定が不正です: %w", err)
	}

	pipeline, err := stream.NewPipeline(streamOpts, store, sink)
	if err != nil {
		return nil, fmt.Errorf("ストリーム設定が不正です: %w", err)
	}

	return &defaultService{
		discovery: discovery,
		sink:      sink,
		store:     store,
		history:   hist,
		capture:   adapter,
		streams:   newStreamManager(ctx, pipeline),
	}, nil
}

// Capture はURLから1枚取得して共有フレームに格納する
func (s *defaultService) Capture(ctx context.Context, url string) (string, error) {
	return s.capture.Capture(ctx, url)
}

// Save は共有フレームをファイルに保存する
func (s *defaultService) Save(ctx context.Context) (string, error) {
	filename, err := s.capture.Save(ctx)
	if err != nil {
		return "", err
	}
	logger.Infof("画像を保存: %s", filename)
	return filename, nil
}

// StartStream はセッションにストリームを割り当てて開始する
func (s *defaultService) StartStream(session, url string) error {
	return s.streams.start(session, url)
}

// StopStream はセッションのストリームを停止する
func (s *defaultService) StopStream(session string) error {
	return s.streams.stop(session)
}

// Scan はLANをスキャンしてカメラ候補を返す
// 完了時に scan-complete を通知する
func (s *defaultService) Scan(ctx context.Context) ([]string, error) {
	if s.discovery == nil {
		return nil, fmt.Errorf("検出機能が設定されていません")
	}

	start := time.Now()
	cameras, err := s.discovery.ScanDevices(ctx)
	if err != nil {
		return nil, err
	}
	if cameras == nil {
		cameras = []string{}
	}

	logger.Infof("スキャン完了: %d 件のカメラ候補 (%s)", len(cameras), time.Since(start).Round(time.Millisecond))
	s.sink.Emit(event.Event{
		Name:    event.ScanComplete,
		Payload: event.ScanCompletePayload{Cameras: cameras},
	})

	return cameras, nil
}

// Presets はカメラURLのプリセット一覧を返す
func (s *defaultService) Presets() []Preset {
	return Presets()
}

// History は直近のキャプチャ履歴を返す
func (s *defaultService) History() []history.Entry {
	return s.history.List()
}

// Latest は共有フレームの現在値を返す
func (s *defaultService) Latest() (frame.Snapshot, bool) {
	return s.store.Get()
}

// Streams は登録中のストリームの状態を返す
func (s *defaultService) Streams() []stream.Status {
	return s.streams.statuses()
}

// Close は全ストリームを停止する
func (s *defaultService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	return s.streams.stopAll(ctx)
}
