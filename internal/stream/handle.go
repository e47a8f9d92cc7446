package stream

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrStreamNotRunning は停止済みのストリームを止めようとした
var ErrStreamNotRunning = errors.New("stream not running")

// Handle は1本のストリームループの制御口
type Handle struct {
	session   string
	url       string
	startedAt time.Time

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	frames    atomic.Uint64
	failures  atomic.Uint64
	lastFrame atomic.Int64 // UnixNano
}

func newHandle(session, url string) *Handle {
	h := &Handle{
		session:   session,
		url:       url,
		startedAt: time.Now(),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	h.running.Store(true)
	return h
}

// Stop はループに停止を要求する
// 取得中のリクエストは完了まで待たずに戻る
func (h *Handle) Stop() error {
	if !h.running.CompareAndSwap(true, false) {
		return ErrStreamNotRunning
	}
	h.stopOnce.Do(func() { close(h.stopCh) })
	return nil
}

// Running はループが動作中かを返す
func (h *Handle) Running() bool {
	return h.running.Load()
}

// Done はループ終了時に閉じられるチャネルを返す
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Session はセッションIDを返す
func (h *Handle) Session() string {
	return h.session
}

// URL はストリーム元のURLを返す
func (h *Handle) URL() string {
	return h.url
}

// Status はストリームの状態
type Status struct {
	Session     string    `json:"session"`
	URL         string    `json:"url"`
	Running     bool      `json:"running"`
	Frames      uint64    `json:"frames"`
	Failures    uint64    `json:"failures"`
	StartedAt   time.Time `json:"started_at"`
	LastFrameAt time.Time `json:"last_frame_at,omitempty"`
}

// Status は現在の状態を返す
func (h *Handle) Status() Status {
	s := Status{
		Session:   h.session,
		URL:       h.url,
		Running:   h.running.Load(),
		Frames:    h.frames.Load(),
		Failures:  h.failures.Load(),
		StartedAt: h.startedAt,
	}
	if ns := h.lastFrame.Load(); ns != 0 {
		s.LastFrameAt = time.Unix(0, ns)
	}
	return s
}

// sleep は d だけ待つ。停止要求があれば早めに戻る
func (h *Handle) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-h.stopCh:
	}
}
