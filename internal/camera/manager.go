package camera

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"camscout/internal/logger"
	"camscout/internal/stream"
)

// streamManager はセッションごとのストリームを管理する
type streamManager struct {
	ctx      context.Context
	pipeline *stream.Pipeline
	handles  map[string]*stream.Handle
	mu       sync.RWMutex
}

func newStreamManager(ctx context.Context, pipeline *stream.Pipeline) *streamManager {
	return &streamManager{
		ctx:      ctx,
		pipeline: pipeline,
		handles:  make(map[string]*stream.Handle),
	}
}

// start はセッションのストリームを開始する
// 同じセッションで動作中のものがあれば先に止める
func (m *streamManager) start(session, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, exists := m.handles[session]; exists {
		if err := prev.Stop(); err == nil {
			logger.Infof("セッション %s の既存ストリームを停止", session)
		}
		delete(m.handles, session)
	}

	h, err := m.pipeline.Start(m.ctx, session, url)
	if err != nil {
		return fmt.Errorf("ストリームの開始に失敗: %w", err)
	}

	m.handles[session] = h
	return nil
}

// stop はセッションのストリームを停止して登録を外す
func (m *streamManager) stop(session string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, exists := m.handles[session]
	if !exists {
		return ErrStreamNotRunning
	}
	delete(m.handles, session)

	return h.Stop()
}

// stopAll は全ストリームを停止し、ループの終了を待つ
func (m *streamManager) stopAll(ctx context.Context) error {
	m.mu.Lock()
	handles := m.handles
	m.handles = make(map[string]*stream.Handle)
	m.mu.Unlock()

	for _, h := range handles {
		_ = h.Stop()
	}

	for session, h := range handles {
		select {
		case <-h.Done():
		case <-ctx.Done():
			return fmt.Errorf("セッション %s の停止待ちがタイムアウト: %w", session, ctx.Err())
		}
	}
	return nil
}

// statuses はセッションID順に状態を返す
func (m *streamManager) statuses() []stream.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]stream.Status, 0, len(m.handles))
	for _, h := range m.handles {
		out = append(out, h.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Session < out[j].Session })
	return out
}
