// Package frame は最後に取得したフレームを保持する共有スロットを提供する
package frame

import (
	"image"
	"sync"
	"time"
)

// Snapshot はストアに格納された1フレーム分の情報
// Set に渡した画像は以後書き換えてはならない
type Snapshot struct {
	Image      image.Image
	CapturedAt time.Time
	Seq        uint64
}

// Store は最新フレームを1枚だけ保持する
// ロックはポインタの差し替えにだけ使う
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
	seq  uint64
}

// NewStore は空のStoreを作成する
func NewStore() *Store {
	return &Store{}
}

// Set はフレームを置き換える
func (s *Store) Set(img image.Image) Snapshot {
	now := time.Now()

	s.mu.Lock()
	s.seq++
	snap := &Snapshot{Image: img, CapturedAt: now, Seq: s.seq}
	s.snap = snap
	s.mu.Unlock()

	return *snap
}

// Get は現在のフレームを返す。空の場合は false
func (s *Store) Get() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return Snapshot{}, false
	}
	return *s.snap, true
}

// Seq はこれまでの書き込み回数を返す
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}
