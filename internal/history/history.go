// Package history は直近のキャプチャ履歴を保持する
package history

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"camscout/internal/codec"
)

// DefaultSize は保持する履歴の既定件数
const DefaultSize = 20

// ThumbnailWidth はサムネイルの最大幅
const ThumbnailWidth = 160

// Entry はキャプチャ1件分の記録
type Entry struct {
	ID         string    `json:"id"`
	Seq        uint64    `json:"seq"` // フレームストア上の書き込み番号
	URL        string    `json:"url"`
	CapturedAt time.Time `json:"captured_at"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Thumbnail  string    `json:"thumbnail"` // Base64 JPEG
	SavedAs    string    `json:"saved_as,omitempty"`
}

// NewEntry は画像からサムネイル付きの記録を作る
func NewEntry(seq uint64, url string, img image.Image, capturedAt time.Time) (Entry, error) {
	thumb, err := codec.EncodeBase64JPEG(codec.Resize(img, ThumbnailWidth, nil), 70)
	if err != nil {
		return Entry{}, fmt.Errorf("サムネイルの作成に失敗: %w", err)
	}

	b := img.Bounds()
	return Entry{
		ID:         uuid.New().String(),
		Seq:        seq,
		URL:        url,
		CapturedAt: capturedAt,
		Width:      b.Dx(),
		Height:     b.Dy(),
		Thumbnail:  thumb,
	}, nil
}

// History は上限付きのFIFO
type History struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
}

// New は新しいHistoryを作成する
func New(max int) *History {
	if max <= 0 {
		max = DefaultSize
	}
	return &History{
		entries: make([]Entry, 0, max),
		max:     max,
	}
}

// Add は記録を追加し、上限を超えた分を古い順に捨てる
func (h *History) Add(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, e)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

// MarkSaved は seq が一致する記録に保存先ファイル名を付ける
// 該当する記録がなければ false
func (h *History) MarkSaved(seq uint64, filename string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].Seq == seq {
			h.entries[i].SavedAs = filename
			return true
		}
	}
	return false
}

// List は新しい順に記録のコピーを返す
func (h *History) List() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Entry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

// Len は現在の件数を返す
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
