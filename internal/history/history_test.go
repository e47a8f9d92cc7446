package history

import (
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	now := time.Now()

	e, err := NewEntry(7, "http://192.168.1.20:8080/video", img, now)
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, uint64(7), e.Seq)
	assert.Equal(t, 640, e.Width)
	assert.Equal(t, 480, e.Height)
	assert.NotEmpty(t, e.Thumbnail)
	assert.Equal(t, now, e.CapturedAt)
}

func TestHistory_Bounded(t *testing.T) {
	h := New(3)

	for i := 0; i < 5; i++ {
		h.Add(Entry{ID: fmt.Sprint(i)})
	}

	if h.Len() != 3 {
		t.Fatalf("Expected 3 entries, got %d", h.Len())
	}

	// 新しい順で、古い2件は捨てられている
	list := h.List()
	ids := []string{list[0].ID, list[1].ID, list[2].ID}
	assert.Equal(t, []string{"4", "3", "2"}, ids)
}

func TestHistory_MarkSaved(t *testing.T) {
	h := New(0)
	assert.False(t, h.MarkSaved(1, "ignored.png"))
	assert.Equal(t, 0, h.Len())

	h.Add(Entry{ID: "a", Seq: 1})
	h.Add(Entry{ID: "b", Seq: 4})

	assert.True(t, h.MarkSaved(1, "2025-01-01-00-00-00.png"))

	list := h.List()
	assert.Empty(t, list[0].SavedAs)
	assert.Equal(t, "2025-01-01-00-00-00.png", list[1].SavedAs)

	// 履歴にないフレーム (ストリーム由来など) は何も付けない
	assert.False(t, h.MarkSaved(3, "2025-01-01-00-00-01.png"))
	for _, e := range h.List() {
		assert.NotEqual(t, "2025-01-01-00-00-01.png", e.SavedAs)
	}
}
