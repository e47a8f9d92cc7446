package stream

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camscout/internal/capture"
	"camscout/internal/event"
	"camscout/internal/frame"
)

func TestBackoff_Delay(t *testing.T) {
	b := DefaultBackoff()

	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{10, time.Second},
		{64, time.Second},
		{-1, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := b.Delay(tt.n); got != tt.want {
			t.Errorf("Delay(%d) = %s, expected %s", tt.n, got, tt.want)
		}
	}
}

func TestHandle_StopTwice(t *testing.T) {
	h := newHandle("s", "http://camera")
	assert.True(t, h.Running())

	require.NoError(t, h.Stop())
	assert.False(t, h.Running())

	if err := h.Stop(); !errors.Is(err, ErrStreamNotRunning) {
		t.Errorf("Expected ErrStreamNotRunning, got %v", err)
	}
}

func pngFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

type cameraServer struct {
	*httptest.Server
	requests atomic.Int64
}

// newCameraServer は handler の前にリクエスト数を数えるサーバーを立てる
func newCameraServer(t *testing.T, handler func(n int64, w http.ResponseWriter)) *cameraServer {
	t.Helper()
	cs := &cameraServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(cs.requests.Add(1), w)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func newTestPipeline(t *testing.T, modify func(*Options)) (*Pipeline, *frame.Store, *event.Recorder) {
	t.Helper()
	opts := DefaultOptions()
	if modify != nil {
		modify(&opts)
	}
	store := frame.NewStore()
	rec := event.NewRecorder()
	p, err := NewPipeline(opts, store, rec)
	require.NoError(t, err)
	return p, store, rec
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Expected stream loop to exit")
	}
}

func TestPipeline_StreamsResizedFrames(t *testing.T) {
	body := pngFrame(t, 1600, 1200)
	srv := newCameraServer(t, func(_ int64, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	})
	p, store, rec := newTestPipeline(t, nil)

	h, err := p.Start(context.Background(), "session-1", srv.URL)
	require.NoError(t, err)

	updates := rec.WaitFor(event.StreamUpdate, 2, 3*time.Second)
	require.NoError(t, h.Stop())
	waitDone(t, h)
	require.GreaterOrEqual(t, len(updates), 2)

	payload, ok := updates[0].Payload.(event.StreamUpdatePayload)
	require.True(t, ok)
	assert.Equal(t, "session-1", updates[0].Session)
	assert.Nil(t, payload.Error)
	require.NotNil(t, payload.ImageData)

	raw, err := base64.StdEncoding.DecodeString(*payload.ImageData)
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 600), img.Bounds())

	// ストアには元の解像度で入る
	snap, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 1600, 1200), snap.Image.Bounds())

	status := h.Status()
	assert.False(t, status.Running)
	assert.GreaterOrEqual(t, status.Frames, uint64(2))
}

func TestPipeline_AcceptsOctetStream(t *testing.T) {
	body := pngFrame(t, 16, 12)
	srv := newCameraServer(t, func(_ int64, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(body)
	})
	p, store, rec := newTestPipeline(t, nil)

	h, err := p.Start(context.Background(), "s", srv.URL)
	require.NoError(t, err)

	updates := rec.WaitFor(event.StreamUpdate, 1, 2*time.Second)
	require.NoError(t, h.Stop())
	waitDone(t, h)
	require.NotEmpty(t, updates)

	// Content-Type ではなくデコード結果で判定する
	payload := updates[0].Payload.(event.StreamUpdatePayload)
	assert.Nil(t, payload.Error)
	assert.NotNil(t, payload.ImageData)

	snap, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 16, 12), snap.Image.Bounds())
}

func TestPipeline_Pacing(t *testing.T) {
	body := pngFrame(t, 4, 4)
	srv := newCameraServer(t, func(_ int64, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	})
	p, _, _ := newTestPipeline(t, nil)

	h, err := p.Start(context.Background(), "s", srv.URL)
	require.NoError(t, err)

	time.Sleep(350 * time.Millisecond)
	require.NoError(t, h.Stop())
	waitDone(t, h)

	// 100ms間隔なので350msで高々4回 (余裕を見て5)
	if n := srv.requests.Load(); n < 1 || n > 5 {
		t.Errorf("Expected between 1 and 5 requests, got %d", n)
	}
}

func TestPipeline_ErrorsBackOff(t *testing.T) {
	srv := newCameraServer(t, func(_ int64, w http.ResponseWriter) {
		http.Error(w, "offline", http.StatusInternalServerError)
	})
	p, store, rec := newTestPipeline(t, nil)

	h, err := p.Start(context.Background(), "s", srv.URL)
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)
	require.NoError(t, h.Stop())
	waitDone(t, h)

	// 200ms, 400ms と待つので500msでは高々3回
	updates := rec.ByName(event.StreamUpdate)
	if len(updates) < 1 || len(updates) > 3 {
		t.Fatalf("Expected between 1 and 3 error updates, got %d", len(updates))
	}

	for _, u := range updates {
		payload := u.Payload.(event.StreamUpdatePayload)
		require.NotNil(t, payload.Error)
		assert.Contains(t, *payload.Error, "500")
		assert.Nil(t, payload.ImageData)
		assert.Equal(t, uint64(0), payload.ProcessingTimeMs)
	}

	_, ok := store.Get()
	assert.False(t, ok)
}

func TestPipeline_RecoversAfterFailures(t *testing.T) {
	body := pngFrame(t, 8, 8)
	srv := newCameraServer(t, func(n int64, w http.ResponseWriter) {
		if n <= 2 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	})
	p, _, rec := newTestPipeline(t, func(o *Options) {
		o.BackoffBase = time.Millisecond
		o.BackoffCap = 5 * time.Millisecond
	})

	h, err := p.Start(context.Background(), "s", srv.URL)
	require.NoError(t, err)
	defer h.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, u := range rec.ByName(event.StreamUpdate) {
			if u.Payload.(event.StreamUpdatePayload).ImageData != nil {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Expected a successful frame after transient failures")
}

func TestPipeline_StopWakesBackoff(t *testing.T) {
	srv := newCameraServer(t, func(_ int64, w http.ResponseWriter) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	p, _, rec := newTestPipeline(t, func(o *Options) {
		o.BackoffBase = 10 * time.Second
		o.BackoffCap = 10 * time.Second
	})

	h, err := p.Start(context.Background(), "s", srv.URL)
	require.NoError(t, err)
	require.Len(t, rec.WaitFor(event.StreamUpdate, 1, 2*time.Second), 1)

	start := time.Now()
	require.NoError(t, h.Stop())
	waitDone(t, h)

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected stop to interrupt backoff, took %s", elapsed)
	}

	// 停止後は通知しない
	n := len(rec.Events())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, len(rec.Events()))
}

func TestPipeline_ContextCancelStops(t *testing.T) {
	srv := newCameraServer(t, func(_ int64, w http.ResponseWriter) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	p, _, _ := newTestPipeline(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	h, err := p.Start(ctx, "s", srv.URL)
	require.NoError(t, err)

	cancel()
	waitDone(t, h)
	assert.False(t, h.Running())
}

func TestPipeline_InvalidURL(t *testing.T) {
	p, _, _ := newTestPipeline(t, nil)

	_, err := p.Start(context.Background(), "s", "not a url")
	assert.ErrorIs(t, err, capture.ErrInvalidURL)
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	opts := DefaultOptions()
	opts.JPEGQuality = 0
	assert.Error(t, opts.Validate())

	opts = DefaultOptions()
	opts.BackoffCap = opts.BackoffBase / 2
	assert.Error(t, opts.Validate())

	opts = DefaultOptions()
	opts.Resample = "magic"
	assert.Error(t, opts.Validate())
}
