package event

import (
	"sync"
	"time"
)

// Recorder は受け取ったイベントを全て記録する Sink
// 主にテストで使う
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder は新しいRecorderを作成する
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit はイベントを記録する
func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events は記録したイベントのコピーを返す
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByName は指定した名前のイベントだけを返す
func (r *Recorder) ByName(name Name) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// WaitFor は指定した名前のイベントが n 件以上になるまで待つ
// タイムアウトした場合はその時点の分を返す
func (r *Recorder) WaitFor(name Name, n int, timeout time.Duration) []Event {
	deadline := time.Now().Add(timeout)
	for {
		got := r.ByName(name)
		if len(got) >= n || time.Now().After(deadline) {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
}
