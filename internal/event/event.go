// Package event はホストへ通知するイベントと配送の仕組みを提供する
package event

// Name はイベント名
type Name string

const (
	StreamUpdate Name = "stream-update" // ストリームのフレームまたはエラー
	ScanProgress Name = "scan-progress" // スキャン進捗
	PortFound    Name = "port-found"    // 開いているポートの発見
	ScanComplete Name = "scan-complete" // スキャン完了
)

// Event はホストに送る1件の通知
type Event struct {
	Name Name
	// Session が空の場合は全購読者に配送する
	Session string
	Payload any
}

// StreamUpdatePayload は stream-update の内容
// 成功時は ImageData、失敗時は Error のどちらか一方だけが入る
type StreamUpdatePayload struct {
	Error            *string `json:"error"`
	ProcessingTimeMs uint64  `json:"processing_time_ms"`
	ImageData        *string `json:"image_data"`
}

// FrameUpdate は成功時の stream-update を作る
func FrameUpdate(imageData string, processingMs uint64) StreamUpdatePayload {
	return StreamUpdatePayload{ImageData: &imageData, ProcessingTimeMs: processingMs}
}

// ErrorUpdate は失敗時の stream-update を作る
func ErrorUpdate(err error) StreamUpdatePayload {
	msg := err.Error()
	return StreamUpdatePayload{Error: &msg}
}

// ScanCompletePayload は scan-complete の内容
type ScanCompletePayload struct {
	Cameras []string `json:"cameras"`
}

// Sink はイベントの送り先
// Emit はブロックしてはならない
type Sink interface {
	Emit(e Event)
}

// SinkFunc は関数を Sink として使うためのアダプタ
type SinkFunc func(e Event)

// Emit は f(e) を呼ぶ
func (f SinkFunc) Emit(e Event) {
	f(e)
}

// Nop は何もしない Sink
var Nop Sink = SinkFunc(func(Event) {})
