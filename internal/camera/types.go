package camera

import (
	"context"

	"camscout/internal/frame"
	"camscout/internal/history"
	"camscout/internal/stream"
)

// ErrStreamNotRunning は指定セッションで動作中のストリームがない
var ErrStreamNotRunning = stream.ErrStreamNotRunning

// Service はホストから呼ばれるカメラ操作の窓口
type Service interface {
	// Capture はURLから1枚取得して共有フレームに格納する
	Capture(ctx context.Context, url string) (string, error)

	// Save は共有フレームをファイルに保存し、ファイル名を返す
	Save(ctx context.Context) (string, error)

	// StartStream はセッションにストリームを割り当てて開始する
	StartStream(session, url string) error

	// StopStream はセッションのストリームを停止する
	StopStream(session string) error

	// Scan はLANをスキャンしてカメラ候補のURLを返す
	Scan(ctx context.Context) ([]string, error)

	// Presets はカメラURLのプリセット一覧を返す
	Presets() []Preset

	// History は直近のキャプチャ履歴を新しい順で返す
	History() []history.Entry

	// Latest は共有フレームの現在値を返す
	Latest() (frame.Snapshot, bool)

	// Streams は登録中のストリームの状態を返す
	Streams() []stream.Status

	// Close は全ストリームを停止する
	Close() error
}

// Discovery はカメラ候補の検出機能を提供する
type Discovery interface {
	// ScanDevices はカメラ候補のベースURLを列挙する
	ScanDevices(ctx context.Context) ([]string, error)
}

// Preset はカメラアプリごとのURLテンプレート
type Preset struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Pattern  string   `json:"pattern"` // {ip} と {port} を置換する
	Examples []string `json:"examples"`
}
