package camera

import (
	"context"
	"fmt"

	"camscout/internal/event"
	"camscout/internal/scanner"
)

// NetworkDiscovery はLANのポートスキャンでカメラ候補を検出する
type NetworkDiscovery struct {
	opts   scanner.Options
	dialer scanner.Dialer
	sink   event.Sink
}

// NewNetworkDiscovery は新しいNetworkDiscoveryを作成する
// dialer が nil の場合は net.Dialer を使う
func NewNetworkDiscovery(opts scanner.Options, dialer scanner.Dialer, sink event.Sink) *NetworkDiscovery {
	if sink == nil {
		sink = event.Nop
	}
	return &NetworkDiscovery{opts: opts, dialer: dialer, sink: sink}
}

// ScanDevices はスキャンを1回実行する
// 進捗と発見したポートはイベントとして通知する
func (d *NetworkDiscovery) ScanDevices(ctx context.Context) ([]string, error) {
	engine := scanner.NewEngine(d.opts, d.dialer, eventReporter{sink: d.sink})

	cameras, err := engine.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("ネットワークスキャンに失敗: %w", err)
	}
	return cameras, nil
}

// eventReporter はスキャナの通知をイベントに変換する
type eventReporter struct {
	sink event.Sink
}

func (r eventReporter) OnProgress(p scanner.Progress) {
	r.sink.Emit(event.Event{Name: event.ScanProgress, Payload: p})
}

func (r eventReporter) OnPortFound(f scanner.PortFound) {
	r.sink.Emit(event.Event{Name: event.PortFound, Payload: f})
}

// MockDiscovery はテスト用のモックDiscovery実装
type MockDiscovery struct {
	devices []string
	err     error
	calls   int
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(devices []string) *MockDiscovery {
	return &MockDiscovery{devices: devices}
}

// ScanDevices はモックの候補一覧を返す
func (m *MockDiscovery) ScanDevices(_ context.Context) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]string, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

// AddDevice はテスト用に候補を追加する
func (m *MockDiscovery) AddDevice(device string) {
	for _, d := range m.devices {
		if d == device {
			return
		}
	}
	m.devices = append(m.devices, device)
}

// RemoveDevice はテスト用に候補を削除する
func (m *MockDiscovery) RemoveDevice(device string) {
	for i, d := range m.devices {
		if d == device {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			return
		}
	}
}

// SetError は次回以降のスキャンで返すエラーを設定する
func (m *MockDiscovery) SetError(err error) {
	m.err = err
}

// Calls はスキャンの呼び出し回数を返す
func (m *MockDiscovery) Calls() int {
	return m.calls
}
