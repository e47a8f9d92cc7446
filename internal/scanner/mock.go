package scanner

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// errRefused はモックで閉じているポートに返すエラー
var errRefused = errors.New("connection refused")

// MockDialer はテスト用のモックDialer実装
type MockDialer struct {
	open  map[string]bool
	delay time.Duration

	mu       sync.Mutex
	calls    int
	inFlight int
	peak     int
}

// NewMockDialer は指定したアドレスだけ接続に成功するMockDialerを作成する
// アドレスは "192.168.1.10:80" 形式
func NewMockDialer(open ...string) *MockDialer {
	m := &MockDialer{open: make(map[string]bool, len(open))}
	for _, addr := range open {
		m.open[addr] = true
	}
	return m
}

// WithDelay は各接続試行に遅延を入れる
func (m *MockDialer) WithDelay(d time.Duration) *MockDialer {
	m.delay = d
	return m
}

// DialContext は接続を模擬する
func (m *MockDialer) DialContext(ctx context.Context, _ string, address string) (net.Conn, error) {
	m.mu.Lock()
	m.calls++
	m.inFlight++
	if m.inFlight > m.peak {
		m.peak = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if !m.open[address] {
		return nil, errRefused
	}

	client, server := net.Pipe()
	_ = server.Close()
	return client, nil
}

// Calls は接続試行の総数を返す
func (m *MockDialer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Peak は同時接続試行数の最大値を返す
func (m *MockDialer) Peak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}
