package scanner

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"
)

type recordingReporter struct {
	mu       sync.Mutex
	progress []Progress
	found    []PortFound
}

func (r *recordingReporter) OnProgress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recordingReporter) OnPortFound(f PortFound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.found = append(r.found, f)
}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.SubnetBase = "10.0.0"
	opts.HostStart = 1
	opts.HostEnd = 10
	opts.Ports = []int{22, 80, 8080}
	return opts
}

func TestServiceHint(t *testing.T) {
	tests := []struct {
		port uint16
		want string
	}{
		{22, "SSH"},
		{80, "HTTP"},
		{554, "RTSP"},
		{4747, "IP Camera"},
		{8080, "HTTP Alt/Camera"},
		{8082, "HTTP Alt/Camera"},
		{8443, "HTTPS Alt"},
		{9999, "Unknown"},
		{0, "Unknown"},
	}

	for _, tt := range tests {
		if got := ServiceHint(tt.port); got != tt.want {
			t.Errorf("ServiceHint(%d) = %q, expected %q", tt.port, got, tt.want)
		}
	}
}

func TestDefaultPorts(t *testing.T) {
	ports := DefaultPorts()
	if len(ports) != 21 {
		t.Fatalf("Expected 21 default ports, got %d", len(ports))
	}

	// 全ポートがテーブルに載っていること
	for _, p := range ports {
		if ServiceHint(uint16(p)) == UnknownService {
			t.Errorf("Expected port %d to have a service hint", p)
		}
	}

	// コピーを返すので書き換えても影響しない
	ports[0] = 1
	if DefaultPorts()[0] != 20 {
		t.Error("Expected DefaultPorts to return a copy")
	}
}

func TestBuildTargets(t *testing.T) {
	opts := DefaultOptions()
	targets, err := BuildTargets("192.168.1", opts)
	require.NoError(t, err)

	assert.Len(t, targets, 254*21)
	assert.Equal(t, Target{Address: "192.168.1.1", Port: 20}, targets[0])
	assert.Equal(t, Target{Address: "192.168.1.1", Port: 21}, targets[1])
	assert.Equal(t, Target{Address: "192.168.1.254", Port: 8443}, targets[len(targets)-1])

	// 決定的であること
	again, err := BuildTargets("192.168.1", opts)
	require.NoError(t, err)
	assert.Equal(t, targets, again)

	_, err = BuildTargets("192.168", opts)
	assert.Error(t, err)
}

func TestCameraURL(t *testing.T) {
	assert.Equal(t, "http://192.168.1.50:4747", CameraURL("192.168.1.50", 4747))
}

func TestOptions_Validate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("Expected default options to be valid, got %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"empty subnet", func(o *Options) { o.SubnetBase = "" }},
		{"bad subnet", func(o *Options) { o.SubnetBase = "192.168.300" }},
		{"reversed hosts", func(o *Options) { o.HostStart, o.HostEnd = 10, 5 }},
		{"host 255", func(o *Options) { o.HostEnd = 255 }},
		{"no ports", func(o *Options) { o.Ports = nil }},
		{"port out of range", func(o *Options) { o.Ports = []int{70000} }},
		{"zero concurrency", func(o *Options) { o.Concurrency = 0 }},
		{"zero timeout", func(o *Options) { o.ConnectTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			if err := opts.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	auto := DefaultOptions()
	auto.SubnetBase = SubnetAuto
	assert.NoError(t, auto.Validate())
}

func TestEngine_ScanProgress(t *testing.T) {
	opts := smallOptions()
	dialer := NewMockDialer("10.0.0.3:80", "10.0.0.5:22", "10.0.0.7:8080")
	reporter := &recordingReporter{}

	cameras, err := NewEngine(opts, dialer, reporter).Scan(context.Background())
	require.NoError(t, err)

	total := 10 * 3
	assert.Equal(t, total, dialer.Calls())
	require.Len(t, reporter.progress, total)

	// 通知順に単調増加し、最後は total に一致する
	for i, p := range reporter.progress {
		assert.Equal(t, i+1, p.TotalScanned)
		assert.Equal(t, total, p.TotalToScan)
	}

	// SSH はカメラ候補に含まれない
	sort.Strings(cameras)
	assert.Equal(t, []string{"http://10.0.0.3:80", "http://10.0.0.7:8080"}, cameras)

	require.Len(t, reporter.found, 3)
	hints := map[uint16]string{}
	for _, f := range reporter.found {
		hints[f.Port] = f.ServiceHint
	}
	assert.Equal(t, "SSH", hints[22])
	assert.Equal(t, "HTTP", hints[80])
	assert.Equal(t, "HTTP Alt/Camera", hints[8080])
}

func TestEngine_ScanNothingOpen(t *testing.T) {
	reporter := &recordingReporter{}
	cameras, err := NewEngine(smallOptions(), NewMockDialer(), reporter).Scan(context.Background())
	require.NoError(t, err)

	assert.Empty(t, cameras)
	assert.Empty(t, reporter.found)
	assert.Len(t, reporter.progress, 30)
}

func TestEngine_ConcurrencyBound(t *testing.T) {
	opts := smallOptions()
	opts.HostEnd = 40
	opts.Concurrency = 4
	opts.BatchSize = 50

	dialer := NewMockDialer().WithDelay(2 * time.Millisecond)
	_, err := NewEngine(opts, dialer, nil).Scan(context.Background())
	require.NoError(t, err)

	if dialer.Peak() > 4 {
		t.Errorf("Expected at most 4 concurrent dials, got %d", dialer.Peak())
	}
	assert.Equal(t, 120, dialer.Calls())
}

func TestEngine_IgnoresCallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dialer := NewMockDialer("10.0.0.1:80")
	cameras, err := NewEngine(smallOptions(), dialer, nil).Scan(ctx)
	require.NoError(t, err)

	// キャンセル済みでも最後まで走る
	assert.Equal(t, 30, dialer.Calls())
	assert.Equal(t, []string{"http://10.0.0.1:80"}, cameras)
}

func TestEngine_ScanLoopback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port

	opts := DefaultOptions()
	opts.SubnetBase = "127.0.0"
	opts.HostStart = 1
	opts.HostEnd = 1
	opts.Ports = []int{port}
	opts.CameraPorts = []int{port}
	opts.ConnectTimeout = 500 * time.Millisecond

	reporter := &recordingReporter{}
	cameras, err := NewEngine(opts, nil, reporter).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{fmt.Sprintf("http://127.0.0.1:%d", port)}, cameras)
	require.Len(t, reporter.found, 1)
	assert.Equal(t, uint16(port), reporter.found[0].Port)
}

func TestEngine_InvalidOptions(t *testing.T) {
	opts := smallOptions()
	opts.Ports = nil

	if _, err := NewEngine(opts, NewMockDialer(), nil).Scan(context.Background()); err == nil {
		t.Error("Expected error for invalid options")
	}
}

func TestRunBatch_WaitsOnAcquireFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sem := semaphore.NewWeighted(1)
	batch := []Target{{Address: "10.0.0.1", Port: 80}, {Address: "10.0.0.2", Port: 80}}

	var started, finished atomic.Int32
	err := runBatch(ctx, sem, batch, func(Target) {
		started.Add(1)
		// 2件目の取得待ちをキャンセルさせ、その間も実行を続ける
		cancel()
		time.Sleep(50 * time.Millisecond)
		finished.Add(1)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), started.Load())
	// 返った時点で起動済みのものは終わっている
	assert.Equal(t, int32(1), finished.Load())
}
