package scanner

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Target はスキャン対象の (アドレス, ポート) の組
type Target struct {
	Address string
	Port    uint16
}

// HostPort は net.Dial 用のアドレス文字列を返す
func (t Target) HostPort() string {
	return net.JoinHostPort(t.Address, fmt.Sprint(t.Port))
}

// Progress はスキャン進捗の1件分
type Progress struct {
	IP           string `json:"ip"`
	Port         uint16 `json:"port"`
	TotalScanned int    `json:"total_scanned"`
	TotalToScan  int    `json:"total_to_scan"`
}

// PortFound は接続に成功したポートの情報
type PortFound struct {
	IP          string `json:"ip"`
	Port        uint16 `json:"port"`
	ServiceHint string `json:"service_hint"`
}

// Reporter はスキャン中のイベントを受け取る
// 実装はブロックしてはならない
type Reporter interface {
	OnProgress(p Progress)
	OnPortFound(f PortFound)
}

// Dialer はTCP接続を行うインターフェース
// *net.Dialer がそのまま満たす
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Options はスキャン範囲と並列度の設定
type Options struct {
	// SubnetBase は "192.168.1" のような /24 の上位3オクテット、または "auto"
	SubnetBase string `yaml:"subnet_base" mapstructure:"subnet_base"`
	HostStart  int    `yaml:"host_start" mapstructure:"host_start"`
	HostEnd    int    `yaml:"host_end" mapstructure:"host_end"`

	Ports       []int `yaml:"ports" mapstructure:"ports"`
	CameraPorts []int `yaml:"camera_ports" mapstructure:"camera_ports"`

	Concurrency    int           `yaml:"concurrency" mapstructure:"concurrency"`         // 同時接続数の上限
	BatchSize      int           `yaml:"batch_size" mapstructure:"batch_size"`           // 0 ならバッチ分割しない
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"` // LAN向けの短い接続タイムアウト
}

// SubnetAuto は自動検出を表す SubnetBase の値
const SubnetAuto = "auto"

// DefaultOptions はデフォルトのスキャン設定を返す
func DefaultOptions() Options {
	return Options{
		SubnetBase:     "192.168.1",
		HostStart:      1,
		HostEnd:        254,
		Ports:          DefaultPorts(),
		CameraPorts:    DefaultCameraPorts(),
		Concurrency:    100,
		BatchSize:      50,
		ConnectTimeout: 30 * time.Millisecond,
	}
}

// Validate は設定値の妥当性を検証する
func (o Options) Validate() error {
	if o.SubnetBase == "" {
		return fmt.Errorf("サブネットが指定されていません")
	}
	if o.SubnetBase != SubnetAuto {
		if _, err := parseSubnetBase(o.SubnetBase); err != nil {
			return err
		}
	}
	if o.HostStart < 1 || o.HostEnd > 254 || o.HostStart > o.HostEnd {
		return fmt.Errorf("無効なホスト範囲: %d-%d", o.HostStart, o.HostEnd)
	}
	if len(o.Ports) == 0 {
		return fmt.Errorf("スキャン対象ポートが空です")
	}
	for _, p := range append(append([]int{}, o.Ports...), o.CameraPorts...) {
		if p < 1 || p > 65535 {
			return fmt.Errorf("無効なポート番号: %d", p)
		}
	}
	if o.Concurrency < 1 {
		return fmt.Errorf("無効な同時接続数: %d", o.Concurrency)
	}
	if o.BatchSize < 0 {
		return fmt.Errorf("無効なバッチサイズ: %d", o.BatchSize)
	}
	if o.ConnectTimeout <= 0 {
		return fmt.Errorf("無効な接続タイムアウト: %s", o.ConnectTimeout)
	}
	return nil
}
