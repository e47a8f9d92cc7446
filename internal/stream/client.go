package stream

import (
	"net"
	"net/http"
	"time"
)

// NewClient はストリーム用のキープアライブHTTPクライアントを作成する
// ホストごとにアイドル接続を1本だけ保持し、使い回す
func NewClient(fetchTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	// Goの TCPConn は既定で TCP_NODELAY が有効
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     0,
		DisableCompression:  true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   fetchTimeout,
	}
}
