package stream

import "time"

// Backoff は連続失敗回数に応じた待ち時間を計算する
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

// DefaultBackoff は 100ms 起点、上限 1s の設定を返す
func DefaultBackoff() Backoff {
	return Backoff{Base: 100 * time.Millisecond, Cap: time.Second}
}

// Delay は min(Cap, Base*2^n) を返す
func (b Backoff) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	if n >= 32 {
		return b.Cap
	}
	d := b.Base << uint(n)
	if d <= 0 || d > b.Cap {
		return b.Cap
	}
	return d
}
