package event

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer は購読者ごとのバッファサイズ
const DefaultBuffer = 64

// Broker は購読者へイベントを配る Sink
// 受け取りが追いつかない購読者の分は破棄する
type Broker struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	buffer  int
	dropped atomic.Uint64
}

// Subscription は1購読者分の受信口
type Subscription struct {
	session string
	ch      chan Event
	broker  *Broker
	once    sync.Once
}

// NewBroker は新しいBrokerを作成する
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe は購読を開始する
// session が空の場合はセッション宛てのイベントも含めて全て受け取る
func (b *Broker) Subscribe(session string) *Subscription {
	sub := &Subscription{
		session: session,
		ch:      make(chan Event, b.buffer),
		broker:  b,
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Emit は該当する購読者全員にイベントを送る
func (b *Broker) Emit(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if !sub.accepts(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers は現在の購読者数を返す
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped は破棄したイベント数を返す
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}

// Close は全購読を終了する
func (b *Broker) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[*Subscription]struct{})
	b.mu.Unlock()

	for sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
}

// Events は受信チャネルを返す。購読終了で閉じられる
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Session は購読しているセッションIDを返す
func (s *Subscription) Session() string {
	return s.session
}

// Close は購読を終了する。複数回呼んでもよい
func (s *Subscription) Close() {
	s.broker.mu.Lock()
	delete(s.broker.subs, s)
	s.broker.mu.Unlock()

	s.once.Do(func() { close(s.ch) })
}

func (s *Subscription) accepts(e Event) bool {
	return e.Session == "" || s.session == "" || s.session == e.Session
}
