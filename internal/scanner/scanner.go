package scanner

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Engine はアドレス×ポート空間に対するTCP接続スキャナ
type Engine struct {
	opts        Options
	dialer      Dialer
	reporter    Reporter
	cameraPorts map[uint16]struct{}
}

// NewEngine は新しいEngineを作成する
// dialer が nil の場合は net.Dialer を使う
func NewEngine(opts Options, dialer Dialer, reporter Reporter) *Engine {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if reporter == nil {
		reporter = nopReporter{}
	}

	cameraPorts := make(map[uint16]struct{}, len(opts.CameraPorts))
	for _, p := range opts.CameraPorts {
		cameraPorts[uint16(p)] = struct{}{}
	}

	return &Engine{
		opts:        opts,
		dialer:      dialer,
		reporter:    reporter,
		cameraPorts: cameraPorts,
	}
}

// Options は現在のスキャン設定を返す
func (e *Engine) Options() Options {
	return e.opts
}

// Scan は全ターゲットに接続を試み、カメラ候補のURL一覧を返す
// 結果の順序は不定。呼び出し元のキャンセルでは中断せず最後まで走る
func (e *Engine) Scan(ctx context.Context) ([]string, error) {
	if err := e.opts.Validate(); err != nil {
		return nil, fmt.Errorf("スキャン設定が不正です: %w", err)
	}

	base, err := resolveBase(e.opts)
	if err != nil {
		return nil, err
	}

	targets, err := BuildTargets(base, e.opts)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	total := len(targets)
	sem := semaphore.NewWeighted(int64(e.opts.Concurrency))

	var (
		progressMu sync.Mutex
		scanned    int

		resultMu sync.Mutex
		cameras  []string
	)

	batchSize := e.opts.BatchSize
	if batchSize <= 0 {
		batchSize = total
	}

	for start := 0; start < total; start += batchSize {
		end := min(start+batchSize, total)

		err := runBatch(ctx, sem, targets[start:end], func(target Target) {
			// 増分と通知を同じロック内で行い、進捗を単調にする
			progressMu.Lock()
			scanned++
			e.reporter.OnProgress(Progress{
				IP:           target.Address,
				Port:         target.Port,
				TotalScanned: scanned,
				TotalToScan:  total,
			})
			progressMu.Unlock()

			if !e.probe(ctx, target) {
				return
			}

			e.reporter.OnPortFound(PortFound{
				IP:          target.Address,
				Port:        target.Port,
				ServiceHint: ServiceHint(target.Port),
			})

			if _, ok := e.cameraPorts[target.Port]; ok {
				resultMu.Lock()
				cameras = append(cameras, CameraURL(target.Address, target.Port))
				resultMu.Unlock()
			}
		})
		if err != nil {
			return nil, err
		}
	}

	return cameras, nil
}

// runBatch はバッチ内の全ターゲットに fn を並列に適用し、すべての完了を待つ
// バッチ単位で待つことで同時に抱えるゴルーチン数を抑える
// セマフォ取得に失敗した場合も、起動済みの fn を待ってから返す
func runBatch(ctx context.Context, sem *semaphore.Weighted, batch []Target, fn func(Target)) error {
	var g errgroup.Group
	for _, target := range batch {
		if err := sem.Acquire(ctx, 1); err != nil {
			_ = g.Wait()
			return fmt.Errorf("セマフォの取得に失敗: %w", err)
		}

		g.Go(func() error {
			defer sem.Release(1)
			fn(target)
			return nil
		})
	}
	return g.Wait()
}

// probe はタイムアウト付きでTCP接続を試みる
// 失敗はスキャンの通常結果なのでエラーとして扱わない
func (e *Engine) probe(ctx context.Context, target Target) bool {
	dctx, cancel := context.WithTimeout(ctx, e.opts.ConnectTimeout)
	defer cancel()

	conn, err := e.dialer.DialContext(dctx, "tcp", target.HostPort())
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

type nopReporter struct{}

func (nopReporter) OnProgress(Progress)   {}
func (nopReporter) OnPortFound(PortFound) {}
