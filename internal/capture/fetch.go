package capture

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"camscout/internal/codec"
)

const (
	// maxImageBytes は1フレームとして受け付ける最大サイズ
	maxImageBytes = 32 << 20
	// maxErrorBody はエラー応答の本文として読む最大サイズ
	maxErrorBody = 4 << 10
)

// Fetcher はカメラURLから1枚の画像を取得してデコードする
type Fetcher struct {
	client *http.Client

	// anyContentType が true なら Content-Type を見ずにデコードする
	anyContentType bool
}

// NewFetcher は新しいFetcherを作成する
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// AcceptAnyContentType は Content-Type の検査を行わないようにする
// image/* 以外 (application/octet-stream など) でJPEGを返すカメラ向け
func (f *Fetcher) AcceptAnyContentType() *Fetcher {
	f.anyContentType = true
	return f
}

// Fetch はGETを1回行い、画像をデコードして返す
// Content-Typeヘッダがない場合は本文のデコードに任せる
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ServerError{Status: resp.StatusCode, Message: string(body)}
	}

	if ct := resp.Header.Get("Content-Type"); !f.anyContentType && ct != "" && !strings.HasPrefix(ct, "image/") {
		// キープアライブ接続を再利用できるよう本文を読み捨てる
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxImageBytes))
		return nil, &InvalidContentTypeError{ContentType: ct}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("レスポンスの読み込みに失敗: %w", err)
	}

	// デコードはCPUを使うので別ゴルーチンで行う
	type result struct {
		img image.Image
		err error
	}
	done := make(chan result, 1)
	go func() {
		img, _, err := codec.Decode(data)
		done <- result{img: img, err: err}
	}()

	select {
	case r := <-done:
		return r.img, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
