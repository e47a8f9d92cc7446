package capture

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrNoImage はまだ画像を取得していない状態で保存しようとした
	ErrNoImage = errors.New("no image captured")

	// ErrInvalidURL はカメラURLとして使えない文字列
	ErrInvalidURL = errors.New("invalid camera url")
)

// ServerError はカメラが2xx以外を返した
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d - %s", e.Status, e.Message)
}

// InvalidContentTypeError は画像以外のContent-Typeが返された
type InvalidContentTypeError struct {
	ContentType string
}

func (e *InvalidContentTypeError) Error() string {
	return fmt.Sprintf("invalid content type: %s. expected image/*", e.ContentType)
}

// ValidateURL はカメラURLがhttp(s)の絶対URLであることを確認する
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: スキームは http または https である必要があります: %q", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: ホストがありません: %q", ErrInvalidURL, raw)
	}
	return nil
}
