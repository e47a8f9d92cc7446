// Package codec は画像のデコード、縮小、エンコードをまとめる
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // GIFデコーダを登録
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // WebPデコーダを登録
)

// CodecError は画像処理の失敗を表す
type CodecError struct {
	Op  string // decode / encode / resize
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("画像処理エラー (%s): %v", e.Op, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// Format は可逆保存形式
type Format string

const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

// Ext はファイル拡張子を返す
func (f Format) Ext() string {
	return "." + string(f)
}

// ParseFormat は文字列から保存形式を得る
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatPNG, FormatBMP, FormatTIFF:
		return f, nil
	case "tif":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("未対応の保存形式: %s", s)
	}
}

// ParseResampler は名前から縮小アルゴリズムを得る
func ParseResampler(name string) (draw.Interpolator, error) {
	switch strings.ToLower(name) {
	case "", "nearest":
		return draw.NearestNeighbor, nil
	case "approx-bilinear":
		return draw.ApproxBiLinear, nil
	case "bilinear":
		return draw.BiLinear, nil
	case "catmull-rom":
		return draw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("未対応のリサンプラ: %s", name)
	}
}

// Decode はバイト列を画像にデコードし、検出したフォーマット名を返す
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &CodecError{Op: "decode", Err: err}
	}
	return img, format, nil
}

// Resize は幅が maxWidth を超える場合だけアスペクト比を保って縮小する
// 元画像は書き換えない
func Resize(img image.Image, maxWidth int, resampler draw.Interpolator) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	if resampler == nil {
		resampler = draw.NearestNeighbor
	}

	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	resampler.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// EncodeJPEG は画像をJPEGにエンコードする
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, &CodecError{Op: "encode", Err: err}
	}
	return buf.Bytes(), nil
}

// EncodeBase64JPEG はJPEGエンコードした結果を標準Base64で返す
func EncodeBase64JPEG(img image.Image, quality int) (string, error) {
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// EncodeLossless は画像を可逆形式でエンコードする
func EncodeLossless(img image.Image, format Format) ([]byte, error) {
	b := img.Bounds()
	buf := bytes.NewBuffer(make([]byte, 0, b.Dx()*b.Dy()*4))

	var err error
	switch format {
	case FormatPNG, "":
		err = png.Encode(buf, img)
	case FormatBMP:
		err = bmp.Encode(buf, img)
	case FormatTIFF:
		err = tiff.Encode(buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = fmt.Errorf("未対応の保存形式: %s", format)
	}
	if err != nil {
		return nil, &CodecError{Op: "encode", Err: err}
	}
	return buf.Bytes(), nil
}
