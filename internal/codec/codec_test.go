package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(16, 9)))

	img, format, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, image.Rect(0, 0, 16, 9), img.Bounds())

	_, _, err = Decode([]byte("<html>not an image</html>"))
	var codecErr *CodecError
	if !errors.As(err, &codecErr) {
		t.Fatalf("Expected CodecError, got %v", err)
	}
	assert.Equal(t, "decode", codecErr.Op)
}

func TestResize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"wide image", 1600, 1200, 800, 800, 600},
		{"exact width", 800, 600, 800, 800, 600},
		{"small image", 320, 240, 800, 320, 240},
		{"thin strip", 4000, 1, 800, 800, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tt.w, tt.h))
			out := Resize(src, tt.max, draw.NearestNeighbor)
			b := out.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, b.Dx(), b.Dy())
			}
		})
	}

	// 縮小不要なら同じ画像を返す
	src := testImage(10, 10)
	if Resize(src, 800, nil) != image.Image(src) {
		t.Error("Expected the original image when no resize is needed")
	}
}

func TestEncodeBase64JPEG(t *testing.T) {
	encoded, err := EncodeBase64JPEG(testImage(32, 24), 80)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 24), img.Bounds())
}

func TestEncodeLossless(t *testing.T) {
	src := testImage(20, 10)

	for _, format := range []Format{FormatPNG, FormatBMP, FormatTIFF} {
		t.Run(string(format), func(t *testing.T) {
			data, err := EncodeLossless(src, format)
			require.NoError(t, err)

			img, got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, string(format), got)
			assert.Equal(t, src.Bounds(), img.Bounds())

			// 可逆形式なので画素が一致する
			r, g, b, _ := img.At(5, 7).RGBA()
			wr, wg, wb, _ := src.At(5, 7).RGBA()
			assert.Equal(t, []uint32{wr, wg, wb}, []uint32{r, g, b})
		})
	}

	_, err := EncodeLossless(src, Format("gif"))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("PNG")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)
	assert.Equal(t, ".png", f.Ext())

	f, err = ParseFormat("tif")
	require.NoError(t, err)
	assert.Equal(t, FormatTIFF, f)

	_, err = ParseFormat("jpeg")
	assert.Error(t, err)
}

func TestParseResampler(t *testing.T) {
	for _, name := range []string{"", "nearest", "approx-bilinear", "bilinear", "catmull-rom"} {
		if _, err := ParseResampler(name); err != nil {
			t.Errorf("Expected %q to be accepted, got %v", name, err)
		}
	}
	if _, err := ParseResampler("lanczos"); err == nil {
		t.Error("Expected unknown resampler to be rejected")
	}
}
