package vendorform

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Ограничения на загружаемые изображения: ни одна сторона не превышает
// maxDimension, перекодирование всегда в JPEG с фиксированным качеством.
const (
	maxDimension = 800
	jpegQuality  = 80
)

// CompressImage уменьшает изображение с сохранением пропорций и
// перекодирует его в JPEG.
func CompressImage(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxDimension || h > maxDimension {
		scale := float64(maxDimension) / float64(w)
		if h > w {
			scale = float64(maxDimension) / float64(h)
		}
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}

		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
