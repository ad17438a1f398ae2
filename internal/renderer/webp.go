package renderer

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"

	"github.com/gen2brain/webp"
)

func encodeWebP(pngBytes []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode capture: %w", err)
	}
	return EncodeImage(img)
}

// EncodeImage encodes any decoded image as lossy WebP, the format every
// artifact is stored and served in.
func EncodeImage(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, webp.Options{Lossless: false, Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode image to WebP: %w", err)
	}
	return buf.Bytes(), nil
}
