package main

import (
	"bytes"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/ultrahdrgo/ultrahdr"
)

func decodeAny(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

func encodeJPEGFile(path string, img image.Image, quality int) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
}

// rgba8888ToImage adapts an ApplyGainMap FormatRGBA8888 result into a
// standard library image for JPEG encoding.
func rgba8888ToImage(p *ultrahdr.PixelBuffer) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+p.Width*4], p.Luma[y*p.LumaStride:y*p.LumaStride+p.Width*4])
	}
	return img
}
