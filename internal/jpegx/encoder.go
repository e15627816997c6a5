package jpegx

import (
	"image"
	"image/jpeg"
	"io"
)

// SamplingFactor is a component's horizontal/vertical chroma sampling
// factor, as carried in a JPEG SOF0 segment.
type SamplingFactor struct {
	H, V uint8
}

// HuffmanSpec is a decoded DHT table: bit-length counts and symbol values,
// in the layout the JPEG spec stores them.
type HuffmanSpec struct {
	Count [16]byte
	Value []byte
}

// EncoderOptions controls EncodeWithTables. The quantization/Huffman/
// sampling knobs mirror the fields callers already read out of an existing
// JPEG via extractJpegTables, so a decoded image's tables round-trip through
// the struct even though this adapter only honors Quality: the standard
// library encoder always emits its own standard Huffman/quant tables and
// picks its own subsampling, with no hook to inject either.
type EncoderOptions struct {
	Quality        int
	UseQuantTables bool
	UseHuffman     bool
	UseSampling    bool
	Sampling       [3]SamplingFactor
	SplitDQT       bool
	SplitDHT       bool
}

// EncodeWithTables encodes img as a baseline JPEG to w. It is a thin
// adapter over the standard library's image/jpeg encoder: this package
// never had a bundled from-scratch DCT encoder in the retrieved source, so
// rather than fabricate one, encoding is delegated to a well-tested
// stdlib implementation while the surrounding API (SamplingFactor,
// HuffmanSpec, table extraction in jpeg_parse_tables.go) is kept for
// callers that inspect an existing JPEG's tables.
func EncodeWithTables(w io.Writer, img image.Image, opt EncoderOptions) error {
	quality := opt.Quality
	if quality <= 0 {
		quality = 95
	}
	if quality > 100 {
		quality = 100
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}
