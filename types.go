package ultrahdr

// ColorGamut identifies a supported color gamut.
type ColorGamut int

const (
	GamutUnspecified ColorGamut = iota
	GamutBT709
	GamutDisplayP3
	GamutBT2100
)

func (g ColorGamut) String() string {
	switch g {
	case GamutBT709:
		return "bt709"
	case GamutDisplayP3:
		return "display-p3"
	case GamutBT2100:
		return "bt2100"
	default:
		return "unspecified"
	}
}

// ColorTransfer identifies a supported transfer function.
type ColorTransfer int

const (
	TransferUnspecified ColorTransfer = iota
	TransferSRGB
	TransferLinear
	TransferPQ
	TransferHLG
)

func (t ColorTransfer) String() string {
	switch t {
	case TransferSRGB:
		return "srgb"
	case TransferLinear:
		return "linear"
	case TransferPQ:
		return "pq"
	case TransferHLG:
		return "hlg"
	default:
		return "unspecified"
	}
}

// PixelFormat identifies the memory layout of a raw PixelBuffer.
type PixelFormat int

const (
	FormatUnspecified PixelFormat = iota
	FormatP010                   // 10-bit 4:2:0, MSB-justified 16-bit words, interleaved UV
	FormatYUV420                 // planar 8-bit 4:2:0
	FormatMonochrome             // single 8-bit plane, no chroma
	FormatRGBA8888
	FormatRGBAF16
	FormatRGBA1010102
)

func (f PixelFormat) String() string {
	switch f {
	case FormatP010:
		return "p010"
	case FormatYUV420:
		return "yuv420"
	case FormatMonochrome:
		return "monochrome"
	case FormatRGBA8888:
		return "rgba8888"
	case FormatRGBAF16:
		return "rgba_f16"
	case FormatRGBA1010102:
		return "rgba1010102"
	default:
		return "unspecified"
	}
}

// PixelBuffer is a raw, uncompressed image with an explicit memory layout.
// It replaces the ad-hoc image-per-codec structs scattered through the
// original tree with one canonical raw-pixel representation used by every
// core operation (gain-map generation/application, tone mapping, editing).
//
// For planar chroma formats (FormatYUV420, FormatP010), Chroma holds the
// interleaved or planar UV samples per LumaStride/ChromaStride conventions
// documented on each consumer; for packed formats (RGBA*) only Luma is used
// and holds the full interleaved pixel data.
type PixelBuffer struct {
	Format PixelFormat
	Width  int
	Height int
	Gamut  ColorGamut
	Transfer ColorTransfer

	Luma        []byte
	LumaStride  int // bytes per row
	Chroma      []byte
	ChromaStride int // bytes per row, interleaved UV pairs

	// HDRCapacity, if non-zero, records the display boost this buffer
	// was rendered for (only meaningful for buffers produced by ApplyGainMap).
	HDRCapacity float32
}

// BytesPerLumaSample reports the storage width of one luma/packed sample.
func (p *PixelBuffer) bytesPerLumaSample() int {
	switch p.Format {
	case FormatP010:
		return 2
	case FormatYUV420, FormatMonochrome:
		return 1
	case FormatRGBA8888, FormatRGBA1010102:
		return 4
	case FormatRGBAF16:
		return 8
	default:
		return 1
	}
}

// CompressedImage is an encoded (JPEG, for now) image blob tagged with the
// gamut it was encoded against, since JPEG carries no gamut of its own.
type CompressedImage struct {
	Data  []byte
	Gamut ColorGamut
}

// GainMapMetadata is the decoded form of the gain-map metadata carried in
// a JPEG/R container (either the XMP or ISO 21496-1 binary encoding). It is
// intentionally scalar: this core does not support per-channel (multi-channel)
// gain-map metadata, only a single achromatic gain channel.
type GainMapMetadata struct {
	Version         string
	MaxContentBoost float32
	MinContentBoost float32
	Gamma           float32
	OffsetSDR       float32
	OffsetHDR       float32
	HDRCapacityMin  float32
	HDRCapacityMax  float32
	UseBaseColorSpace bool
}

// MetadataSegments holds raw APP payloads for XMP/ISO blocks, including
// namespace prefix and null terminator, plus EXIF/ICC passthrough blobs.
type MetadataSegments struct {
	PrimaryXMP   []byte
	PrimaryISO   []byte
	SecondaryXMP []byte
	SecondaryISO []byte
	Exif         []byte
	ICC          []byte
}

// Effect is the closed tagged union of geometric editing operations that
// AddEffects applies, in order, identically to the base image and the gain
// map (scaled by the map's own resolution).
type Effect interface {
	isEffect()
}

// CropEffect keeps the pixel rectangle [Left,Top)-[Left+Width,Top+Height).
type CropEffect struct {
	Left, Top, Width, Height int
}

func (CropEffect) isEffect() {}

// MirrorDirection selects the axis MirrorEffect flips across.
type MirrorDirection int

const (
	MirrorHorizontal MirrorDirection = iota
	MirrorVertical
)

// MirrorEffect flips the image across the given axis.
type MirrorEffect struct {
	Direction MirrorDirection
}

func (MirrorEffect) isEffect() {}

// RotateEffect rotates the image clockwise by Degrees, which must be one of
// 90, 180, 270.
type RotateEffect struct {
	Degrees int
}

func (RotateEffect) isEffect() {}

// ResizeEffect resamples the image to the given dimensions using
// nearest-neighbor interpolation.
type ResizeEffect struct {
	Width, Height int
}

func (ResizeEffect) isEffect() {}

// OutputCodec selects the container/codec Convert should produce.
type OutputCodec int

const (
	OutputUnspecified OutputCodec = iota
	OutputJPEG
	OutputJPEGR
	OutputHEIC
	OutputHEICR
	OutputHEIC10Bit
	OutputAVIF
	OutputAVIFR
	OutputAVIF10Bit
	OutputRawPixels
)

// OutputConfig describes what Convert should produce and from which slots.
type OutputConfig struct {
	Codec          OutputCodec
	Quality        int
	GainMapQuality int
	DisplayBoost   float32 // for RawPixels HDR reconstruction; 0 means use metadata max
	TargetFormat   PixelFormat
	// TargetTransfer disambiguates FormatRGBA1010102 output between HLG and
	// PQ packing; ignored for every other TargetFormat.
	TargetTransfer ColorTransfer
	// Effects, if non-empty, are applied (in order) to the SDR/HDR/gain-map
	// raw buffers before any encode/apply work, via AddEffects.
	Effects []Effect
}

// EncodeOptions controls JPEG/R encoding via the legacy convenience API.
type EncodeOptions struct {
	Quality           int
	GainMapQuality    int
	GainMapScale      int
	UseMultiChannelGM bool
	Gamma             float32
	HDRWhiteNits      float32
	TargetDisplayNits float32
	UseLuminance      bool
}

// DecodeOptions controls JPEG/R decoding via the legacy convenience API.
type DecodeOptions struct {
	MaxDisplayBoost float32
}
