package ultrahdr

import "github.com/sirupsen/logrus"

// Assembler holds the lazily-materialized slots of a single JPEG/R pipeline
// and dispatches Convert requests against them with minimal extra work.
// Each slot is set at most once; later AddX calls on an already-set slot
// are silently ignored (first-writer-wins), matching how the underlying
// AOSP pipeline treats caller-supplied vs. derived artifacts.
type Assembler struct {
	sdrCompressed     *CompressedImage
	sdrRaw            *PixelBuffer
	hdrRaw            *PixelBuffer
	gainMapRaw        *PixelBuffer
	gainMapCompressed *CompressedImage
	gainMapMetadata   *GainMapMetadata
	exif              []byte

	log       logrus.FieldLogger
	heif      HeifCodec
	hdrTransfer ColorTransfer
	sdrIsBT601  bool
	cores       int
}

// AssemblerOption configures a new Assembler.
type AssemblerOption func(*Assembler)

// WithLogger overrides the Assembler's logger.
func WithLogger(l logrus.FieldLogger) AssemblerOption {
	return func(a *Assembler) { a.log = l }
}

// WithHeifCodecOpt registers an external HEIC/AVIF collaborator.
func WithHeifCodecOpt(c HeifCodec) AssemblerOption {
	return func(a *Assembler) { a.heif = c }
}

// WithHDRTransfer records the transfer function of HDR raw input supplied
// via AddUncompressedHDR, used by the gain-map generator.
func WithHDRTransfer(t ColorTransfer) AssemblerOption {
	return func(a *Assembler) { a.hdrTransfer = t }
}

// WithSDRIsBT601 forces BT.601 YUV decoding for SDR raw buffers.
func WithSDRIsBT601(v bool) AssemblerOption {
	return func(a *Assembler) { a.sdrIsBT601 = v }
}

// WithDetectedCores overrides worker-pool sizing for the assembler's own
// generate/apply calls.
func WithDetectedCores(n int) AssemblerOption {
	return func(a *Assembler) { a.cores = n }
}

// NewAssembler returns an empty Assembler ready to accept inputs.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{log: defaultLogger, hdrTransfer: TransferHLG}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Assembler) logFirstWrite(slot string) {
	a.log.WithField("slot", slot).Debug("assembler: slot already set, ignoring")
}

// AddCompressedSDR sets the compressed (JPEG) SDR base image, if not already set.
func (a *Assembler) AddCompressedSDR(img *CompressedImage) {
	if a.sdrCompressed != nil {
		a.logFirstWrite("sdrCompressed")
		return
	}
	a.sdrCompressed = img
}

// isobmffBrandOffset is the byte offset of the 4-character brand ("ftyp")
// in an ISOBMFF (HEIC/AVIF) file: a 4-byte box size followed by the box type.
const isobmffBrandOffset = 4

// AddCompressed sniffs the byte prefix of data (JPEG SOI, ISOBMFF "ftyp"
// brand) and routes it through the matching codec collaborator, populating
// whichever slots that collaborator's output implies:
//
//   - A JPEG that Split recognizes as a gain-map container populates
//     sdrCompressed with the primary image and gainMapCompressed,
//     gainMapRaw, and gainMapMetadata from the secondary image.
//   - A plain JPEG populates only sdrCompressed.
//   - An ISOBMFF (HEIC/AVIF) blob is handed to the registered HeifCodec.
//     A 10-bit primary image populates hdrRaw; an 8-bit primary populates
//     sdrRaw. A gain map decoded alongside it populates gainMapRaw and
//     gainMapMetadata.
//
// EXIF embedded in the primary image, if present, is captured via AddExif.
// Each destination slot still obeys first-writer-wins.
func (a *Assembler) AddCompressed(data []byte) error {
	const op = "AddCompressed"
	switch {
	case len(data) >= 2 && data[0] == markerStart && data[1] == markerSOI:
		return a.addCompressedJPEG(data, op)
	case len(data) >= isobmffBrandOffset+4 && string(data[isobmffBrandOffset:isobmffBrandOffset+4]) == "ftyp":
		return a.addCompressedHeif(data, op)
	default:
		return newErr(UnsupportedFeature, op, nil)
	}
}

func (a *Assembler) addCompressedJPEG(data []byte, op string) error {
	split, err := Split(data)
	if err != nil {
		if KindOf(err) == GainMapImageNotFound || KindOf(err) == MetadataError {
			a.AddCompressedSDR(&CompressedImage{Data: data})
			a.captureEmbeddedExif(data, op)
			return nil
		}
		return newErr(DecodeError, op, err)
	}
	a.AddCompressedSDR(&CompressedImage{Data: split.PrimaryJPEG})
	a.captureEmbeddedExif(split.PrimaryJPEG, op)
	if a.gainMapRaw == nil {
		gm, err := decodeJPEGGrayBuffer(split.GainmapJPEG)
		if err != nil {
			return newErr(DecodeError, op, err)
		}
		a.gainMapCompressed = &CompressedImage{Data: split.GainmapJPEG}
		a.gainMapRaw = gm
		a.gainMapMetadata = split.Meta
	}
	return nil
}

func (a *Assembler) captureEmbeddedExif(jpegData []byte, op string) {
	if a.exif != nil {
		return
	}
	exif, _, err := extractExifAndIcc(jpegData)
	if err != nil || exif == nil {
		return
	}
	a.AddExif(exif)
}

func (a *Assembler) addCompressedHeif(data []byte, op string) error {
	if a.heif == nil {
		return newErr(UnsupportedFeature, op, nil)
	}
	primary, gainmap, meta, err := a.heif.Decode(data)
	if err != nil {
		return newErr(DecodeError, op, err)
	}
	if primary != nil {
		switch primary.Format {
		case FormatP010, FormatRGBAF16, FormatRGBA1010102:
			a.AddUncompressedHDR(primary)
		default:
			a.AddUncompressedSDR(primary)
		}
	}
	if gainmap != nil && a.gainMapRaw == nil {
		a.gainMapRaw = gainmap
		a.gainMapMetadata = meta
	}
	return nil
}

// AddUncompressedSDR sets the raw SDR YUV 4:2:0 buffer, if not already set.
func (a *Assembler) AddUncompressedSDR(buf *PixelBuffer) {
	if a.sdrRaw != nil {
		a.logFirstWrite("sdrRaw")
		return
	}
	a.sdrRaw = buf
}

// AddUncompressedHDR sets the raw HDR P010 buffer, if not already set.
func (a *Assembler) AddUncompressedHDR(buf *PixelBuffer) {
	if a.hdrRaw != nil {
		a.logFirstWrite("hdrRaw")
		return
	}
	a.hdrRaw = buf
}

// AddGainMap sets a caller-supplied raw gain map and metadata, if not already set.
func (a *Assembler) AddGainMap(buf *PixelBuffer, meta *GainMapMetadata) {
	if a.gainMapRaw != nil {
		a.logFirstWrite("gainMapRaw")
		return
	}
	a.gainMapRaw = buf
	a.gainMapMetadata = meta
}

// AddExif sets the EXIF blob to carry through to the output container, if not already set.
func (a *Assembler) AddExif(exif []byte) {
	if a.exif != nil {
		a.logFirstWrite("exif")
		return
	}
	a.exif = exif
}

// Convert produces the requested output from whatever slots are populated,
// doing the minimal work necessary: it reuses compressed/raw artifacts
// already present and only decodes, tone-maps, or generates a gain map when
// the requested output needs something no slot already provides.
func (a *Assembler) Convert(cfg OutputConfig) (*CompressedImage, *PixelBuffer, error) {
	const op = "Convert"

	sdrRaw, err := a.ensureSDRRaw()
	if err != nil {
		return nil, nil, err
	}

	if len(cfg.Effects) > 0 {
		newSDR, newGM, err := AddEffects(sdrRaw, a.gainMapRaw, cfg.Effects)
		if err != nil {
			return nil, nil, err
		}
		sdrRaw = newSDR
		a.sdrRaw = newSDR
		a.sdrCompressed = nil
		if a.gainMapRaw != nil {
			a.gainMapRaw = newGM
			a.gainMapCompressed = nil
		}
		if a.hdrRaw != nil {
			newHDR, _, err := AddEffects(a.hdrRaw, nil, cfg.Effects)
			if err != nil {
				return nil, nil, err
			}
			a.hdrRaw = newHDR
		}
	}

	switch cfg.Codec {
	case OutputRawPixels:
		if a.gainMapRaw == nil || a.gainMapMetadata == nil {
			if err := a.ensureGainMap(); err != nil {
				return nil, nil, err
			}
		}
		boost := cfg.DisplayBoost
		out, err := ApplyGainMap(sdrRaw, a.gainMapRaw, a.gainMapMetadata, ApplyGainMapOptions{
			Output:          applyFormatFor(cfg.TargetFormat, cfg.TargetTransfer),
			MaxDisplayBoost: boost,
			DetectedCores:   a.cores,
		})
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil

	case OutputJPEG:
		if a.sdrCompressed != nil {
			return a.sdrCompressed, nil, nil
		}
		enc, err := encodeJPEGBuffer(sdrRaw, cfg.Quality)
		if err != nil {
			return nil, nil, newErr(EncodeError, op, err)
		}
		return &CompressedImage{Data: enc, Gamut: sdrRaw.Gamut}, nil, nil

	case OutputJPEGR:
		if err := a.ensureGainMap(); err != nil {
			return nil, nil, err
		}
		primary := a.sdrCompressed
		if primary == nil {
			enc, err := encodeJPEGBuffer(sdrRaw, cfg.Quality)
			if err != nil {
				return nil, nil, newErr(EncodeError, op, err)
			}
			primary = &CompressedImage{Data: enc, Gamut: sdrRaw.Gamut}
		}
		if a.exif != nil {
			embeddedExif, _, err := extractExifAndIcc(primary.Data)
			if err != nil {
				return nil, nil, newErr(DecodeError, op, err)
			}
			if embeddedExif != nil {
				return nil, nil, newErr(MultipleExifs, op, nil)
			}
		}
		gainQ := cfg.GainMapQuality
		if gainQ == 0 {
			gainQ = defaultGainMapQuality
		}
		gmJPEG, err := encodeGainMapJPEG(a.gainMapRaw, gainQ)
		if err != nil {
			return nil, nil, newErr(EncodeError, op, err)
		}
		isoPayload, err := buildIsoPayload(a.gainMapMetadata)
		if err != nil {
			return nil, nil, newErr(EncodeError, op, err)
		}
		container, err := assembleContainerVipsLike(primary.Data, gmJPEG, a.exif, nil, nil, isoPayload)
		if err != nil {
			return nil, nil, newErr(EncodeError, op, err)
		}
		return &CompressedImage{Data: container, Gamut: sdrRaw.Gamut}, nil, nil

	case OutputHEIC, OutputHEICR, OutputHEIC10Bit, OutputAVIF, OutputAVIFR, OutputAVIF10Bit:
		if a.heif == nil {
			return nil, nil, newErr(UnsupportedFeature, op, nil)
		}
		if cfg.Codec == OutputHEICR || cfg.Codec == OutputAVIFR {
			if err := a.ensureGainMap(); err != nil {
				return nil, nil, err
			}
			data, err := a.heif.EncodeWithGainMap(sdrRaw, a.gainMapRaw, a.gainMapMetadata, cfg.Quality, cfg.GainMapQuality)
			if err != nil {
				return nil, nil, newErr(EncodeError, op, err)
			}
			return &CompressedImage{Data: data, Gamut: sdrRaw.Gamut}, nil, nil
		}
		data, err := a.heif.EncodePrimary(sdrRaw, cfg.Quality)
		if err != nil {
			return nil, nil, newErr(EncodeError, op, err)
		}
		return &CompressedImage{Data: data, Gamut: sdrRaw.Gamut}, nil, nil

	default:
		return nil, nil, newErr(InvalidOutputFormat, op, nil)
	}
}

// ensureSDRRaw guarantees a.sdrRaw is populated, decoding a compressed
// input or tone-mapping HDR raw input if that's all that's available.
func (a *Assembler) ensureSDRRaw() (*PixelBuffer, error) {
	const op = "ensureSDRRaw"
	if a.sdrRaw != nil {
		return a.sdrRaw, nil
	}
	if a.sdrCompressed != nil {
		buf, err := decodeJPEGBuffer(a.sdrCompressed.Data)
		if err != nil {
			return nil, newErr(DecodeError, op, err)
		}
		a.sdrRaw = buf
		return buf, nil
	}
	if a.hdrRaw != nil {
		buf, err := ToneMap(a.hdrRaw)
		if err != nil {
			return nil, err
		}
		a.sdrRaw = buf
		return buf, nil
	}
	return nil, newErr(InsufficientResource, op, nil)
}

// ensureGainMap guarantees a.gainMapRaw/a.gainMapMetadata are populated,
// generating them from raw SDR+HDR input if nothing was supplied directly.
func (a *Assembler) ensureGainMap() error {
	const op = "ensureGainMap"
	if a.gainMapRaw != nil && a.gainMapMetadata != nil {
		return nil
	}
	if a.gainMapCompressed != nil {
		buf, err := decodeJPEGGrayBuffer(a.gainMapCompressed.Data)
		if err != nil {
			return newErr(DecodeError, op, err)
		}
		a.gainMapRaw = buf
		return nil
	}
	if a.sdrRaw == nil || a.hdrRaw == nil {
		return newErr(GainMapImageNotFound, op, nil)
	}
	gm, meta, err := GenerateGainMap(a.sdrRaw, a.hdrRaw, GenerateGainMapOptions{
		HDRTransfer:   a.hdrTransfer,
		SDRIsBT601:    a.sdrIsBT601,
		DetectedCores: a.cores,
	})
	if err != nil {
		return err
	}
	a.gainMapRaw = gm
	a.gainMapMetadata = meta
	return nil
}

func applyFormatFor(f PixelFormat, transfer ColorTransfer) ApplyOutputFormat {
	switch f {
	case FormatRGBAF16:
		return ApplyHDRLinearF16
	case FormatP010:
		return ApplyHDRLinear10BitPlanar
	case FormatRGBA1010102:
		if transfer == TransferPQ {
			return ApplyHDRPQ1010102
		}
		return ApplyHDRHLG1010102
	default:
		return ApplySDR8888
	}
}
