package ultrahdr

// HeifCodec is the narrow contract an external HEIC/AVIF collaborator must
// satisfy to be usable by the Assembler for OutputHEIC/OutputAVIF variants.
// This core does not bundle a HEIC/AVIF codec (that requires libheif/libavif
// via cgo, out of scope for a pure-Go core); callers that need those output
// codecs supply an implementation via WithHeifCodecOpt.
type HeifCodec interface {
	// EncodePrimary encodes a single base image to a HEIC or AVIF blob.
	EncodePrimary(img *PixelBuffer, quality int) ([]byte, error)
	// EncodeWithGainMap encodes a base image plus gain map and metadata
	// into a single HEIC/AVIF container carrying both as items.
	EncodeWithGainMap(primary, gainmap *PixelBuffer, meta *GainMapMetadata, quality, gainmapQuality int) ([]byte, error)
	// Decode extracts the primary image, and (if present) the gain map
	// image and metadata, from a HEIC/AVIF blob.
	Decode(data []byte) (primary *PixelBuffer, gainmap *PixelBuffer, meta *GainMapMetadata, err error)
}
