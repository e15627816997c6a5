package ultrahdr

// AssembleContainerVipsLike wraps assembleContainerVipsLike for external use.
func AssembleContainerVipsLike(primaryJPEG, gainmapJPEG []byte, exif []byte, icc [][]byte, secondaryXMP []byte, secondaryISO []byte) ([]byte, error) {
	return assembleContainerVipsLike(primaryJPEG, gainmapJPEG, exif, icc, secondaryXMP, secondaryISO)
}

// ExtractExifAndIcc returns EXIF and ICC APP payloads from a JPEG.
func ExtractExifAndIcc(jpegData []byte) ([]byte, [][]byte, error) {
	return extractExifAndIcc(jpegData)
}

// MetadataBundleFormat exposes the current metadata bundle format identifier.
func MetadataBundleFormat() string {
	return metadataBundleFormat
}

// EncodeJPEGBuffer encodes a FormatYUV420 raw buffer to a baseline JPEG.
func EncodeJPEGBuffer(p *PixelBuffer, quality int) ([]byte, error) {
	return encodeJPEGBuffer(p, quality)
}

// DecodeJPEGBuffer decodes a JPEG into a FormatYUV420 raw buffer.
func DecodeJPEGBuffer(data []byte) (*PixelBuffer, error) {
	return decodeJPEGBuffer(data)
}

// DecodeGainMapJPEG decodes a grayscale gain-map JPEG into a FormatMonochrome
// raw buffer.
func DecodeGainMapJPEG(data []byte) (*PixelBuffer, error) {
	return decodeJPEGGrayBuffer(data)
}

// EncodeGainMapJPEG encodes a FormatMonochrome raw buffer to a grayscale JPEG.
func EncodeGainMapJPEG(gm *PixelBuffer, quality int) ([]byte, error) {
	return encodeGainMapJPEG(gm, quality)
}
