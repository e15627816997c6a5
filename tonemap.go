package ultrahdr

// ToneMap converts a P010 HDR buffer to an SDR YUV 4:2:0 buffer of equal
// width and height by taking the high 8 bits of each 10-bit sample. This is
// a conservative bit-reduction, not a perceptual tone curve; it exists so
// gain-map generation always has an SDR base even when the pipeline is
// only given HDR raw input.
func ToneMap(hdr *PixelBuffer) (*PixelBuffer, error) {
	const op = "ToneMap"
	if hdr == nil {
		return nil, newErr(BadPointer, op, nil)
	}
	if hdr.Format != FormatP010 {
		return nil, newErr(UnsupportedWidthHeight, op, nil)
	}

	w, h := hdr.Width, hdr.Height
	lumaStride := w
	chromaW := w / 2
	chromaH := h / 2
	chromaStride := chromaW * 2 // interleaved U/V

	out := &PixelBuffer{
		Format:       FormatYUV420,
		Width:        w,
		Height:       h,
		Gamut:        hdr.Gamut,
		Transfer:     TransferSRGB,
		LumaStride:   lumaStride,
		Luma:         make([]byte, lumaStride*h),
		ChromaStride: chromaStride,
		Chroma:       make([]byte, chromaStride*chromaH),
	}

	reduce10to8 := func(word uint16) byte {
		return byte((word >> 6) >> 2)
	}

	for y := 0; y < h; y++ {
		srcOff := y * hdr.LumaStride
		dstOff := y * out.LumaStride
		for x := 0; x < w; x++ {
			word := uint16(hdr.Luma[srcOff+x*2]) | uint16(hdr.Luma[srcOff+x*2+1])<<8
			out.Luma[dstOff+x] = reduce10to8(word)
		}
		// zero any stride padding beyond width
		for x := w; x*1 < out.LumaStride; x++ {
			out.Luma[dstOff+x] = 0
		}
	}

	for cy := 0; cy < chromaH; cy++ {
		srcOff := cy * hdr.ChromaStride
		dstOff := cy * out.ChromaStride
		for cx := 0; cx < chromaW; cx++ {
			uWord := uint16(hdr.Chroma[srcOff+cx*4]) | uint16(hdr.Chroma[srcOff+cx*4+1])<<8
			vWord := uint16(hdr.Chroma[srcOff+cx*4+2]) | uint16(hdr.Chroma[srcOff+cx*4+3])<<8
			out.Chroma[dstOff+cx*2] = reduce10to8(uWord)
			out.Chroma[dstOff+cx*2+1] = reduce10to8(vWord)
		}
		for cx := chromaW * 2; cx < out.ChromaStride; cx++ {
			out.Chroma[dstOff+cx] = 0
		}
	}

	return out, nil
}
