package ultrahdr

import "image"

// FloatImageToHDRBuffer converts a linear-light float HDRImage (as produced
// by DecodeEXR/DecodeTIFFHDR) into a P010 PixelBuffer suitable as the HDR
// input to GenerateGainMap. Values are expected in [0,1] relative to the
// gamut's linear peak; transfer and gamut describe how they should be
// interpreted downstream.
func FloatImageToHDRBuffer(h *HDRImage, gamut ColorGamut, transfer ColorTransfer) *PixelBuffer {
	w, evenH := h.W, h.H
	// P010 requires even dimensions for 4:2:0 chroma.
	if w%2 != 0 {
		w++
	}
	if evenH%2 != 0 {
		evenH++
	}
	lumaStride := w * 2
	chromaStride := w * 2
	out := &PixelBuffer{
		Format:       FormatP010,
		Width:        w,
		Height:       evenH,
		Gamut:        gamut,
		Transfer:     transfer,
		LumaStride:   lumaStride,
		Luma:         make([]byte, lumaStride*evenH),
		ChromaStride: chromaStride,
		Chroma:       make([]byte, chromaStride*evenH/2),
	}
	for y := 0; y < h.H; y++ {
		for x := 0; x < h.W; x++ {
			c := h.At(x, y)
			lin := luminanceFor(gamut, c)
			putP010Word(out.Luma, y*lumaStride+x*2, lin)
			if x%2 == 0 && y%2 == 0 {
				cb := clampf(0.5+(c.b-lin)*0.5, 0, 1)
				cr := clampf(0.5+(c.r-lin)*0.5, 0, 1)
				off := (y/2)*chromaStride + (x/2)*4
				putP010Word(out.Chroma, off, cb)
				putP010Word(out.Chroma, off+2, cr)
			}
		}
	}
	return out
}

func putP010Word(buf []byte, off int, v01 float32) {
	v10 := uint16(clampf(v01*1023+0.5, 0, 1023))
	word := v10 << 6
	buf[off] = byte(word)
	buf[off+1] = byte(word >> 8)
}

// resampleP010 nearest-neighbor resizes a P010 buffer to the given
// dimensions, for aligning a HDR reference against a mismatched SDR size.
func resampleP010(src *PixelBuffer, w, h int) *PixelBuffer {
	if w%2 != 0 {
		w++
	}
	if h%2 != 0 {
		h++
	}
	lumaStride := w * 2
	chromaStride := w * 2
	out := &PixelBuffer{
		Format: FormatP010, Width: w, Height: h, Gamut: src.Gamut, Transfer: src.Transfer,
		LumaStride: lumaStride, Luma: make([]byte, lumaStride*h),
		ChromaStride: chromaStride, Chroma: make([]byte, chromaStride*h/2),
	}
	for y := 0; y < h; y++ {
		sy := y * src.Height / h
		for x := 0; x < w; x++ {
			sx := x * src.Width / w
			word := uint16(src.Luma[sy*src.LumaStride+sx*2]) | uint16(src.Luma[sy*src.LumaStride+sx*2+1])<<8
			out.Luma[y*lumaStride+x*2] = byte(word)
			out.Luma[y*lumaStride+x*2+1] = byte(word >> 8)
			if x%2 == 0 && y%2 == 0 {
				scy := (sy / 2) * src.ChromaStride
				scx := (sx / 2) * 4
				dcy := (y / 2) * chromaStride
				dcx := (x / 2) * 4
				copy(out.Chroma[dcy+dcx:dcy+dcx+4], src.Chroma[scy+scx:scy+scx+4])
			}
		}
	}
	return out
}

// monochromeToGrayImage converts a MONOCHROME PixelBuffer's luma plane into
// a standard library grayscale image for JPEG encoding.
func monochromeToGrayImage(gm *PixelBuffer) image.Image {
	img := image.NewGray(image.Rect(0, 0, gm.Width, gm.Height))
	for y := 0; y < gm.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+gm.Width], gm.Luma[y*gm.LumaStride:y*gm.LumaStride+gm.Width])
	}
	return img
}
