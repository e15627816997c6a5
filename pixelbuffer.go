package ultrahdr

// This file collects sample-addressing helpers shared by the gain-map
// generator, applier, and tone mapper. Every raw buffer operation in this
// core reads through these functions rather than indexing Luma/Chroma
// directly, so the planar layout only needs to be gotten right once.

// yuv420Y returns the 8-bit luma sample at (x,y) in a FormatYUV420 buffer.
func yuv420Y(p *PixelBuffer, x, y int) float32 {
	return float32(p.Luma[y*p.LumaStride+x]) / 255.0
}

// yuv420UV returns the chroma pair for the 2x2 luma block containing (x,y),
// bilinearly interpolated across the chroma grid so 4:2:0 chroma can be
// addressed at full luma resolution (4:4:4 upsampling).
func yuv420UV(p *PixelBuffer, x, y int) (u, v float32) {
	cw := p.Width / 2
	ch := p.Height / 2
	fx := float32(x) / 2.0
	fy := float32(y) / 2.0
	x0 := int(fx)
	y0 := int(fy)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= cw {
		x1 = cw - 1
	}
	if y1 >= ch {
		y1 = ch - 1
	}
	if x0 >= cw {
		x0 = cw - 1
	}
	if y0 >= ch {
		y0 = ch - 1
	}
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	sample := func(cx, cy int) (float32, float32) {
		off := cy*p.ChromaStride + cx*2
		return (float32(p.Chroma[off]) - 128) / 255.0, (float32(p.Chroma[off+1]) - 128) / 255.0
	}
	u00, v00 := sample(x0, y0)
	u10, v10 := sample(x1, y0)
	u01, v01 := sample(x0, y1)
	u11, v11 := sample(x1, y1)
	u = lerp2(u00, u10, u01, u11, tx, ty)
	v = lerp2(v00, v10, v01, v11, tx, ty)
	return u, v
}

func lerp2(v00, v10, v01, v11, tx, ty float32) float32 {
	top := v00 + (v10-v00)*tx
	bot := v01 + (v11-v01)*tx
	return top + (bot-top)*ty
}

// p010Y reads a 16-bit MSB-justified P010 luma word and returns it
// scaled to [0,1] after reducing to its 10 significant bits.
func p010Y(p *PixelBuffer, x, y int) float32 {
	off := y*p.LumaStride + x*2
	word := uint16(p.Luma[off]) | uint16(p.Luma[off+1])<<8
	v10 := word >> 6
	return float32(v10) / 1023.0
}

// p010UV returns the chroma pair for the 2x2 luma block containing (x,y),
// bilinearly interpolated the same way as yuv420UV but over 16-bit words.
func p010UV(p *PixelBuffer, x, y int) (u, v float32) {
	cw := p.Width / 2
	ch := p.Height / 2
	fx := float32(x) / 2.0
	fy := float32(y) / 2.0
	x0 := int(fx)
	y0 := int(fy)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= cw {
		x1 = cw - 1
	}
	if y1 >= ch {
		y1 = ch - 1
	}
	if x0 >= cw {
		x0 = cw - 1
	}
	if y0 >= ch {
		y0 = ch - 1
	}
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	sample := func(cx, cy int) (float32, float32) {
		off := cy*p.ChromaStride + cx*4
		uWord := uint16(p.Chroma[off]) | uint16(p.Chroma[off+1])<<8
		vWord := uint16(p.Chroma[off+2]) | uint16(p.Chroma[off+3])<<8
		u10 := float32(uWord>>6) / 1023.0
		v10 := float32(vWord>>6) / 1023.0
		return u10 - 0.5, v10 - 0.5
	}
	u00, v00 := sample(x0, y0)
	u10, v10 := sample(x1, y0)
	u01, v01 := sample(x0, y1)
	u11, v11 := sample(x1, y1)
	u = lerp2(u00, u10, u01, u11, tx, ty)
	v = lerp2(v00, v10, v01, v11, tx, ty)
	return u, v
}

// monoAt returns the 8-bit sample at (x,y) in a FormatMonochrome buffer.
func monoAt(p *PixelBuffer, x, y int) uint8 {
	return p.Luma[y*p.LumaStride+x]
}

func setMonoAt(p *PixelBuffer, x, y int, v uint8) {
	p.Luma[y*p.LumaStride+x] = v
}

// newMonochrome allocates a zeroed monochrome buffer of the given size.
func newMonochrome(w, h int) *PixelBuffer {
	return &PixelBuffer{
		Format:     FormatMonochrome,
		Width:      w,
		Height:     h,
		LumaStride: w,
		Luma:       make([]byte, w*h),
	}
}
