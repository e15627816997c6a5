package ultrahdr

import (
	"math"
	"runtime"
	"sync"

	"github.com/ultrahdrgo/ultrahdr/internal/tilequeue"
)

// ApplyOutputFormat selects the pixel layout ApplyGainMap emits.
type ApplyOutputFormat int

const (
	ApplySDR8888 ApplyOutputFormat = iota
	ApplyHDRLinearF16
	ApplyHDRLinear10BitPlanar
	ApplyHDRHLG1010102
	ApplyHDRPQ1010102
)

// ApplyGainMapOptions controls ApplyGainMap.
type ApplyGainMapOptions struct {
	Output          ApplyOutputFormat
	MaxDisplayBoost float32 // 0 selects meta.HDRCapacityMax; otherwise must be >= 1.0
	DetectedCores   int
}

// shepardTable holds precomputed inverse-distance weights for the four
// gain-map samples enclosing each sub-pixel offset within one S x S block.
type shepardTable struct {
	scale   int
	weights [][4]float32 // indexed by dy*scale+dx
}

// shepardCornerWeights computes normalized inverse-distance weights for the
// 4 gain-map samples at (0,0),(1,0),(0,1),(1,1) against a sub-pixel offset
// (fx,fy) inside that unit cell. This is the one piece of math both the
// precomputed integer-scale table and the continuous fallback sampler share;
// it has no dependency on the scale factor being an integer.
func shepardCornerWeights(fx, fy float32) [4]float32 {
	corners := [4][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	var w [4]float32
	var sum float32
	for i, c := range corners {
		ddx := fx - c[0]
		ddy := fy - c[1]
		dist := float32(math.Sqrt(float64(ddx*ddx + ddy*ddy)))
		if dist < 1e-6 {
			dist = 1e-6
		}
		w[i] = 1.0 / dist
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

func buildShepardTable(scale int) *shepardTable {
	t := &shepardTable{scale: scale, weights: make([][4]float32, scale*scale)}
	for dy := 0; dy < scale; dy++ {
		for dx := 0; dx < scale; dx++ {
			// Sub-pixel position within the block, in map-sample units,
			// relative to the top-left of the 4 enclosing map samples.
			fx := (float32(dx) + 0.5) / float32(scale)
			fy := (float32(dy) + 0.5) / float32(scale)
			t.weights[dy*scale+dx] = shepardCornerWeights(fx, fy)
		}
	}
	return t
}

func (t *shepardTable) sample(gm *PixelBuffer, sx, sy, bx, by int) float32 {
	mx0 := bx
	my0 := by
	mx1 := mx0 + 1
	my1 := my0 + 1
	if mx1 >= gm.Width {
		mx1 = gm.Width - 1
	}
	if my1 >= gm.Height {
		my1 = gm.Height - 1
	}
	w := t.weights[sy*t.scale+sx]
	v00 := float32(monoAt(gm, mx0, my0))
	v10 := float32(monoAt(gm, mx1, my0))
	v01 := float32(monoAt(gm, mx0, my1))
	v11 := float32(monoAt(gm, mx1, my1))
	return (w[0]*v00 + w[1]*v10 + w[2]*v01 + w[3]*v11) / 255.0
}

// sampleShepardContinuous performs plain bilinear interpolation (the same
// lerp2 kernel used by yuv420UV/p010UV) from a continuous map-space
// coordinate, unlike shepardTable.sample's Shepard's-inverse-distance
// weighting over a fixed integer scale. It is the fallback used whenever the
// SDR/gain-map dimensions don't divide evenly, or divide by different X/Y
// factors, so there is no fixed sub-pixel grid to precompute IDW corner
// weights for.
func sampleShepardContinuous(gm *PixelBuffer, gxf, gyf float32) float32 {
	mx0 := int(math.Floor(float64(gxf)))
	my0 := int(math.Floor(float64(gyf)))
	if mx0 < 0 {
		mx0 = 0
	}
	if my0 < 0 {
		my0 = 0
	}
	if mx0 > gm.Width-1 {
		mx0 = gm.Width - 1
	}
	if my0 > gm.Height-1 {
		my0 = gm.Height - 1
	}
	fx := gxf - float32(mx0)
	fy := gyf - float32(my0)
	mx1 := mx0 + 1
	my1 := my0 + 1
	if mx1 >= gm.Width {
		mx1 = gm.Width - 1
	}
	if my1 >= gm.Height {
		my1 = gm.Height - 1
	}
	v00 := float32(monoAt(gm, mx0, my0))
	v10 := float32(monoAt(gm, mx1, my0))
	v01 := float32(monoAt(gm, mx0, my1))
	v11 := float32(monoAt(gm, mx1, my1))
	return lerp2(v00, v10, v01, v11, fx, fy) / 255.0
}

// ApplyGainMap reconstructs an HDR (or re-encoded SDR) image from an SDR
// YUV 4:2:0 buffer, a MONOCHROME gain map, and its metadata.
func ApplyGainMap(sdr, gainmap *PixelBuffer, meta *GainMapMetadata, opt ApplyGainMapOptions) (*PixelBuffer, error) {
	const op = "ApplyGainMap"
	if sdr == nil || gainmap == nil || meta == nil {
		return nil, newErr(BadPointer, op, nil)
	}
	if sdr.Format != FormatYUV420 || gainmap.Format != FormatMonochrome {
		return nil, newErr(UnsupportedWidthHeight, op, nil)
	}
	if gainmap.Width <= 0 || gainmap.Height <= 0 || gainmap.Width > sdr.Width || gainmap.Height > sdr.Height {
		return nil, newErr(UnsupportedMapScaleFactor, op, nil)
	}
	if meta.Version != jpegrVersion {
		return nil, newErr(BadMetadata, op, nil)
	}
	if meta.Gamma != 1.0 {
		return nil, newErr(BadMetadata, op, nil)
	}
	if meta.OffsetSDR != 0 || meta.OffsetHDR != 0 {
		return nil, newErr(BadMetadata, op, nil)
	}
	if meta.HDRCapacityMin != meta.MinContentBoost || meta.HDRCapacityMax != meta.MaxContentBoost {
		return nil, newErr(BadMetadata, op, nil)
	}
	if opt.MaxDisplayBoost != 0 && opt.MaxDisplayBoost < 1.0 {
		return nil, newErr(InvalidDisplayBoost, op, nil)
	}
	boost := opt.MaxDisplayBoost
	if boost < 1.0 {
		boost = meta.HDRCapacityMax
	}

	displayBoost := boost
	if displayBoost > meta.MaxContentBoost {
		displayBoost = meta.MaxContentBoost
	}

	// The precomputed table is only valid for an integral, X==Y map scale;
	// otherwise fall back to bilinear interpolation (sampleShepardContinuous)
	// from a continuous map-space coordinate.
	var sampleGain func(x, y int) float32
	var jobRows int
	if sdr.Width%gainmap.Width == 0 && sdr.Height%gainmap.Height == 0 &&
		sdr.Width/gainmap.Width == sdr.Height/gainmap.Height {
		scale := sdr.Width / gainmap.Width
		table := buildShepardTable(scale)
		sampleGain = func(x, y int) float32 {
			return table.sample(gainmap, x%scale, y%scale, x/scale, y/scale)
		}
		jobRows = scale
	} else {
		wRatio := float32(gainmap.Width) / float32(sdr.Width)
		hRatio := float32(gainmap.Height) / float32(sdr.Height)
		sampleGain = func(x, y int) float32 {
			gxf := (float32(x) + 0.5) * wRatio
			gyf := (float32(y) + 0.5) * hRatio
			return sampleShepardContinuous(gainmap, gxf, gyf)
		}
		jobRows = kJobSzInRows
	}

	out := allocApplyOutput(opt.Output, sdr.Width, sdr.Height)

	cores := opt.DetectedCores
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	workers := cores
	if workers > maxWorkers {
		workers = maxWorkers
	}
	if workers < 1 {
		workers = 1
	}

	q := tilequeue.Split(sdr.Height, jobRows)

	worker := func() {
		for {
			job, ok := q.Dequeue()
			if !ok {
				return
			}
			for y := job.RowStart; y < job.RowEnd; y++ {
				for x := 0; x < sdr.Width; x++ {
					y0 := yuv420Y(sdr, x, y)
					u0, v0 := yuv420UV(sdr, x, y)
					sdrRaw := bt601YuvToRgb(y0, u0, v0)
					sdrLinear := srgbInvOetfRGB(sdrRaw)

					gNorm := sampleGain(x, y)
					gainFactor := gainFactorFromNorm(gNorm, meta)
					effective := gainFactor
					if effective > displayBoost {
						effective = displayBoost
					}
					hdr := applyGain(sdrLinear, effective, meta)
					hdr = normalizeApply(hdr, displayBoost)

					emitApplyPixel(out, x, y, hdr, opt.Output)
				}
			}
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < workers-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker()
		}()
	}
	worker()
	wg.Wait()

	out.HDRCapacity = displayBoost
	return out, nil
}

// normalizeApply divides linear HDR by the display boost so all emitted
// layouts carry values in [0,1] scaled to the target display's headroom.
func normalizeApply(c rgb, boost float32) rgb {
	if boost <= 0 {
		boost = 1
	}
	return rgb{c.r / boost, c.g / boost, c.b / boost}
}

func allocApplyOutput(fmtOut ApplyOutputFormat, w, h int) *PixelBuffer {
	switch fmtOut {
	case ApplyHDRLinearF16:
		return &PixelBuffer{Format: FormatRGBAF16, Width: w, Height: h, LumaStride: w * 8, Luma: make([]byte, w*h*8), Transfer: TransferLinear, Gamut: GamutBT2100}
	case ApplyHDRLinear10BitPlanar:
		stride := w * 2
		return &PixelBuffer{Format: FormatP010, Width: w, Height: h, LumaStride: stride, Luma: make([]byte, stride*h),
			ChromaStride: stride, Chroma: make([]byte, stride*h), Transfer: TransferLinear, Gamut: GamutBT2100}
	case ApplyHDRHLG1010102:
		return &PixelBuffer{Format: FormatRGBA1010102, Width: w, Height: h, LumaStride: w * 4, Luma: make([]byte, w*h*4), Transfer: TransferHLG, Gamut: GamutBT2100}
	case ApplyHDRPQ1010102:
		return &PixelBuffer{Format: FormatRGBA1010102, Width: w, Height: h, LumaStride: w * 4, Luma: make([]byte, w*h*4), Transfer: TransferPQ, Gamut: GamutBT2100}
	default:
		return &PixelBuffer{Format: FormatRGBA8888, Width: w, Height: h, LumaStride: w * 4, Luma: make([]byte, w*h*4), Transfer: TransferSRGB, Gamut: GamutBT709}
	}
}

func emitApplyPixel(out *PixelBuffer, x, y int, c rgb, fmtOut ApplyOutputFormat) {
	switch fmtOut {
	case ApplyHDRLinearF16:
		off := y*out.LumaStride + x*8
		putFloat16(out.Luma[off:], c.r)
		putFloat16(out.Luma[off+2:], c.g)
		putFloat16(out.Luma[off+4:], c.b)
		putFloat16(out.Luma[off+6:], 1.0)
	case ApplyHDRLinear10BitPlanar:
		yLin := clampf(luminanceFor(GamutBT2100, c), 0, 1)
		putP010(out.Luma, y*out.LumaStride+x*2, yLin)
		if x%2 == 0 && y%2 == 0 {
			u := clampf(0.5+(c.b-yLin)*0.5, 0, 1)
			v := clampf(0.5+(c.r-yLin)*0.5, 0, 1)
			off := (y/2)*out.ChromaStride + (x/2)*4
			putP010(out.Chroma, off, u)
			putP010(out.Chroma, off+2, v)
		}
	case ApplyHDRHLG1010102, ApplyHDRPQ1010102:
		var enc rgb
		if fmtOut == ApplyHDRHLG1010102 {
			enc = rgb{hlgOetf(clampf(c.r, 0, 1)), hlgOetf(clampf(c.g, 0, 1)), hlgOetf(clampf(c.b, 0, 1))}
		} else {
			enc = rgb{pqOetf(clampf(c.r, 0, 1)), pqOetf(clampf(c.g, 0, 1)), pqOetf(clampf(c.b, 0, 1))}
		}
		off := y*out.LumaStride + x*4
		putRGBA1010102(out.Luma[off:], enc)
	default: // ApplySDR8888
		enc := rgb{srgbOetf(clampf(c.r, 0, 1)), srgbOetf(clampf(c.g, 0, 1)), srgbOetf(clampf(c.b, 0, 1))}
		off := y*out.LumaStride + x*4
		out.Luma[off] = uint8(enc.r*255 + 0.5)
		out.Luma[off+1] = uint8(enc.g*255 + 0.5)
		out.Luma[off+2] = uint8(enc.b*255 + 0.5)
		out.Luma[off+3] = 0xFF
	}
}

func putP010(buf []byte, off int, v01 float32) {
	v10 := uint16(clampf(v01*1023+0.5, 0, 1023))
	word := v10 << 6
	buf[off] = byte(word)
	buf[off+1] = byte(word >> 8)
}

func putRGBA1010102(buf []byte, c rgb) {
	r := uint32(clampf(c.r*1023+0.5, 0, 1023))
	g := uint32(clampf(c.g*1023+0.5, 0, 1023))
	b := uint32(clampf(c.b*1023+0.5, 0, 1023))
	a := uint32(3) // fully opaque, 2-bit alpha
	word := r | g<<10 | b<<20 | a<<30
	buf[0] = byte(word)
	buf[1] = byte(word >> 8)
	buf[2] = byte(word >> 16)
	buf[3] = byte(word >> 24)
}

// putFloat16 writes v as an IEEE 754 half-precision float, little-endian.
func putFloat16(buf []byte, v float32) {
	bits := math.Float32bits(v)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff
	var half uint16
	switch {
	case exp <= 0:
		half = sign
	case exp >= 0x1f:
		half = sign | 0x7c00
	default:
		half = sign | uint16(exp)<<10 | uint16(mant>>13)
	}
	buf[0] = byte(half)
	buf[1] = byte(half >> 8)
}
