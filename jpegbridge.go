package ultrahdr

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
)

// This file bridges the raw PixelBuffer world the Assembler operates in to
// the stdlib image.Image world jpeg_parse_tables.go/resize.go/xmp.go were
// already written against, so the same JPEG encode/decode path serves both.

func pixelBufferToYCbCr(p *PixelBuffer) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, p.Width, p.Height), image.YCbCrSubsampleRatio420)
	for y := 0; y < p.Height; y++ {
		copy(img.Y[y*img.YStride:y*img.YStride+p.Width], p.Luma[y*p.LumaStride:y*p.LumaStride+p.Width])
	}
	cw, ch := p.Width/2, p.Height/2
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			off := y*p.ChromaStride + x*2
			img.Cb[y*img.CStride+x] = p.Chroma[off]
			img.Cr[y*img.CStride+x] = p.Chroma[off+1]
		}
	}
	return img
}

func ycbcrToPixelBuffer(img *image.YCbCr, gamut ColorGamut) *PixelBuffer {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &PixelBuffer{
		Format:       FormatYUV420,
		Width:        w,
		Height:       h,
		Gamut:        gamut,
		Transfer:     TransferSRGB,
		LumaStride:   w,
		Luma:         make([]byte, w*h),
		ChromaStride: (w / 2) * 2,
		Chroma:       make([]byte, (w/2)*2*(h/2)),
	}
	for y := 0; y < h; y++ {
		copy(out.Luma[y*w:(y+1)*w], img.Y[(b.Min.Y+y)*img.YStride+b.Min.X:(b.Min.Y+y)*img.YStride+b.Min.X+w])
	}
	cw, ch := w/2, h/2
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			off := y*out.ChromaStride + x*2
			out.Chroma[off] = img.Cb[(b.Min.Y/2+y)*img.CStride+b.Min.X/2+x]
			out.Chroma[off+1] = img.Cr[(b.Min.Y/2+y)*img.CStride+b.Min.X/2+x]
		}
	}
	return out
}

func encodeJPEGBuffer(p *PixelBuffer, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = defaultBaseQuality
	}
	if quality > 100 {
		return nil, newErr(InvalidQuality, "encodeJPEGBuffer", nil)
	}
	return encodeWithQuality(pixelBufferToYCbCr(p), quality, defaultResizeSampling)
}

// decodeICCProfile inspects a JPEG's embedded ICC profile (if any), merging
// multi-segment profiles and classifying gamut/transfer.
func decodeICCProfile(data []byte) (colorProfile, bool) {
	_, icc, err := extractExifAndIcc(data)
	if err != nil {
		return colorProfile{}, false
	}
	merged := collectICCProfile(icc)
	if merged == nil {
		return colorProfile{}, false
	}
	return detectColorProfileFromICCProfile(merged), true
}

// workingGamutFor maps an ICC-detected consumer gamut onto the pipeline's
// working ColorGamut; AdobeRGB has no working equivalent and is corrected to
// sRGB primaries by adobeRGBToSRGB before packing, so BT.709 is always
// correct here.
func workingGamutFor(p colorProfile) ColorGamut {
	if p.gamut == colorGamutDisplayP3 {
		return GamutDisplayP3
	}
	return GamutBT709
}

// adobeRGBToSRGB corrects a non-linear 8-bit RGB triplet sampled from an
// AdobeRGB-tagged source into sRGB primaries/transfer, so it can be packed
// into a BT.709-tagged PixelBuffer without a visible gamut shift.
func adobeRGBToSRGB(r, g, b uint8) (uint8, uint8, uint8) {
	lin := rgb{gamma22InvOetf(float32(r) / 255), gamma22InvOetf(float32(g) / 255), gamma22InvOetf(float32(b) / 255)}
	srgbLin := convertLinearGamut(lin, colorGamutAdobeRGB, colorGamutSRGB)
	return u8(srgbOetf(srgbLin.r)), u8(srgbOetf(srgbLin.g)), u8(srgbOetf(srgbLin.b))
}

func u8(v float32) uint8 {
	return uint8(clampf(v*255+0.5, 0, 255))
}

func decodeJPEGBuffer(data []byte) (*PixelBuffer, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	profile, hasProfile := decodeICCProfile(data)
	gamut := GamutBT709
	if hasProfile {
		gamut = workingGamutFor(profile)
	}
	if yc, ok := img.(*image.YCbCr); ok && (!hasProfile || profile.gamut != colorGamutAdobeRGB) {
		return ycbcrToPixelBuffer(yc, gamut), nil
	}
	// Fall back through a generic RGBA conversion for non-4:2:0 sources, or
	// to apply the AdobeRGB->sRGB gamut correction pixel-by-pixel.
	b := img.Bounds()
	yc := image.NewYCbCr(image.Rect(0, 0, b.Dx(), b.Dy()), image.YCbCrSubsampleRatio420)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(bl>>8)
			if hasProfile && profile.gamut == colorGamutAdobeRGB {
				r8, g8, b8 = adobeRGBToSRGB(r8, g8, b8)
			}
			yy, cb, cr := color.RGBToYCbCr(r8, g8, b8)
			yc.Y[y*yc.YStride+x] = yy
			if x%2 == 0 && y%2 == 0 {
				yc.Cb[(y/2)*yc.CStride+x/2] = cb
				yc.Cr[(y/2)*yc.CStride+x/2] = cr
			}
		}
	}
	return ycbcrToPixelBuffer(yc, gamut), nil
}

func decodeJPEGGrayBuffer(data []byte) (*PixelBuffer, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	out := newMonochrome(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			setMonoAt(out, x, y, c.Y)
		}
	}
	return out, nil
}

func encodeGainMapJPEG(gm *PixelBuffer, quality int) ([]byte, error) {
	if gm == nil {
		return nil, newErr(GainMapImageNotFound, "encodeGainMapJPEG", nil)
	}
	if quality > 100 {
		return nil, newErr(InvalidQuality, "encodeGainMapJPEG", nil)
	}
	img := image.NewGray(image.Rect(0, 0, gm.Width, gm.Height))
	for y := 0; y < gm.Height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+gm.Width], gm.Luma[y*gm.LumaStride:y*gm.LumaStride+gm.Width])
	}
	return encodeWithQuality(img, quality, defaultResizeSampling)
}
