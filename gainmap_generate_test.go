package ultrahdr

import "testing"

func newTestYUV420(w, h int, y, u, v byte) *PixelBuffer {
	p := &PixelBuffer{
		Format: FormatYUV420, Width: w, Height: h, Gamut: GamutBT709, Transfer: TransferSRGB,
		LumaStride: w, Luma: make([]byte, w*h),
		ChromaStride: (w / 2) * 2, Chroma: make([]byte, (w/2)*2*(h/2)),
	}
	for i := range p.Luma {
		p.Luma[i] = y
	}
	for i := 0; i < len(p.Chroma); i += 2 {
		p.Chroma[i] = u
		p.Chroma[i+1] = v
	}
	return p
}

func newTestP010(w, h int, v10 uint16) *PixelBuffer {
	word := v10 << 6
	p := &PixelBuffer{
		Format: FormatP010, Width: w, Height: h, Gamut: GamutBT2100, Transfer: TransferHLG,
		LumaStride: w * 2, Luma: make([]byte, w*2*h),
		ChromaStride: w * 2, Chroma: make([]byte, w*2*h/2),
	}
	for i := 0; i < len(p.Luma); i += 2 {
		p.Luma[i] = byte(word)
		p.Luma[i+1] = byte(word >> 8)
	}
	mid := uint16(512) << 6
	for i := 0; i < len(p.Chroma); i += 2 {
		p.Chroma[i] = byte(mid)
		p.Chroma[i+1] = byte(mid >> 8)
	}
	return p
}

func TestGenerateGainMapDimensions(t *testing.T) {
	sdr := newTestYUV420(1280, 720, 200, 128, 128)
	hdr := newTestP010(1280, 720, 900)
	gm, meta, err := GenerateGainMap(sdr, hdr, GenerateGainMapOptions{HDRTransfer: TransferHLG})
	if err != nil {
		t.Fatalf("GenerateGainMap: %v", err)
	}
	if gm.Width != 320 || gm.Height != 180 {
		t.Fatalf("gain map dims = %dx%d, want 320x180", gm.Width, gm.Height)
	}
	if meta == nil {
		t.Fatal("expected non-nil metadata")
	}
}

func TestGenerateGainMapHLGMaxContentBoost(t *testing.T) {
	sdr := newTestYUV420(1280, 720, 200, 128, 128)
	hdr := newTestP010(1280, 720, 900)
	_, meta, err := GenerateGainMap(sdr, hdr, GenerateGainMapOptions{HDRTransfer: TransferHLG})
	if err != nil {
		t.Fatalf("GenerateGainMap: %v", err)
	}
	const want = float32(1000.0 / 203.0)
	if !approxEqual(meta.MaxContentBoost, want, 1e-4) {
		t.Errorf("MaxContentBoost = %v, want ~%v (1000/203 ~= 4.926)", meta.MaxContentBoost, want)
	}
	if !approxEqual(meta.HDRCapacityMax, meta.MaxContentBoost, 1e-6) {
		t.Errorf("HDRCapacityMax = %v, want MaxContentBoost %v", meta.HDRCapacityMax, meta.MaxContentBoost)
	}
	if meta.MinContentBoost != 1.0 || meta.HDRCapacityMin != 1.0 {
		t.Errorf("MinContentBoost/HDRCapacityMin = %v/%v, want 1.0/1.0", meta.MinContentBoost, meta.HDRCapacityMin)
	}
}

func TestGenerateGainMapRejectsMismatchedDimensions(t *testing.T) {
	sdr := newTestYUV420(1280, 720, 200, 128, 128)
	hdr := newTestP010(640, 360, 900)
	if _, _, err := GenerateGainMap(sdr, hdr, GenerateGainMapOptions{HDRTransfer: TransferHLG}); err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
}

func TestGenerateGainMapRejectsUnscaledDimensions(t *testing.T) {
	sdr := newTestYUV420(1281, 720, 200, 128, 128)
	hdr := newTestP010(1281, 720, 900)
	if _, _, err := GenerateGainMap(sdr, hdr, GenerateGainMapOptions{HDRTransfer: TransferHLG}); err == nil {
		t.Fatal("expected error for width not a multiple of the gain-map scale")
	}
}

func TestGenerateGainMapRejectsInvalidTransfer(t *testing.T) {
	sdr := newTestYUV420(1280, 720, 200, 128, 128)
	hdr := newTestP010(1280, 720, 900)
	if _, _, err := GenerateGainMap(sdr, hdr, GenerateGainMapOptions{HDRTransfer: TransferSRGB}); err == nil {
		t.Fatal("expected error for non-HDR transfer function")
	}
}

func TestGenerateGainMapRejectsShortLumaStride(t *testing.T) {
	sdr := newTestYUV420(1280, 720, 200, 128, 128)
	sdr.LumaStride = sdr.Width - 1
	hdr := newTestP010(1280, 720, 900)
	if _, _, err := GenerateGainMap(sdr, hdr, GenerateGainMapOptions{HDRTransfer: TransferHLG}); KindOf(err) != InvalidStride {
		t.Fatalf("KindOf(err) = %v, want InvalidStride", KindOf(err))
	}
}

func TestGenerateGainMapBrighterHDRProducesHigherGain(t *testing.T) {
	sdr := newTestYUV420(1280, 720, 128, 128, 128)
	dim := newTestP010(1280, 720, 400)
	bright := newTestP010(1280, 720, 1000)

	dimMap, meta, err := GenerateGainMap(sdr, dim, GenerateGainMapOptions{HDRTransfer: TransferHLG})
	if err != nil {
		t.Fatalf("GenerateGainMap(dim): %v", err)
	}
	brightMap, _, err := GenerateGainMap(sdr, bright, GenerateGainMapOptions{HDRTransfer: TransferHLG})
	if err != nil {
		t.Fatalf("GenerateGainMap(bright): %v", err)
	}
	_ = meta
	if monoAt(brightMap, 0, 0) <= monoAt(dimMap, 0, 0) {
		t.Errorf("brighter HDR sample should encode a higher gain byte: dim=%d bright=%d",
			monoAt(dimMap, 0, 0), monoAt(brightMap, 0, 0))
	}
}
