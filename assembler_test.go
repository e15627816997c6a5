package ultrahdr

import "testing"

type stubHeifCodec struct {
	primaryCalls  int
	gainMapCalls  int
	decodeCalls   int
	decodePrimary *PixelBuffer
}

func (s *stubHeifCodec) EncodePrimary(img *PixelBuffer, quality int) ([]byte, error) {
	s.primaryCalls++
	return []byte("heif-primary"), nil
}

func (s *stubHeifCodec) EncodeWithGainMap(primary, gainmap *PixelBuffer, meta *GainMapMetadata, quality, gainmapQuality int) ([]byte, error) {
	s.gainMapCalls++
	return []byte("heif-gainmap"), nil
}

func (s *stubHeifCodec) Decode(data []byte) (*PixelBuffer, *PixelBuffer, *GainMapMetadata, error) {
	s.decodeCalls++
	return s.decodePrimary, nil, nil, nil
}

func TestAssemblerAddCompressedSDRFirstWriterWins(t *testing.T) {
	a := NewAssembler()
	first := &CompressedImage{Data: []byte("first")}
	second := &CompressedImage{Data: []byte("second")}
	a.AddCompressedSDR(first)
	a.AddCompressedSDR(second)
	if a.sdrCompressed != first {
		t.Error("second AddCompressedSDR call should be ignored")
	}
}

func TestAssemblerEnsureSDRRawFailsWithNoInput(t *testing.T) {
	a := NewAssembler()
	if _, err := a.ensureSDRRaw(); err == nil {
		t.Fatal("expected error when no SDR source is available")
	}
}

func TestAssemblerEnsureSDRRawToneMapsHDRRaw(t *testing.T) {
	a := NewAssembler()
	hdr := newTestP010(16, 16, 900)
	a.AddUncompressedHDR(hdr)
	sdr, err := a.ensureSDRRaw()
	if err != nil {
		t.Fatalf("ensureSDRRaw: %v", err)
	}
	if sdr.Format != FormatYUV420 || sdr.Width != 16 || sdr.Height != 16 {
		t.Errorf("got %v %dx%d, want FormatYUV420 16x16", sdr.Format, sdr.Width, sdr.Height)
	}
}

func TestAssemblerConvertRawPixelsGeneratesGainMap(t *testing.T) {
	a := NewAssembler()
	a.AddUncompressedSDR(newTestYUV420(64, 64, 128, 128, 128))
	a.AddUncompressedHDR(newTestP010(64, 64, 900))
	_, out, err := a.Convert(OutputConfig{Codec: OutputRawPixels})
	if err != nil {
		t.Fatalf("Convert(RawPixels): %v", err)
	}
	if out == nil || out.Format != FormatRGBA8888 {
		t.Fatalf("got %+v, want a FormatRGBA8888 buffer", out)
	}
}

func TestAssemblerConvertJPEGReturnsPresetCompressed(t *testing.T) {
	a := NewAssembler()
	preset := &CompressedImage{Data: []byte("already-encoded")}
	a.AddCompressedSDR(preset)
	compressed, _, err := a.Convert(OutputConfig{Codec: OutputJPEG, Quality: 90})
	if err != nil {
		t.Fatalf("Convert(JPEG): %v", err)
	}
	if compressed != preset {
		t.Error("Convert(JPEG) should return the preset compressed image unchanged")
	}
}

func TestAssemblerConvertJPEGREncodesContainer(t *testing.T) {
	a := NewAssembler()
	a.AddUncompressedSDR(newTestYUV420(64, 64, 128, 128, 128))
	a.AddUncompressedHDR(newTestP010(64, 64, 900))
	compressed, _, err := a.Convert(OutputConfig{Codec: OutputJPEGR, Quality: 90, GainMapQuality: 80})
	if err != nil {
		t.Fatalf("Convert(JPEGR): %v", err)
	}
	if compressed == nil || len(compressed.Data) == 0 {
		t.Fatal("expected non-empty JPEG/R container")
	}
}

func TestAssemblerConvertHEICWithoutCodecFails(t *testing.T) {
	a := NewAssembler()
	a.AddUncompressedSDR(newTestYUV420(16, 16, 128, 128, 128))
	if _, _, err := a.Convert(OutputConfig{Codec: OutputHEIC, Quality: 90}); err == nil {
		t.Fatal("expected error for HEIC output with no HeifCodec registered")
	}
}

func TestAssemblerConvertAppliesEffectsBeforeRawPixelsOutput(t *testing.T) {
	a := NewAssembler()
	a.AddUncompressedSDR(newTestYUV420(64, 64, 128, 128, 128))
	a.AddUncompressedHDR(newTestP010(64, 64, 900))
	_, out, err := a.Convert(OutputConfig{
		Codec:   OutputRawPixels,
		Effects: []Effect{CropEffect{Left: 0, Top: 0, Width: 32, Height: 32}},
	})
	if err != nil {
		t.Fatalf("Convert(RawPixels, effects): %v", err)
	}
	if out.Width != 32 || out.Height != 32 {
		t.Errorf("dims = %dx%d, want 32x32 after crop effect", out.Width, out.Height)
	}
}

func TestAssemblerConvertEffectsInvalidatePresetCompressed(t *testing.T) {
	a := NewAssembler()
	a.AddUncompressedSDR(newTestYUV420(64, 64, 128, 128, 128))
	preset := &CompressedImage{Data: []byte("stale-encode")}
	a.AddCompressedSDR(preset)
	compressed, _, err := a.Convert(OutputConfig{
		Codec:   OutputJPEG,
		Quality: 90,
		Effects: []Effect{MirrorEffect{Direction: MirrorHorizontal}},
	})
	if err != nil {
		t.Fatalf("Convert(JPEG, effects): %v", err)
	}
	if compressed == preset {
		t.Error("Convert should re-encode instead of returning the pre-edit compressed image")
	}
}

func TestApplyFormatForCoversAllOutputFormats(t *testing.T) {
	cases := []struct {
		format   PixelFormat
		transfer ColorTransfer
		want     ApplyOutputFormat
	}{
		{FormatRGBA8888, TransferSRGB, ApplySDR8888},
		{FormatRGBAF16, TransferLinear, ApplyHDRLinearF16},
		{FormatP010, TransferHLG, ApplyHDRLinear10BitPlanar},
		{FormatRGBA1010102, TransferHLG, ApplyHDRHLG1010102},
		{FormatRGBA1010102, TransferPQ, ApplyHDRPQ1010102},
	}
	for _, c := range cases {
		if got := applyFormatFor(c.format, c.transfer); got != c.want {
			t.Errorf("applyFormatFor(%v, %v) = %v, want %v", c.format, c.transfer, got, c.want)
		}
	}
}

func TestAssemblerConvertJPEGRRejectsMultipleExifs(t *testing.T) {
	sdr := newTestYUV420(64, 64, 128, 128, 128)
	base, err := encodeJPEGBuffer(sdr, 90)
	if err != nil {
		t.Fatalf("encodeJPEGBuffer: %v", err)
	}
	embeddedExif := append(append([]byte(nil), exifSig...), []byte("embedded")...)
	withExif, err := insertAppSegments(base, []appSegment{{marker: markerAPP1, payload: embeddedExif}})
	if err != nil {
		t.Fatalf("insertAppSegments: %v", err)
	}

	a := NewAssembler()
	a.AddCompressedSDR(&CompressedImage{Data: withExif})
	a.AddUncompressedHDR(newTestP010(64, 64, 900))
	a.AddExif([]byte("external-exif"))
	_, _, err = a.Convert(OutputConfig{Codec: OutputJPEGR, Quality: 90, GainMapQuality: 80})
	if KindOf(err) != MultipleExifs {
		t.Fatalf("KindOf(err) = %v, want MultipleExifs", KindOf(err))
	}
}

func TestAssemblerAddCompressedPlainJPEGPopulatesSDRSlot(t *testing.T) {
	sdr := newTestYUV420(32, 32, 128, 128, 128)
	enc, err := encodeJPEGBuffer(sdr, 90)
	if err != nil {
		t.Fatalf("encodeJPEGBuffer: %v", err)
	}
	a := NewAssembler()
	if err := a.AddCompressed(enc); err != nil {
		t.Fatalf("AddCompressed: %v", err)
	}
	if a.sdrCompressed == nil || string(a.sdrCompressed.Data) != string(enc) {
		t.Error("AddCompressed should populate sdrCompressed with the plain JPEG bytes")
	}
	if a.gainMapRaw != nil {
		t.Error("plain JPEG should not populate a gain map")
	}
}

func TestAssemblerAddCompressedJPEGRPopulatesGainMapSlots(t *testing.T) {
	a := NewAssembler()
	a.AddUncompressedSDR(newTestYUV420(64, 64, 128, 128, 128))
	a.AddUncompressedHDR(newTestP010(64, 64, 900))
	container, _, err := a.Convert(OutputConfig{Codec: OutputJPEGR, Quality: 90, GainMapQuality: 80})
	if err != nil {
		t.Fatalf("Convert(JPEGR): %v", err)
	}

	b := NewAssembler()
	if err := b.AddCompressed(container.Data); err != nil {
		t.Fatalf("AddCompressed: %v", err)
	}
	if b.sdrCompressed == nil {
		t.Fatal("expected sdrCompressed to be populated from the container's primary image")
	}
	if b.gainMapCompressed == nil || b.gainMapRaw == nil || b.gainMapMetadata == nil {
		t.Error("expected gainMapCompressed, gainMapRaw, and gainMapMetadata to be populated from the container")
	}
}

func TestAssemblerAddCompressedRejectsUnknownPrefix(t *testing.T) {
	a := NewAssembler()
	if err := a.AddCompressed([]byte("not an image")); KindOf(err) != UnsupportedFeature {
		t.Fatalf("KindOf(err) = %v, want UnsupportedFeature", KindOf(err))
	}
}

func TestAssemblerAddCompressedHEICUsesHeifDecode(t *testing.T) {
	stub := &stubHeifCodec{decodePrimary: newTestYUV420(16, 16, 128, 128, 128)}
	a := NewAssembler(WithHeifCodecOpt(stub))
	isobmff := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
	if err := a.AddCompressed(isobmff); err != nil {
		t.Fatalf("AddCompressed: %v", err)
	}
	if stub.decodeCalls != 1 {
		t.Errorf("Decode calls = %d, want 1", stub.decodeCalls)
	}
	if a.sdrRaw == nil {
		t.Error("expected an 8-bit HEIC primary to populate sdrRaw")
	}
}

func TestAssemblerAddCompressedHEIC10BitPopulatesHDRRaw(t *testing.T) {
	stub := &stubHeifCodec{decodePrimary: newTestP010(16, 16, 900)}
	a := NewAssembler(WithHeifCodecOpt(stub))
	isobmff := append([]byte{0, 0, 0, 24}, []byte("ftypavif")...)
	if err := a.AddCompressed(isobmff); err != nil {
		t.Fatalf("AddCompressed: %v", err)
	}
	if a.hdrRaw == nil {
		t.Error("expected a 10-bit HEIC/AVIF primary to populate hdrRaw")
	}
}

func TestAssemblerConvertHEICRUsesRegisteredCodec(t *testing.T) {
	stub := &stubHeifCodec{}
	a := NewAssembler(WithHeifCodecOpt(stub))
	a.AddUncompressedSDR(newTestYUV420(64, 64, 128, 128, 128))
	a.AddUncompressedHDR(newTestP010(64, 64, 900))
	compressed, _, err := a.Convert(OutputConfig{Codec: OutputHEICR, Quality: 90, GainMapQuality: 80})
	if err != nil {
		t.Fatalf("Convert(HEICR): %v", err)
	}
	if stub.gainMapCalls != 1 {
		t.Errorf("EncodeWithGainMap calls = %d, want 1", stub.gainMapCalls)
	}
	if string(compressed.Data) != "heif-gainmap" {
		t.Errorf("compressed.Data = %q, want %q", compressed.Data, "heif-gainmap")
	}
}
