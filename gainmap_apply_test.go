package ultrahdr

import "testing"

func TestApplyGainMapRoundTripDimensions(t *testing.T) {
	sdr := newTestYUV420(1280, 720, 128, 128, 128)
	hdr := newTestP010(1280, 720, 900)
	gm, meta, err := GenerateGainMap(sdr, hdr, GenerateGainMapOptions{HDRTransfer: TransferHLG})
	if err != nil {
		t.Fatalf("GenerateGainMap: %v", err)
	}
	out, err := ApplyGainMap(sdr, gm, meta, ApplyGainMapOptions{Output: ApplySDR8888})
	if err != nil {
		t.Fatalf("ApplyGainMap: %v", err)
	}
	if out.Format != FormatRGBA8888 {
		t.Errorf("Format = %v, want FormatRGBA8888", out.Format)
	}
	if out.Width != sdr.Width || out.Height != sdr.Height {
		t.Errorf("dims = %dx%d, want %dx%d", out.Width, out.Height, sdr.Width, sdr.Height)
	}
	if out.HDRCapacity <= 0 {
		t.Errorf("HDRCapacity = %v, want > 0", out.HDRCapacity)
	}
}

func TestApplyGainMapDisplayBoostIsClampedToMaxContentBoost(t *testing.T) {
	sdr := newTestYUV420(1280, 720, 128, 128, 128)
	hdr := newTestP010(1280, 720, 900)
	gm, meta, err := GenerateGainMap(sdr, hdr, GenerateGainMapOptions{HDRTransfer: TransferHLG})
	if err != nil {
		t.Fatalf("GenerateGainMap: %v", err)
	}
	out, err := ApplyGainMap(sdr, gm, meta, ApplyGainMapOptions{Output: ApplySDR8888, MaxDisplayBoost: 1000})
	if err != nil {
		t.Fatalf("ApplyGainMap: %v", err)
	}
	if !approxEqual(out.HDRCapacity, meta.MaxContentBoost, 1e-4) {
		t.Errorf("HDRCapacity = %v, want clamped to MaxContentBoost %v", out.HDRCapacity, meta.MaxContentBoost)
	}
}

func TestApplyGainMapRejectsBadFormats(t *testing.T) {
	sdr := newTestYUV420(1280, 720, 128, 128, 128)
	gm := newMonochrome(320, 180)
	meta := &GainMapMetadata{Version: jpegrVersion, Gamma: 1.0, MinContentBoost: 1, MaxContentBoost: 2, HDRCapacityMin: 1, HDRCapacityMax: 2}

	// wrong SDR pixel format
	badSDR := *sdr
	badSDR.Format = FormatP010
	if _, err := ApplyGainMap(&badSDR, gm, meta, ApplyGainMapOptions{}); err == nil {
		t.Error("expected error for non-YUV420 SDR buffer")
	}

	// gain map larger than the SDR buffer it maps onto
	oversizedGm := newMonochrome(2000, 180)
	if _, err := ApplyGainMap(sdr, oversizedGm, meta, ApplyGainMapOptions{}); err == nil {
		t.Error("expected error for a gain map larger than the SDR buffer")
	}

	// bad metadata: gamma != 1
	badMeta := *meta
	badMeta.Gamma = 2.0
	if _, err := ApplyGainMap(sdr, gm, &badMeta, ApplyGainMapOptions{}); err == nil {
		t.Error("expected error for gamma != 1 metadata")
	}

	// bad metadata: HDRCapacityMax diverges from MaxContentBoost
	badMeta2 := *meta
	badMeta2.HDRCapacityMax = 99
	if _, err := ApplyGainMap(sdr, gm, &badMeta2, ApplyGainMapOptions{}); err == nil {
		t.Error("expected error for HDRCapacityMax != MaxContentBoost")
	}
}

func TestApplyGainMapFallsBackToBilinearForNonIntegerScale(t *testing.T) {
	sdr := newTestYUV420(1280, 720, 128, 128, 128)
	// 1280/300 is not an integer scale factor (unlike the usual 4x map).
	gm := newMonochrome(300, 180)
	for i := range gm.Luma {
		gm.Luma[i] = byte(128 + i%64)
	}
	meta := &GainMapMetadata{Version: jpegrVersion, Gamma: 1.0, MinContentBoost: 1, MaxContentBoost: 2, HDRCapacityMin: 1, HDRCapacityMax: 2}
	out, err := ApplyGainMap(sdr, gm, meta, ApplyGainMapOptions{Output: ApplySDR8888})
	if err != nil {
		t.Fatalf("ApplyGainMap with non-integer map scale: %v", err)
	}
	if out.Width != sdr.Width || out.Height != sdr.Height {
		t.Errorf("dims = %dx%d, want %dx%d", out.Width, out.Height, sdr.Width, sdr.Height)
	}
}

func TestSampleShepardContinuousIsBilinearNotIDW(t *testing.T) {
	gm := newMonochrome(2, 2)
	gm.Luma = []byte{0, 255, 255, 255} // (0,0)=0 (1,0)=255 (0,1)=255 (1,1)=255
	// At fx=0.5, fy=0, true bilinear weights are {0.5,0.5,0,0}: the sample
	// should land exactly halfway between the two top corners and ignore
	// the bottom row entirely. Shepard's IDW would instead give all four
	// corners nonzero weight (~{0.345,0.345,0.155,0.155}) and, with the
	// bright bottom row, pull the result up to ~0.655.
	got := sampleShepardContinuous(gm, 0.5, 0)
	want := float32(0.5)
	if !approxEqual(got, want, 1e-4) {
		t.Errorf("sampleShepardContinuous(0.5, 0) = %v, want %v (bilinear)", got, want)
	}
}

func TestApplyGainMapRejectsSubOneDisplayBoost(t *testing.T) {
	sdr := newTestYUV420(1280, 720, 128, 128, 128)
	hdr := newTestP010(1280, 720, 900)
	gm, meta, err := GenerateGainMap(sdr, hdr, GenerateGainMapOptions{HDRTransfer: TransferHLG})
	if err != nil {
		t.Fatalf("GenerateGainMap: %v", err)
	}
	_, err = ApplyGainMap(sdr, gm, meta, ApplyGainMapOptions{Output: ApplySDR8888, MaxDisplayBoost: 0.5})
	if KindOf(err) != InvalidDisplayBoost {
		t.Fatalf("KindOf(err) = %v, want InvalidDisplayBoost", KindOf(err))
	}
}

func TestApplyGainMapNilArguments(t *testing.T) {
	if _, err := ApplyGainMap(nil, nil, nil, ApplyGainMapOptions{}); err == nil {
		t.Error("expected error for nil arguments")
	}
}
