package ultrahdr

import "testing"

func TestToneMapReducesTo8Bit(t *testing.T) {
	hdr := newTestP010(16, 16, 900)
	sdr, err := ToneMap(hdr)
	if err != nil {
		t.Fatalf("ToneMap: %v", err)
	}
	if sdr.Format != FormatYUV420 {
		t.Errorf("Format = %v, want FormatYUV420", sdr.Format)
	}
	if sdr.Width != hdr.Width || sdr.Height != hdr.Height {
		t.Errorf("dims = %dx%d, want %dx%d", sdr.Width, sdr.Height, hdr.Width, hdr.Height)
	}
	wantY := byte(900 >> 2)
	if got := sdr.Luma[0]; got != wantY {
		t.Errorf("Luma[0] = %d, want %d", got, wantY)
	}
	wantUV := byte(512 >> 2)
	if sdr.Chroma[0] != wantUV || sdr.Chroma[1] != wantUV {
		t.Errorf("Chroma[0:2] = %d,%d, want %d,%d", sdr.Chroma[0], sdr.Chroma[1], wantUV, wantUV)
	}
}

func TestToneMapRejectsNonP010(t *testing.T) {
	sdr := newTestYUV420(16, 16, 128, 128, 128)
	if _, err := ToneMap(sdr); err == nil {
		t.Fatal("expected error for non-P010 input")
	}
}

func TestToneMapRejectsNil(t *testing.T) {
	if _, err := ToneMap(nil); err == nil {
		t.Fatal("expected error for nil input")
	}
}

func TestToneMapChromaSubsamplingDimensions(t *testing.T) {
	hdr := newTestP010(32, 16, 700)
	sdr, err := ToneMap(hdr)
	if err != nil {
		t.Fatalf("ToneMap: %v", err)
	}
	wantChromaStride := (sdr.Width / 2) * 2
	if sdr.ChromaStride != wantChromaStride {
		t.Errorf("ChromaStride = %d, want %d", sdr.ChromaStride, wantChromaStride)
	}
	wantLen := wantChromaStride * (sdr.Height / 2)
	if len(sdr.Chroma) != wantLen {
		t.Errorf("len(Chroma) = %d, want %d", len(sdr.Chroma), wantLen)
	}
}
