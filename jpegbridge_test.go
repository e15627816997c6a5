package ultrahdr

import "testing"

func TestEncodeJPEGBufferRejectsOutOfRangeQuality(t *testing.T) {
	sdr := newTestYUV420(16, 16, 128, 128, 128)
	_, err := encodeJPEGBuffer(sdr, 101)
	if KindOf(err) != InvalidQuality {
		t.Fatalf("KindOf(err) = %v, want InvalidQuality", KindOf(err))
	}
}

func TestEncodeGainMapJPEGRejectsOutOfRangeQuality(t *testing.T) {
	gm := newMonochrome(16, 16)
	_, err := encodeGainMapJPEG(gm, 150)
	if KindOf(err) != InvalidQuality {
		t.Fatalf("KindOf(err) = %v, want InvalidQuality", KindOf(err))
	}
}
