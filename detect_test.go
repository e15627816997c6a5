package ultrahdr

import (
	"bytes"
	"testing"
)

func TestIsUltraHDRRejectsNonJPEG(t *testing.T) {
	ok, err := IsUltraHDR(bytes.NewReader([]byte("not a jpeg at all")))
	if err != nil {
		t.Fatalf("IsUltraHDR: %v", err)
	}
	if ok {
		t.Error("expected false for non-JPEG input")
	}
}

func TestIsUltraHDRReturnsBufferTooSmallForTruncatedSegment(t *testing.T) {
	// SOI followed by a marker whose declared segment length (1) is below
	// the 2-byte length field itself.
	data := []byte{markerStart, markerSOI, markerStart, markerAPP1, 0x00, 0x01}
	_, err := IsUltraHDR(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected an error for a truncated segment length")
	}
	if KindOf(err) != BufferTooSmall {
		t.Errorf("KindOf(err) = %v, want BufferTooSmall", KindOf(err))
	}
}
