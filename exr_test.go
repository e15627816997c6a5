package ultrahdr

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestRebaseUltraHDRFromEXRFile(t *testing.T) {
	if err := RebaseUltraHDRFromEXRFile("testdata/BrightRings.jpg", "testdata/BrightRings.exr",
		"testdata/BrightRings.uhdr.jpg", nil, "", ""); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeEXRWrapsErrorsAsTypedDecodeError(t *testing.T) {
	_, err := DecodeEXR([]byte("not an exr file"))
	if err == nil {
		t.Fatal("expected an error for garbage input")
	}
	if KindOf(err) != DecodeError {
		t.Errorf("KindOf(err) = %v, want DecodeError", KindOf(err))
	}
}

func TestClassifyEXRGamutMatchesKnownPrimaries(t *testing.T) {
	cases := []struct {
		name  string
		c     exrChromaticities
		want  ColorGamut
	}{
		{"bt709", exrChromaticities{rx: 0.640, ry: 0.330, gx: 0.300, gy: 0.600, bx: 0.150, by: 0.060, wx: 0.3127, wy: 0.3290}, GamutBT709},
		{"displayP3", exrChromaticities{rx: 0.680, ry: 0.320, gx: 0.265, gy: 0.690, bx: 0.150, by: 0.060, wx: 0.3127, wy: 0.3290}, GamutDisplayP3},
		{"bt2100", exrChromaticities{rx: 0.708, ry: 0.292, gx: 0.170, gy: 0.797, bx: 0.131, by: 0.046, wx: 0.3127, wy: 0.3290}, GamutBT2100},
	}
	for _, c := range cases {
		if got := classifyEXRGamut(c.c); got != c.want {
			t.Errorf("%s: classifyEXRGamut() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestDecodeEXRDefaultsGamutWithoutChromaticities(t *testing.T) {
	// Minimal 1x1 uncompressed scanline file: one FLOAT "Y" channel, a
	// dataWindow, and no chromaticities attribute.
	var b bytes.Buffer
	le := func(v interface{}) { _ = binary.Write(&b, binary.LittleEndian, v) }
	le(uint32(exrMagic))
	le(uint32(2))
	chlist := append([]byte("Y\x00"), 2, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0)
	b.WriteString("channels\x00chlist\x00")
	le(int32(len(chlist)))
	b.Write(chlist)
	b.WriteString("dataWindow\x00box2i\x00")
	le(int32(16))
	le([4]int32{0, 0, 0, 0})
	b.WriteByte(0)
	le(uint64(b.Len() + 8)) // offset of the single scanline block
	le(int32(0))
	le(int32(4))
	le(float32(0.5))

	hdr, err := DecodeEXR(b.Bytes())
	if err != nil {
		t.Fatalf("DecodeEXR: %v", err)
	}
	if hdr.Gamut != GamutBT2100 {
		t.Errorf("Gamut = %v, want GamutBT2100 default", hdr.Gamut)
	}
}
