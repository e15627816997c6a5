package ultrahdr

import (
	"bytes"
	"testing"
)

func TestGainmapMetadataISORoundTrip(t *testing.T) {
	meta := &GainMapMetadata{
		Version:         jpegrVersion,
		MinContentBoost: 1.0,
		MaxContentBoost: float32(1000.0 / 203.0),
		Gamma:           1.0,
		OffsetSDR:       0,
		OffsetHDR:       0,
		HDRCapacityMin:  1.0,
		HDRCapacityMax:  float32(1000.0 / 203.0),
	}
	encoded, err := encodeGainmapMetadataISO(meta)
	if err != nil {
		t.Fatalf("encodeGainmapMetadataISO: %v", err)
	}
	got, err := decodeGainmapMetadataISO(encoded)
	if err != nil {
		t.Fatalf("decodeGainmapMetadataISO: %v", err)
	}
	if !approxEqual(got.MinContentBoost, meta.MinContentBoost, 1e-3) {
		t.Errorf("MinContentBoost = %v, want %v", got.MinContentBoost, meta.MinContentBoost)
	}
	if !approxEqual(got.MaxContentBoost, meta.MaxContentBoost, 1e-3) {
		t.Errorf("MaxContentBoost = %v, want %v", got.MaxContentBoost, meta.MaxContentBoost)
	}
	if !approxEqual(got.Gamma, meta.Gamma, 1e-3) {
		t.Errorf("Gamma = %v, want %v", got.Gamma, meta.Gamma)
	}
	if !approxEqual(got.HDRCapacityMin, meta.HDRCapacityMin, 1e-3) {
		t.Errorf("HDRCapacityMin = %v, want %v", got.HDRCapacityMin, meta.HDRCapacityMin)
	}
	if !approxEqual(got.HDRCapacityMax, meta.HDRCapacityMax, 1e-3) {
		t.Errorf("HDRCapacityMax = %v, want %v", got.HDRCapacityMax, meta.HDRCapacityMax)
	}
}

func TestEncodeGainmapMetadataISORejectsNil(t *testing.T) {
	if _, err := encodeGainmapMetadataISO(nil); err == nil {
		t.Fatal("expected error for nil metadata")
	}
}

func TestBuildIsoPayloadHasNamespacePrefix(t *testing.T) {
	meta := &GainMapMetadata{MinContentBoost: 1.0, MaxContentBoost: 2.0, Gamma: 1.0, HDRCapacityMin: 1.0, HDRCapacityMax: 2.0}
	payload, err := buildIsoPayload(meta)
	if err != nil {
		t.Fatalf("buildIsoPayload: %v", err)
	}
	want := append([]byte(isoNamespace), 0)
	if !bytes.HasPrefix(payload, want) {
		t.Errorf("payload does not start with namespace prefix %q", isoNamespace)
	}
}

func TestReplicateChannel0FillsRemainingChannels(t *testing.T) {
	var frac gainmapMetadataFrac
	frac.GainMapMinN[0] = 7
	frac.GainMapMinD[0] = 3
	replicateChannel0(&frac, 1)
	if frac.GainMapMinN[1] != 7 || frac.GainMapMinD[1] != 3 || frac.GainMapMinN[2] != 7 || frac.GainMapMinD[2] != 3 {
		t.Errorf("replicateChannel0 did not fill channels 1/2: %+v", frac)
	}
}

func TestReplicateChannel0NoOpForMultiChannel(t *testing.T) {
	var frac gainmapMetadataFrac
	frac.GainMapMinN[0] = 7
	frac.GainMapMinN[1] = 99
	replicateChannel0(&frac, 3)
	if frac.GainMapMinN[1] != 99 {
		t.Errorf("replicateChannel0 overwrote channel 1 for a multi-channel payload")
	}
}
