package ultrahdr

import "testing"

func TestXMPRoundTrip(t *testing.T) {
	meta := &GainMapMetadata{
		Version:         jpegrVersion,
		MinContentBoost: 1.0,
		MaxContentBoost: float32(1000.0 / 203.0),
		Gamma:           1.0,
		OffsetSDR:       1.0 / 64.0,
		OffsetHDR:       1.0 / 64.0,
		HDRCapacityMin:  1.0,
		HDRCapacityMax:  float32(1000.0 / 203.0),
	}
	payload, err := buildXMPPayload(meta)
	if err != nil {
		t.Fatalf("buildXMPPayload: %v", err)
	}
	got, err := parseXMP(payload)
	if err != nil {
		t.Fatalf("parseXMP: %v", err)
	}
	if got.Version != meta.Version {
		t.Errorf("Version = %q, want %q", got.Version, meta.Version)
	}
	if !approxEqual(got.MaxContentBoost, meta.MaxContentBoost, 1e-3) {
		t.Errorf("MaxContentBoost = %v, want %v", got.MaxContentBoost, meta.MaxContentBoost)
	}
	if !approxEqual(got.MinContentBoost, meta.MinContentBoost, 1e-3) {
		t.Errorf("MinContentBoost = %v, want %v", got.MinContentBoost, meta.MinContentBoost)
	}
	if !approxEqual(got.HDRCapacityMax, meta.HDRCapacityMax, 1e-3) {
		t.Errorf("HDRCapacityMax = %v, want %v", got.HDRCapacityMax, meta.HDRCapacityMax)
	}
	if !approxEqual(got.Gamma, meta.Gamma, 1e-3) {
		t.Errorf("Gamma = %v, want %v", got.Gamma, meta.Gamma)
	}
}

func TestParseXMPRejectsWrongNamespace(t *testing.T) {
	if _, err := parseXMP([]byte("not-an-xmp-block")); err == nil {
		t.Fatal("expected error for malformed xmp block")
	}
}

func TestParseXMPRejectsMissingRequiredFields(t *testing.T) {
	payload := append([]byte(xmpNamespace), 0)
	payload = append(payload, []byte(`<rdf:Description hdrgm:Version="1.0"/>`)...)
	if _, err := parseXMP(payload); err == nil {
		t.Fatal("expected error for xmp block missing GainMapMax")
	}
}

func TestParseXMPRejectsHDRBaseRendition(t *testing.T) {
	payload := append([]byte(xmpNamespace), 0)
	payload = append(payload, []byte(
		`<rdf:Description hdrgm:Version="1.0" hdrgm:GainMapMax="2.0" hdrgm:HDRCapacityMax="2.0" hdrgm:BaseRenditionIsHDR="True"/>`,
	)...)
	if _, err := parseXMP(payload); err == nil {
		t.Fatal("expected error for BaseRenditionIsHDR=True")
	}
}

func TestBuildXMPPayloadRejectsNil(t *testing.T) {
	if _, err := buildXMPPayload(nil); err == nil {
		t.Fatal("expected error for nil metadata")
	}
}
