package ultrahdr

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reVersion    = regexp.MustCompile(`hdrgm:Version="([^"]+)"`)
	reGainMapMin = regexp.MustCompile(`hdrgm:GainMapMin="([^"]+)"`)
	reGainMapMax = regexp.MustCompile(`hdrgm:GainMapMax="([^"]+)"`)
	reGamma      = regexp.MustCompile(`hdrgm:Gamma="([^"]+)"`)
	reOffsetSDR  = regexp.MustCompile(`hdrgm:OffsetSDR="([^"]+)"`)
	reOffsetHDR  = regexp.MustCompile(`hdrgm:OffsetHDR="([^"]+)"`)
	reHDRCapMin  = regexp.MustCompile(`hdrgm:HDRCapacityMin="([^"]+)"`)
	reHDRCapMax  = regexp.MustCompile(`hdrgm:HDRCapacityMax="([^"]+)"`)
	reBaseIsHDR  = regexp.MustCompile(`hdrgm:BaseRenditionIsHDR="([^"]+)"`)
)

func parseXMP(app1 []byte) (*GainMapMetadata, error) {
	if len(app1) < len(xmpNamespace)+2 {
		return nil, errors.New("xmp block too small")
	}
	if !strings.HasPrefix(string(app1), xmpNamespace+"\x00") {
		return nil, errors.New("xmp namespace mismatch")
	}
	xml := string(app1[len(xmpNamespace)+1:])

	meta := &GainMapMetadata{
		Version:         jpegrVersion,
		UseBaseColorSpace: true,
		MinContentBoost: 1,
		MaxContentBoost: 1,
		Gamma:           1,
		OffsetSDR:       1.0 / 64.0,
		OffsetHDR:       1.0 / 64.0,
		HDRCapacityMin:  1,
		HDRCapacityMax:  1,
	}

	getStr := func(re *regexp.Regexp) (string, bool) {
		m := re.FindStringSubmatch(xml)
		if len(m) != 2 {
			return "", false
		}
		return m[1], true
	}
	getFloat := func(re *regexp.Regexp) (float32, bool, error) {
		str, ok := getStr(re)
		if !ok {
			return 0, false, nil
		}
		v, err := strconv.ParseFloat(str, 32)
		if err != nil {
			return 0, true, err
		}
		return float32(v), true, nil
	}

	if v, ok := getStr(reVersion); ok {
		meta.Version = v
	} else {
		return nil, errors.New("xmp missing version")
	}

	if v, ok, err := getFloat(reGainMapMax); err != nil {
		return nil, err
	} else if ok {
		meta.MaxContentBoost = exp2f(v)
	} else {
		return nil, errors.New("xmp missing GainMapMax")
	}

	if v, ok, err := getFloat(reHDRCapMax); err != nil {
		return nil, err
	} else if ok {
		meta.HDRCapacityMax = exp2f(v)
	} else {
		return nil, errors.New("xmp missing HDRCapacityMax")
	}

	if v, ok, err := getFloat(reGainMapMin); err != nil {
		return nil, err
	} else if ok {
		meta.MinContentBoost = exp2f(v)
	}
	if v, ok, err := getFloat(reGamma); err != nil {
		return nil, err
	} else if ok {
		meta.Gamma = v
	}
	if v, ok, err := getFloat(reOffsetSDR); err != nil {
		return nil, err
	} else if ok {
		meta.OffsetSDR = v
	}
	if v, ok, err := getFloat(reOffsetHDR); err != nil {
		return nil, err
	} else if ok {
		meta.OffsetHDR = v
	}
	if v, ok, err := getFloat(reHDRCapMin); err != nil {
		return nil, err
	} else if ok {
		meta.HDRCapacityMin = exp2f(v)
	}
	if v, ok := getStr(reBaseIsHDR); ok {
		if v == "True" {
			return nil, errors.New("base rendition HDR not supported")
		}
	}

	return meta, nil
}

// buildXMPPayload renders meta as the primary-image APP1 XMP packet
// describing an UltraHDR gain map, mirroring the attributes parseXMP reads.
func buildXMPPayload(meta *GainMapMetadata) ([]byte, error) {
	if meta == nil {
		return nil, errors.New("gainmap metadata missing")
	}
	xml := fmt.Sprintf(
		"<?xpacket begin=\"\ufeff\" id=\"W5M0MpCehiHzreSzNTczkc9d\"?>"+
			`<x:xmpmeta xmlns:x="adobe:ns:meta/">`+
			`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">`+
			`<rdf:Description hdrgm:Version="%s" `+
			`hdrgm:GainMapMin="%s" hdrgm:GainMapMax="%s" hdrgm:Gamma="%s" `+
			`hdrgm:OffsetSDR="%s" hdrgm:OffsetHDR="%s" `+
			`hdrgm:HDRCapacityMin="%s" hdrgm:HDRCapacityMax="%s" `+
			`hdrgm:BaseRenditionIsHDR="False" `+
			`xmlns:hdrgm="http://ns.adobe.com/hdr-gain-map/1.0/"/>`+
			`</rdf:RDF></x:xmpmeta><?xpacket end="w"?>`,
		meta.Version,
		formatXMPFloat(log2f(meta.MinContentBoost)),
		formatXMPFloat(log2f(meta.MaxContentBoost)),
		formatXMPFloat(meta.Gamma),
		formatXMPFloat(meta.OffsetSDR),
		formatXMPFloat(meta.OffsetHDR),
		formatXMPFloat(log2f(meta.HDRCapacityMin)),
		formatXMPFloat(log2f(meta.HDRCapacityMax)),
	)
	payload := make([]byte, 0, len(xmpNamespace)+1+len(xml))
	payload = append(payload, []byte(xmpNamespace)...)
	payload = append(payload, 0)
	payload = append(payload, []byte(xml)...)
	return payload, nil
}

func formatXMPFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}
