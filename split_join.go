package ultrahdr

// SplitResult holds the two component JPEGs and gain-map metadata pulled
// out of a JPEG/R container by Split/SplitWithSegments.
type SplitResult struct {
	PrimaryJPEG []byte
	GainmapJPEG []byte
	Meta        *GainMapMetadata
	Segs        *MetadataSegments
}

// Join reassembles the container this SplitResult was extracted from,
// using its raw metadata segments when available and falling back to a
// fresh XMP/ISO encoding of Meta otherwise.
func (s *SplitResult) Join() ([]byte, error) {
	if s.Segs != nil {
		return JoinWithSegments(s.PrimaryJPEG, s.GainmapJPEG, s.Segs)
	}
	return Join(s.PrimaryJPEG, s.GainmapJPEG, s.Meta)
}

// Split extracts the primary and gainmap JPEG images and metadata from a JPEG/R container.
func Split(data []byte) (*SplitResult, error) {
	ranges, err := scanJPEGs(data)
	if err != nil {
		return nil, err
	}
	if len(ranges) < 2 {
		return nil, newErr(GainMapImageNotFound, "Split", nil)
	}
	primaryJPEG := append([]byte(nil), data[ranges[0][0]:ranges[0][1]]...)
	gainmapJPEG := append([]byte(nil), data[ranges[1][0]:ranges[1][1]]...)

	app1, app2, err := extractAppSegments(gainmapJPEG)
	if err != nil {
		return nil, err
	}
	var meta *GainMapMetadata
	if iso := findISO(app2); iso != nil {
		payload := iso[len(isoNamespace)+1:]
		if meta, err = decodeGainmapMetadataISO(payload); err != nil {
			return nil, err
		}
	} else if xmp := findXMP(app1); xmp != nil {
		if meta, err = parseXMP(xmp); err != nil {
			return nil, err
		}
	} else {
		return nil, newErr(MetadataError, "Split", nil)
	}
	return &SplitResult{PrimaryJPEG: primaryJPEG, GainmapJPEG: gainmapJPEG, Meta: meta}, nil
}

// SplitWithSegments extracts primary/gainmap JPEGs, metadata, and raw XMP/ISO segments.
func SplitWithSegments(data []byte) (*SplitResult, error) {
	ranges, err := scanJPEGs(data)
	if err != nil {
		return nil, err
	}
	if len(ranges) < 2 {
		return nil, newErr(GainMapImageNotFound, "SplitWithSegments", nil)
	}
	primaryJPEG := append([]byte(nil), data[ranges[0][0]:ranges[0][1]]...)
	gainmapJPEG := append([]byte(nil), data[ranges[1][0]:ranges[1][1]]...)

	segs := &MetadataSegments{}
	hApp1, hApp2, err := extractContainerHeaderSegments(data)
	if err != nil {
		return nil, err
	}
	segs.PrimaryXMP = findXMP(hApp1)
	segs.PrimaryISO = findISO(hApp2)

	gApp1, gApp2, err := extractAppSegments(gainmapJPEG)
	if err != nil {
		return nil, err
	}
	segs.SecondaryXMP = findXMP(gApp1)
	segs.SecondaryISO = findISO(gApp2)

	var meta *GainMapMetadata
	if iso := segs.SecondaryISO; iso != nil {
		payload := iso[len(isoNamespace)+1:]
		if meta, err = decodeGainmapMetadataISO(payload); err != nil {
			return nil, err
		}
	} else if xmp := segs.SecondaryXMP; xmp != nil {
		if meta, err = parseXMP(xmp); err != nil {
			return nil, err
		}
	} else {
		return nil, newErr(MetadataError, "SplitWithSegments", nil)
	}
	return &SplitResult{PrimaryJPEG: primaryJPEG, GainmapJPEG: gainmapJPEG, Meta: meta, Segs: segs}, nil
}

// Join assembles a JPEG/R container from primary and gainmap JPEG images and metadata.
func Join(primaryJPEG, gainmapJPEG []byte, meta *GainMapMetadata) ([]byte, error) {
	if meta == nil {
		return nil, newErr(BadMetadata, "Join", nil)
	}
	return assembleContainer(primaryJPEG, gainmapJPEG, meta)
}

// assembleContainer builds a fresh container carrying meta as ISO
// 21496-1 binary gain-map metadata on the secondary image.
func assembleContainer(primaryJPEG, gainmapJPEG []byte, meta *GainMapMetadata) ([]byte, error) {
	isoPayload, err := buildIsoPayload(meta)
	if err != nil {
		return nil, err
	}
	return assembleContainerWithSegments(primaryJPEG, gainmapJPEG, &MetadataSegments{SecondaryISO: isoPayload})
}

// JoinWithSegments assembles a JPEG/R container using raw metadata segments.
// PrimaryXMP is updated to reflect the new gainmap length.
func JoinWithSegments(primaryJPEG, gainmapJPEG []byte, segs *MetadataSegments) ([]byte, error) {
	if segs == nil {
		return nil, newErr(BadMetadata, "JoinWithSegments", nil)
	}
	return assembleContainerWithSegments(primaryJPEG, gainmapJPEG, segs)
}
