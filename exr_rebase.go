package ultrahdr

import (
	"os"
	"path/filepath"
)

// RebaseUltraHDROptions controls RebaseUltraHDRFromEXR.
type RebaseUltraHDROptions struct {
	BaseQuality    int
	GainmapQuality int
	HDRTransfer    ColorTransfer
}

// RebaseUltraHDRFromEXR regenerates the gain map for sdrJPEG from a real
// linear HDR reference image (an OpenEXR render, typically produced from
// the same source as the SDR JPEG) instead of deriving it from a second
// SDR rendition, and packs the result into a JPEG/R container.
func RebaseUltraHDRFromEXR(sdrJPEG []byte, exrData []byte, opt *RebaseUltraHDROptions) (*RebaseResult, error) {
	hdrImg, err := DecodeEXR(exrData)
	if err != nil {
		return nil, err
	}
	sdrBuf, err := decodeJPEGBuffer(sdrJPEG)
	if err != nil {
		return nil, err
	}

	transfer := TransferHLG
	baseQ := defaultPrimaryQuality
	gainQ := defaultGainMapQuality
	if opt != nil {
		if opt.HDRTransfer != TransferUnspecified {
			transfer = opt.HDRTransfer
		}
		if opt.BaseQuality > 0 {
			baseQ = opt.BaseQuality
		}
		if opt.GainmapQuality > 0 {
			gainQ = opt.GainmapQuality
		}
	}
	hdrBuf := FloatImageToHDRBuffer(hdrImg, hdrImg.Gamut, transfer)
	if hdrBuf.Width != sdrBuf.Width || hdrBuf.Height != sdrBuf.Height {
		hdrBuf = resampleP010(hdrBuf, sdrBuf.Width, sdrBuf.Height)
	}

	gainmapBuf, meta, err := GenerateGainMap(sdrBuf, hdrBuf, GenerateGainMapOptions{HDRTransfer: transfer})
	if err != nil {
		return nil, err
	}

	gainmapImg := monochromeToGrayImage(gainmapBuf)
	gainmapJpeg, err := encodeWithQuality(gainmapImg, gainQ, defaultResizeSampling)
	if err != nil {
		return nil, err
	}
	primaryOut, err := encodeJPEGBuffer(sdrBuf, baseQ)
	if err != nil {
		primaryOut = sdrJPEG
	}

	container, err := Join(primaryOut, gainmapJpeg, meta)
	if err != nil {
		return nil, err
	}
	return &RebaseResult{Container: container, Primary: primaryOut, Gainmap: gainmapJpeg}, nil
}

// RebaseUltraHDRFromEXRFile reads an SDR JPEG and an EXR HDR reference from
// disk, regenerates the gain map, and writes the resulting container.
func RebaseUltraHDRFromEXRFile(sdrPath, exrPath, outPath string, opt *RebaseUltraHDROptions, primaryOut, gainmapOut string) error {
	sdrData, err := os.ReadFile(filepath.Clean(sdrPath))
	if err != nil {
		return err
	}
	exrData, err := os.ReadFile(filepath.Clean(exrPath))
	if err != nil {
		return err
	}
	res, err := RebaseUltraHDRFromEXR(sdrData, exrData, opt)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Clean(outPath), res.Container, 0o644); err != nil {
		return err
	}
	if primaryOut != "" {
		if err := os.WriteFile(filepath.Clean(primaryOut), res.Primary, 0o644); err != nil {
			return err
		}
	}
	if gainmapOut != "" {
		if err := os.WriteFile(filepath.Clean(gainmapOut), res.Gainmap, 0o644); err != nil {
			return err
		}
	}
	return nil
}
