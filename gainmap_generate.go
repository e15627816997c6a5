package ultrahdr

import (
	"runtime"
	"sync"

	"github.com/ultrahdrgo/ultrahdr/internal/tilequeue"
)

// GenerateGainMapOptions controls GenerateGainMap beyond its required
// inputs. HDRTransfer has no default and must be set; the other fields'
// zero values select the defaults documented on each field.
type GenerateGainMapOptions struct {
	// HDRTransfer is the transfer function the HDR buffer's samples are
	// encoded with. Must be one of TransferLinear, TransferHLG, TransferPQ.
	HDRTransfer ColorTransfer
	// SDRIsBT601 forces BT.601 YUV->RGB decoding for the SDR buffer
	// regardless of its declared gamut, matching the "SDR sourced from a
	// JPEG decode" rule.
	SDRIsBT601 bool
	// DetectedCores overrides the worker-pool sizing; 0 uses runtime.NumCPU().
	DetectedCores int
}

// GenerateGainMap computes a MONOCHROME gain-map buffer and its metadata
// from an SDR YUV 4:2:0 buffer and an HDR P010 buffer of equal dimensions.
func GenerateGainMap(sdr, hdr *PixelBuffer, opt GenerateGainMapOptions) (*PixelBuffer, *GainMapMetadata, error) {
	const op = "GenerateGainMap"
	if sdr == nil || hdr == nil {
		return nil, nil, newErr(BadPointer, op, nil)
	}
	if sdr.Format != FormatYUV420 || hdr.Format != FormatP010 {
		return nil, nil, newErr(UnsupportedWidthHeight, op, nil)
	}
	if sdr.Width != hdr.Width || sdr.Height != hdr.Height {
		return nil, nil, newErr(ResolutionMismatch, op, nil)
	}
	if sdr.Gamut == GamutUnspecified || hdr.Gamut == GamutUnspecified {
		return nil, nil, newErr(InvalidGamut, op, nil)
	}
	if sdr.LumaStride < sdr.Width || hdr.LumaStride < hdr.Width*2 {
		return nil, nil, newErr(InvalidStride, op, nil)
	}
	switch opt.HDRTransfer {
	case TransferLinear, TransferHLG, TransferPQ:
	default:
		return nil, nil, newErr(InvalidTransfer, op, nil)
	}
	if sdr.Width%defaultGainMapScale != 0 || sdr.Height%defaultGainMapScale != 0 {
		return nil, nil, newErr(UnsupportedWidthHeight, op, nil)
	}

	const s = defaultGainMapScale
	mapW := sdr.Width / s
	mapH := sdr.Height / s

	hdrWhiteNits := whiteNitsFor(opt.HDRTransfer)
	if opt.HDRTransfer == TransferLinear {
		hdrWhiteNits = defaultHDRWhiteNits
	}
	meta := &GainMapMetadata{
		Version:         jpegrVersion,
		Gamma:           defaultGamma,
		OffsetSDR:       0,
		OffsetHDR:       0,
		MinContentBoost: 1.0,
		HDRCapacityMin:  1.0,
	}
	meta.MaxContentBoost = hdrWhiteNits / sdrWhiteNits
	meta.HDRCapacityMax = meta.MaxContentBoost

	out := newMonochrome(mapW, mapH)

	cores := opt.DetectedCores
	if cores <= 0 {
		cores = runtime.NumCPU()
	}
	workers := cores
	if workers > maxWorkers {
		workers = maxWorkers
	}
	if workers < 1 {
		workers = 1
	}

	jobRows := kJobSzInRows / s
	if jobRows < 1 {
		jobRows = 1
	}
	q := tilequeue.Split(mapH, jobRows)

	log2Min := log2f(meta.MinContentBoost)
	log2Max := log2f(meta.MaxContentBoost)

	worker := func() {
		for {
			job, ok := q.Dequeue()
			if !ok {
				return
			}
			for my := job.RowStart; my < job.RowEnd; my++ {
				sy := my * s
				for mx := 0; mx < mapW; mx++ {
					sx := mx * s

					sdrY := yuv420Y(sdr, sx, sy)
					sdrU, sdrV := yuv420UV(sdr, sx, sy)
					var sdrRGBRaw rgb
					if opt.SDRIsBT601 {
						sdrRGBRaw = bt601YuvToRgb(sdrY, sdrU, sdrV)
					} else {
						sdrRGBRaw = yuvToRgbFor(sdr.Gamut, sdrY, sdrU, sdrV)
					}
					sdrLinear := srgbInvOetfRGB(sdrRGBRaw)
					ySdr := luminanceFor(sdr.Gamut, sdrLinear) * sdrWhiteNits

					hdrY := p010Y(hdr, sx, sy)
					hdrU, hdrV := p010UV(hdr, sx, sy)
					hdrRGBRaw := yuvToRgbFor(hdr.Gamut, hdrY, hdrU, hdrV)
					hdrLinear := transferInvOetf(opt.HDRTransfer, hdrRGBRaw)
					hdrLinear = convertGamut(hdrLinear, hdr.Gamut, sdr.Gamut)
					yHdr := luminanceFor(sdr.Gamut, hdrLinear) * hdrWhiteNits

					sample := encodeGain(ySdr, yHdr, meta, log2Min, log2Max)
					setMonoAt(out, mx, my, sample)
				}
			}
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < workers-1; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker()
		}()
	}
	worker()
	wg.Wait()

	return out, meta, nil
}
