package ultrahdr

import "math"

// encodeGain maps a linear SDR/HDR luminance pair to an 8-bit gain-map
// sample given the log2 boost range [log2Min, log2Max] already computed for
// the whole image.
func encodeGain(sdr, hdr float32, meta *GainMapMetadata, log2Min, log2Max float32) uint8 {
	denom := sdr + meta.OffsetSDR
	gain := float32(1.0)
	if denom > 0 {
		gain = (hdr + meta.OffsetHDR) / denom
	}
	if gain < meta.MinContentBoost {
		gain = meta.MinContentBoost
	}
	if gain > meta.MaxContentBoost {
		gain = meta.MaxContentBoost
	}
	gainNorm := clampf((log2f(gain)-log2Min)/(log2Max-log2Min), 0, 1)
	if meta.Gamma != 1 {
		gainNorm = float32(math.Pow(float64(gainNorm), float64(1.0/meta.Gamma)))
	}
	val := gainNorm * 255.0
	if val < 0 {
		val = 0
	}
	if val > 255 {
		val = 255
	}
	return uint8(val + 0.5)
}

// gainFactorFromNorm computes 2^(lerp(log2(min), log2(max), g^gamma)) for a
// gain sample already decoded to [0,1], per the gain-apply formula.
func gainFactorFromNorm(gNorm float32, meta *GainMapMetadata) float32 {
	g := gNorm
	if meta.Gamma != 1 {
		g = float32(math.Pow(float64(g), float64(meta.Gamma)))
	}
	logBoost := log2f(meta.MinContentBoost)*(1.0-g) + log2f(meta.MaxContentBoost)*g
	return exp2f(logBoost)
}

// applyGain applies a gain factor (already clamped to the display boost) to
// a linear SDR triplet, producing linear HDR: (rgb+offsetSdr)*effective-offsetHdr.
func applyGain(e rgb, effective float32, meta *GainMapMetadata) rgb {
	return rgb{
		r: (e.r+meta.OffsetSDR)*effective - meta.OffsetHDR,
		g: (e.g+meta.OffsetSDR)*effective - meta.OffsetHDR,
		b: (e.b+meta.OffsetSDR)*effective - meta.OffsetHDR,
	}
}

func gainFromFactor(gainFactor, minBoost, maxBoost, gamma float32) uint8 {
	if gainFactor < minBoost {
		gainFactor = minBoost
	}
	if gainFactor > maxBoost {
		gainFactor = maxBoost
	}
	logBoost := log2f(gainFactor)
	logMin := log2f(minBoost)
	logMax := log2f(maxBoost)
	g := float32(0)
	if logMax != logMin {
		g = (logBoost - logMin) / (logMax - logMin)
	}
	g = clampf(g, 0, 1)
	if gamma != 1 {
		g = float32(math.Pow(float64(g), float64(1.0/gamma)))
	}
	val := g * 255.0
	if val < 0 {
		val = 0
	}
	if val > 255 {
		val = 255
	}
	return uint8(val + 0.5)
}
