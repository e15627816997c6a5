package ultrahdr

import "math"

// rgb is a linear or non-linear RGB triplet, depending on context. It is the
// one working color type shared by the gain-map generator, applier, and
// tone mapper.
type rgb struct {
	r, g, b float32
}

func log2f(v float32) float32 { return float32(math.Log2(float64(v))) }
func exp2f(v float32) float32 { return float32(math.Exp2(float64(v))) }

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// --- sRGB transfer function ---

func srgbInvOetf(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return float32(math.Pow(float64((v+0.055)/1.055), 2.4))
}

func srgbOetf(v float32) float32 {
	if v <= 0.0031308 {
		return 12.92 * v
	}
	return 1.055*float32(math.Pow(float64(v), 1.0/2.4)) - 0.055
}

func srgbInvOetfRGB(c rgb) rgb {
	return rgb{srgbInvOetf(c.r), srgbInvOetf(c.g), srgbInvOetf(c.b)}
}

// --- HLG transfer function (ITU-R BT.2100) ---

const (
	hlgA = 0.17883277
	hlgB = 1 - 4*hlgA
	hlgC = 0.55991073
)

func hlgInvOetf(v float32) float32 {
	if v <= 0.5 {
		return v * v / 3.0
	}
	return (float32(math.Exp(float64((v-hlgC)/hlgA))) + hlgB) / 12.0
}

func hlgOetf(v float32) float32 {
	if v <= 1.0/12.0 {
		return float32(math.Sqrt(float64(3.0 * v)))
	}
	return hlgA*float32(math.Log(float64(12.0*v-hlgB))) + hlgC
}

// hlgOOTF applies the HLG system gamma (scene-light to display-light) used
// when treating HLG content as scene-referred; gain-map math in this core
// works in display-linear space so gamma is fixed at 1.2 per BT.2100 for a
// 1000-nit nominal display peak.
func hlgOOTF(c rgb, gamma float32) rgb {
	ys := 0.2627*c.r + 0.6780*c.g + 0.0593*c.b
	if ys <= 0 {
		return rgb{0, 0, 0}
	}
	factor := float32(math.Pow(float64(ys), float64(gamma-1)))
	return rgb{c.r * factor, c.g * factor, c.b * factor}
}

func hlgInvOetfRGB(c rgb) rgb {
	linear := rgb{hlgInvOetf(c.r), hlgInvOetf(c.g), hlgInvOetf(c.b)}
	return hlgOOTF(linear, 1.2)
}

// --- PQ transfer function (SMPTE ST 2084) ---

const (
	pqM1 = 2610.0 / 16384.0
	pqM2 = 2523.0 / 4096.0 * 128.0
	pqC1 = 3424.0 / 4096.0
	pqC2 = 2413.0 / 4096.0 * 32.0
	pqC3 = 2392.0 / 4096.0 * 32.0
)

func pqInvOetf(v float32) float32 {
	vp := float64(v)
	num := math.Max(math.Pow(vp, 1.0/pqM2)-pqC1, 0)
	den := pqC2 - pqC3*math.Pow(vp, 1.0/pqM2)
	return float32(math.Pow(num/den, 1.0/pqM1))
}

func pqOetf(v float32) float32 {
	vp := float64(v)
	num := pqC1 + pqC2*math.Pow(vp, pqM1)
	den := 1 + pqC3*math.Pow(vp, pqM1)
	return float32(math.Pow(num/den, pqM2))
}

func pqInvOetfRGB(c rgb) rgb {
	return rgb{pqInvOetf(c.r), pqInvOetf(c.g), pqInvOetf(c.b)}
}

func transferInvOetf(t ColorTransfer, c rgb) rgb {
	switch t {
	case TransferHLG:
		return hlgInvOetfRGB(c)
	case TransferPQ:
		return pqInvOetfRGB(c)
	case TransferLinear:
		return c
	default:
		return srgbInvOetfRGB(c)
	}
}

// whiteNitsFor returns the nominal peak white luminance (in nits) implied
// by an HDR transfer function, used to normalize HDR linear values into
// SDR-white-relative units before computing the gain ratio.
func whiteNitsFor(t ColorTransfer) float32 {
	switch t {
	case TransferPQ:
		return pqMaxNits
	case TransferHLG:
		return hlgMaxNits
	default:
		return sdrWhiteNits
	}
}

// --- Gamut conversion matrices (RGB->RGB, linear light) ---

type mat3 [3][3]float32

func (m mat3) apply(c rgb) rgb {
	return rgb{
		m[0][0]*c.r + m[0][1]*c.g + m[0][2]*c.b,
		m[1][0]*c.r + m[1][1]*c.g + m[1][2]*c.b,
		m[2][0]*c.r + m[2][1]*c.g + m[2][2]*c.b,
	}
}

// bt709ToBT2100 and friends are derived by chaining RGB->XYZ (source
// primaries) with XYZ->RGB (destination primaries) for the standard
// ITU-R BT.709 / P3-D65 / BT.2100(=BT.2020 primaries) primary sets and
// the D65 white point shared by all three.
var (
	bt709ToBT2100 = mat3{
		{0.6274040, 0.3292820, 0.0433136},
		{0.0690970, 0.9195400, 0.0113612},
		{0.0163916, 0.0880132, 0.8955950},
	}
	p3ToBT2100 = mat3{
		{0.7538330, 0.1985820, 0.0475849},
		{0.0457456, 0.9417720, 0.0124772},
		{-0.0012350, 0.0176017, 0.9836330},
	}
	bt2100ToBT709 = mat3{
		{1.6604910, -0.5876411, -0.0728499},
		{-0.1245505, 1.1328999, -0.0083494},
		{-0.0181508, -0.1005789, 1.1187297},
	}
	bt2100ToP3 = mat3{
		{1.3435757, -0.2821710, -0.0613748},
		{-0.0651915, 1.0757406, -0.0105491},
		{0.0028040, -0.0195746, 1.0167706},
	}
	p3ToBT709 = mat3{
		{1.2249401, -0.2249404, 0.0000003},
		{-0.0420569, 1.0420571, -0.0000002},
		{-0.0196376, -0.0786361, 1.0982736},
	}
	bt709ToP3 = mat3{
		{0.8224621, 0.1775380, -0.0000001},
		{0.0331941, 0.9668058, 0.0000001},
		{0.0170827, 0.0723974, 0.9105199},
	}
)

// convertGamut maps a linear-light RGB triplet from src to dst.
func convertGamut(c rgb, src, dst ColorGamut) rgb {
	if src == dst || src == GamutUnspecified || dst == GamutUnspecified {
		return c
	}
	switch {
	case src == GamutBT709 && dst == GamutDisplayP3:
		return bt709ToP3.apply(c)
	case src == GamutBT709 && dst == GamutBT2100:
		return bt709ToBT2100.apply(c)
	case src == GamutDisplayP3 && dst == GamutBT709:
		return p3ToBT709.apply(c)
	case src == GamutDisplayP3 && dst == GamutBT2100:
		return p3ToBT2100.apply(c)
	case src == GamutBT2100 && dst == GamutBT709:
		return bt2100ToBT709.apply(c)
	case src == GamutBT2100 && dst == GamutDisplayP3:
		return bt2100ToP3.apply(c)
	default:
		return c
	}
}

// --- Luminance ---

func srgbLuminance(c rgb) float32   { return 0.2126*c.r + 0.7152*c.g + 0.0722*c.b }
func p3Luminance(c rgb) float32     { return 0.2290*c.r + 0.6917*c.g + 0.0793*c.b }
func bt2100Luminance(c rgb) float32 { return 0.2627*c.r + 0.6780*c.g + 0.0593*c.b }

func luminanceFor(gamut ColorGamut, c rgb) float32 {
	switch gamut {
	case GamutDisplayP3:
		return p3Luminance(c)
	case GamutBT2100:
		return bt2100Luminance(c)
	default:
		return srgbLuminance(c)
	}
}

// --- YUV -> RGB (full-range, per ITU-R matrix coefficients) ---

func bt601YuvToRgb(y, u, v float32) rgb {
	return rgb{
		y + 1.402*v,
		y - 0.344136*u - 0.714136*v,
		y + 1.772*u,
	}
}

func bt709YuvToRgb(y, u, v float32) rgb {
	return rgb{
		y + 1.5748*v,
		y - 0.187324*u - 0.468124*v,
		y + 1.8556*u,
	}
}

func bt2020YuvToRgb(y, u, v float32) rgb {
	return rgb{
		y + 1.4746*v,
		y - 0.164553*u - 0.571353*v,
		y + 1.8814*u,
	}
}

func yuvToRgbFor(gamut ColorGamut, y, u, v float32) rgb {
	switch gamut {
	case GamutDisplayP3:
		// Display P3 shares BT.709-style matrix coefficients; only the
		// primaries (used for gamut conversion) differ from BT.709.
		return bt709YuvToRgb(y, u, v)
	case GamutBT2100:
		return bt2020YuvToRgb(y, u, v)
	default:
		return bt601YuvToRgb(y, u, v)
	}
}
