package ultrahdr

// plane is a generic view over one byte plane of a PixelBuffer: width and
// height in elements, an element size in bytes, and a row stride in bytes.
// Every geometric operation below is defined once against plane and reused
// for luma and (when present) chroma.
type plane struct {
	data     []byte
	stride   int
	width    int
	height   int
	elemSize int
}

func newPlane(w, h, elemSize int) plane {
	stride := w * elemSize
	return plane{data: make([]byte, stride*h), stride: stride, width: w, height: h, elemSize: elemSize}
}

func (p plane) at(x, y int) []byte {
	off := y*p.stride + x*p.elemSize
	return p.data[off : off+p.elemSize]
}

func (p plane) set(x, y int, v []byte) {
	copy(p.at(x, y), v)
}

func cropPlane(src plane, left, top, w, h int) plane {
	dst := newPlane(w, h, src.elemSize)
	for y := 0; y < h; y++ {
		dst.set2Row(y, src, left, top+y, w)
	}
	return dst
}

// set2Row copies w consecutive elements from src starting at (srcX,srcY)
// into row dy of the destination plane.
func (p plane) set2Row(dy int, src plane, srcX, srcY, w int) {
	srcOff := srcY*src.stride + srcX*src.elemSize
	dstOff := dy * p.stride
	copy(p.data[dstOff:dstOff+w*p.elemSize], src.data[srcOff:srcOff+w*src.elemSize])
}

func mirrorVPlane(src plane) plane {
	dst := newPlane(src.width, src.height, src.elemSize)
	for y := 0; y < src.height; y++ {
		srcRow := src.data[(src.height-1-y)*src.stride : (src.height-1-y)*src.stride+src.width*src.elemSize]
		copy(dst.data[y*dst.stride:y*dst.stride+dst.width*dst.elemSize], srcRow)
	}
	return dst
}

func mirrorHPlane(src plane) plane {
	dst := newPlane(src.width, src.height, src.elemSize)
	for y := 0; y < src.height; y++ {
		for x := 0; x < src.width; x++ {
			dst.set(x, y, src.at(src.width-1-x, y))
		}
	}
	return dst
}

func rotate90Plane(src plane) plane {
	dst := newPlane(src.height, src.width, src.elemSize)
	for i := 0; i < dst.height; i++ { // i indexes dst rows == src width
		for j := 0; j < dst.width; j++ { // j indexes dst cols == src height
			dst.set(j, i, src.at(i, src.height-1-j))
		}
	}
	return dst
}

func rotate180Plane(src plane) plane {
	dst := newPlane(src.width, src.height, src.elemSize)
	for i := 0; i < dst.height; i++ {
		for j := 0; j < dst.width; j++ {
			dst.set(j, i, src.at(src.width-1-j, src.height-1-i))
		}
	}
	return dst
}

func rotate270Plane(src plane) plane {
	dst := newPlane(src.height, src.width, src.elemSize)
	for i := 0; i < dst.height; i++ {
		for j := 0; j < dst.width; j++ {
			dst.set(j, i, src.at(src.width-1-i, j))
		}
	}
	return dst
}

func resizeNearestPlane(src plane, nw, nh int) plane {
	dst := newPlane(nw, nh, src.elemSize)
	for i := 0; i < nh; i++ {
		sy := i * src.height / nh
		for j := 0; j < nw; j++ {
			sx := j * src.width / nw
			dst.set(j, i, src.at(sx, sy))
		}
	}
	return dst
}

// planesOf splits a PixelBuffer into its luma and (if present) chroma
// planes using the element sizes implied by its format, so editing
// operations can be written once against `plane` and applied to both.
func planesOf(p *PixelBuffer) (luma plane, chroma plane, hasChroma bool) {
	elem := p.bytesPerLumaSample()
	luma = plane{data: p.Luma, stride: p.LumaStride, width: p.Width, height: p.Height, elemSize: elem}
	switch p.Format {
	case FormatYUV420:
		chroma = plane{data: p.Chroma, stride: p.ChromaStride, width: p.Width / 2, height: p.Height / 2, elemSize: 2}
		hasChroma = true
	case FormatP010:
		chroma = plane{data: p.Chroma, stride: p.ChromaStride, width: p.Width / 2, height: p.Height / 2, elemSize: 4}
		hasChroma = true
	}
	return luma, chroma, hasChroma
}

func rebuildFromPlanes(orig *PixelBuffer, luma, chroma plane, hasChroma bool) *PixelBuffer {
	out := &PixelBuffer{
		Format:      orig.Format,
		Width:       luma.width,
		Height:      luma.height,
		Gamut:       orig.Gamut,
		Transfer:    orig.Transfer,
		HDRCapacity: orig.HDRCapacity,
		LumaStride:  luma.stride,
		Luma:        luma.data,
	}
	if hasChroma {
		out.ChromaStride = chroma.stride
		out.Chroma = chroma.data
	}
	return out
}

// AddEffects applies effects, in order, identically to buf and (when
// non-nil) its associated gain map, preserving their scale-factor
// relationship.
func AddEffects(buf *PixelBuffer, gainmap *PixelBuffer, effects []Effect) (*PixelBuffer, *PixelBuffer, error) {
	const op = "AddEffects"
	if buf == nil {
		return nil, nil, newErr(BadPointer, op, nil)
	}
	outBuf := buf
	outMap := gainmap
	for _, eff := range effects {
		var err error
		outBuf, err = applyEffect(outBuf, eff)
		if err != nil {
			return nil, nil, err
		}
		if outMap != nil {
			outMap, err = applyEffect(outMap, scaleEffectForGainMap(eff, buf, gainmap))
			if err != nil {
				return nil, nil, err
			}
		}
	}
	return outBuf, outMap, nil
}

// scaleEffectForGainMap rescales a Crop/Resize effect's coordinates from
// base-image space into gain-map space; Mirror/Rotate need no rescaling.
func scaleEffectForGainMap(eff Effect, base, gainmap *PixelBuffer) Effect {
	switch e := eff.(type) {
	case CropEffect:
		sx := gainmap.Width
		sy := gainmap.Height
		bx := base.Width
		by := base.Height
		return CropEffect{
			Left:   e.Left * sx / bx,
			Top:    e.Top * sy / by,
			Width:  e.Width * sx / bx,
			Height: e.Height * sy / by,
		}
	case ResizeEffect:
		sx := gainmap.Width
		sy := gainmap.Height
		bx := base.Width
		by := base.Height
		return ResizeEffect{
			Width:  e.Width * sx / bx,
			Height: e.Height * sy / by,
		}
	default:
		return eff
	}
}

func applyEffect(buf *PixelBuffer, eff Effect) (*PixelBuffer, error) {
	const op = "applyEffect"
	luma, chroma, hasChroma := planesOf(buf)
	switch e := eff.(type) {
	case CropEffect:
		if e.Left < 0 || e.Width <= 0 || e.Left+e.Width > buf.Width ||
			e.Top < 0 || e.Height <= 0 || e.Top+e.Height > buf.Height {
			return nil, newErr(InvalidCropping, op, nil)
		}
		newLuma := cropPlane(luma, e.Left, e.Top, e.Width, e.Height)
		var newChroma plane
		if hasChroma {
			newChroma = cropPlane(chroma, e.Left/2, e.Top/2, e.Width/2, e.Height/2)
		}
		return rebuildFromPlanes(buf, newLuma, newChroma, hasChroma), nil

	case MirrorEffect:
		var newLuma, newChroma plane
		if e.Direction == MirrorVertical {
			newLuma = mirrorVPlane(luma)
			if hasChroma {
				newChroma = mirrorVPlane(chroma)
			}
		} else {
			newLuma = mirrorHPlane(luma)
			if hasChroma {
				newChroma = mirrorHPlane(chroma)
			}
		}
		return rebuildFromPlanes(buf, newLuma, newChroma, hasChroma), nil

	case RotateEffect:
		var lf, cf func(plane) plane
		switch e.Degrees {
		case 90:
			lf, cf = rotate90Plane, rotate90Plane
		case 180:
			lf, cf = rotate180Plane, rotate180Plane
		case 270:
			lf, cf = rotate270Plane, rotate270Plane
		default:
			return nil, newErr(InvalidCropping, op, nil)
		}
		newLuma := lf(luma)
		var newChroma plane
		if hasChroma {
			newChroma = cf(chroma)
		}
		return rebuildFromPlanes(buf, newLuma, newChroma, hasChroma), nil

	case ResizeEffect:
		if e.Width <= 0 || e.Height <= 0 {
			return nil, newErr(UnsupportedWidthHeight, op, nil)
		}
		newLuma := resizeNearestPlane(luma, e.Width, e.Height)
		var newChroma plane
		if hasChroma {
			newChroma = resizeNearestPlane(chroma, e.Width/2, e.Height/2)
		}
		return rebuildFromPlanes(buf, newLuma, newChroma, hasChroma), nil

	default:
		return nil, newErr(UnsupportedFeature, op, nil)
	}
}
