package frame

// HalfPlanes holds the half-sample interpolations of a luminance plane.
// X[x,y] averages (x,y) and (x+1,y); Y averages (x,y) and (x,y+1); XY
// averages the four neighbours. The last column and row replicate the edge.
type HalfPlanes struct {
	X  *Plane
	Y  *Plane
	XY *Plane
}

// ComputeHalf builds the half-sample planes for p.
func ComputeHalf(p *Plane) *HalfPlanes {
	h := &HalfPlanes{
		X:  NewPlane(p.Width, p.Height),
		Y:  NewPlane(p.Width, p.Height),
		XY: NewPlane(p.Width, p.Height),
	}
	w := p.Width
	for y := 0; y < p.Height; y++ {
		y1 := min(y+1, p.Height-1)
		row, next := p.Pix[y*w:(y+1)*w], p.Pix[y1*w:(y1+1)*w]
		hx, hy, hxy := h.X.Pix[y*w:(y+1)*w], h.Y.Pix[y*w:(y+1)*w], h.XY.Pix[y*w:(y+1)*w]
		for x := 0; x < w; x++ {
			x1 := min(x+1, w-1)
			a, b := int(row[x]), int(row[x1])
			c, d := int(next[x]), int(next[x1])
			hx[x] = uint8((a + b + 1) >> 1)
			hy[x] = uint8((a + c + 1) >> 1)
			hxy[x] = uint8((a + b + c + d + 2) >> 2)
		}
	}
	return h
}

// Select returns the plane holding samples offset by the half-sample
// fractions fx, fy (each 0 or 1) from base.
func (h *HalfPlanes) Select(base *Plane, fx, fy int) *Plane {
	switch {
	case fx == 0 && fy == 0:
		return base
	case fy == 0:
		return h.X
	case fx == 0:
		return h.Y
	default:
		return h.XY
	}
}
