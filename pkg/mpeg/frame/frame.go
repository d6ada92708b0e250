// Package frame holds the frame store: original and reconstructed sample
// planes, the half-sample planes used by motion search, and the coding kind
// of each frame.
package frame

// Frame is one picture moving through the encoder.
type Frame struct {
	// Number is the display index within the source.
	Number int
	Kind   Kind
	// Orig holds the source samples.
	Orig *Planes
	// Recon holds the decoder-equivalent reconstruction. It is nil until the
	// frame has been coded, and only populated when needed.
	Recon *Planes

	half     *HalfPlanes
	halfOrig bool
	pool     *Pool
}

// New wraps source planes.
func New(number int, kind Kind, orig *Planes) *Frame {
	return &Frame{Number: number, Kind: kind, Orig: orig}
}

// MBWidth returns the width in macroblocks.
func (f *Frame) MBWidth() int {
	return f.Orig.MBWidth()
}

// MBHeight returns the height in macroblocks.
func (f *Frame) MBHeight() int {
	return f.Orig.MBHeight()
}

// Reference returns the planes later frames predict from: the
// reconstruction when decoded is true and it exists, else the original.
func (f *Frame) Reference(decoded bool) *Planes {
	if decoded && f.Recon != nil {
		return f.Recon
	}
	return f.Orig
}

// Half returns the half-sample planes of the reference luminance, building
// them on first use.
func (f *Frame) Half(decoded bool) *HalfPlanes {
	useOrig := !decoded || f.Recon == nil
	if f.half == nil || f.halfOrig != useOrig {
		f.half = ComputeHalf(f.Reference(decoded).Y)
		f.halfOrig = useOrig
	}
	return f.half
}

// EnsureRecon allocates the reconstruction planes if missing.
func (f *Frame) EnsureRecon() *Planes {
	if f.Recon == nil {
		if f.pool != nil {
			f.Recon = f.pool.Get()
		} else {
			f.Recon = NewPlanes(f.MBWidth(), f.MBHeight())
		}
		f.half = nil
	}
	return f.Recon
}

// InvalidateHalf drops cached half-sample planes after the reference
// samples change.
func (f *Frame) InvalidateHalf() {
	f.half = nil
}

// Release returns the frame's planes to its pool. The frame must not be
// used afterwards.
func (f *Frame) Release() {
	if f.pool != nil {
		f.pool.Put(f.Orig)
		if f.Recon != nil {
			f.pool.Put(f.Recon)
		}
	}
	f.Orig, f.Recon, f.half = nil, nil, nil
}
