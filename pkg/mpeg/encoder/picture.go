package encoder

import (
	"context"
	"fmt"
	"math/bits"

	"golang.org/x/sync/errgroup"

	"github.com/user/mpeg1enc/pkg/mpeg/block"
	"github.com/user/mpeg1enc/pkg/mpeg/frame"
	"github.com/user/mpeg1enc/pkg/mpeg/mode"
	"github.com/user/mpeg1enc/pkg/mpeg/motion"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

// prediction is the macroblock mode chosen by analysis.
type prediction int

const (
	predIntra prediction = iota
	predForward
	predBackward
	predInterpolated
)

// record is the analysis result of one macroblock. Records live in an
// arena owned by the context and are overwritten by every picture.
type record struct {
	pred      prediction
	fwd       syntax.Vector
	bwd       syntax.Vector
	activity  int
	cur       block.Macroblock
	predicted block.Macroblock
	coefs     [6]block.Block
}

// encodePicture codes one picture: a parallel analysis pass over all
// macroblocks followed by sequential emission.
func (c *Context) encodePicture(ctx context.Context, coding int, step Step, cur, past, future *frame.Frame) (FrameStats, error) {
	decoded := c.cfg.Reference == ReferenceDecoded
	// Half-sample planes are built lazily and must exist before the
	// analysis goroutines share the references.
	var pastRef, futureRef motion.Reference
	if past != nil {
		pastRef = motion.RefOf(past, decoded, c.cfg.HalfPel)
	}
	if future != nil {
		futureRef = motion.RefOf(future, decoded, c.cfg.HalfPel)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for mby := 0; mby < c.mbHeight; mby++ {
		mby := mby
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.analyzeRow(step.Kind, cur, pastRef, futureRef, mby)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FrameStats{}, err
	}
	return c.emit(coding, step, cur, pastRef, futureRef)
}

func (c *Context) analyzeRow(kind frame.Kind, cur *frame.Frame, past, future motion.Reference, mby int) {
	th := c.cfg.Thresholds
	for mbx := 0; mbx < c.mbWidth; mbx++ {
		r := &c.records[mby*c.mbWidth+mbx]
		block.Load(cur.Orig, mbx, mby, &r.cur)
		r.activity = 1 + r.cur.MinBlockVariance()
		r.pred = predIntra
		r.fwd, r.bwd = syntax.Vector{}, syntax.Vector{}

		switch kind {
		case frame.ForwardPredicted:
			res := c.est.SearchForward(&r.cur.Y, past, mbx, mby)
			v := res.Best.Vector
			if th.PreferZero(res.ZeroCost, res.Best.Cost) {
				v = syntax.Vector{}
			}
			r.pred, r.fwd = predForward, v
		case frame.BiPredicted:
			res := c.est.SearchBi(&r.cur.Y, past, future, mbx, mby)
			r.fwd, r.bwd = res.Forward, res.Backward
			switch res.Mode {
			case motion.ModeForward:
				r.pred = predForward
			case motion.ModeBackward:
				r.pred = predBackward
			default:
				r.pred = predInterpolated
			}
		}

		if r.pred != predIntra {
			predictInto(&r.predicted, r.pred, r.fwd, r.bwd, past.Planes, future.Planes, mbx, mby)
			if th.PreferIntra(block.ErrorVariance(&r.cur, &r.predicted), r.cur.LumaVariance()) {
				r.pred = predIntra
			}
		}

		var samples [6]block.Block
		if r.pred == predIntra {
			r.cur.Blocks(&samples)
		} else {
			block.Residual(&r.cur, &r.predicted, &samples)
		}
		for i := range samples {
			block.Forward(&samples[i], &r.coefs[i])
		}
	}
}

// predictInto builds the motion compensated prediction for p.
func predictInto(dst *block.Macroblock, p prediction, fwd, bwd syntax.Vector, past, future *frame.Planes, mbx, mby int) {
	switch p {
	case predForward:
		block.Predict(past, mbx, mby, fwd, dst)
	case predBackward:
		block.Predict(future, mbx, mby, bwd, dst)
	case predInterpolated:
		var a, b block.Macroblock
		block.Predict(past, mbx, mby, fwd, &a)
		block.Predict(future, mbx, mby, bwd, &b)
		block.Average(&a, &b, dst)
	}
}

func (c *Context) needRecon(kind frame.Kind) bool {
	return (c.cfg.Reference == ReferenceDecoded && kind.IsReference()) || c.cfg.ComputePSNR || c.onRecon != nil
}

// emit writes the picture from the analysis records.
func (c *Context) emit(coding int, step Step, cur *frame.Frame, past, future motion.Reference) (FrameStats, error) {
	hdr := syntax.PictureHeader{
		TemporalReference: step.TemporalRef,
		Type:              step.Kind.PictureType(),
		VBVDelay:          0xFFFF,
	}
	switch step.Kind {
	case frame.ForwardPredicted:
		hdr.ForwardFCode = c.fCodeP
		hdr.FullPelForward = !c.cfg.HalfPel
	case frame.BiPredicted:
		hdr.ForwardFCode = c.fCodeB
		hdr.BackwardFCode = c.fCodeB
		hdr.FullPelForward = !c.cfg.HalfPel
		hdr.FullPelBackward = !c.cfg.HalfPel
	}
	fs := FrameStats{Display: step.Display, Coding: coding, Kind: step.Kind.String(), MinQ: syntax.MaxQScale + 1}
	if c.rc != nil {
		hdr.VBVDelay = uint16(c.rc.VBVDelay())
		fs.Target = c.rc.StartPicture(step.Kind)
	}
	start := c.w.BitCount()
	if err := c.coder.BeginPicture(hdr); err != nil {
		return fs, err
	}

	var recon *frame.Planes
	if c.needRecon(step.Kind) {
		recon = cur.EnsureRecon()
	}
	e := &emitter{c: c, step: step, recon: recon, past: past, future: future, fs: &fs, last: c.mbWidth*c.mbHeight - 1}
	baseQ := c.cfg.QScale.For(step.Kind)
	sumQ, coded := 0, 0
	for _, sl := range c.slices {
		for addr := sl.First; addr <= sl.Last; addr++ {
			q := baseQ
			if c.rc != nil {
				q = c.rc.MacroblockQuant(addr, int(c.w.BitCount()-start), c.records[addr].activity)
			}
			if addr == sl.First {
				if err := c.coder.BeginSlice(addr/c.mbWidth, q); err != nil {
					return fs, err
				}
			}
			used, err := e.macroblock(addr, sl, q)
			if err != nil {
				return fs, fmt.Errorf("macroblock %d: %w", addr, err)
			}
			if used > 0 {
				sumQ += used
				coded++
				fs.MinQ = min(fs.MinQ, used)
				fs.MaxQ = max(fs.MaxQ, used)
			}
		}
		c.coder.EndSlice()
	}

	fs.Bits = c.w.BitCount() - start
	if coded > 0 {
		fs.AverageQ = float64(sumQ) / float64(coded)
	} else {
		fs.MinQ = 0
	}
	if c.rc != nil {
		c.rc.EndPicture(int(fs.Bits))
	}
	ks := c.stats.Kind(step.Kind)
	ks.Frames++
	ks.Bits += fs.Bits
	ks.Intra += fs.Intra
	ks.Inter += fs.Inter
	ks.Skipped += fs.Skipped

	if recon != nil {
		cur.InvalidateHalf()
		if c.cfg.ComputePSNR {
			w, h := c.cfg.Width, c.cfg.Height
			fs.PSNRY = psnr(cur.Orig.Y, recon.Y, w, h)
			fs.PSNRCb = psnr(cur.Orig.Cb, recon.Cb, (w+1)/2, (h+1)/2)
			fs.PSNRCr = psnr(cur.Orig.Cr, recon.Cr, (w+1)/2, (h+1)/2)
		}
		if c.onRecon != nil {
			c.onRecon(step.Display, recon.ToYCbCr(c.cfg.Width, c.cfg.Height))
		}
	}
	c.log.Debug("Frame %d (%s): %d bits, q %d-%d, %d intra, %d inter, %d skipped",
		step.Display, step.Kind, fs.Bits, fs.MinQ, fs.MaxQ, fs.Intra, fs.Inter, fs.Skipped)
	return fs, nil
}

// emitter carries the per-picture state of the emission pass.
type emitter struct {
	c      *Context
	step   Step
	recon  *frame.Planes
	past   motion.Reference
	future motion.Reference
	fs     *FrameStats
	last   int
}

// macroblock quantizes, codes or skips one macroblock and reconstructs it.
// It returns the quantizer scale carried by the macroblock, 0 when none.
func (e *emitter) macroblock(addr int, sl mode.Slice, q int) (int, error) {
	c := e.c
	r := &c.records[addr]
	mbx, mby := addr%c.mbWidth, addr/c.mbWidth
	intra := r.pred == predIntra

	res, err := c.quant.QuantizeMacroblock(&r.coefs, intra, q)
	if err != nil {
		return 0, err
	}
	if res.Overflowed {
		c.stats.QuantRetries++
	}
	if res.Saturated {
		c.stats.Saturated++
		e.fs.Saturated++
		c.log.Warn("Macroblock %d of frame %d clipped at quantizer scale %d", addr, e.step.Display, res.QScale)
	}

	mb := syntax.Macroblock{Address: addr, Intra: intra, QScale: res.QScale, Pattern: res.Pattern, Blocks: &res.Levels}
	switch r.pred {
	case predForward:
		mb.Forward, mb.ForwardVector = true, r.fwd
	case predBackward:
		mb.Backward, mb.BackwardVector = true, r.bwd
	case predInterpolated:
		mb.Forward, mb.ForwardVector = true, r.fwd
		mb.Backward, mb.BackwardVector = true, r.bwd
	}

	if !intra && mode.SkipPosition(addr, sl, e.last, c.coder.LastIntra()) {
		if e.step.Kind == frame.BiPredicted && c.cfg.BInheritSkip {
			if pred, ok := e.inherited(r, mbx, mby); ok {
				e.skip(mbx, mby, &pred)
				return 0, nil
			}
		}
		if res.Pattern == 0 && c.coder.SkipCompatible(&mb) {
			e.skip(mbx, mby, &r.predicted)
			return 0, nil
		}
	}

	if err := c.coder.Encode(&mb); err != nil {
		return 0, err
	}
	used := 0
	if intra {
		e.fs.Intra++
		c.stats.Kind(e.step.Kind).Blocks += 6
		used = res.QScale
	} else {
		e.fs.Inter++
		c.stats.Kind(e.step.Kind).Blocks += bits.OnesCount(uint(res.Pattern))
		if res.Pattern != 0 {
			used = res.QScale
		}
	}

	if e.recon != nil {
		var out block.Macroblock
		var deq, spatial [6]block.Block
		if intra || res.Pattern != 0 {
			c.quant.Dequantize(&res, intra, &deq)
			for i := range deq {
				if res.Pattern&syntax.PatternBit(i) != 0 {
					block.Inverse(&deq[i], &spatial[i])
				}
			}
		}
		switch {
		case intra:
			out.FromBlocks(&spatial)
		case res.Pattern != 0:
			block.Reconstruct(&r.predicted, &spatial, res.Pattern, &out)
		default:
			out = r.predicted
		}
		block.Store(e.recon, mbx, mby, &out)
	}
	return used, nil
}

// inherited reports whether the macroblock can be skipped by reusing the
// previous macroblock's prediction in a B picture, and returns that
// prediction.
func (e *emitter) inherited(r *record, mbx, mby int) (block.Macroblock, bool) {
	var pred block.Macroblock
	c := e.c
	flags := c.coder.LastFlags()
	if flags&syntax.MBIntra != 0 || flags&(syntax.MBForward|syntax.MBBackward) == 0 {
		return pred, false
	}
	fwd, bwd := c.coder.Predictors()
	w, h := c.mbWidth*16, c.mbHeight*16
	p := predForward
	switch {
	case flags&syntax.MBForward != 0 && flags&syntax.MBBackward != 0:
		p = predInterpolated
	case flags&syntax.MBBackward != 0:
		p = predBackward
	}
	if p != predBackward && !block.InBounds(w, h, mbx*16, mby*16, 16, fwd) {
		return pred, false
	}
	if p != predForward && !block.InBounds(w, h, mbx*16, mby*16, 16, bwd) {
		return pred, false
	}
	predictInto(&pred, p, fwd, bwd, e.past.Planes, e.future.Planes, mbx, mby)
	if !c.cfg.Thresholds.InheritSkip(&r.cur, &pred) {
		return pred, false
	}
	return pred, true
}

func (e *emitter) skip(mbx, mby int, pred *block.Macroblock) {
	e.fs.Skipped++
	if e.recon != nil {
		block.Store(e.recon, mbx, mby, pred)
	}
}
